package geo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for the accessor. AccuracyThreshold is the radius above which a
// one-shot reading is considered too coarse and a single refinement attempt
// is made. DefaultMinInterval throttles watch callbacks.
const (
	AccuracyThreshold  = 50.0 // meters
	DefaultTimeout     = 10 * time.Second
	DefaultMaximumAge  = 15 * time.Second
	DefaultMinInterval = 60 * time.Second
)

// Accessor adds the application's acquisition policy on top of a raw
// Sensor: high-accuracy one-shot fetches with one refinement retry, and
// continuous watches throttled to a minimum re-notification interval.
type Accessor struct {
	sensor      Sensor
	threshold   float64
	timeout     time.Duration
	maxAge      time.Duration
	minInterval time.Duration
}

// NewAccessor wraps the given sensor with default policy values. A nil
// sensor is allowed; every call then fails with ErrUnsupported.
func NewAccessor(sensor Sensor) *Accessor {
	return &Accessor{
		sensor:      sensor,
		threshold:   AccuracyThreshold,
		timeout:     DefaultTimeout,
		maxAge:      DefaultMaximumAge,
		minInterval: DefaultMinInterval,
	}
}

// Current returns one position fix. It requests high-accuracy mode and, if
// the reported accuracy exceeds the threshold, issues exactly one more
// attempt demanding a fresh reading and returns whatever that second
// attempt yields, even if it is still coarse. Sensor errors propagate
// untouched.
func (a *Accessor) Current(ctx context.Context) (Fix, error) {
	if a.sensor == nil {
		return Fix{}, ErrUnsupported
	}
	fix, err := a.sensor.Current(ctx, Options{
		HighAccuracy: true,
		Timeout:      a.timeout,
		MaximumAge:   a.maxAge,
	})
	if err != nil {
		return Fix{}, err
	}
	if fix.Accuracy > a.threshold {
		// One refinement attempt, bypassing any cached reading.
		return a.sensor.Current(ctx, Options{
			HighAccuracy: true,
			Timeout:      a.timeout,
			MaximumAge:   0,
		})
	}
	return fix, nil
}

// Subscription is the handle returned by WatchLocation. The throttle
// timestamp lives here rather than in package state so concurrent
// sessions never interfere with each other's intervals.
type Subscription struct {
	id     string
	cancel context.CancelFunc
	stop   func()
	once   sync.Once

	lastDelivered time.Time // guarded by the single delivery goroutine
}

// ID returns the opaque identifier of this subscription.
func (s *Subscription) ID() string { return s.id }

// Stop cancels the subscription. Calling Stop on an already stopped
// subscription is a no-op. Fix callbacks cease after Stop returns, but an
// in-flight store write triggered by an earlier callback is not cancelled.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.stop()
	})
}

// WatchLocation begins continuous reporting. onFix is invoked at most once
// per minInterval even when the sensor reports more often; excess fixes
// are dropped, not queued. Sensor errors are forwarded to onErr and do not
// end the watch. A non-positive minInterval selects the default.
func (a *Accessor) WatchLocation(onFix func(Fix), onErr func(error), minInterval time.Duration) (*Subscription, error) {
	if a.sensor == nil {
		return nil, ErrUnsupported
	}
	if minInterval <= 0 {
		minInterval = a.minInterval
	}
	// The watch outlives the request that started it, so it runs on its
	// own context rather than the caller's.
	ctx, cancel := context.WithCancel(context.Background())
	fixes, errs, stop := a.sensor.Watch(ctx, Options{HighAccuracy: true})
	sub := &Subscription{id: uuid.NewString(), cancel: cancel, stop: stop}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case fix, ok := <-fixes:
				if !ok {
					return
				}
				now := time.Now()
				if !sub.lastDelivered.IsZero() && now.Sub(sub.lastDelivered) < minInterval {
					continue // dropped, inside the throttle window
				}
				sub.lastDelivered = now
				onFix(fix)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				if onErr != nil {
					onErr(err)
				}
			}
		}
	}()
	return sub, nil
}

// StopWatching cancels a subscription. Idempotent; nil handles are
// ignored.
func (a *Accessor) StopWatching(sub *Subscription) {
	if sub != nil {
		sub.Stop()
	}
}
