package geo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps one device-fed sensor per user. The fix endpoint pushes
// raw readings (or typed sensor failures) into the registry; one-shot and
// watch callers block on the other side. A user who has never pushed a
// reading has no sensor at all, which surfaces as ErrUnsupported.
type Registry struct {
	mu      sync.Mutex
	sensors map[uint64]*deviceSensor
}

// NewRegistry returns an empty sensor registry.
func NewRegistry() *Registry {
	return &Registry{sensors: make(map[uint64]*deviceSensor)}
}

// Push records a fix reported by the user's device, waking any one-shot
// waiter and feeding every active watch. The first push creates the
// user's sensor.
func (r *Registry) Push(userID uint64, fix Fix) {
	if fix.Recorded.IsZero() {
		fix.Recorded = time.Now().UTC()
	}
	r.sensor(userID, true).push(fix)
}

// PushError forwards a typed sensor failure (permission denied, position
// unavailable, timeout) from the device to waiting callers.
func (r *Registry) PushError(userID uint64, err error) {
	r.sensor(userID, true).pushError(err)
}

// Current resolves one fix for the user under the default accessor
// policy, for callers that need a position without holding a
// subscription. ErrUnsupported when the user's device never reported in.
func (r *Registry) Current(ctx context.Context, userID uint64) (Fix, error) {
	return NewAccessor(r.SensorFor(userID)).Current(ctx)
}

// SensorFor returns the sensor registered for the user, or nil when the
// device has never reported in.
func (r *Registry) SensorFor(userID uint64) Sensor {
	if s := r.sensor(userID, false); s != nil {
		return s
	}
	return nil
}

func (r *Registry) sensor(userID uint64, create bool) *deviceSensor {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sensors[userID]
	if !ok && create {
		s = newDeviceSensor()
		r.sensors[userID] = s
	}
	return s
}

// currentResult carries either a fix or a sensor failure to a one-shot
// waiter.
type currentResult struct {
	fix Fix
	err error
}

type watcher struct {
	fixes chan Fix
	errs  chan error
}

// deviceSensor implements Sensor on top of readings pushed by the device.
type deviceSensor struct {
	mu       sync.Mutex
	last     Fix
	hasLast  bool
	lastAt   time.Time
	waiters  []chan currentResult
	watchers map[string]*watcher
}

func newDeviceSensor() *deviceSensor {
	return &deviceSensor{watchers: make(map[string]*watcher)}
}

func (d *deviceSensor) push(fix Fix) {
	d.mu.Lock()
	d.last = fix
	d.hasLast = true
	d.lastAt = time.Now()
	waiters := d.waiters
	d.waiters = nil
	for _, w := range d.watchers {
		select {
		case w.fixes <- fix:
		default: // watcher is behind; drop rather than block the push
		}
	}
	d.mu.Unlock()
	for _, ch := range waiters {
		ch <- currentResult{fix: fix}
	}
}

func (d *deviceSensor) pushError(err error) {
	d.mu.Lock()
	waiters := d.waiters
	d.waiters = nil
	for _, w := range d.watchers {
		select {
		case w.errs <- err:
		default:
		}
	}
	d.mu.Unlock()
	for _, ch := range waiters {
		ch <- currentResult{err: err}
	}
}

// Current satisfies the request from the cached reading when it is fresh
// enough, otherwise blocks until the device pushes or the timeout elapses.
func (d *deviceSensor) Current(ctx context.Context, opts Options) (Fix, error) {
	d.mu.Lock()
	if d.hasLast && opts.MaximumAge > 0 && time.Since(d.lastAt) <= opts.MaximumAge {
		fix := d.last
		d.mu.Unlock()
		return fix, nil
	}
	ch := make(chan currentResult, 1)
	d.waiters = append(d.waiters, ch)
	d.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.fix, res.err
	case <-timer.C:
		d.removeWaiter(ch)
		return Fix{}, ErrTimeout
	case <-ctx.Done():
		d.removeWaiter(ch)
		return Fix{}, ctx.Err()
	}
}

func (d *deviceSensor) removeWaiter(ch chan currentResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.waiters {
		if w == ch {
			d.waiters = append(d.waiters[:i], d.waiters[i+1:]...)
			return
		}
	}
}

// Watch streams every pushed fix until stop is called or ctx ends.
// Throttling is the accessor's concern, not the sensor's.
func (d *deviceSensor) Watch(ctx context.Context, _ Options) (<-chan Fix, <-chan error, func()) {
	w := &watcher{fixes: make(chan Fix, 8), errs: make(chan error, 1)}
	id := uuid.NewString()

	d.mu.Lock()
	d.watchers[id] = w
	d.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watchers, id)
			d.mu.Unlock()
			close(w.fixes)
			close(w.errs)
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return w.fixes, w.errs, stop
}
