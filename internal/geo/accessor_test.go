package geo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSensor scripts one-shot responses and exposes the watch channels so
// tests can drive them directly.
type fakeSensor struct {
	mu      sync.Mutex
	results []currentCall
	calls   []Options

	fixes chan Fix
	errs  chan error
	stops int
}

type currentCall struct {
	fix Fix
	err error
}

func newFakeSensor(results ...currentCall) *fakeSensor {
	return &fakeSensor{
		results: results,
		fixes:   make(chan Fix, 8),
		errs:    make(chan error, 1),
	}
}

func (f *fakeSensor) Current(ctx context.Context, opts Options) (Fix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if len(f.results) == 0 {
		return Fix{}, ErrUnavailable
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.fix, r.err
}

func (f *fakeSensor) Watch(ctx context.Context, opts Options) (<-chan Fix, <-chan error, func()) {
	return f.fixes, f.errs, func() {
		f.mu.Lock()
		f.stops++
		f.mu.Unlock()
	}
}

func TestCurrentNilSensor(t *testing.T) {
	a := NewAccessor(nil)
	if _, err := a.Current(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Current() error = %v, want ErrUnsupported", err)
	}
	if _, err := a.WatchLocation(func(Fix) {}, nil, 0); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("WatchLocation() error = %v, want ErrUnsupported", err)
	}
}

func TestCurrentAccurateFirstTry(t *testing.T) {
	sensor := newFakeSensor(currentCall{fix: Fix{Latitude: 12.9, Longitude: 77.6, Accuracy: 10}})
	a := NewAccessor(sensor)

	fix, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix.Accuracy != 10 {
		t.Errorf("accuracy = %v, want 10", fix.Accuracy)
	}
	if len(sensor.calls) != 1 {
		t.Fatalf("sensor called %d times, want 1", len(sensor.calls))
	}
	if !sensor.calls[0].HighAccuracy {
		t.Error("first attempt should request high accuracy")
	}
	if sensor.calls[0].MaximumAge != DefaultMaximumAge {
		t.Errorf("first attempt MaximumAge = %v, want %v", sensor.calls[0].MaximumAge, DefaultMaximumAge)
	}
}

func TestCurrentRefinesCoarseFix(t *testing.T) {
	sensor := newFakeSensor(
		currentCall{fix: Fix{Latitude: 12.9, Longitude: 77.6, Accuracy: 80}},
		currentCall{fix: Fix{Latitude: 12.91, Longitude: 77.61, Accuracy: 15}},
	)
	a := NewAccessor(sensor)

	fix, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix.Accuracy != 15 {
		t.Errorf("accuracy = %v, want the refined reading 15", fix.Accuracy)
	}
	if len(sensor.calls) != 2 {
		t.Fatalf("sensor called %d times, want 2", len(sensor.calls))
	}
	// The refinement attempt must demand a fresh reading.
	if sensor.calls[1].MaximumAge != 0 {
		t.Errorf("refinement MaximumAge = %v, want 0", sensor.calls[1].MaximumAge)
	}
}

func TestCurrentRefinementStillCoarse(t *testing.T) {
	// The second attempt's result is returned even if it is still coarse.
	sensor := newFakeSensor(
		currentCall{fix: Fix{Accuracy: 80}},
		currentCall{fix: Fix{Accuracy: 120}},
	)
	a := NewAccessor(sensor)

	fix, err := a.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix.Accuracy != 120 {
		t.Errorf("accuracy = %v, want 120", fix.Accuracy)
	}
	if len(sensor.calls) != 2 {
		t.Fatalf("sensor called %d times, want 2 (no third attempt)", len(sensor.calls))
	}
}

func TestCurrentPropagatesSensorError(t *testing.T) {
	sensor := newFakeSensor(currentCall{err: ErrPermissionDenied})
	a := NewAccessor(sensor)

	if _, err := a.Current(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Current() error = %v, want ErrPermissionDenied", err)
	}
}

func TestWatchThrottlesFixes(t *testing.T) {
	sensor := newFakeSensor()
	a := NewAccessor(sensor)

	delivered := make(chan Fix, 8)
	sub, err := a.WatchLocation(func(fix Fix) { delivered <- fix }, nil, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("WatchLocation: %v", err)
	}
	defer sub.Stop()

	sensor.fixes <- Fix{Latitude: 1}
	select {
	case fix := <-delivered:
		if fix.Latitude != 1 {
			t.Errorf("first delivery latitude = %v, want 1", fix.Latitude)
		}
	case <-time.After(time.Second):
		t.Fatal("first fix was not delivered")
	}

	// A second fix inside the interval is dropped, not queued.
	sensor.fixes <- Fix{Latitude: 2}
	select {
	case fix := <-delivered:
		t.Fatalf("fix %v delivered inside the throttle window", fix)
	case <-time.After(50 * time.Millisecond):
	}

	// After the interval elapses the next fix goes through.
	time.Sleep(200 * time.Millisecond)
	sensor.fixes <- Fix{Latitude: 3}
	select {
	case fix := <-delivered:
		if fix.Latitude != 3 {
			t.Errorf("latitude = %v, want 3 (the dropped fix must not resurface)", fix.Latitude)
		}
	case <-time.After(time.Second):
		t.Fatal("fix after the interval was not delivered")
	}
}

func TestWatchForwardsErrorsWithoutEnding(t *testing.T) {
	sensor := newFakeSensor()
	a := NewAccessor(sensor)

	delivered := make(chan Fix, 1)
	errored := make(chan error, 1)
	sub, err := a.WatchLocation(func(fix Fix) { delivered <- fix }, func(err error) { errored <- err }, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WatchLocation: %v", err)
	}
	defer sub.Stop()

	sensor.errs <- ErrTimeout
	select {
	case err := <-errored:
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("forwarded error = %v, want ErrTimeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watch error was not forwarded")
	}

	// The watch is still alive after an error.
	sensor.fixes <- Fix{Latitude: 5}
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("watch ended after a sensor error")
	}
}

func TestSubscriptionStopIdempotent(t *testing.T) {
	sensor := newFakeSensor()
	a := NewAccessor(sensor)

	sub, err := a.WatchLocation(func(Fix) {}, nil, 0)
	if err != nil {
		t.Fatalf("WatchLocation: %v", err)
	}
	sub.Stop()
	sub.Stop()
	a.StopWatching(sub)
	a.StopWatching(nil)

	sensor.mu.Lock()
	defer sensor.mu.Unlock()
	if sensor.stops != 1 {
		t.Errorf("sensor stop called %d times, want 1", sensor.stops)
	}
}
