// Package geo wraps the device location sensor behind the one-shot and
// continuous-watch contract used by the sharing workflow. The sensor itself
// is an external collaborator: the client device pushes raw readings over
// HTTP and the registry in this package replays them to waiting callers.
package geo

import (
	"context"
	"errors"
	"time"
)

// Fix is one reading of device coordinates plus accuracy/speed metadata.
// Accuracy is a radius in meters; zero or negative values are tolerated
// and mean "unknown". Speed defaults to 0 when the sensor omits it.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	Recorded  time.Time `json:"recorded_at"`
}

// Options mirror the request parameters of the underlying sensor API.
// MaximumAge allows a cached reading no older than the given duration to
// satisfy a one-shot request; zero demands a fresh reading.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Sensor errors. ErrUnsupported means no sensor exists for the user at all
// (the device never reported in); the rest map to the typed failures the
// sensor API can yield and are propagated to callers untouched.
var (
	ErrUnsupported      = errors.New("geolocation is not supported")
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("location request timed out")
)

// Sensor is the external location source for a single user.
//
// Current blocks until a reading satisfying opts is available, the timeout
// elapses or ctx is cancelled. Watch returns a fix stream, an error stream
// and a stop function; the streams are closed after stop or ctx
// cancellation.
type Sensor interface {
	Current(ctx context.Context, opts Options) (Fix, error)
	Watch(ctx context.Context, opts Options) (<-chan Fix, <-chan error, func())
}
