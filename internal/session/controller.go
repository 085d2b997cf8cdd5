// Package session owns the per-user sharing state machine: Inactive to
// Active on start, back to Inactive on stop. It wires the location
// accessor to the location store and invokes the alert dispatcher on
// state transitions.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/saheli/saheli-backend/internal/alert"
	"github.com/saheli/saheli-backend/internal/geo"
	"github.com/saheli/saheli-backend/internal/metrics"
	"github.com/saheli/saheli-backend/internal/model"
)

// LocationStore is the slice of the location repository the controller
// writes through.
type LocationStore interface {
	Save(ctx context.Context, ls model.LocationShare) error
	SetSharing(ctx context.Context, userID uint64, sharing bool) error
	AppendHistory(ctx context.Context, userID uint64, fix geo.Fix) error
}

// Notifier sends the "tracking started" message on session start.
type Notifier interface {
	SendTracking(ctx context.Context, userID uint64, ls model.LocationShare) (alert.Result, error)
}

// SensorProvider resolves the location sensor for a user, nil when the
// device has never reported in.
type SensorProvider interface {
	SensorFor(userID uint64) geo.Sensor
}

// StartResult reports a completed Inactive->Active transition. Notify is
// set when the contact notification went out; NotifyErr carries the
// partial-success condition when it did not. A notification failure
// never rolls the transition back.
type StartResult struct {
	Share     model.LocationShare
	Notify    *alert.Result
	NotifyErr error
}

// Controller tracks every user's active watch. All shared persistent
// state lives in the store; the only in-process state is the watch
// handle map, guarded by mu.
type Controller struct {
	mu      sync.Mutex
	watches map[uint64]*geo.Subscription

	store    LocationStore
	notifier Notifier
	sensors  SensorProvider
	interval time.Duration
	log      *slog.Logger
}

// NewController builds a controller. interval throttles watch updates; a
// non-positive value selects the accessor default.
func NewController(store LocationStore, notifier Notifier, sensors SensorProvider, interval time.Duration) *Controller {
	return &Controller{
		watches:  make(map[uint64]*geo.Subscription),
		store:    store,
		notifier: notifier,
		sensors:  sensors,
		interval: interval,
		log:      slog.Default().With("component", "session"),
	}
}

// Active reports whether the user currently has a sharing session.
func (c *Controller) Active(userID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watches[userID] != nil
}

// Start transitions the user to Active: acquire one fix, persist it
// (sharing flag set), append history, begin the throttled watch, then
// best-effort notify contacts. A sensor failure or a failed share write
// aborts the transition; a failed history write or notification does
// not. Starting while already Active replaces the previous watch, which
// keeps at most one outstanding share per user.
func (c *Controller) Start(ctx context.Context, userID uint64) (StartResult, error) {
	acc := geo.NewAccessor(c.sensors.SensorFor(userID))
	fix, err := acc.Current(ctx)
	if err != nil {
		return StartResult{}, err
	}

	ls := model.LocationShare{
		UserID:    userID,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		IsSharing: true,
		Accuracy:  fix.Accuracy,
		Speed:     fix.Speed,
	}
	if err := c.store.Save(ctx, ls); err != nil {
		return StartResult{}, err
	}
	if err := c.store.AppendHistory(ctx, userID, fix); err != nil {
		// History is best-effort; the share row is already current.
		c.log.Warn("history append failed on start", "user_id", userID, "err", err)
	}
	metrics.SessionsStarted.Inc()
	metrics.FixesPersisted.Inc()

	sub, err := acc.WatchLocation(
		func(f geo.Fix) { c.persistFix(userID, f) },
		func(err error) {
			// Watch errors do not auto-stop the session.
			c.log.Warn("watch error", "user_id", userID, "err", err)
		},
		c.interval,
	)
	if err != nil {
		return StartResult{}, err
	}

	c.mu.Lock()
	if old := c.watches[userID]; old != nil {
		old.Stop()
	}
	c.watches[userID] = sub
	c.mu.Unlock()

	res := StartResult{Share: ls}
	out, nerr := c.notifier.SendTracking(ctx, userID, ls)
	if nerr != nil {
		c.log.Warn("tracking notification failed", "user_id", userID, "err", nerr)
		res.NotifyErr = nerr
	} else {
		res.Notify = &out
	}
	return res, nil
}

// Stop transitions the user back to Inactive: cancel the watch and clear
// the sharing flag on the stored row. History is kept, and no history
// entry is written for the stop itself. Stopping an inactive session
// still clears the flag and is otherwise a no-op.
func (c *Controller) Stop(ctx context.Context, userID uint64) error {
	c.mu.Lock()
	sub := c.watches[userID]
	delete(c.watches, userID)
	c.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}
	return c.store.SetSharing(ctx, userID, false)
}

// persistFix handles one throttled watch update: share row first, then
// history. The two writes are not atomic; a crash in between leaves a
// share update without a history row, which is tolerated. Runs on the
// watch goroutine with its own deadline since the starting request is
// long gone.
func (c *Controller) persistFix(userID uint64, fix geo.Fix) {
	// A fix delivered while Stop was clearing the flag must not
	// resurrect the session by writing IsSharing back to true.
	if !c.Active(userID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ls := model.LocationShare{
		UserID:    userID,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		IsSharing: true,
		Accuracy:  fix.Accuracy,
		Speed:     fix.Speed,
	}
	if err := c.store.Save(ctx, ls); err != nil {
		c.log.Warn("fix persist failed", "user_id", userID, "err", err)
		return
	}
	if err := c.store.AppendHistory(ctx, userID, fix); err != nil {
		c.log.Warn("history append failed", "user_id", userID, "err", err)
		return
	}
	metrics.FixesPersisted.Inc()
}
