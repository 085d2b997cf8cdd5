// Package alert composes emergency and status messages and fans them out
// to a user's trusted contacts through the messaging gateway. Each
// contact is handled independently: a malformed phone number or a
// gateway failure for one contact never blocks the rest.
package alert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saheli/saheli-backend/internal/geo"
	"github.com/saheli/saheli-backend/internal/metrics"
	"github.com/saheli/saheli-backend/internal/model"
	"github.com/saheli/saheli-backend/internal/queue"
	"github.com/saheli/saheli-backend/internal/utils"
)

// Kind identifies which message template an alert uses.
type Kind string

const (
	KindSOS         Kind = "sos"
	KindTracking    Kind = "tracking"
	KindDestination Kind = "destination"
)

// ErrNoContacts aborts a dispatch before any send is attempted.
var ErrNoContacts = errors.New("no trusted contacts found")

// Contacts is the slice of the contact directory the dispatcher reads.
type Contacts interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.TrustedContact, error)
}

// Locator resolves the user's current position. SOS dispatch treats it
// as best-effort.
type Locator interface {
	Current(ctx context.Context, userID uint64) (geo.Fix, error)
}

// Gateway delivers one message to one recipient.
type Gateway interface {
	Send(ctx context.Context, to, body string) error
}

// Auditor receives the post-dispatch audit event. Publish failures are
// the auditor's problem; the dispatcher ignores them.
type Auditor interface {
	AlertDispatched(ctx context.Context, ev queue.AlertDispatchedEvent) error
}

// Outcome records the result of one contact's send.
type Outcome struct {
	ContactID uint64 `json:"contact_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
}

// Result aggregates the fan-out so callers can report "sent to 3 of 5"
// instead of only the first failure.
type Result struct {
	AlertID  string    `json:"alert_id"`
	Kind     Kind      `json:"kind"`
	Outcomes []Outcome `json:"outcomes"`
}

// Sent returns how many contacts were reached.
func (r Result) Sent() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns how many per-contact sends failed.
func (r Result) Failed() int { return len(r.Outcomes) - r.Sent() }

// Dispatcher wires the contact directory, the location source and the
// messaging gateway together.
type Dispatcher struct {
	contacts    Contacts
	locator     Locator
	gateway     Gateway
	audit       Auditor // may be nil
	countryCode string
	workers     int
	log         *slog.Logger
}

// NewDispatcher builds a dispatcher. workers bounds fan-out concurrency;
// values below 1 fall back to sequential sends. audit may be nil.
func NewDispatcher(contacts Contacts, locator Locator, gateway Gateway, audit Auditor, countryCode string, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		contacts:    contacts,
		locator:     locator,
		gateway:     gateway,
		audit:       audit,
		countryCode: countryCode,
		workers:     workers,
		log:         slog.Default().With("component", "alert"),
	}
}

// SendSOS resolves the current location best-effort (falling back to a
// placeholder, never aborting) and fans the emergency message out to the
// full contact list. Fails fast with ErrNoContacts before any send when
// the list is empty.
func (d *Dispatcher) SendSOS(ctx context.Context, userID uint64) (Result, error) {
	location := locationPlaceholder
	if fix, err := d.locator.Current(ctx, userID); err == nil {
		location = mapsLink(fix.Latitude, fix.Longitude)
	} else {
		d.log.Warn("sos: could not resolve location, sending placeholder", "user_id", userID, "err", err)
	}
	return d.fanOut(ctx, userID, KindSOS, sosMessage(location))
}

// SendTracking notifies contacts that live location sharing started.
func (d *Dispatcher) SendTracking(ctx context.Context, userID uint64, ls model.LocationShare) (Result, error) {
	return d.fanOut(ctx, userID, KindTracking, trackingMessage(mapsLink(ls.Latitude, ls.Longitude)))
}

// SendDestination notifies contacts that the user is travelling to the
// given destination.
func (d *Dispatcher) SendDestination(ctx context.Context, userID uint64, destination string) (Result, error) {
	return d.fanOut(ctx, userID, KindDestination, destinationMessage(destination))
}

// fanOut sends body to every contact with bounded concurrency and
// collects a per-contact outcome list. One contact's failure is logged,
// counted and skipped; the remaining sends proceed.
func (d *Dispatcher) fanOut(ctx context.Context, userID uint64, kind Kind, body string) (Result, error) {
	list, err := d.contacts.ListByUser(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if len(list) == 0 {
		return Result{}, ErrNoContacts
	}

	res := Result{AlertID: uuid.NewString(), Kind: kind, Outcomes: make([]Outcome, len(list))}
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for i, c := range list {
		wg.Add(1)
		go func(i int, c model.TrustedContact) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res.Outcomes[i] = d.sendOne(ctx, kind, c, body)
		}(i, c)
	}
	wg.Wait()

	if d.audit != nil {
		_ = d.audit.AlertDispatched(ctx, queue.AlertDispatchedEvent{
			AlertID:      res.AlertID,
			UserID:       userID,
			Kind:         string(kind),
			Contacts:     len(list),
			Sent:         res.Sent(),
			Failed:       res.Failed(),
			DispatchedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	d.log.Info("alert dispatched",
		"alert_id", res.AlertID, "kind", kind, "user_id", userID,
		"sent", res.Sent(), "failed", res.Failed())
	return res, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, kind Kind, c model.TrustedContact, body string) Outcome {
	out := Outcome{ContactID: c.ID, Name: c.Name, Phone: c.Phone}
	to, err := utils.FormatPhone(c.Phone, d.countryCode)
	if err != nil {
		d.log.Warn("skipping contact with malformed phone", "contact_id", c.ID, "err", err)
		metrics.AlertsFailed.WithLabelValues(string(kind)).Inc()
		out.Err = err
		out.Error = err.Error()
		return out
	}
	if err := d.gateway.Send(ctx, to, body); err != nil {
		d.log.Warn("gateway send failed", "contact_id", c.ID, "err", err)
		metrics.AlertsFailed.WithLabelValues(string(kind)).Inc()
		out.Err = err
		out.Error = err.Error()
		return out
	}
	metrics.AlertsSent.WithLabelValues(string(kind)).Inc()
	return out
}
