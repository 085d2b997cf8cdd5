package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/saheli/saheli-backend/internal/geo"
	"github.com/saheli/saheli-backend/internal/model"
	"github.com/saheli/saheli-backend/internal/queue"
)

type fakeContacts struct {
	list []model.TrustedContact
	err  error
}

func (f *fakeContacts) ListByUser(ctx context.Context, userID uint64) ([]model.TrustedContact, error) {
	return f.list, f.err
}

type fakeLocator struct {
	fix geo.Fix
	err error
}

func (f *fakeLocator) Current(ctx context.Context, userID uint64) (geo.Fix, error) {
	return f.fix, f.err
}

// fakeGateway records every send and can fail for selected recipients.
type fakeGateway struct {
	mu     sync.Mutex
	sends  []sentMessage
	failTo map[string]error
}

type sentMessage struct {
	to   string
	body string
}

func (f *fakeGateway) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTo[to]; ok {
		return err
	}
	f.sends = append(f.sends, sentMessage{to: to, body: body})
	return nil
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []queue.AlertDispatchedEvent
}

func (f *fakeAuditor) AlertDispatched(ctx context.Context, ev queue.AlertDispatchedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func contact(id uint64, name, phone string) model.TrustedContact {
	return model.TrustedContact{ID: id, UserID: 1, Name: name, Phone: phone}
}

func TestSendSOSNoContacts(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(&fakeContacts{}, &fakeLocator{}, gw, nil, "+91", 4)

	_, err := d.SendSOS(context.Background(), 1)
	if !errors.Is(err, ErrNoContacts) {
		t.Fatalf("SendSOS error = %v, want ErrNoContacts", err)
	}
	if len(gw.sends) != 0 {
		t.Errorf("gateway received %d sends, want 0 before the empty-list check", len(gw.sends))
	}
}

func TestSendSOSReachesAllContacts(t *testing.T) {
	contacts := &fakeContacts{list: []model.TrustedContact{
		contact(1, "Asha", "9876543210"),
		contact(2, "Meera", "98765-00000"),
		contact(3, "Priya", "9876511111"),
	}}
	gw := &fakeGateway{}
	audit := &fakeAuditor{}
	d := NewDispatcher(contacts, &fakeLocator{fix: geo.Fix{Latitude: 12.97, Longitude: 77.59}}, gw, audit, "+91", 2)

	res, err := d.SendSOS(context.Background(), 1)
	if err != nil {
		t.Fatalf("SendSOS: %v", err)
	}
	if res.Sent() != 3 || res.Failed() != 0 {
		t.Fatalf("sent=%d failed=%d, want 3/0", res.Sent(), res.Failed())
	}
	if res.AlertID == "" {
		t.Error("result is missing an alert id")
	}
	for _, s := range gw.sends {
		if !strings.HasPrefix(s.to, "+91") {
			t.Errorf("recipient %q not normalized to international format", s.to)
		}
		if !strings.Contains(s.body, "https://www.google.com/maps?q=") {
			t.Errorf("body missing maps link: %q", s.body)
		}
	}
	if len(audit.events) != 1 {
		t.Fatalf("auditor received %d events, want 1", len(audit.events))
	}
	if ev := audit.events[0]; ev.Kind != "sos" || ev.Contacts != 3 || ev.Sent != 3 {
		t.Errorf("audit event = %+v, want kind=sos contacts=3 sent=3", ev)
	}
}

func TestSendSOSLocationUnavailable(t *testing.T) {
	contacts := &fakeContacts{list: []model.TrustedContact{contact(1, "Asha", "9876543210")}}
	gw := &fakeGateway{}
	d := NewDispatcher(contacts, &fakeLocator{err: geo.ErrTimeout}, gw, nil, "+91", 1)

	res, err := d.SendSOS(context.Background(), 1)
	if err != nil {
		t.Fatalf("SendSOS must not abort on a location failure: %v", err)
	}
	if res.Sent() != 1 {
		t.Fatalf("sent = %d, want 1", res.Sent())
	}
	if !strings.Contains(gw.sends[0].body, "Location not available") {
		t.Errorf("body should carry the placeholder, got %q", gw.sends[0].body)
	}
}

func TestFanOutSkipsMalformedPhone(t *testing.T) {
	contacts := &fakeContacts{list: []model.TrustedContact{
		contact(1, "Asha", "9876543210"),
		contact(2, "Broken", "12345"), // not ten digits
		contact(3, "Priya", "9876511111"),
	}}
	gw := &fakeGateway{}
	d := NewDispatcher(contacts, &fakeLocator{}, gw, nil, "+91", 4)

	res, err := d.SendDestination(context.Background(), 1, "Central Station")
	if err != nil {
		t.Fatalf("SendDestination: %v", err)
	}
	if res.Sent() != 2 || res.Failed() != 1 {
		t.Fatalf("sent=%d failed=%d, want 2/1", res.Sent(), res.Failed())
	}
	if len(gw.sends) != 2 {
		t.Errorf("gateway received %d sends, want 2", len(gw.sends))
	}
	var broken *Outcome
	for i := range res.Outcomes {
		if res.Outcomes[i].ContactID == 2 {
			broken = &res.Outcomes[i]
		}
	}
	if broken == nil || broken.Err == nil || broken.Error == "" {
		t.Errorf("malformed contact's outcome should carry the error, got %+v", broken)
	}
}

func TestFanOutContinuesPastGatewayFailure(t *testing.T) {
	contacts := &fakeContacts{list: []model.TrustedContact{
		contact(1, "Asha", "9876543210"),
		contact(2, "Meera", "9876500000"),
	}}
	gw := &fakeGateway{failTo: map[string]error{"+919876543210": errors.New("gateway 500")}}
	d := NewDispatcher(contacts, &fakeLocator{}, gw, nil, "+91", 1)

	res, err := d.SendTracking(context.Background(), 1, model.LocationShare{Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatalf("SendTracking: %v", err)
	}
	if res.Sent() != 1 || res.Failed() != 1 {
		t.Fatalf("sent=%d failed=%d, want 1/1", res.Sent(), res.Failed())
	}
	if len(gw.sends) != 1 || gw.sends[0].to != "+919876500000" {
		t.Errorf("second contact should still be reached, sends=%+v", gw.sends)
	}
}

func TestFanOutListError(t *testing.T) {
	dbErr := errors.New("connection refused")
	d := NewDispatcher(&fakeContacts{err: dbErr}, &fakeLocator{}, &fakeGateway{}, nil, "+91", 1)

	if _, err := d.SendSOS(context.Background(), 1); !errors.Is(err, dbErr) {
		t.Fatalf("SendSOS error = %v, want the directory error", err)
	}
}
