package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/saheli/saheli-backend/internal/model"
	"github.com/saheli/saheli-backend/internal/repository"
	"github.com/saheli/saheli-backend/internal/utils"
)

type fakeContactStore struct {
	list    []model.TrustedContact
	listErr error

	addErr    error
	removeErr error
	updateErr error

	added   []model.TrustedContact
	removed []uint64
	updated []uint64
}

func (f *fakeContactStore) ListByUser(ctx context.Context, userID uint64) ([]model.TrustedContact, error) {
	return f.list, f.listErr
}

func (f *fakeContactStore) Add(ctx context.Context, userID uint64, name, phone string, email *string) (model.TrustedContact, error) {
	if f.addErr != nil {
		return model.TrustedContact{}, f.addErr
	}
	// Same dedup rule as the repository: normalized digits, scoped to
	// the owning user only.
	for _, ct := range f.added {
		if ct.UserID == userID && utils.PhoneDigits(ct.Phone) == utils.PhoneDigits(phone) {
			return model.TrustedContact{}, repository.ErrDuplicateContact
		}
	}
	ct := model.TrustedContact{ID: uint64(len(f.added) + 1), UserID: userID, Name: name, Phone: phone, Email: email, CreatedAt: time.Now()}
	f.added = append(f.added, ct)
	return ct, nil
}

func (f *fakeContactStore) Remove(ctx context.Context, userID, contactID uint64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, contactID)
	return nil
}

func (f *fakeContactStore) Update(ctx context.Context, userID, contactID uint64, name, phone string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, contactID)
	return nil
}

// newContactCtx builds an authenticated echo context the way the JWT
// middleware leaves it: user_id set from the subject claim.
func newContactCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	return newContactCtxFor(42, method, target, body)
}

func newContactCtxFor(userID uint64, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	return c, rec
}

func TestContactListReturnsContacts(t *testing.T) {
	store := &fakeContactStore{list: []model.TrustedContact{
		{ID: 2, UserID: 42, Name: "Meera", Phone: "9876500000"},
		{ID: 1, UserID: 42, Name: "Asha", Phone: "9876543210"},
	}}
	h := NewContactHandler(store)

	c, rec := newContactCtx(http.MethodGet, "/v1/contacts", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Contacts []contactResp `json:"contacts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Contacts) != 2 || resp.Contacts[0].Name != "Meera" {
		t.Errorf("contacts = %+v, want both rows in store order", resp.Contacts)
	}
}

func TestContactListDegradesToEmpty(t *testing.T) {
	store := &fakeContactStore{listErr: errors.New("connection refused")}
	h := NewContactHandler(store)

	c, rec := newContactCtx(http.MethodGet, "/v1/contacts", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when the fetch fails", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"contacts":[]`) {
		t.Errorf("body = %s, want an empty list", rec.Body.String())
	}
}

func TestContactAdd(t *testing.T) {
	store := &fakeContactStore{}
	h := NewContactHandler(store)

	c, rec := newContactCtx(http.MethodPost, "/v1/contacts", `{"name":"Asha","phone":"98765-43210"}`)
	if err := h.Add(c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	if len(store.added) != 1 || store.added[0].Phone != "98765-43210" {
		t.Errorf("added = %+v; the raw phone is stored, normalization happens at send time", store.added)
	}
}

func TestContactAddValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"phone":"9876543210"}`},
		{name: "missing phone", body: `{"name":"Asha"}`},
		{name: "blank fields", body: `{"name":"  ","phone":" "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeContactStore{}
			h := NewContactHandler(store)
			c, rec := newContactCtx(http.MethodPost, "/v1/contacts", tt.body)
			if err := h.Add(c); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(store.added) != 0 {
				t.Error("nothing may be stored on validation failure")
			}
		})
	}
}

func TestContactAddDuplicate(t *testing.T) {
	store := &fakeContactStore{addErr: repository.ErrDuplicateContact}
	h := NewContactHandler(store)

	c, rec := newContactCtx(http.MethodPost, "/v1/contacts", `{"name":"Asha","phone":"9876543210"}`)
	if err := h.Add(c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestContactAddSamePhoneDifferentUser(t *testing.T) {
	store := &fakeContactStore{}
	h := NewContactHandler(store)

	c, rec := newContactCtxFor(42, http.MethodPost, "/v1/contacts", `{"name":"Asha","phone":"9876543210"}`)
	if err := h.Add(c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("first add status = %d, want 201", rec.Code)
	}

	// The same digits formatted differently collide for the same owner.
	c, rec = newContactCtxFor(42, http.MethodPost, "/v1/contacts", `{"name":"Asha again","phone":"98765-43210"}`)
	if err := h.Add(c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("same-user duplicate status = %d, want 409", rec.Code)
	}

	// Dedup is scoped per user: another user may store the same number.
	c, rec = newContactCtxFor(43, http.MethodPost, "/v1/contacts", `{"name":"Asha","phone":"9876543210"}`)
	if err := h.Add(c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("cross-user add status = %d, want 201", rec.Code)
	}
	if len(store.added) != 2 {
		t.Errorf("stored contacts = %d, want one per user", len(store.added))
	}
}

func TestContactRemoveNotFound(t *testing.T) {
	store := &fakeContactStore{removeErr: repository.ErrNotFound}
	h := NewContactHandler(store)

	c, rec := newContactCtx(http.MethodDelete, "/v1/contacts/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.Remove(c); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestContactRemove(t *testing.T) {
	store := &fakeContactStore{}
	h := NewContactHandler(store)

	c, rec := newContactCtx(http.MethodDelete, "/v1/contacts/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.Remove(c); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if len(store.removed) != 1 || store.removed[0] != 5 {
		t.Errorf("removed = %v, want [5]", store.removed)
	}
}

func TestContactUpdateDuplicate(t *testing.T) {
	store := &fakeContactStore{updateErr: repository.ErrDuplicateContact}
	h := NewContactHandler(store)

	c, rec := newContactCtx(http.MethodPut, "/v1/contacts/5", `{"name":"Asha","phone":"9876543210"}`)
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.Update(c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestContactUnauthorized(t *testing.T) {
	h := NewContactHandler(&fakeContactStore{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/contacts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec) // no user_id set

	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
