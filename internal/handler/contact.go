package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/saheli/saheli-backend/internal/model"
	"github.com/saheli/saheli-backend/internal/repository"
)

// ContactStore is the slice of the contact directory the handler needs.
// It is satisfied by *repository.ContactRepo.
type ContactStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.TrustedContact, error)
	Add(ctx context.Context, userID uint64, name, phone string, email *string) (model.TrustedContact, error)
	Remove(ctx context.Context, userID, contactID uint64) error
	Update(ctx context.Context, userID, contactID uint64, name, phone string) error
}

// ContactHandler exposes CRUD over a user's trusted contact list.
type ContactHandler struct {
	Contacts ContactStore
}

func NewContactHandler(contacts ContactStore) *ContactHandler {
	return &ContactHandler{Contacts: contacts}
}

type contactReq struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email,omitempty"`
}

type contactResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toContactResp(c model.TrustedContact) contactResp {
	return contactResp{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email, CreatedAt: c.CreatedAt}
}

// List returns the user's contacts, newest first. A fetch failure
// degrades to an empty list rather than failing the caller; the user can
// still reach the SOS button even when the directory read is flaky.
func (h *ContactHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Contacts.ListByUser(ctx, uid)
	if err != nil {
		slog.Warn("contact list fetch failed", "user_id", uid, "err", err)
		list = nil
	}
	out := make([]contactResp, 0, len(list))
	for _, ct := range list {
		out = append(out, toContactResp(ct))
	}
	return c.JSON(http.StatusOK, echo.Map{"contacts": out})
}

// Add validates the required fields and inserts a new contact. A phone
// number whose digits match an existing contact of the same user is a
// 409; the same number under a different user succeeds.
func (h *ContactHandler) Add(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/phone required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ct, err := h.Contacts.Add(ctx, uid, req.Name, req.Phone, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateContact) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "contact with this phone already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add contact failed"})
	}
	return c.JSON(http.StatusCreated, toContactResp(ct))
}

// Remove deletes a contact by id.
func (h *ContactHandler) Remove(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Contacts.Remove(ctx, uid, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove contact failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Update rewrites a contact's name and phone by id.
func (h *ContactHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/phone required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Contacts.Update(ctx, uid, id, req.Name, req.Phone); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
		case errors.Is(err, repository.ErrDuplicateContact):
			return c.JSON(http.StatusConflict, echo.Map{"error": "contact with this phone already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update contact failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
