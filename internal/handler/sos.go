package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/saheli/saheli-backend/internal/alert"
)

// SOSHandler exposes the emergency alert trigger.
type SOSHandler struct {
	Alerts *alert.Dispatcher
}

func NewSOSHandler(alerts *alert.Dispatcher) *SOSHandler {
	return &SOSHandler{Alerts: alerts}
}

// Trigger fires the SOS fan-out. With no trusted contacts the request
// fails fast before any send; otherwise the response reports per-contact
// outcomes so the client can show "sent to 3 of 5".
func (h *SOSHandler) Trigger(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	// A generous deadline: one slow gateway call per contact is possible
	// and the fan-out is bounded, not unbounded.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	res, err := h.Alerts.SendSOS(ctx, uid)
	if err != nil {
		if errors.Is(err, alert.ErrNoContacts) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "add trusted contacts before using the SOS feature"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sos dispatch failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"alert_id": res.AlertID,
		"sent":     res.Sent(),
		"failed":   res.Failed(),
		"outcomes": res.Outcomes,
	})
}
