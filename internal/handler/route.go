package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/saheli/saheli-backend/internal/alert"
	"github.com/saheli/saheli-backend/internal/model"
	"github.com/saheli/saheli-backend/internal/repository"
)

// RouteHandler exposes the destination-sharing endpoints. A user has at
// most one active route; starting a new one overwrites it in place.
type RouteHandler struct {
	Routes *repository.RouteRepo
	Alerts *alert.Dispatcher
}

func NewRouteHandler(routes *repository.RouteRepo, alerts *alert.Dispatcher) *RouteHandler {
	return &RouteHandler{Routes: routes, Alerts: alerts}
}

type routeReq struct {
	Destination string `json:"destination"`
}

type routeResp struct {
	Destination string    `json:"destination"`
	StartedAt   time.Time `json:"started_at"`
	IsActive    bool      `json:"is_active"`
}

// Start upserts the active route and notifies contacts best-effort. The
// route stays shared even when every notification fails; the client gets
// the partial-success condition in the notify part.
func (h *RouteHandler) Start(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req routeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Destination == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "destination required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	rs := model.RouteShare{
		UserID:      uid,
		Destination: req.Destination,
		StartedAt:   time.Now().UTC(),
		IsActive:    true,
	}
	if err := h.Routes.Save(ctx, rs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start route failed"})
	}

	var notify *notifyPart
	res, nerr := h.Alerts.SendDestination(ctx, uid, rs.Destination)
	if nerr != nil {
		slog.Warn("destination notification failed", "user_id", uid, "err", nerr)
		notify = notifyFromResult(nil, nerr)
	} else {
		notify = notifyFromResult(&res, nil)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"route":  routeResp{Destination: rs.Destination, StartedAt: rs.StartedAt, IsActive: true},
		"notify": notify,
	})
}

// Get returns the active route, or null when none is shared.
func (h *RouteHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rs, err := h.Routes.GetActive(ctx, uid)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("route lookup failed", "user_id", uid, "err", err)
		}
		return c.JSON(http.StatusOK, echo.Map{"route": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"route": routeResp{Destination: rs.Destination, StartedAt: rs.StartedAt, IsActive: rs.IsActive},
	})
}

// Stop clears the active flag on the user's route.
func (h *RouteHandler) Stop(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Routes.Stop(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stop route failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"is_active": false})
}
