package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/saheli/saheli-backend/internal/alert"
	"github.com/saheli/saheli-backend/internal/geo"
	"github.com/saheli/saheli-backend/internal/model"
	"github.com/saheli/saheli-backend/internal/repository"
	"github.com/saheli/saheli-backend/internal/session"
)

// LocationHandler exposes the fix ingestion endpoint, the sharing
// session toggle and reads of the latest shared position.
type LocationHandler struct {
	Sessions  *session.Controller
	Locations *repository.LocationRepo
	Sensors   *geo.Registry
}

func NewLocationHandler(sessions *session.Controller, locations *repository.LocationRepo, sensors *geo.Registry) *LocationHandler {
	return &LocationHandler{Sessions: sessions, Locations: locations, Sensors: sensors}
}

// fixReq is a raw device reading. Either coordinates or a sensor error
// is reported, never both.
type fixReq struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Speed     float64 `json:"speed"`
	Error     string  `json:"error,omitempty"` // permission_denied | unavailable | timeout
}

type locationResp struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	IsSharing bool      `json:"is_sharing"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toLocationResp(ls model.LocationShare) locationResp {
	return locationResp{
		Latitude:  ls.Latitude,
		Longitude: ls.Longitude,
		IsSharing: ls.IsSharing,
		Accuracy:  ls.Accuracy,
		Speed:     ls.Speed,
		UpdatedAt: ls.UpdatedAt,
	}
}

// notifyPart summarizes the best-effort contact notification attached to
// a session start, so the client can render "sent to 3 of 5" or a
// partial-success warning.
type notifyPart struct {
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
	Error  string `json:"error,omitempty"`
}

func notifyFromResult(res *alert.Result, nerr error) *notifyPart {
	if nerr != nil {
		return &notifyPart{Error: nerr.Error()}
	}
	if res == nil {
		return nil
	}
	return &notifyPart{Sent: res.Sent(), Failed: res.Failed()}
}

// PushFix ingests one raw reading (or a typed sensor failure) from the
// user's device and feeds it to whoever is waiting: a one-shot fetch, an
// active watch, or nobody.
func (h *LocationHandler) PushFix(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req fixReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Error != "" {
		switch req.Error {
		case "permission_denied":
			h.Sensors.PushError(uid, geo.ErrPermissionDenied)
		case "unavailable":
			h.Sensors.PushError(uid, geo.ErrUnavailable)
		case "timeout":
			h.Sensors.PushError(uid, geo.ErrTimeout)
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown sensor error"})
		}
		return c.NoContent(http.StatusAccepted)
	}
	h.Sensors.Push(uid, geo.Fix{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Recorded:  time.Now().UTC(),
	})
	return c.NoContent(http.StatusAccepted)
}

// StartShare turns location sharing on: one fix is acquired, persisted
// and historized, the throttled watch begins, and contacts get the
// "tracking started" message best-effort. A notification failure does
// not roll the session back; it is reported in the notify part.
func (h *LocationHandler) StartShare(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.Sessions.Start(ctx, uid)
	if err != nil {
		switch {
		case errors.Is(err, geo.ErrUnsupported):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no location source for this user; push a fix first"})
		case errors.Is(err, geo.ErrPermissionDenied):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "location permission denied"})
		case errors.Is(err, geo.ErrTimeout):
			return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timed out waiting for a location fix"})
		case errors.Is(err, geo.ErrUnavailable):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "position unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start sharing failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"location": toLocationResp(res.Share),
		"notify":   notifyFromResult(res.Notify, res.NotifyErr),
	})
}

// StopShare turns sharing off. History is kept and the location row is
// only flagged inactive, never deleted.
func (h *LocationHandler) StopShare(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Stop(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stop sharing failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"is_sharing": false})
}

// Get returns the latest shared position. "No row" and "lookup failed"
// are both presented as absence; the failure only shows up in the logs.
func (h *LocationHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ls, err := h.Locations.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Warn("location lookup failed", "user_id", uid, "err", err)
		}
		return c.JSON(http.StatusOK, echo.Map{"location": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"location": toLocationResp(ls)})
}

// History returns recent history entries, newest first.
func (h *LocationHandler) History(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Locations.History(ctx, uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "history fetch failed"})
	}
	out := make([]historyResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyResp{
			Latitude:   e.Latitude,
			Longitude:  e.Longitude,
			Accuracy:   e.Accuracy,
			Speed:      e.Speed,
			RecordedAt: e.RecordedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out})
}

type historyResp struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Speed      float64   `json:"speed"`
	RecordedAt time.Time `json:"recorded_at"`
}
