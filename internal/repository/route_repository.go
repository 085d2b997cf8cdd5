package repository

import (
	"context"
	"database/sql"

	"github.com/saheli/saheli-backend/internal/model"
)

// RouteRepo persists the single active RouteShare row per user. Same
// shape as LocationRepo: upsert keyed on unique user_id, so starting a
// new destination while one is active overwrites it, and stopping just
// clears the active flag.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo returns a new RouteRepo bound to the given database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// Save upserts the user's route row. StartedAt is reset on every new
// destination so the row always describes the current trip.
func (r *RouteRepo) Save(ctx context.Context, rs model.RouteShare) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO route_shares (user_id, destination, started_at, is_active)
		 VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   destination = VALUES(destination), started_at = VALUES(started_at),
		   is_active = VALUES(is_active)`,
		rs.UserID, rs.Destination, rs.StartedAt.UTC(), rs.IsActive)
	return err
}

// GetActive fetches the user's route only while it is flagged active.
// ErrNotFound when there is no row or the route has been stopped.
func (r *RouteRepo) GetActive(ctx context.Context, userID uint64) (model.RouteShare, error) {
	var rs model.RouteShare
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, destination, started_at, is_active
		   FROM route_shares WHERE user_id = ? AND is_active = TRUE LIMIT 1`,
		userID).Scan(&rs.UserID, &rs.Destination, &rs.StartedAt, &rs.IsActive)
	if err == sql.ErrNoRows {
		return model.RouteShare{}, ErrNotFound
	}
	return rs, err
}

// Stop clears the active flag. Stopping a route that was never started
// is a no-op.
func (r *RouteRepo) Stop(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE route_shares SET is_active = FALSE WHERE user_id = ?",
		userID)
	return err
}
