package repository

import (
	"context"
	"database/sql"

	"github.com/saheli/saheli-backend/internal/geo"
	"github.com/saheli/saheli-backend/internal/model"
)

// LocationRepo persists the single LocationShare row per user plus the
// append-only location_history log. The share row is upserted on the
// unique user_id key: created on the first share-start, updated in place
// on every subsequent fix or sharing toggle, and never deleted; stopping
// a session only flags it inactive.
//
// Store errors are returned to the caller rather than swallowed; the
// session controller decides which paths are best-effort.
type LocationRepo struct {
	db *sql.DB
}

// NewLocationRepo returns a new LocationRepo bound to the given database.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

// Save upserts the user's LocationShare row.
func (r *LocationRepo) Save(ctx context.Context, ls model.LocationShare) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO location_shares (user_id, latitude, longitude, is_sharing, accuracy_m, speed_mps)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   latitude = VALUES(latitude), longitude = VALUES(longitude),
		   is_sharing = VALUES(is_sharing), accuracy_m = VALUES(accuracy_m),
		   speed_mps = VALUES(speed_mps)`,
		ls.UserID, ls.Latitude, ls.Longitude, ls.IsSharing, ls.Accuracy, ls.Speed)
	return err
}

// SetSharing flips only the sharing flag on the user's row, leaving the
// last known coordinates in place. Flipping the flag for a user without
// a row is a no-op (there is no location to flag).
func (r *LocationRepo) SetSharing(ctx context.Context, userID uint64, sharing bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE location_shares SET is_sharing = ? WHERE user_id = ?",
		sharing, userID)
	return err
}

// Get fetches the user's LocationShare row. ErrNotFound when the user has
// never shared.
func (r *LocationRepo) Get(ctx context.Context, userID uint64) (model.LocationShare, error) {
	var ls model.LocationShare
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, latitude, longitude, is_sharing, accuracy_m, speed_mps, updated_at
		   FROM location_shares WHERE user_id = ? LIMIT 1`,
		userID).Scan(&ls.UserID, &ls.Latitude, &ls.Longitude, &ls.IsSharing, &ls.Accuracy, &ls.Speed, &ls.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.LocationShare{}, ErrNotFound
	}
	return ls, err
}

// AppendHistory appends one accepted fix to location_history. History is
// best-effort: callers log failures instead of surfacing them.
func (r *LocationRepo) AppendHistory(ctx context.Context, userID uint64, fix geo.Fix) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO location_history (user_id, latitude, longitude, accuracy_m, speed_mps, recorded_at)
		 VALUES (?,?,?,?,?,?)`,
		userID, fix.Latitude, fix.Longitude, fix.Accuracy, fix.Speed, fix.Recorded.UTC())
	return err
}

// History returns the most recent history entries for the user, newest
// first, capped at limit.
func (r *LocationRepo) History(ctx context.Context, userID uint64, limit int) ([]model.LocationHistoryEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, latitude, longitude, accuracy_m, speed_mps, recorded_at
		   FROM location_history WHERE user_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LocationHistoryEntry
	for rows.Next() {
		var e model.LocationHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Latitude, &e.Longitude, &e.Accuracy, &e.Speed, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
