package model

import "time"

// LocationShare holds the latest shared position for a user. The
// `location_shares` table has a unique constraint on user_id, so
// there is exactly one row per user which is upserted on every
// accepted fix or sharing toggle. Rows are never deleted; stopping
// a session only clears IsSharing.
//
// Fields:
//  UserID    – owner of the row (unique).
//  Latitude  – last reported latitude in degrees.
//  Longitude – last reported longitude in degrees.
//  IsSharing – whether a sharing session is currently active.
//  Accuracy  – reported accuracy radius in meters (0 when unknown).
//  Speed     – reported speed in m/s (0 when the sensor omits it).
//  UpdatedAt – timestamp of the last upsert.
type LocationShare struct {
	UserID    uint64    // location_shares.user_id
	Latitude  float64   // location_shares.latitude
	Longitude float64   // location_shares.longitude
	IsSharing bool      // location_shares.is_sharing
	Accuracy  float64   // location_shares.accuracy_m
	Speed     float64   // location_shares.speed_mps
	UpdatedAt time.Time // location_shares.updated_at
}

// LocationHistoryEntry is one appended row in `location_history`,
// written after the corresponding LocationShare upsert. The two
// writes are not atomic; a crash in between leaves a share update
// without a history row, which is tolerated.
type LocationHistoryEntry struct {
	ID         uint64    // location_history.id
	UserID     uint64    // location_history.user_id
	Latitude   float64   // location_history.latitude
	Longitude  float64   // location_history.longitude
	Accuracy   float64   // location_history.accuracy_m
	Speed      float64   // location_history.speed_mps
	RecordedAt time.Time // location_history.recorded_at
}
