package model

import "time"

// RouteShare records the single active destination-sharing session
// for a user in the `route_shares` table. user_id is unique, so
// starting a new route while one is active overwrites the previous
// destination in place. Stopping clears IsActive instead of
// deleting, mirroring LocationShare.
//
// Fields:
//  UserID      – owner of the row (unique).
//  Destination – free-text destination entered by the user.
//  StartedAt   – when the current route share began.
//  IsActive    – whether the route is still being shared.
type RouteShare struct {
	UserID      uint64    // route_shares.user_id
	Destination string    // route_shares.destination
	StartedAt   time.Time // route_shares.started_at
	IsActive    bool      // route_shares.is_active
}
