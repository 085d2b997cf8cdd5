package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides a userKey extraction function that renders the
// user_id stored by JWTAuth as a string suitable for cache-key
// namespacing. When no user is authenticated, "guest" is returned so
// unauthenticated routes never share cache entries with users.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userKey extracts a user identifier from the context for cache keying.
// It returns "guest" when no user is authenticated.
func userKey(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "guest"
}
