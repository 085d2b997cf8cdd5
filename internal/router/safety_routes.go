package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/saheli/saheli-backend/internal/config"
	"github.com/saheli/saheli-backend/internal/handler"
	"github.com/saheli/saheli-backend/internal/middleware"
)

// RegisterSafety registers the user-scoped safety endpoints under /v1.
// All routes require a valid JWT: contacts, location sharing, route
// sharing and the SOS trigger. The read endpoints for location and
// route go through the per-user Redis response cache; with a nil Redis
// client the cache middleware is a pass-through.
func RegisterSafety(
	e *echo.Echo,
	contacts *handler.ContactHandler,
	locations *handler.LocationHandler,
	routes *handler.RouteHandler,
	sos *handler.SOSHandler,
	jwtSecret string,
	cacheCfg config.CacheConfig,
	rdb *redis.Client,
) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	cached := middleware.NewRedisCache(cacheCfg, rdb)

	// Trusted contact directory.
	g.GET("/contacts", contacts.List)
	g.POST("/contacts", contacts.Add)
	g.PUT("/contacts/:id", contacts.Update)
	g.DELETE("/contacts/:id", contacts.Remove)

	// Raw device fixes feed the per-user sensor.
	g.POST("/location/fix", locations.PushFix)

	// Sharing session toggle and reads.
	g.POST("/location/share", locations.StartShare)
	g.DELETE("/location/share", locations.StopShare)
	g.GET("/location", locations.Get, cached)
	g.GET("/location/history", locations.History)

	// Destination sharing.
	g.POST("/route", routes.Start)
	g.GET("/route", routes.Get, cached)
	g.DELETE("/route", routes.Stop)

	// Emergency alert.
	g.POST("/sos", sos.Trigger)
}
