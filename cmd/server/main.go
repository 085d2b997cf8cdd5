package main // Entry point package

import (
	"log"      // Logging library
	"log/slog" // Structured logging for background workers

	"github.com/joho/godotenv"    // Load .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/saheli/saheli-backend/internal/alert"
	"github.com/saheli/saheli-backend/internal/config"
	"github.com/saheli/saheli-backend/internal/database"
	"github.com/saheli/saheli-backend/internal/geo"
	"github.com/saheli/saheli-backend/internal/handler"
	"github.com/saheli/saheli-backend/internal/queue"
	"github.com/saheli/saheli-backend/internal/repository"
	"github.com/saheli/saheli-backend/internal/router"
	queue_publisher "github.com/saheli/saheli-backend/internal/service"
	"github.com/saheli/saheli-backend/internal/session"
	"github.com/saheli/saheli-backend/internal/sms"
	"github.com/saheli/saheli-backend/pkg/logging"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win
	logging.Setup()     // Colored slog handler, level from LOG_LEVEL

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal(err) // No point starting without storage
	}
	defer db.Close()

	rdb := config.NewRedisClient() // May be nil; cache middleware degrades to pass-through

	// Repositories over the shared connection pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	contacts := repository.NewContactRepo(db)
	locations := repository.NewLocationRepo(db)
	routes := repository.NewRouteRepo(db)

	// Device-fed location sensors and the SMS gateway used for alert fan-out.
	sensors := geo.NewRegistry()
	gateway := sms.NewClient(cfg.SMSBaseURL, cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFromNumber)
	alerts := alert.NewDispatcher(contacts, sensors, gateway, queue_publisher.AlertAuditor{}, cfg.CountryCode, cfg.FanoutWorkers)
	sessions := session.NewController(locations, alerts, sensors, cfg.WatchInterval)

	// Consume alert.dispatched events into the audit log. The consumer
	// reconnects on its own; a hard failure only disables auditing.
	go func() {
		if err := queue.StartAlertConsumer(); err != nil {
			slog.Warn("alert consumer stopped", "error", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e) // Health check and Prometheus metrics
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterSafety(e,
		handler.NewContactHandler(contacts),
		handler.NewLocationHandler(sessions, locations, sensors),
		handler.NewRouteHandler(routes, alerts),
		handler.NewSOSHandler(alerts),
		cfg.JWTSecret,
		config.LoadCacheConfig(),
		rdb,
	)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
