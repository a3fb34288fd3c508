package router

import (
	"context"

	checkinsvc "gatelist-backend/internal/application/checkin"
	couplesvc "gatelist-backend/internal/application/couples"
	guestsvc "gatelist-backend/internal/application/guests"
	invitesvc "gatelist-backend/internal/application/invites"
	rsvpsvc "gatelist-backend/internal/application/rsvp"
	authsvc "gatelist-backend/internal/auth"
	"gatelist-backend/internal/config"
	"gatelist-backend/internal/events"
	"gatelist-backend/internal/infrastructure/database"
	authhandler "gatelist-backend/internal/interfaces/handlers/auth"
	checkinhandler "gatelist-backend/internal/interfaces/handlers/checkin"
	couplehandler "gatelist-backend/internal/interfaces/handlers/couples"
	guesthandler "gatelist-backend/internal/interfaces/handlers/guests"
	healthhandler "gatelist-backend/internal/interfaces/handlers/health"
	rsvphandler "gatelist-backend/internal/interfaces/handlers/rsvp"
	"gatelist-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. DB and Redis are returned for startup health checks.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		if err := authsvc.SeedOperator(context.Background(), db, cfg.OperatorUsername, cfg.OperatorPassword); err != nil {
			return nil, nil, nil, err
		}
	}

	healthHandlers := &healthhandler.Handlers{Rdb: rdb, DB: db}
	app.Get("/health/json", healthHandlers.JSON)

	if db == nil {
		// No database (e.g. smoke tests): only health is mounted.
		return app, nil, rdb, nil
	}

	publisher := &events.Publisher{Rdb: rdb}

	authHandlers := &authhandler.Handlers{
		Service: &authsvc.Service{DB: db},
		Rdb:     rdb,
		Config:  sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	// Public guest-facing RSVP routes; the identifier is the capability.
	rsvpHandlers := &rsvphandler.Handlers{
		Service: &rsvpsvc.Service{DB: db, Events: publisher},
	}
	app.Get("/api/v1/rsvp/:identifier", rsvpHandlers.Lookup)
	app.Post("/api/v1/rsvp/:identifier", rsvpHandlers.Submit)

	// Couple management: create/list/delete are operator-only.
	coupleHandlers := &couplehandler.Handlers{
		Service: &couplesvc.Service{DB: db, Events: publisher},
	}
	coupleGroup := app.Group("/api/v1/couples", middleware.RequireAuth())
	coupleGroup.Post("/", middleware.RequireOperator(), coupleHandlers.CreateCouple)
	coupleGroup.Get("/", middleware.RequireOperator(), coupleHandlers.ListCouples)
	coupleGroup.Get("/:id", coupleHandlers.GetCouple)
	coupleGroup.Patch("/:id", coupleHandlers.UpdateCouple)
	coupleGroup.Delete("/:id", middleware.RequireOperator(), coupleHandlers.DeleteCouple)

	guestDirectory := &guestsvc.Service{DB: db, Events: publisher}
	guestHandlers := &guesthandler.Handlers{
		Service: guestDirectory,
		Invites: &invitesvc.Service{BaseURL: cfg.RSVPBaseURL},
	}
	guestGroup := app.Group("/api/v1/guests", middleware.RequireAuth())
	guestGroup.Post("/", guestHandlers.CreateGuest)
	guestGroup.Post("/bulk", guestHandlers.BulkCreate)
	guestGroup.Get("/", guestHandlers.ListGuests)
	guestGroup.Get("/:id", guestHandlers.GetGuest)
	guestGroup.Patch("/:id", guestHandlers.UpdateGuest)
	guestGroup.Delete("/:id", guestHandlers.DeleteGuest)
	guestGroup.Put("/:id/tags", guestHandlers.AssignTags)
	guestGroup.Get("/:id/qr", guestHandlers.GuestQR)

	tagGroup := app.Group("/api/v1/tags", middleware.RequireAuth())
	tagGroup.Post("/", guestHandlers.CreateTag)
	tagGroup.Get("/", guestHandlers.ListTags)
	tagGroup.Delete("/:id", guestHandlers.DeleteTag)

	checkinHandlers := &checkinhandler.Handlers{
		Service: &checkinsvc.Service{DB: db, Events: publisher},
	}
	app.Post("/api/v1/checkin/verify", middleware.RequireAuth(), checkinHandlers.Verify)

	return app, db, rdb, nil
}
