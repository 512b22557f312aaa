package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/calendar"
	"github.com/meetkit/booking/internal/config"
	"github.com/meetkit/booking/internal/database"
	"github.com/meetkit/booking/internal/handler"
	"github.com/meetkit/booking/internal/middleware"
	"github.com/meetkit/booking/internal/queue"
	"github.com/meetkit/booking/internal/repository"
	"github.com/meetkit/booking/internal/router"
	"github.com/meetkit/booking/internal/scheduling"
	"github.com/meetkit/booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	hosts := repository.NewHostRepo(db)
	rules := repository.NewAvailabilityRuleRepo(db)
	bookings := repository.NewBookingRepo(db)
	requests := repository.NewBookingRequestRepo(db)
	tokens := repository.NewCalendarTokenRepo(db)

	// Google calendar is optional; without credentials every host reads
	// as externally free.
	var busy scheduling.ExternalBusyProvider = calendar.NoBusyProvider{}
	var googleProvider *calendar.GoogleBusyProvider
	if oauthCfg := calendar.NewOAuthConfig(); oauthCfg != nil {
		googleProvider = calendar.NewGoogleBusyProvider(oauthCfg, tokens)
		busy = googleProvider
	} else {
		log.Println("google calendar integration disabled: credentials not configured")
	}

	opts := scheduling.Options{
		MinDurationMinutes: cfg.MinSlotMinutes,
		MaxDurationMinutes: cfg.MaxSlotMinutes,
		HoldWindow:         cfg.HoldWindow,
	}
	generator := scheduling.NewSlotGenerator(hosts, rules, bookings, busy, opts)
	workflow := scheduling.NewWorkflow(generator, hosts, bookings, requests, service.NewQueueNotifier(), opts)

	// Consumer runs its own reconnect loop; a missing broker only costs
	// the confirmation log, never the API.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, cfg.JWTSecret, rateLimit,
		handler.NewAuthHandler(cfg, hosts),
		handler.NewSlotsHandler(generator),
		handler.NewBookingRequestHandler(workflow),
		handler.NewHostHandler(rules, bookings, workflow),
		handler.NewCalendarHandler(googleProvider),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
