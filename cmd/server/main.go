package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/wedding-gift-registry/internal/config"
	"github.com/iliyamo/wedding-gift-registry/internal/database"
	"github.com/iliyamo/wedding-gift-registry/internal/handler"
	"github.com/iliyamo/wedding-gift-registry/internal/logger"
	"github.com/iliyamo/wedding-gift-registry/internal/middleware"
	"github.com/iliyamo/wedding-gift-registry/internal/queue"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
	"github.com/iliyamo/wedding-gift-registry/internal/router"
	"github.com/iliyamo/wedding-gift-registry/internal/service"
	"github.com/iliyamo/wedding-gift-registry/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logg := logger.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.MigrationsPath, logg); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	blobs, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload dir unavailable: %v", err)
	}

	// Repositories over the shared connection pool.
	giftRepo := repository.NewGiftRepo(db)
	rsvpRepo := repository.NewRSVPRepo(db)
	guestbookRepo := repository.NewGuestbookRepo(db)
	adminRepo := repository.NewAdminRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	events := queue.NewPublisher(logg)
	registry := service.NewRegistry(giftRepo, blobs, events, logg)

	// Redis backs the response cache and the guest rate limiter; both
	// degrade to pass-throughs when it is unreachable.
	rdb := config.NewRedisClient()
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e,
		handler.NewRegistryHandler(registry, logg),
		handler.NewGuestbookHandler(guestbookRepo, blobs, logg),
		handler.NewRSVPHandler(rsvpRepo, logg),
		cacheMW, rateMW)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, adminRepo, tokenRepo, logg), cfg.JWTSecret)
	router.RegisterAdmin(e,
		handler.NewAdminGiftHandler(registry, logg),
		handler.NewRSVPHandler(rsvpRepo, logg),
		handler.NewGuestbookHandler(guestbookRepo, blobs, logg),
		cfg.JWTSecret)

	// Consume reservation and receipt events into the notification log.
	// The consumer reconnects on its own; a dead broker only costs us the
	// log lines.
	go func() {
		if err := queue.StartConsumer(logg); err != nil {
			logg.WithError(err).Warn("event consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	logg.Infof("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
