package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/colorcompete/colorcompete-backend/internal/api/dashboard"
	"github.com/colorcompete/colorcompete-backend/internal/config"
	"github.com/colorcompete/colorcompete-backend/internal/email"
	"github.com/colorcompete/colorcompete-backend/internal/giftcard"
	appredis "github.com/colorcompete/colorcompete-backend/internal/redis"
	"github.com/colorcompete/colorcompete-backend/internal/repository"
	"github.com/colorcompete/colorcompete-backend/internal/service/automation"
	"github.com/colorcompete/colorcompete-backend/internal/service/badges"
	"github.com/colorcompete/colorcompete-backend/internal/service/stats"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

const drawingLockTTL = 15 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting ColorCompete backend")

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// AutoMigrate owns the schema, including the unique indexes the
	// grant writer and drawing runner rely on.
	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database schema")
	}

	redisClient, err := appredis.NewClient(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	contestRepo := repository.NewContestRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	automationRepo := repository.NewAutomationRepository(db)
	drawingRepo := repository.NewDrawingRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)

	// Services
	aggregator := stats.NewAggregator(submissionRepo, log)
	badgeService := badges.NewService(badgeRepo, aggregator, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := badgeService.SeedDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed badge catalog")
	}

	emailClient := email.NewClient(&cfg.Email, log)
	giftCardClient := giftcard.NewClient(&cfg.GiftCard, log)
	drawingLock := appredis.NewLock(redisClient, drawingLockTTL)

	executor := automation.NewExecutor(&automation.ExecutorRepos{
		Automations:   automationRepo,
		Contests:      contestRepo,
		Users:         userRepo,
		Submissions:   submissionRepo,
		Subscriptions: subscriptionRepo,
		Drawings:      drawingRepo,
		EmailLogs:     emailLogRepo,
	}, emailClient, giftCardClient, drawingLock, &cfg.App, &cfg.Scheduler, log)

	scheduler := automation.NewScheduler(automationRepo, executor, &cfg.Scheduler, log)
	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start automation scheduler")
		}
		defer scheduler.StopAll()
	} else {
		log.Warn().Msg("Automation scheduler disabled by configuration")
	}

	// HTTP server
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := dashboard.NewHandler(badgeService, aggregator, automationRepo, scheduler, executor, userRepo, emailLogRepo, log)
	handler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Prometheus.Enabled {
		router.GET(cfg.Metrics.Prometheus.Path, gin.WrapH(promhttp.Handler()))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
