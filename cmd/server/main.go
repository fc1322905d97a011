package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/csr-service-match/internal/config"   // Internal config loader
	"github.com/iliyamo/csr-service-match/internal/database" // MySQL connection
	"github.com/iliyamo/csr-service-match/internal/handler"
	"github.com/iliyamo/csr-service-match/internal/middleware"
	"github.com/iliyamo/csr-service-match/internal/repository"
	"github.com/iliyamo/csr-service-match/internal/router" // Internal router setup
	"github.com/iliyamo/csr-service-match/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg)
	if err != nil {
		logger.WithField("module", "main").Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; every feature built on it turns itself off on nil.
	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	categories := repository.NewCategoryRepo(db)
	requests := repository.NewRequestRepo(db)
	shortlists := repository.NewShortlistRepo(db)
	matches := repository.NewMatchRepo(db)
	reports := repository.NewReportRepo(db)

	reportSvc := service.NewReportService(reports, matches, config.NewLocker(rdb), cfg.ReportLockTTL, logger)
	publisher := service.NewPublisher(cfg.RabbitURL, logger)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog(logger))

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	extras := router.Extras{
		RateLimit:     middleware.NewTokenBucket(rlCfg, rdb, logger),
		AuthRateLimit: middleware.NewTokenBucket(rlCfg.ForAuth(), rdb, logger),
		Cache:         middleware.NewRedisCache(cacheCfg, rdb),
		Invalidate:    middleware.InvalidateCache(cacheCfg, rdb),
	}

	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, logger), cfg.JWTSecret, extras)
	router.RegisterPIN(e, handler.NewPINHandler(requests, matches, publisher, logger), cfg.JWTSecret, extras)
	router.RegisterCSR(e, handler.NewCSRHandler(requests, shortlists, matches, categories, logger), cfg.JWTSecret, extras)
	router.RegisterPlatform(e, handler.NewPlatformHandler(categories, reportSvc, reports, matches, logger), cfg.JWTSecret, extras)
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, users, tokens, logger), cfg.JWTSecret, extras)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.WithFields(logrus.Fields{"module": "main", "addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithField("module", "main").Fatalf("server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithField("module", "main").Errorf("shutdown: %v", err)
	}
}
