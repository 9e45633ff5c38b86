package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/roadblock/internal/config"
	"github.com/Skotchmaster/roadblock/internal/es"
	"github.com/Skotchmaster/roadblock/internal/httpserver"
	"github.com/Skotchmaster/roadblock/internal/images"
	"github.com/Skotchmaster/roadblock/internal/middleware/csrf"
	"github.com/Skotchmaster/roadblock/internal/mykafka"
	"github.com/Skotchmaster/roadblock/internal/repo"
	"github.com/Skotchmaster/roadblock/internal/service"
	"github.com/Skotchmaster/roadblock/internal/session"
	pkgdb "github.com/Skotchmaster/roadblock/pkg/db"
	"github.com/Skotchmaster/roadblock/pkg/logging"
	loggingmw "github.com/Skotchmaster/roadblock/pkg/middleware/logging"
)

type eventProducer interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	ctx := logging.IntoContext(context.Background(), logger)

	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	r := repo.New(db)
	if err := r.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	sessions, err := session.NewManager([]byte(cfg.SessionSecret), cfg.CookieSecure)
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	var events eventProducer = mykafka.Nop{}
	if cfg.Kafka.Enabled() {
		events = mykafka.NewProducer(cfg.Kafka.Brokers)
	}

	authSvc := &service.AuthService{Repo: r, Events: events}
	vehicleSvc := &service.VehicleService{Repo: r, Events: events}

	if cfg.Search.Enabled() {
		esClient, err := es.NewClient(ctx, cfg.Search)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index := es.NewVehicleIndex(esClient, cfg.Search.Index)
		if err := index.EnsureIndex(ctx); err != nil {
			log.Fatalf("elasticsearch index: %v", err)
		}
		vehicleSvc.Index = index
	}

	var store *images.Store
	if cfg.Images.Enabled() {
		store, err = images.New(ctx, cfg.Images)
		if err != nil {
			log.Fatalf("images: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		middleware.Secure(),
		middleware.BodyLimit("10M"),
	)
	if cfg.CSRFEnabled {
		e.Use(csrf.Middleware(csrf.Config{
			Secure:            cfg.CookieSecure,
			EnforceSameOrigin: true,
			SkipPrefixes:      []string{"/api/", "/health/"},
		}))
	}

	httpserver.Register(e, &httpserver.Deps{
		Repo:     r,
		Sessions: sessions,
		Auth:     &httpserver.AuthHTTP{Svc: authSvc, Sessions: sessions, Images: cfg.Images},
		Vehicles: &httpserver.VehicleHTTP{Svc: vehicleSvc, Images: store, ImageConfig: cfg.Images},
		Drivers:  &httpserver.DriverHTTP{Svc: vehicleSvc},
		Images:   &httpserver.ImageHTTP{Store: store},
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := pkgdb.Close(db); err != nil {
		logger.Error("db close error", "error", err)
	}

	if err := events.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
