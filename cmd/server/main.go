package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/figure-api/internal/auth"
	"github.com/iliyamo/figure-api/internal/config"
	"github.com/iliyamo/figure-api/internal/datasource/memory"
	"github.com/iliyamo/figure-api/internal/datasource/mongodb"
	"github.com/iliyamo/figure-api/internal/datasource/mysql"
	"github.com/iliyamo/figure-api/internal/events"
	"github.com/iliyamo/figure-api/internal/handler"
	"github.com/iliyamo/figure-api/internal/logging"
	"github.com/iliyamo/figure-api/internal/middleware"
	"github.com/iliyamo/figure-api/internal/repository"
	"github.com/iliyamo/figure-api/internal/router"
)

func main() {
	cfg := config.Load()                               // Load environment config
	logger := logging.New(cfg.LogLevel, cfg.LogFormat) // Structured logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := openDatasource(ctx, cfg) // mongodb, mysql or memory
	if err != nil {
		log.Fatalf("datasource %s: %v", cfg.Datasource, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ds.Close(closeCtx); err != nil {
			logger.Warn(closeCtx, "datasource close failed", "error", err)
		}
	}()

	// Repositories
	users := repository.NewUserRepository(ds.Users(), ds.Credentials(), ds.Figures())
	figures := repository.NewFigureRepository(ds.Figures(), ds.Users())
	tokens := repository.NewTokenRepository(ds.Tokens())

	// Auth services
	access := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiresIn)
	refresh := auth.NewRefreshTokenService(cfg.RefreshSecret, cfg.RefreshIssuer, cfg.RefreshExpiresIn, tokens, users, access)
	hasher := auth.BcryptHasher{Cost: cfg.BcryptCost}

	// Event publisher, RabbitMQ when enabled
	var pub events.Publisher = events.Nop{}
	if cfg.EventsEnabled {
		pub = events.NewAMQPPublisher(cfg.RabbitMQURL)
	}

	e := echo.New()                                  // Create Echo instance
	e.HideBanner = true                              // Quiet start-up
	e.HTTPErrorHandler = router.ErrorHandler(logger) // {"error": msg} bodies
	e.Use(echomw.Recover())                          // Panics become 500
	e.Use(echomw.RequestID())                        // X-Request-Id header
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info(c.Request().Context(), "request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
				"request_id", v.RequestID,
			)
			return nil
		},
	}))

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb == nil {
		logger.Warn(ctx, "redis unavailable, rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger) // Per-route, after JWT

	// Routes: health probe, then the API table
	router.RegisterRoutes(e)
	router.Register(e, router.Routes(
		handler.NewUserHandler(users, hasher, access, refresh, pub, logger),
		handler.NewFigureHandler(users, figures, pub, logger),
	), access, limit)
	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir) // Home page and assets
	}

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info(ctx, "listening", "addr", addr, "env", cfg.Env, "datasource", cfg.Datasource)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done() // SIGINT or SIGTERM
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown failed", "error", err)
	}
}

// openDatasource connects the backend named by DATASOURCE.
func openDatasource(ctx context.Context, cfg config.Config) (repository.Datasource, error) {
	switch cfg.Datasource {
	case config.DatasourceMongo:
		return mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.DatasourceMySQL:
		db, err := mysql.Open(ctx, mysql.Options{
			User: cfg.DBUser,
			Pass: cfg.DBPass,
			Host: cfg.DBHost,
			Port: cfg.DBPort,
			Name: cfg.DBName,
		})
		if err != nil {
			return nil, err
		}
		if err := mysql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return mysql.New(db), nil
	case config.DatasourceMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown datasource %q", cfg.Datasource)
	}
}
