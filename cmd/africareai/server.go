package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/emmanuel-123tech/africareai/internal/config"
	"github.com/emmanuel-123tech/africareai/internal/domain/dataset"
	"github.com/emmanuel-123tech/africareai/internal/domain/forecast"
	"github.com/emmanuel-123tech/africareai/internal/domain/triage"
	"github.com/emmanuel-123tech/africareai/internal/platform/auth"
	"github.com/emmanuel-123tech/africareai/internal/platform/db"
	"github.com/emmanuel-123tech/africareai/internal/platform/middleware"
	"github.com/emmanuel-123tech/africareai/internal/platform/reporting"
	"github.com/emmanuel-123tech/africareai/internal/platform/telemetry"
	"github.com/emmanuel-123tech/africareai/internal/platform/webhook"
	"github.com/emmanuel-123tech/africareai/internal/platform/websocket"
)

const version = "0.1.0"

// eventsPath is the live event feed; it is long-lived and exempt from the
// request timeout.
const eventsPath = "/api/v1/events/ws"

// stores holds the persistence backends chosen at startup.
type stores struct {
	runs        forecast.RunRepository
	assessments triage.AssessmentRepository
	dbHealth    echo.HandlerFunc
	// reports is nil without a database; the reporting routes are then
	// not registered.
	reports   reporting.Querier
	poolStats telemetry.PoolStats
	close     func()
}

func memoryStores() *stores {
	return &stores{
		runs:        forecast.NewRunRepoMemory(),
		assessments: triage.NewAssessmentRepoMemory(),
		dbHealth:    db.MemoryHealthHandler(),
		close:       func() {},
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if !cfg.HasDatabase() {
		logger.Warn().Msg("DATABASE_URL not set, forecast runs and triage assessments are kept in memory")
		return memoryStores(), nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
		ApplicationName: "africareai",
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Int32("max_conns", cfg.DBMaxConns).Msg("connected to database")

	return &stores{
		runs:        forecast.NewRunRepoPG(pool),
		assessments: triage.NewAssessmentRepoPG(pool),
		dbHealth:    db.HealthHandler(pool),
		reports:     pool,
		poolStats:   poolStats(pool),
		close:       pool.Close,
	}, nil
}

func poolStats(pool *pgxpool.Pool) telemetry.PoolStats {
	return func() (int32, int32) {
		stat := pool.Stat()
		return stat.AcquiredConns(), stat.IdleConns()
	}
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(cfg.Level())
}

func authMiddleware(cfg *config.Config) (echo.MiddlewareFunc, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: key,
		Skipper:    auth.AuthSkipper,
	}
	if cfg.ResolvedAuthMode() == "development" {
		return auth.DevAuthMiddleware(jwtCfg), nil
	}
	return auth.JWTMiddleware(jwtCfg), nil
}

// newAlertDispatcher returns nil when no alert webhooks are configured.
func newAlertDispatcher(cfg *config.Config, logger zerolog.Logger) (*webhook.Dispatcher, error) {
	if len(cfg.AlertWebhookURLs) == 0 {
		return nil, nil
	}
	endpoints := make([]webhook.Endpoint, 0, len(cfg.AlertWebhookURLs))
	for _, u := range cfg.AlertWebhookURLs {
		if err := webhook.ValidateURL(u); err != nil {
			return nil, fmt.Errorf("ALERT_WEBHOOK_URLS: %w", err)
		}
		endpoints = append(endpoints, webhook.Endpoint{
			URL:    u,
			Secret: cfg.AlertWebhookSecret,
			Topics: cfg.AlertWebhookTopics,
		})
	}
	return webhook.NewDispatcher(endpoints, logger), nil
}

// newServer wires the API. alerts may be nil.
func newServer(cfg *config.Config, logger zerolog.Logger, st *stores, alerts *webhook.Dispatcher) (*echo.Echo, error) {
	authMW, err := authMiddleware(cfg)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.NewProvider("africareai", version)
	if st.poolStats != nil {
		metrics.WithPoolStats(st.poolStats)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(metrics.MetricsMiddleware())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader, "If-None-Match"},
		ExposeHeaders: []string{middleware.RequestIDHeader, "ETag"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadLimit))
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(authMW)
	e.Use(middleware.Audit(logger, metrics.AuditRecorder()))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", st.dbHealth)
	e.GET("/metrics", metrics.PrometheusHandler(), auth.RequireRole(auth.RoleAdmin))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	apiV1 := e.Group("/api/v1",
		middleware.RateLimit(rateLimitCfg),
		middleware.RequestTimeout(cfg.RequestTimeout, eventsPath),
	)

	hub := websocket.NewHub(logger)
	e.Server.RegisterOnShutdown(hub.CloseAll)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	var events websocket.EventPublisher = hub
	if alerts != nil {
		events = websocket.MultiPublisher{hub, alerts}
		webhook.NewHandler(alerts).RegisterRoutes(apiV1)
	}

	engine := forecast.NewEngine()

	forecastSvc := forecast.NewService(st.runs, engine, logger)
	forecastSvc.SetDefaultDisease(cfg.DefaultDisease)
	forecastSvc.SetEventPublisher(events)
	forecast.NewHandler(forecastSvc).RegisterRoutes(apiV1)

	triageSvc := triage.NewService(st.assessments, logger)
	triageSvc.SetEventPublisher(events)
	triage.NewHandler(triageSvc).RegisterRoutes(apiV1)

	datasetSvc := dataset.NewService(dataset.NewAnalyzer(engine), logger)
	datasetSvc.SetDefaultDisease(cfg.DefaultDisease)
	dataset.NewHandler(datasetSvc).RegisterRoutes(apiV1)

	if st.reports != nil {
		reporting.NewHandler(st.reports).RegisterRoutes(apiV1)
	}

	return e, nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth mode: unauthenticated requests act as dev-user")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer st.close()

	alerts, err := newAlertDispatcher(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("invalid alert webhook configuration")
		return err
	}
	if alerts != nil {
		alertCtx, cancelAlerts := context.WithCancel(context.Background())
		alerts.Start(alertCtx)
		defer func() {
			cancelAlerts()
			alerts.Wait()
		}()
		logger.Info().Int("endpoints", len(alerts.Endpoints())).Msg("alert webhooks enabled")
	}

	e, err := newServer(cfg, logger, st, alerts)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Str("env", cfg.Env).Msg("starting server")
		if cfg.TLSEnabled {
			errCh <- e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
