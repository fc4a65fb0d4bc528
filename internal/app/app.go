package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"lotpulse/internal/config"
	apierrors "lotpulse/internal/errors"
	"lotpulse/internal/infrastructure"
	customMiddleware "lotpulse/internal/middleware"
	"lotpulse/internal/services"
	"lotpulse/internal/sessions"
	handlers "lotpulse/internal/transport/http"
	"lotpulse/internal/validation"
	"lotpulse/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Paths         *config.Paths
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Runtime       *infrastructure.RuntimeCollector
	Store         *sessions.MemoryStore
	ReportService *services.ReportService
	HealthService *services.HealthService
	ErrorHandler  *apierrors.ErrorHandler
	Router        *chi.Mux
	Server        *http.Server
}

// NewApplication loads the configuration and the logger and wires the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ValidatePaths(logger)
	if err != nil {
		return nil, err
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		Paths:         paths,
		OTelProviders: providers,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices creates the session store and the services on top of it
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	if a.Config.Telemetry.MetricsEnabled && a.Config.Telemetry.RuntimeInterval > 0 {
		runtimeCollector, err := infrastructure.NewRuntimeCollector(a.OTelProviders.Meter, a.Config.Telemetry.RuntimeInterval, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create runtime metrics: %w", err)
		}
		a.Runtime = runtimeCollector
	}

	a.Store = sessions.NewMemoryStore(sessions.Options{
		TTL:         a.Config.Session.TTL,
		MaxSessions: a.Config.Session.MaxSessions,
	})

	a.ReportService = services.NewReportService(
		a.Store,
		services.ReportOptionsFrom(a.Config),
		a.OTelProviders,
		a.Metrics,
		a.Logger,
	)
	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Store, a.Logger)
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	a.Logger.Info("Services initialized",
		slog.Duration("session_ttl", a.Config.Session.TTL),
		slog.Int("max_sessions", a.Config.Session.MaxSessions),
		slog.Int("top_n", a.Config.Report.TopN))
	return nil
}

// setupRouter builds the middleware chain and mounts the API.
// Order: RequestID → RealIP → OTel → Logger → Recoverer → Timeout
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Scrapes bypass tracing and rate limiting
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	reportHandler := handlers.NewReportHandler(
		a.ReportService,
		customMiddleware.NewValidator(),
		a.ErrorHandler,
		a.Config.Ingest.MaxUploadBytes,
		a.Logger,
	)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Health probes stay outside the request timeout
		healthHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
			reportHandler.RegisterRoutes(r)
		})
	})
}

// getCORSConfig returns the CORS settings for the configured origins
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			handlers.FileNameHeader,
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"Location",
			customMiddleware.RequestIDHeader,
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP, sweeps idle sessions and samples runtime metrics until ctx is cancelled or a
// termination signal arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.sweepSessions(gctx)
		return nil
	})

	if a.Runtime != nil {
		g.Go(func() error {
			a.Runtime.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(ctx, "Shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// sweepSessions evicts idle sessions every SweepInterval until ctx is done
func (a *Application) sweepSessions(ctx context.Context) {
	interval := a.Config.Session.SweepInterval
	if interval <= 0 {
		interval = config.DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.ReportService.SweepSessions(infrastructure.EnsureTraceID(ctx))
		}
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error shutting down OpenTelemetry")
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Int("sessions_dropped", a.Store.Len()))
	return nil
}

// performStartupHealthCheck verifies the working directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string
	validator := validation.NewFileValidator(a.Logger)

	directories := []struct{ name, dir string }{
		{"Data", a.Paths.DataDir},
		{"Exports", a.Paths.ExportsDir},
		{"Logs", a.Paths.LogsDir},
	}

	for _, d := range directories {
		if err := validator.ValidateOutputDirectory(d.dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", d.name, d.dir))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
