package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/littlespace/internal/auth"
	"github.com/BradenHooton/littlespace/internal/background"
	"github.com/BradenHooton/littlespace/internal/config"
	"github.com/BradenHooton/littlespace/internal/database"
	"github.com/BradenHooton/littlespace/internal/events"
	"github.com/BradenHooton/littlespace/internal/handlers"
	"github.com/BradenHooton/littlespace/internal/metrics"
	middlewareCustom "github.com/BradenHooton/littlespace/internal/middleware"
	"github.com/BradenHooton/littlespace/internal/repositories"
	"github.com/BradenHooton/littlespace/internal/routes"
	"github.com/BradenHooton/littlespace/internal/services"
	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
	pkglogger "github.com/BradenHooton/littlespace/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("session_expiry_policy", cfg.Auth.ExpiryPolicy),
		slog.Bool("strict_transitions", cfg.Tasks.StrictTransitions),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if migrateOnStart {
		if err := db.MigrateUp(ctx); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	accountRepo := repositories.NewAccountRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	pushTokenRepo := repositories.NewPushTokenRepository(db)

	// Sessions and sign-in
	sessionStore := auth.NewSessionStore(sessionRepo, cfg.Auth.SessionTTL, cfg.Auth.ExpiryPolicy, logger)
	authenticator := auth.NewAuthenticator(sessionStore, userRepo, collector, auth.AuthenticatorConfig{
		TouchLastSeen:   cfg.Auth.TouchLastSeen,
		LastSeenTimeout: cfg.Auth.LastSeenTimeout,
	}, logger)
	stateManager := auth.NewStateManager(cfg.Auth.StateSecret, cfg.Auth.StateTTL)
	discord := auth.NewDiscordProvider(cfg.Discord)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Task events
	publisher, closePublisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	// Services
	authService := services.NewAuthService(discord, stateManager, sessionStore, accountRepo, userRepo, pushTokenRepo,
		services.AuthServiceConfig{
			AllowedIDs: cfg.Auth.AllowedDiscordIDs,
			AdminIDs:   cfg.Auth.AdminDiscordIDs,
		}, logger, auditLogger)
	taskService := services.NewTaskService(taskRepo, userRepo, services.TaskServiceOptions{
		Publisher:         publisher,
		Metrics:           collector,
		Audit:             auditLogger,
		StrictTransitions: cfg.Tasks.StrictTransitions,
	}, logger)
	deviceService := services.NewDeviceService(pushTokenRepo, sessionStore, logger)

	// Router
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middlewareCustom.Metrics(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Handler(registry)
	}

	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:    handlers.NewAuthHandler(authService, &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}, logger),
		TaskHandler:    handlers.NewTaskHandler(taskService, logger).WithAudit(auditLogger),
		DeviceHandler:  handlers.NewDeviceHandler(deviceService, logger),
		Authenticator:  authenticator,
		Database:       db,
		MetricsHandler: metricsHandler,
		LoginRateLimit: middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Auth.LoginRateLimit},
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Expired session sweeper
	var sweeper *background.SessionSweeper
	if cfg.Auth.SweepInterval > 0 {
		sweeper = background.NewSessionSweeper(sessionStore, collector, logger, cfg.Auth.SweepInterval)
		go sweeper.Start(ctx)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newPublisher returns a RabbitMQ-backed publisher when AMQP_URL is set and a
// no-op publisher otherwise
func newPublisher(cfg config.EventsConfig, logger *slog.Logger) (events.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		logger.Info("task event publishing disabled")
		return events.NoopPublisher{}, func() {}, nil
	}

	backend, err := events.NewRabbitMQBackend(cfg.AMQPURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	publisher := events.NewQueuePublisher(backend, cfg.Queue, logger)
	logger.Info("publishing task events", slog.String("queue", cfg.Queue))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close message broker connection", slog.Any("error", err))
		}
	}, nil
}
