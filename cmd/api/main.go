// Package main provides the entrypoint for the SimpleReader API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/api"
	"github.com/simplereader/simplereader/internal/api/handler"
	"github.com/simplereader/simplereader/internal/api/middleware"
	"github.com/simplereader/simplereader/internal/auth"
	"github.com/simplereader/simplereader/internal/config"
	"github.com/simplereader/simplereader/internal/database"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/events"
	"github.com/simplereader/simplereader/internal/featureflags"
	"github.com/simplereader/simplereader/internal/feed"
	"github.com/simplereader/simplereader/internal/provider/resilience"
	"github.com/simplereader/simplereader/internal/publication"
	"github.com/simplereader/simplereader/internal/push"
	"github.com/simplereader/simplereader/internal/telemetry"
	"github.com/simplereader/simplereader/internal/tier"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// repositories holds the storage backends selected by configuration.
type repositories struct {
	devices      device.Repository
	publications publication.Repository
	admins       auth.AdminRepository
	flags        featureflags.Repository
}

func main() {
	const serviceName = "simplereader-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, parseErr := zerolog.ParseLevel(cfg.App.LogLevel); parseErr == nil {
		log = log.Level(level)
	} else {
		log.Warn().Str("log_level", cfg.App.LogLevel).Msg("unknown log level, using info")
		log = log.Level(zerolog.InfoLevel)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting SimpleReader API")

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Service{
		Name:        serviceName,
		Version:     Version,
		Environment: cfg.App.Env,
	}, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.Endpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	var checks []handler.Check

	// Storage: PostgreSQL when configured, process memory otherwise
	repos := repositories{
		devices:      device.NewInMemoryRepository(),
		publications: publication.NewInMemoryRepository(),
		admins:       auth.NewInMemoryAdminRepository(),
		flags:        featureflags.NewInMemoryRepository(),
	}
	if cfg.Database.Enabled() {
		pool, dbErr := database.Connect(ctx, cfg.Database, log)
		if dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to connect to database")
		}
		defer pool.Close()

		if dbErr = database.Migrate(cfg.Database, log); dbErr != nil {
			log.Fatal().Err(dbErr).Msg("failed to migrate database")
		}

		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Name).
			Msg("database connected")

		repos = postgresRepositories(pool)
		checks = append(checks, handler.Check{Name: "postgres", Ping: pool.Ping})
	} else {
		log.Warn().Msg("DB_HOST not set - state is kept in memory and lost on restart")
	}

	// Publication list cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if closeErr := rdb.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close redis client")
			}
		}()

		repos.publications = publication.NewCachedRepository(repos.publications, publication.CacheConfig{
			Client: rdb,
			TTL:    cfg.Redis.CacheTTL,
			Logger: log,
		})
		checks = append(checks, handler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("publication cache enabled")
	}

	// Initialize feature flags service
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: repos.flags,
		Logger:     log,
		CacheTTL:   cfg.App.FeatureFlagCacheTTL,
	})
	log.Info().Msg("feature flags service initialized")

	// Domain services
	policy := tier.NewPolicy(cfg.Devices.AllowNewDevices)
	deviceService := device.NewService(repos.devices, policy)
	publicationService := publication.NewService(repos.publications)
	assembler := feed.NewAssembler(deviceService, publicationService, policy)

	// Push transport
	providers := resilience.NewRegistry()
	var transport push.Transport
	apnsConfig := push.APNSConfig{
		KeyPath:     cfg.APNS.KeyPath,
		KeyID:       cfg.APNS.KeyID,
		TeamID:      cfg.APNS.TeamID,
		Topic:       cfg.APNS.Topic,
		Production:  cfg.APNS.Production,
		Concurrency: cfg.APNS.Concurrency,
	}
	if apnsConfig.Configured() {
		guard := resilience.NewGuard(resilience.GuardConfig{
			Name:     push.ProviderAPNs,
			Registry: providers,
		})
		transport, err = push.NewAPNSTransport(apnsConfig, guard, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize APNs transport")
		}
	} else {
		log.Warn().Msg("APNs not configured - push notifications are only logged")
		transport = push.NewLogTransport(log)
	}

	dispatcher, err := push.NewDispatcher(push.DispatcherConfig{
		Crafter:    push.NewCrafter(policy),
		Transport:  transport,
		KillSwitch: ffService,
		Config: push.Config{
			Timeout: cfg.Push.Timeout,
			TTL:     cfg.Push.TTL,
		},
		Logger: log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize push dispatcher")
	}

	// Audit events
	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.PubSub.Enabled() {
		pubsubPublisher, pubErr := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Timeout:   cfg.PubSub.Timeout,
			Logger:    log,
		})
		if pubErr != nil {
			log.Fatal().Err(pubErr).Msg("failed to initialize Pub/Sub publisher")
		}
		defer func() {
			if closeErr := pubsubPublisher.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close Pub/Sub publisher")
			}
		}()
		asyncPublisher := events.NewAsyncPublisher(pubsubPublisher, cfg.PubSub.Timeout, log)
		defer asyncPublisher.Close()
		publisher = asyncPublisher
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("audit events published to Pub/Sub")
	}

	// Initialize auth service and seed the admin account
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.Auth.SigningKey,
			Issuer:     cfg.Auth.Issuer,
			Expiry:     cfg.Auth.TokenExpiry,
		}),
		Admins: repos.admins,
		Logger: log,
	})
	if cfg.Auth.SigningKey == config.DefaultSigningKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin account")
	}

	adminService := admin.NewService(admin.ServiceConfig{
		Devices:      deviceService,
		Publications: publicationService,
		Notifier:     dispatcher,
		Events:       publisher,
		Logger:       log,
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		Metrics:            metrics,
		RequireTLS:         cfg.App.RequireTLS,
		AuthService:        authService,
		AdminService:       adminService,
		DeviceService:      deviceService,
		PublicationService: publicationService,
		FeatureFlagService: ffService,
		Feed:               assembler,
		Providers:          providers,
		Checks:             checks,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Push.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Bool("allow_new_devices", cfg.Devices.AllowNewDevices).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		devices:      device.NewPostgresRepository(pool),
		publications: publication.NewPostgresRepository(pool),
		admins:       auth.NewPostgresAdminRepository(pool),
		flags:        featureflags.NewPostgresRepository(pool),
	}
}
