package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/linkmetrics/internal/analytics"
	"github.com/sundayezeilo/linkmetrics/internal/clicks"
	"github.com/sundayezeilo/linkmetrics/internal/config"
	"github.com/sundayezeilo/linkmetrics/internal/links"
	"github.com/sundayezeilo/linkmetrics/internal/migrations"
	"github.com/sundayezeilo/linkmetrics/internal/server"
)

// App holds the application dependencies and configuration.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	DBPool     *pgxpool.Pool
	Redis      *redis.Client
	NATS       *nats.Conn
	Server     *server.Server
	Dispatcher clicks.Dispatcher

	consumer *clicks.Consumer
	geo      *clicks.GeoIPLocator
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"version", cfg.Observability.ServiceVersion,
	)

	a := &App{Config: cfg, Logger: logger}
	if err := a.wire(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return nil, err
	}

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"redis", cfg.Redis.Enabled,
		"nats", cfg.NATS.Enabled,
		"geoip", a.geo != nil,
	)
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	if cfg.Database.RunMigrations {
		if err := migrations.Run(cfg.Database.URL(), logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DBPool = pool

	baseRepo := links.NewRepository(pool, nil)
	var (
		repo   links.Repository = baseRepo
		unique clicks.UniqueTracker
	)
	if cfg.Redis.Enabled {
		client, err := connectRedis(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Redis = client
		repo = links.NewCachedRepository(baseRepo, client, cfg.Redis.CacheTTL, logger)
		unique = clicks.NewRedisUniqueTracker(client, cfg.Clicks.UniqueWindow)
	} else {
		unique = clicks.NewPostgresUniqueTracker(pool, cfg.Clicks.UniqueWindow)
	}

	linkService := links.NewService(repo, &links.ServiceConfig{
		Allocator: links.NewAllocator(repo, links.AllocatorConfig{
			CodeLength:  cfg.Links.CodeLength,
			MaxAttempts: cfg.Links.MaxAllocationAttempts,
			Logger:      logger,
		}),
		MaxAttempts:   cfg.Links.MaxAllocationAttempts,
		OwnerQuota:    cfg.Links.OwnerQuota,
		MaxURLLength:  cfg.Links.MaxURLLength,
		MaxExpiryDays: cfg.Links.MaxExpiresInDays,
		ListMaxLimit:  cfg.Links.ListMaxLimit,
		PopularDays:   cfg.Links.PopularDefaultDays,
		Logger:        logger,
	})

	var locator clicks.GeoLocator = clicks.NoopLocator{}
	if path := cfg.Clicks.GeoIPDBPath; path != "" {
		geo, err := clicks.OpenGeoIP(path)
		if err != nil {
			return fmt.Errorf("failed to open geoip database: %w", err)
		}
		a.geo = geo
		locator = geo
	}

	recorder := clicks.NewRecorder(baseRepo, clicks.NewStore(pool), clicks.RecorderConfig{
		GeoLocator:    locator,
		UniqueTracker: unique,
		Logger:        logger,
	})

	if cfg.NATS.Enabled {
		if err := a.startNATS(recorder); err != nil {
			return err
		}
	} else {
		a.Dispatcher = clicks.NewAsyncDispatcher(recorder, clicks.AsyncConfig{
			Workers:       cfg.Clicks.Workers,
			QueueSize:     cfg.Clicks.QueueSize,
			RecordTimeout: cfg.Clicks.RecordTimeout,
			Logger:        logger,
		})
	}

	aggregator := analytics.NewService(analytics.NewRepository(pool), baseRepo, &analytics.ServiceConfig{
		QueryTimeout:    cfg.Analytics.QueryTimeout,
		MaxRangeDays:    cfg.Analytics.MaxRangeDays,
		MaxGroups:       cfg.Analytics.MaxGroups,
		MaxSummaryItems: cfg.Analytics.MaxSummary,
		Logger:          logger,
	})

	a.Server = server.New(cfg, logger, server.Handlers{
		Links: links.NewHandler(links.HandlerConfig{
			Service: linkService,
			Logger:  logger,
			BaseURL: cfg.Server.BaseURL,
		}),
		Redirect:  clicks.NewRedirectHandler(linkService, a.Dispatcher, logger),
		Analytics: analytics.NewHandler(aggregator, logger),
		Database:  pool,
	})
	return nil
}

// startNATS publishes clicks to JetStream and consumes them back into the
// recorder, so a crash between redirect and insert loses nothing.
func (a *App) startNATS(recorder clicks.ClickRecorder) error {
	cfg, logger := a.Config.NATS, a.Logger

	nc, err := nats.Connect(cfg.URL,
		nats.Name(a.Config.Observability.ServiceName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	a.NATS = nc

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("failed to open jetstream: %w", err)
	}
	if err := clicks.EnsureStream(js, cfg.Stream, cfg.Subject); err != nil {
		return err
	}

	a.Dispatcher = clicks.NewNATSDispatcher(js, clicks.NATSDispatcherConfig{Subject: cfg.Subject})
	a.consumer = clicks.NewConsumer(js, recorder, clicks.ConsumerConfig{
		Subject:       cfg.Subject,
		Durable:       cfg.Consumer,
		RecordTimeout: a.Config.Clicks.RecordTimeout,
		Logger:        logger,
	})
	if err := a.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start click consumer: %w", err)
	}

	logger.Info("click stream ready",
		"stream", cfg.Stream,
		"subject", cfg.Subject,
		"consumer", cfg.Consumer,
	)
	return nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown releases resources in dependency order: queued clicks are
// recorded before the stores they write to are closed.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("click dispatcher: %w", err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("click consumer: %w", err))
		}
	}
	if a.NATS != nil {
		if err := a.NATS.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("nats: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.geo != nil {
		if err := a.geo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("geoip: %w", err))
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return errors.Join(errs...)
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

// connectDatabase establishes a connection to the PostgreSQL database.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return pool, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("redis connection established", "addr", cfg.Redis.Addr)
	return client, nil
}
