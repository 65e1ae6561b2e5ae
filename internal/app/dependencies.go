package app

import (
	"context"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/config"
	"github.com/noah-isme/toko-tierprice/internal/migrations"
	"github.com/noah-isme/toko-tierprice/internal/obs"
	"github.com/noah-isme/toko-tierprice/internal/ratelimit"
	"github.com/noah-isme/toko-tierprice/internal/resilience"
)

// Dependencies holds the long-lived clients shared by the HTTP layer.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Products  catalog.Repository
	Validator *validator.Validate
	Limiter   ratelimit.Limiter

	// Registry receives HTTP metrics; nil means the default registerer.
	Registry *prometheus.Registry
}

// Connect opens the database pool and redis client described by cfg. Without a
// DATABASE_URL the demo catalog is served from memory. The returned function
// releases every connection.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg, Logger: logger, Validator: validator.New()}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.UsesDatabase() {
		if cfg.DatabaseAutoMigrate {
			if err := migrations.Up(cfg.DatabaseURL); err != nil {
				return nil, nil, err
			}
			logger.Info().Msg("database migrations applied")
		}
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		deps.DB = pool
		deps.Products = catalog.BreakerRepository{
			Repo: catalog.NewPostgresRepository(pool),
			Breaker: resilience.NewBreaker(resilience.Settings{
				Target:       "catalog_db",
				MinRequests:  10,
				FailureRatio: 0.5,
				OpenFor:      15 * time.Second,
				Logger:       logger,
			}),
		}
	} else {
		logger.Warn().Msg("DATABASE_URL not set, serving the demo catalog from memory")
		deps.Products = catalog.NewMemoryRepository(catalog.DemoRecords()...)
	}

	rdb, err := NewRedis(ctx, cfg.RedisURL, cfg.Obs.MetricsEnabled, logger)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	})
	deps.Redis = rdb

	deps.Limiter, err = NewLimiter(cfg.RateLimitStrategy, cfg.RateLimitRedisPrefix, rdb)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return deps, closeAll, nil
}

// NewPool connects a pgx pool with query tracing enabled.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "toko-tierprice"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis connects an instrumented redis client.
func NewRedis(ctx context.Context, redisURL string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewLimiter returns the rate limiter for strategy: "sliding" keeps a sorted
// set per key, "fixed" counts per window through ulule/limiter, "off" disables limiting.
func NewLimiter(strategy, prefix string, rdb *redis.Client) (ratelimit.Limiter, error) {
	switch strategy {
	case "off":
		return nil, nil
	case "fixed":
		store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
		if err != nil {
			return nil, fmt.Errorf("init rate limit store: %w", err)
		}
		return ratelimit.FixedWindow{Store: store}, nil
	case "sliding", "":
		return ratelimit.SlidingWindow{Client: rdb, Prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unknown rate limit strategy %q", strategy)
	}
}
