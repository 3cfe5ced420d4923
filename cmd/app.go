package cmd

import (
	"context"
	"time"

	"example.com/pacific/relief/config"
	"example.com/pacific/relief/internal/cache"
	"example.com/pacific/relief/internal/database"
	"example.com/pacific/relief/internal/messaging"
	"example.com/pacific/relief/internal/repositories"
	"example.com/pacific/relief/internal/search"
	"example.com/pacific/relief/internal/services"
	"example.com/pacific/relief/internal/tracing"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const connectRetries = 5

// app bundles the components shared by the serve and worker commands
type app struct {
	db        database.DB
	store     *repositories.Store
	cache     *cache.RedisCache
	search    *search.ElasticClient
	bus       *azservicebus.Client
	publisher *messaging.Publisher
	tracer    tracing.Tracer
	service   *services.ReliefService
}

// connectDatabase connects with exponential backoff
func connectDatabase(cfg config.DatabaseConfig) (database.DB, error) {
	var (
		db  database.DB
		err error
	)
	retryInterval := time.Second

	for i := 0; i < connectRetries; i++ {
		log.Info().Int("attempt", i+1).Str("driver", cfg.Driver).Msg("Connecting to database")
		db, err = database.Connect(cfg)
		if err == nil {
			return db, nil
		}

		log.Error().
			Err(err).
			Int("retry_attempt", i+1).
			Int("max_retries", connectRetries).
			Msg("Failed to connect to database, retrying")

		if i < connectRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, errors.Wrapf(err, "failed to connect to database after %d attempts", connectRetries)
}

// newApp connects to the database, migrates it and builds the optional
// adapters. Adapters that fail to initialize are logged and left disabled.
func newApp(cfg config.Config) (*app, error) {
	db, err := connectDatabase(cfg.DB)
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	gormDB, err := db.DB()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &app{db: db, store: repositories.NewStore(gormDB)}

	// Initialize cache
	a.cache, err = cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		a.cache = nil
	}

	// Initialize tracer
	a.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		a.tracer = tracing.Disabled()
	}

	// Initialize Elasticsearch client
	a.search, err = search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		a.search = nil
	}

	// Initialize Azure Service Bus
	a.bus, err = messaging.NewServiceBusClient(cfg.Azure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Azure Service Bus, continuing without notifications")
		a.bus = nil
	}
	a.publisher, err = messaging.NewPublisher(a.bus, cfg.Azure.NotificationsQueue)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create notification publisher, continuing without notifications")
		a.publisher = nil
	}

	a.service = services.NewReliefService(a.store, a.cache, a.search, a.publisher, a.tracer, cfg.Redis.TTL)
	return a, nil
}

// seedIfEnabled loads the demo data when configured to
func (a *app) seedIfEnabled(ctx context.Context, cfg config.Config) error {
	if !cfg.Seed.Enabled {
		return nil
	}
	_, err := services.NewSeeder(a.store, a.cache).SeedIfEmpty(ctx)
	return errors.Wrap(err, "failed to seed demo data")
}

// Close releases every connection held by the app
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.publisher.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Error closing notification publisher")
	}
	if a.bus != nil {
		if err := a.bus.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus client")
		}
	}
	if err := a.cache.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis connection")
	}
	a.tracer.Close()

	log.Info().Msg("Closing database connection")
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	}
}
