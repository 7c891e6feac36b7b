package container

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-directory/config"
	"github.com/oksasatya/user-directory/internal/application"
	"github.com/oksasatya/user-directory/internal/domain/repository"
	"github.com/oksasatya/user-directory/internal/infrastructure/instrumented"
	"github.com/oksasatya/user-directory/internal/infrastructure/memory"
	"github.com/oksasatya/user-directory/internal/infrastructure/messaging"
	"github.com/oksasatya/user-directory/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/user-directory/internal/infrastructure/postgres"
	"github.com/oksasatya/user-directory/internal/infrastructure/search"
	"github.com/oksasatya/user-directory/pkg/helpers"
)

// Build connects the configured store and optional integrations, ensures the
// store indexes exist and assembles the user service. On error every resource
// opened so far is released.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (c *Container, err error) {
	c = &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close(context.Background())
			c = nil
		}
	}()

	store, err := openStore(ctx, c)
	if err != nil {
		return c, err
	}
	c.Repo = instrumented.Wrap(store, cfg.StoreDriver, logger, cfg.SlowOpThreshold)

	idxCtx, cancel := ctx, context.CancelFunc(func() {})
	if cfg.StoreOpTimeout > 0 {
		idxCtx, cancel = context.WithTimeout(ctx, cfg.StoreOpTimeout)
	}
	defer cancel()
	if err = c.Repo.EnsureIndexes(idxCtx); err != nil {
		return c, fmt.Errorf("ensure indexes: %w", err)
	}

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if c.Redis != nil {
		if perr := helpers.PingRedis(ctx, c.Redis); perr != nil {
			logger.WithError(perr).Warn("redis unreachable; rate limiting fails open")
		}
		rdb := c.Redis
		c.OnClose(func(context.Context) error { return rdb.Close() })
	}

	var events application.EventPublisher
	if cfg.EventsEnabled {
		pub, perr := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserEventQueue)
		if perr != nil {
			logger.WithError(perr).Warn("rabbitmq unavailable; user events disabled")
		} else {
			c.Publisher = pub
			c.OnClose(func(context.Context) error { pub.Close(); return nil })
			events = messaging.NewUserEventPublisher(pub)
		}
	}

	var searcher application.UserSearcher
	if cfg.SearchEnabled {
		es, eerr := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if eerr == nil {
			eerr = helpers.PingES(es)
		}
		if eerr != nil {
			logger.WithError(eerr).Warn("elasticsearch unavailable; search disabled")
		} else {
			c.ES = es
			searcher = search.NewUserIndex(es, cfg.ESUsersIndex, logger)
		}
	}

	c.Service = application.NewService(c.Repo, events, searcher, logger, cfg.StoreOpTimeout)
	return c, nil
}

func openStore(ctx context.Context, c *Container) (repository.UserRepository, error) {
	cfg := c.Config
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongodb.NewClient(ctx, cfg.MongoURI, cfg.MongoMaxPoolSize)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		c.OnClose(client.Disconnect)
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoUsersCollection)
		return mongodb.NewUserRepository(coll), nil
	case config.StorePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, err
		}
		c.OnClose(func(context.Context) error { pool.Close(); return nil })
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), c.Logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pginfra.NewUserRepository(pool), nil
	case config.StoreMemory:
		return memory.NewUserRepository(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
