package container

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-directory/config"
	"github.com/oksasatya/user-directory/internal/application"
	"github.com/oksasatya/user-directory/internal/domain/repository"
	"github.com/oksasatya/user-directory/pkg/helpers"
)

// Container carries the components built once at startup. Router modules
// receive it explicitly instead of reaching for package globals.
type Container struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Repo      repository.UserRepository
	Redis     *redis.Client
	Publisher *helpers.RabbitPublisher
	ES        *elasticsearch.Client
	Service   *application.Service

	closers []func(context.Context) error
}

// OnClose registers a cleanup hook run by Close in reverse order.
func (c *Container) OnClose(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

// Close releases every registered resource and logs failures.
func (c *Container) Close(ctx context.Context) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil && c.Logger != nil {
			c.Logger.WithError(err).Warn("shutdown: close failed")
		}
	}
	c.closers = nil
}
