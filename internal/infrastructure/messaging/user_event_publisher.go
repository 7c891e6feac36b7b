package messaging

import (
	"context"
	"time"

	"github.com/oksasatya/user-directory/internal/domain/event"
	"github.com/oksasatya/user-directory/pkg/helpers"
)

const publishTimeout = 2 * time.Second

// UserEventPublisher puts user lifecycle events on the RabbitMQ user events queue.
type UserEventPublisher struct {
	Pub *helpers.RabbitPublisher
}

func NewUserEventPublisher(pub *helpers.RabbitPublisher) *UserEventPublisher {
	return &UserEventPublisher{Pub: pub}
}

func (p *UserEventPublisher) Publish(ctx context.Context, ev event.Event) error {
	c, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.Pub.PublishJSON(c, ev.Type, ev)
}
