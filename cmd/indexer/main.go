package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-directory/config"
	"github.com/oksasatya/user-directory/internal/domain/event"
	"github.com/oksasatya/user-directory/internal/infrastructure/search"
	"github.com/oksasatya/user-directory/pkg/helpers"
)

// indexer mirrors user lifecycle events from RabbitMQ into Elasticsearch.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-indexer", cfg.Env)

	if !cfg.SearchEnabled {
		logger.Info("SEARCH_ENABLED=false; indexer disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQUserEventQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Fatal("elasticsearch client")
	}
	if err := helpers.PingES(es); err != nil {
		logger.WithError(err).Fatal("elasticsearch ping")
	}
	index := search.NewUserIndex(es, cfg.ESUsersIndex, logger)

	conn, ch, err := helpers.DialRabbitQueue(cfg.RabbitMQURL, cfg.RabbitMQUserEventQueue)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch across indexer replicas
	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	msgs, err := ch.Consume(cfg.RabbitMQUserEventQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			handle(ctx, index, logger, msg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQUserEventQueue).Info("indexer listening")
	<-ctx.Done()
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func handle(ctx context.Context, index *search.UserIndex, logger *logrus.Logger, msg amqp.Delivery) {
	var ev event.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		helpers.LogError(logger, "bad message", err, logrus.Fields{"delivery_tag": msg.DeliveryTag})
		_ = msg.Nack(false, false)
		return
	}
	entry := logger.WithFields(logrus.Fields{"event": ev.Type, "user_id": ev.Data.ID})

	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := index.Apply(c, ev); err != nil {
		entry.WithError(err).Warn("index failed; requeue")
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}
	_ = msg.Ack(false)
	entry.Debug("indexed")
}

