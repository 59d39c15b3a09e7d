package mongo

import (
	"context"
	"time"

	"github.com/robertarktes/event-registrations/internal/config"
	"github.com/robertarktes/event-registrations/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens the process-wide client. Selection and socket timeouts make
// store calls fail fast instead of hanging; the pool is bounded.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(cfg.MongoServerSelectionTimeout).
		SetSocketTimeout(cfg.MongoSocketTimeout).
		SetMaxPoolSize(cfg.MongoMaxPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		observability.StoreOpDuration.WithLabelValues("mongo", op).Observe(time.Since(start).Seconds())
	}
}
