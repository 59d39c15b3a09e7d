package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        string    `bson:"_id"`
	Action    string    `bson:"action"`
	Actor     string    `bson:"actor"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) Record(ctx context.Context, action, actor string, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New().String(),
		Action:    action,
		Actor:     actor,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).WithField("action", action).Error("failed to insert audit log")
		return err
	}
	return nil
}

// Recent returns the newest audit entries first.
func (a *AuditLogger) Recent(ctx context.Context, limit int64) ([]domain.AuditEntry, error) {
	defer observe("audit_recent")()
	cur, err := a.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "find audit logs")
	}
	var logs []AuditLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, errors.Wrap(err, "decode audit logs")
	}
	out := make([]domain.AuditEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, domain.AuditEntry{ID: l.ID, Action: l.Action, Actor: l.Actor, Timestamp: l.Timestamp, Data: l.Data})
	}
	return out, nil
}
