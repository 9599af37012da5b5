package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/config"
)

const defaultMongoTimeout = 10 * time.Second

// Mongo holds the document store client and the selected database.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo connects, pings and selects the configured database.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Mongo, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to mongo", zap.String("database", cfg.Database))
	return &Mongo{Client: client, Database: client.Database(cfg.Database)}, nil
}

// EnsureIndexes creates the indexes the chat and knowledge-base collections rely on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	if m == nil || m.Database == nil {
		return errors.New("mongo database not configured")
	}
	indexes := map[string][]mongo.IndexModel{
		"chat_sessions": {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "operator_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		"chat_messages": {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "sent_at", Value: 1}}},
		},
		"kb_articles": {
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "kind", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
		},
	}
	for collection, models := range indexes {
		if _, err := m.Database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

// Ping verifies connectivity.
func (m *Mongo) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return errors.New("mongo client not configured")
	}
	return m.Client.Ping(ctx, nil)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) {
	if m != nil && m.Client != nil {
		_ = m.Client.Disconnect(ctx)
	}
}
