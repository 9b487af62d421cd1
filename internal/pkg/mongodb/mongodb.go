// Package mongodb provides MongoDB connection utilities and collection names.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names inside the application database.
const (
	UsersCollection    = "user"
	PartsCollection    = "parts"
	OrdersCollection   = "order"
	PaymentsCollection = "payment"
	ReviewsCollection  = "review"
)

// EmailCollation matches emails case-insensitively, so documents written
// before addresses were case-folded are still found.
var EmailCollation = &options.Collation{Locale: "en", Strength: 2}

// Config contains MongoDB connection configuration.
type Config struct {
	URI             string
	Username        string
	Password        string
	MaxPoolSize     uint64
	ConnectAttempts int
	PoolMonitor     *event.PoolMonitor
}

// Connect creates a client and pings the deployment, retrying with backoff.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if cfg.PoolMonitor != nil {
		opts.SetPoolMonitor(cfg.PoolMonitor)
	}

	var client *mongo.Client
	attempts, err := retry.Do(ctx, cfg.ConnectAttempts, "connect to mongo", func(ctx context.Context) error {
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return fmt.Errorf("ping: %w", err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("connected to database", "driver", "mongo", "attempts", attempts)
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user email index: %w", err)
	}

	_, err = db.Collection(OrdersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create order email index: %w", err)
	}

	for _, coll := range []string{UsersCollection, OrdersCollection} {
		_, err = db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_ci").SetCollation(EmailCollation),
		})
		if err != nil {
			return fmt.Errorf("create %s case-insensitive email index: %w", coll, err)
		}
	}

	_, err = db.Collection(PaymentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "orderId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create payment order index: %w", err)
	}

	return nil
}

// ParseID converts a hex identifier into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrInvalidID
	}
	return oid, nil
}
