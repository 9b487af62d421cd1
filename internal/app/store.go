package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/partsinc/parts-server/internal/catalog"
	catalogmongo "github.com/partsinc/parts-server/internal/catalog/mongo"
	catalogpostgres "github.com/partsinc/parts-server/internal/catalog/postgres"
	"github.com/partsinc/parts-server/internal/config"
	"github.com/partsinc/parts-server/internal/identity"
	identitymongo "github.com/partsinc/parts-server/internal/identity/mongo"
	identitypostgres "github.com/partsinc/parts-server/internal/identity/postgres"
	"github.com/partsinc/parts-server/internal/orders"
	ordersmongo "github.com/partsinc/parts-server/internal/orders/mongo"
	orderspostgres "github.com/partsinc/parts-server/internal/orders/postgres"
	"github.com/partsinc/parts-server/internal/pkg/metrics"
	"github.com/partsinc/parts-server/internal/pkg/mongodb"
	"github.com/partsinc/parts-server/internal/pkg/postgres"
	"github.com/partsinc/parts-server/internal/reviews"
	reviewsmongo "github.com/partsinc/parts-server/internal/reviews/mongo"
	reviewspostgres "github.com/partsinc/parts-server/internal/reviews/postgres"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store bundles the repositories of one database backend.
type Store struct {
	Identity identity.Repository
	Catalog  catalog.Repository
	Orders   orders.Repository
	Reviews  reviews.Repository

	// Pool is set for the postgres driver only.
	Pool *pgxpool.Pool

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the database connections.
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// OpenStore connects to the backend selected by database.driver.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return openPostgres(connectCtx, cfg)
	case config.DriverMongo:
		return openMongo(connectCtx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Store, error) {
	pool, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Postgres.URL,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, err
	}

	// Migrate only once Connect's retries have seen the server come up.
	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(cfg.Postgres.URL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	return &Store{
		Identity: identitypostgres.NewRepository(pool),
		Catalog:  catalogpostgres.NewRepository(pool),
		Orders:   orderspostgres.NewRepository(pool),
		Reviews:  reviewspostgres.NewRepository(pool),
		Pool:     pool,
		ping:     pool.Ping,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*Store, error) {
	client, err := mongodb.Connect(ctx, mongodb.Config{
		URI:             cfg.Mongo.URI,
		Username:        cfg.Mongo.Username,
		Password:        cfg.Mongo.Password,
		MaxPoolSize:     cfg.Mongo.MaxPoolSize,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		PoolMonitor:     metrics.MongoPoolMonitor(),
	})
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.Mongo.Database)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		disconnect(client)
		return nil, err
	}

	return &Store{
		Identity: identitymongo.NewRepository(db),
		Catalog:  catalogmongo.NewRepository(db),
		Orders:   ordersmongo.NewRepository(db, cfg.Mongo.Transactions),
		Reviews:  reviewsmongo.NewRepository(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: client.Disconnect,
	}, nil
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}
