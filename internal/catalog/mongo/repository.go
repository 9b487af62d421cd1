// Package mongo provides the MongoDB implementation of the catalog repository.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/partsinc/parts-server/internal/catalog"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type partDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Image       string             `bson:"image,omitempty"`
	Price       float64            `bson:"price"`
	Stock       int                `bson:"stock"`
}

func (d *partDocument) toDomain() domain.Part {
	return domain.Part{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Image:       d.Image,
		Price:       d.Price,
		Stock:       d.Stock,
	}
}

// Repository implements the catalog.Repository interface using MongoDB.
type Repository struct {
	parts *mongo.Collection
}

// NewRepository creates a new MongoDB repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{parts: db.Collection(mongodb.PartsCollection)}
}

// ListParts returns a window of parts ordered by _id, which follows insertion order.
func (r *Repository) ListParts(ctx context.Context, skip, limit int64) ([]domain.Part, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.parts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find parts: %w", err)
	}
	defer cursor.Close(ctx)

	parts := make([]domain.Part, 0, limit)
	for cursor.Next(ctx) {
		var doc partDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode part: %w", err)
		}
		parts = append(parts, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	return parts, nil
}

// CountParts returns the number of parts in the catalog.
func (r *Repository) CountParts(ctx context.Context) (int64, error) {
	n, err := r.parts.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count parts: %w", err)
	}
	return n, nil
}

// GetPart retrieves a part by its hex ObjectID.
func (r *Repository) GetPart(ctx context.Context, id string) (*domain.Part, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}

	var doc partDocument
	if err := r.parts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrPartNotFound
		}
		return nil, fmt.Errorf("get part: %w", err)
	}
	part := doc.toDomain()
	return &part, nil
}

// InsertParts stores parts in one ordered batch.
func (r *Repository) InsertParts(ctx context.Context, parts []domain.Part) ([]string, error) {
	docs := make([]interface{}, len(parts))
	ids := make([]string, len(parts))
	for i, p := range parts {
		oid := primitive.NewObjectID()
		ids[i] = oid.Hex()
		docs[i] = partDocument{
			ID:          oid,
			Name:        p.Name,
			Description: p.Description,
			Image:       p.Image,
			Price:       p.Price,
			Stock:       p.Stock,
		}
	}

	if _, err := r.parts.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert parts: %w", err)
	}
	return ids, nil
}
