// Package mongo provides the MongoDB implementation of the reviews repository.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	Name      string             `bson:"name,omitempty"`
	Rating    int                `bson:"rating"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Repository implements the reviews.Repository interface using MongoDB.
type Repository struct {
	reviews *mongo.Collection
}

// NewRepository creates a new MongoDB repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{reviews: db.Collection(mongodb.ReviewsCollection)}
}

// CreateReview inserts a review.
func (r *Repository) CreateReview(ctx context.Context, review *domain.Review) error {
	doc := reviewDocument{
		ID:        primitive.NewObjectID(),
		Email:     review.Email,
		Name:      review.Name,
		Rating:    review.Rating,
		Text:      review.Text,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.reviews.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	review.ID = doc.ID.Hex()
	review.CreatedAt = doc.CreatedAt
	return nil
}

// ListReviews returns all reviews ordered by _id.
func (r *Repository) ListReviews(ctx context.Context) ([]domain.Review, error) {
	cursor, err := r.reviews.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	result := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		result = append(result, domain.Review{
			ID:        d.ID.Hex(),
			Email:     d.Email,
			Name:      d.Name,
			Rating:    d.Rating,
			Text:      d.Text,
			CreatedAt: d.CreatedAt,
		})
	}
	return result, nil
}
