package reviews

import (
	"context"

	"github.com/partsinc/parts-server/internal/domain"
)

// Repository defines the interface for review storage.
type Repository interface {
	// CreateReview stores a review and fills in its ID and CreatedAt.
	CreateReview(ctx context.Context, review *domain.Review) error
	// ListReviews returns all reviews in insertion order.
	ListReviews(ctx context.Context) ([]domain.Review, error)
}
