// Package reviews stores customer testimonials.
package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/partsinc/parts-server/internal/domain"
)

// Review errors.
var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrMissingAuthor = errors.New("review author is required")
)

// Service implements review business logic.
type Service struct {
	repo Repository
}

// NewService creates a new reviews service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateReviewInput holds the fields of a new review.
type CreateReviewInput struct {
	Name   string
	Rating int
	Text   string
}

// CreateReview stores a review written by author.
func (s *Service) CreateReview(ctx context.Context, author string, input CreateReviewInput) (*domain.Review, error) {
	if author == "" {
		return nil, ErrMissingAuthor
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}

	review := &domain.Review{
		Email:  domain.NormalizeEmail(author),
		Name:   input.Name,
		Rating: input.Rating,
		Text:   input.Text,
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

// ListReviews returns all reviews.
func (s *Service) ListReviews(ctx context.Context) ([]domain.Review, error) {
	return s.repo.ListReviews(ctx)
}
