// Package postgres provides the PostgreSQL implementation of the reviews repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/partsinc/parts-server/internal/domain"
)

// Repository implements the reviews.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateReview inserts a review.
func (r *Repository) CreateReview(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (email, name, rating, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, review.Email, review.Name, review.Rating, review.Text).
		Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ListReviews returns all reviews in insertion order.
func (r *Repository) ListReviews(ctx context.Context) ([]domain.Review, error) {
	rows, err := r.db.Query(ctx, `SELECT id, email, name, rating, text, created_at FROM reviews ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Review, error) {
		var review domain.Review
		err := row.Scan(&review.ID, &review.Email, &review.Name, &review.Rating, &review.Text, &review.CreatedAt)
		return review, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan reviews: %w", err)
	}
	return result, nil
}
