// Package postgres provides the PostgreSQL implementation of the catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/partsinc/parts-server/internal/catalog"
	"github.com/partsinc/parts-server/internal/domain"
	pgutil "github.com/partsinc/parts-server/internal/pkg/postgres"
)

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListParts returns a window of parts in insertion order.
func (r *Repository) ListParts(ctx context.Context, skip, limit int64) ([]domain.Part, error) {
	query := `
		SELECT id, name, description, image, price, stock
		FROM parts
		ORDER BY seq
		OFFSET $1 LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	parts := make([]domain.Part, 0, limit)
	for rows.Next() {
		var part domain.Part
		if err := rows.Scan(
			&part.ID,
			&part.Name,
			&part.Description,
			&part.Image,
			&part.Price,
			&part.Stock,
		); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	return parts, nil
}

// CountParts returns the number of parts in the catalog.
func (r *Repository) CountParts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM parts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count parts: %w", err)
	}
	return count, nil
}

// GetPart retrieves a part by its ID.
func (r *Repository) GetPart(ctx context.Context, id string) (*domain.Part, error) {
	partID, err := pgutil.ParseID(id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, image, price, stock
		FROM parts
		WHERE id = $1
	`
	var part domain.Part
	err = r.db.QueryRow(ctx, query, partID).Scan(
		&part.ID,
		&part.Name,
		&part.Description,
		&part.Image,
		&part.Price,
		&part.Stock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrPartNotFound
		}
		return nil, fmt.Errorf("get part: %w", err)
	}
	return &part, nil
}

// InsertParts stores parts in a single transaction.
func (r *Repository) InsertParts(ctx context.Context, parts []domain.Part) ([]string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO parts (id, name, description, image, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	ids := make([]string, len(parts))
	for i, p := range parts {
		id := pgutil.NewID()
		if _, err := tx.Exec(ctx, query, id, p.Name, p.Description, p.Image, p.Price, p.Stock); err != nil {
			return nil, fmt.Errorf("insert part %q: %w", p.Name, err)
		}
		ids[i] = id.String()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ids, nil
}
