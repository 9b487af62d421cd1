package catalog

import (
	"context"

	"github.com/partsinc/parts-server/internal/domain"
)

// Repository defines the interface for part storage.
type Repository interface {
	// ListParts returns up to limit parts after skipping skip, in insertion order.
	ListParts(ctx context.Context, skip, limit int64) ([]domain.Part, error)
	CountParts(ctx context.Context) (int64, error)
	GetPart(ctx context.Context, id string) (*domain.Part, error)
	// InsertParts stores parts and returns their generated ids in input order.
	InsertParts(ctx context.Context, parts []domain.Part) ([]string, error)
}
