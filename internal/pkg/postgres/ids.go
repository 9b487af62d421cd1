package postgres

import (
	"github.com/google/uuid"
	"github.com/partsinc/parts-server/internal/domain"
)

// ParseID validates a document identifier stored in a UUID column.
func ParseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidID
	}
	return parsed, nil
}

// NewID returns a fresh identifier for an inserted row.
func NewID() uuid.UUID {
	return uuid.New()
}
