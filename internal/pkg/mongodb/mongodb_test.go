package mongodb

import (
	"testing"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	oid, err := ParseID("65a1f0c2e4b0a1b2c3d4e5f6")
	require.NoError(t, err)
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", oid.Hex())

	_, err = ParseID("not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = ParseID("")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
