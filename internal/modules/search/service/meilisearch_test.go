package search

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHitIDs(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	hits := []map[string]any{
		{"id": a.String(), "title": "broken fan"},
		{"id": "not-a-uuid"},
		{"id": b.String()},
	}

	ids, err := decodeHitIDs(hits)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
}

func TestDecodeHitIDsEmpty(t *testing.T) {
	ids, err := decodeHitIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
