package uuidgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewForEntity(t *testing.T) {
	tests := []struct {
		name       string
		entityType EntityType
		version    uuid.Version
	}{
		{"chat uses UUIDv7", EntityTypeChat, 7},
		{"draw uses UUIDv7", EntityTypeDraw, 7},
		{"room uses UUIDv4", EntityTypeRoom, 4},
		{"unknown entity uses UUIDv4", EntityType("other"), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewForEntity(tt.entityType)
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, id)
			assert.Equal(t, tt.version, id.Version())
		})
	}
}

func TestMustNewForEntity(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustNewForEntity(EntityTypeDraw)
		assert.Equal(t, uuid.Version(7), id.Version())
	})
}

func TestUUIDv7Ordering(t *testing.T) {
	first, err := NewV7()
	require.NoError(t, err)
	second, err := NewV7()
	require.NoError(t, err)
	assert.LessOrEqual(t, first.String()[:13], second.String()[:13], "v7 timestamps are monotonic")
}

func TestNewJoinCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := NewJoinCode()
		require.NoError(t, err)
		require.Len(t, code, JoinCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(JoinCodeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 195)
}
