package ids

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator

	a := g.Generate()
	b := g.Generate()

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Len(t, a, 36)
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	var g UUIDv7Generator
	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("fetch-1", "fetch-2")

	assert.Equal(t, "fetch-1", g.Generate())
	assert.Equal(t, "fetch-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
