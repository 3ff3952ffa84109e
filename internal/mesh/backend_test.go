package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quads(n int) Mesh {
	return Mesh{Vertices: make([]Vertex, n*VerticesPerFace), Faces: n}
}

func TestMemoryBackend_EmptyMeshAllocatesNothing(t *testing.T) {
	b := NewMemoryBackend(0)
	h, err := b.Allocate(Mesh{})
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.Zero(t, b.Stats().Allocations)
}

func TestMemoryBackend_AllocateAndFree(t *testing.T) {
	b := NewMemoryBackend(0)
	h, err := b.Allocate(quads(2))
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 12, h.VertexCount())

	s := b.Stats()
	assert.Equal(t, 1, s.Live)
	assert.Equal(t, 12, s.Vertices)

	b.Free(h)
	b.Free(h) // повторное освобождение игнорируется
	b.Free(nil)

	s = b.Stats()
	assert.Zero(t, s.Live)
	assert.Zero(t, s.Vertices)
	assert.Equal(t, uint64(1), s.Frees)
}

func TestMemoryBackend_Capacity(t *testing.T) {
	b := NewMemoryBackend(VerticesPerFace * 3)

	h1, err := b.Allocate(quads(2))
	require.NoError(t, err)

	_, err = b.Allocate(quads(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMeshAllocation))
	assert.Equal(t, uint64(1), b.Stats().Failures)

	b.Free(h1)
	_, err = b.Allocate(quads(2))
	assert.NoError(t, err, "после освобождения место снова есть")
}
