package world

import (
	"testing"

	"github.com/annel0/blockworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder запоминает уведомления сетки
type recorder struct {
	changed [][3]int
	light   [][3]int
}

func (r *recorder) OnBlockChanged(x, y, z int) { r.changed = append(r.changed, [3]int{x, y, z}) }
func (r *recorder) OnLightChanged(x, y, z int) { r.light = append(r.light, [3]int{x, y, z}) }

func TestNewGrid_Dimensions(t *testing.T) {
	g, err := NewGrid(10, 20, 30)
	require.NoError(t, err)

	sx, sy, sz := g.Dimensions()
	assert.Equal(t, [3]int{10, 20, 30}, [3]int{sx, sy, sz})
	assert.Equal(t, 6000, g.Volume())
	assert.Equal(t, 6000, g.Count(block.Air), "новая сетка заполнена воздухом")

	_, err = NewGrid(254, 254, 1)
	assert.NoError(t, err)
}

func TestNewGrid_InvalidDimension(t *testing.T) {
	cases := [][3]int{{0, 1, 1}, {1, -1, 1}, {1, 1, 255}, {300, 2, 2}}
	for _, c := range cases {
		_, err := NewGrid(c[0], c[1], c[2])
		assert.ErrorIs(t, err, ErrInvalidDimension, "%v", c)
	}
}

func TestGetBlock_OutOfBoundsSentinel(t *testing.T) {
	g, err := NewGrid(4, 5, 6)
	require.NoError(t, err)

	// Каждая ось проверяется отдельно: отрицательная и >= размера
	probes := [][3]int{
		{-1, 0, 0}, {4, 0, 0},
		{0, -1, 0}, {0, 5, 0},
		{0, 0, -1}, {0, 0, 6},
	}
	for _, p := range probes {
		assert.Equal(t, block.None, g.GetBlock(p[0], p[1], p[2]), "%v", p)
		assert.False(t, g.IsInBounds(p[0], p[1], p[2]))
		assert.False(t, g.SetBlock(p[0], p[1], p[2], block.Dirt))
	}
	assert.Equal(t, block.Air, g.GetBlock(3, 4, 5))
}

func TestSetBlock_GetBlockRoundTrip(t *testing.T) {
	g, err := NewGrid(6, 6, 6)
	require.NoError(t, err)

	for x := 0; x < 6; x++ {
		for y := 0; y < 6; y++ {
			for z := 0; z < 6; z++ {
				id := block.All()[(x+y+z)%len(block.All())]
				require.True(t, g.SetBlock(x, y, z, id))
				assert.Equal(t, id, g.GetBlock(x, y, z))
			}
		}
	}
}

func TestSetBlock_InvalidFallsBackToAir(t *testing.T) {
	g, err := NewGrid(3, 3, 3)
	require.NoError(t, err)

	require.True(t, g.SetBlock(1, 1, 1, block.Rock))
	require.True(t, g.SetBlock(1, 1, 1, block.ID(250)))
	assert.Equal(t, block.Air, g.GetBlock(1, 1, 1))

	require.True(t, g.SetBlock(1, 1, 1, block.None))
	assert.Equal(t, block.Air, g.GetBlock(1, 1, 1), "маркер None никогда не хранится")
}

func TestSetBlock_IdempotentNotifiesOnce(t *testing.T) {
	g, err := NewGrid(4, 4, 4)
	require.NoError(t, err)
	rec := &recorder{}
	g.SetListener(rec)

	assert.True(t, g.SetBlock(2, 2, 2, block.Dirt))
	assert.True(t, g.SetBlock(2, 2, 2, block.Dirt))
	assert.True(t, g.SetBlock(2, 2, 2, block.Dirt))

	assert.Equal(t, [][3]int{{2, 2, 2}}, rec.changed)
}

func TestSpawnPoint(t *testing.T) {
	g, err := NewGrid(8, 8, 8)
	require.NoError(t, err)

	g.SetSpawnPoint(g.Size())
	assert.True(t, g.IsInBounds(g.SpawnPoint().X, g.SpawnPoint().Y, g.SpawnPoint().Z), "точка вне мира игнорируется")
}
