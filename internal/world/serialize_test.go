package world

import (
	"strings"
	"testing"

	"github.com/annel0/blockworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize_OrderAndOffset(t *testing.T) {
	g, err := NewGrid(2, 2, 2)
	require.NoError(t, err)

	g.SetBlock(0, 0, 1, block.Dirt)  // индекс 1
	g.SetBlock(0, 1, 0, block.Rock)  // индекс 2
	g.SetBlock(1, 0, 0, block.Water) // индекс 4

	assert.Equal(t, "03206000", g.ToNetworkString())
}

func TestSerialize_RoundTrip(t *testing.T) {
	s := "0123456789" + strings.Repeat("0", 14) + "3456"
	g, err := CreateFromString(2, 2, 7, s)
	require.NoError(t, err)
	assert.Equal(t, s, g.ToNetworkString())
	assert.Equal(t, []byte(s), g.Serialize())

	again, err := Deserialize(2, 2, 7, g.Serialize())
	require.NoError(t, err)
	assert.Equal(t, g.cells, again.cells)
	assert.Equal(t, g.heights, again.heights, "карта высот пересчитывается при загрузке")
}

func TestDeserialize_SizeMismatch(t *testing.T) {
	_, err := Deserialize(3, 3, 3, make([]byte, 26))
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = CreateFromString(3, 3, 3, strings.Repeat("0", 28))
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = Deserialize(0, 3, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestDeserialize_UnknownBytesBecomeAir(t *testing.T) {
	g, err := CreateFromString(1, 1, 4, "3~\x003")
	require.NoError(t, err)

	assert.Equal(t, block.Dirt, g.GetBlock(0, 0, 0))
	assert.Equal(t, block.Air, g.GetBlock(0, 0, 1))
	assert.Equal(t, block.Air, g.GetBlock(0, 0, 2))
	assert.Equal(t, block.Dirt, g.GetBlock(0, 0, 3))
	assert.Equal(t, 3, g.ColumnHeight(0, 0))
}
