package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_ToChunkCoords(t *testing.T) {
	assert.Equal(t, Vec3{0, 0, 0}, Vec3{15, 0, 3}.ToChunkCoords(16))
	assert.Equal(t, Vec3{1, 2, 0}, Vec3{16, 40, 15}.ToChunkCoords(16))
	assert.Equal(t, Vec3{-1, -1, -2}, Vec3{-1, -16, -17}.ToChunkCoords(16), "округление вниз для отрицательных")
}

func TestVec3_LocalInChunk(t *testing.T) {
	assert.Equal(t, Vec3{1, 15, 0}, Vec3{17, -1, 32}.LocalInChunk(16))
}

func TestVec3_Distance(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{3, 4, 0}
	assert.Equal(t, 25, a.DistanceSq(b))
	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9)
	assert.True(t, b.Sub(b).Equals(a))
}

func TestVec2_WithZ(t *testing.T) {
	assert.Equal(t, Vec3{2, 3, 7}, Vec2{2, 3}.WithZ(7))
	assert.Equal(t, Vec2{2, 3}, Vec3{2, 3, 7}.ToVec2())
}
