package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeightNoise_Deterministic(t *testing.T) {
	a := NewHeightNoise(42, 4, 0.5, 32)
	b := NewHeightNoise(42, 4, 0.5, 32)

	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			assert.Equal(t, a.At(x, y), b.At(x, y))
		}
	}
}

func TestHeightNoise_SeedMatters(t *testing.T) {
	a := NewHeightNoise(1, 4, 0.5, 32)
	b := NewHeightNoise(2, 4, 0.5, 32)

	differs := false
	for x := 0; x < 32 && !differs; x++ {
		if a.At(x, 7) != b.At(x, 7) {
			differs = true
		}
	}
	assert.True(t, differs, "разные сиды должны давать разный рельеф")
}

func TestCaveNoise_Range(t *testing.T) {
	c := NewCaveNoise(7)
	for i := 0; i < 200; i++ {
		v := c.Density(i, i*3, i%17)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, c.Density(5, 6, 7), NewCaveNoise(7).Density(5, 6, 7))
}
