package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], 1e-5, "компонента %d", i)
	}
}

func TestForward(t *testing.T) {
	c := New(mgl32.Vec3{})
	assertVec(t, mgl32.Vec3{1, 0, 0}, c.Forward())

	c.Yaw = 90
	assertVec(t, mgl32.Vec3{0, 1, 0}, c.Forward())

	c.Yaw = 0
	c.Pitch = 90 // ограничивается до 89
	f := c.Forward()
	assert.Greater(t, f.Z(), float32(0.99))
	assert.InDelta(t, 1, f.Len(), 1e-5)
}

func TestView_MapsForwardToNegativeZ(t *testing.T) {
	c := New(mgl32.Vec3{10, 5, 3})
	c.Yaw = 45

	target := c.Position.Add(c.Forward().Mul(4))
	p := c.View().Mul4x1(target.Vec4(1))
	assert.InDelta(t, 0, p.X(), 1e-4)
	assert.InDelta(t, 0, p.Y(), 1e-4)
	assert.InDelta(t, -4, p.Z(), 1e-4)
}

func TestNormalized_FillsDefaults(t *testing.T) {
	c := Camera{Pitch: -120}.Normalized()
	assert.Equal(t, float32(70), c.FovY)
	assert.Equal(t, float32(0.1), c.Near)
	assert.Equal(t, float32(500), c.Far)
	assert.Equal(t, float32(-maxPitch), c.Pitch)
}
