package cull

import (
	"testing"

	"github.com/annel0/blockworld/internal/camera"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

type box struct {
	name     string
	min, max mgl32.Vec3
}

func (b box) Bounds() (mgl32.Vec3, mgl32.Vec3) { return b.min, b.max }

func cube(name string, x, y, z float32) box {
	return box{name: name, min: mgl32.Vec3{x, y, z}, max: mgl32.Vec3{x + 16, y + 16, z + 16}}
}

func frustumFor(c camera.Camera) Frustum {
	return NewFrustum(c.Projection(), c.View())
}

func TestNewFrustum_RecoversEye(t *testing.T) {
	c := camera.New(mgl32.Vec3{12, -3, 40})
	c.Yaw = 30
	c.Pitch = -20
	eye := frustumFor(c).Eye()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, c.Position[i], eye[i], 1e-3)
	}
}

func TestIntersectsAABB_InFrontAndBehind(t *testing.T) {
	c := camera.New(mgl32.Vec3{8, 8, 8}) // смотрит вдоль +X
	f := frustumFor(c)

	assert.True(t, f.IntersectsAABB(mgl32.Vec3{40, 0, 0}, mgl32.Vec3{56, 16, 16}), "впереди")
	assert.False(t, f.IntersectsAABB(mgl32.Vec3{-56, 0, 0}, mgl32.Vec3{-40, 16, 16}), "позади")
	assert.False(t, f.IntersectsAABB(mgl32.Vec3{1000, 0, 0}, mgl32.Vec3{1016, 16, 16}), "дальше дальней плоскости")
	assert.False(t, f.IntersectsAABB(mgl32.Vec3{20, 200, 0}, mgl32.Vec3{36, 216, 16}), "сбоку")
}

func TestIntersectsAABB_CameraChunkNeverCulled(t *testing.T) {
	chunk := cube("свой", 0, 0, 0)
	for _, pitch := range []float32{-89, -45, 0, 45, 89} {
		for yaw := float32(0); yaw < 360; yaw += 45 {
			c := camera.New(mgl32.Vec3{8, 8, 8})
			c.Pitch, c.Yaw = pitch, yaw
			assert.True(t, frustumFor(c).IntersectsAABB(chunk.min, chunk.max), "pitch=%v yaw=%v", pitch, yaw)
		}
	}

	// Камера на самой границе чанка
	c := camera.New(mgl32.Vec3{16, 16, 16})
	c.Yaw = 45
	assert.True(t, frustumFor(c).IntersectsAABB(chunk.min, chunk.max))
}

func TestFilter_PreservesOrder(t *testing.T) {
	c := camera.New(mgl32.Vec3{8, 8, 8})
	f := frustumFor(c)

	items := []box{
		cube("далеко впереди", 64, 0, 0),
		cube("позади", -64, 0, 0),
		cube("свой", 0, 0, 0),
		cube("впереди", 16, 0, 0),
	}
	visible := Filter(f, items)

	names := make([]string, 0, len(visible))
	for _, b := range visible {
		names = append(names, b.name)
	}
	assert.Equal(t, []string{"далеко впереди", "свой", "впереди"}, names)
}
