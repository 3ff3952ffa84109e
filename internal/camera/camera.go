package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Ось Z направлена вверх
var worldUp = mgl32.Vec3{0, 0, 1}

// maxPitch не даёт взгляду совпасть с осью вверх, иначе LookAt вырождается
const maxPitch = 89.0

// Camera хранит положение и ориентацию наблюдателя. Углы в градусах.
type Camera struct {
	Position mgl32.Vec3 `json:"position"`
	Pitch    float32    `json:"pitch"`
	Yaw      float32    `json:"yaw"`
	FovY     float32    `json:"fov_y"`
	Aspect   float32    `json:"aspect"`
	Near     float32    `json:"near"`
	Far      float32    `json:"far"`
}

// New создаёт камеру с проекцией по умолчанию
func New(pos mgl32.Vec3) Camera {
	return Camera{
		Position: pos,
		FovY:     70,
		Aspect:   16.0 / 9.0,
		Near:     0.1,
		Far:      500,
	}
}

// Normalized возвращает копию с ограниченным наклоном и заполненными
// нулевыми параметрами проекции
func (c Camera) Normalized() Camera {
	def := New(c.Position)
	if c.FovY <= 0 || c.FovY >= 180 {
		c.FovY = def.FovY
	}
	if c.Aspect <= 0 {
		c.Aspect = def.Aspect
	}
	if c.Near <= 0 {
		c.Near = def.Near
	}
	if c.Far <= c.Near {
		c.Far = def.Far
	}
	c.Pitch = mgl32.Clamp(c.Pitch, -maxPitch, maxPitch)
	return c
}

// Forward возвращает единичный вектор направления взгляда
func (c Camera) Forward() mgl32.Vec3 {
	pitch := float64(mgl32.DegToRad(mgl32.Clamp(c.Pitch, -maxPitch, maxPitch)))
	yaw := float64(mgl32.DegToRad(c.Yaw))
	return mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
	}.Normalize()
}

// View возвращает матрицу вида
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), worldUp)
}

// Projection возвращает перспективную проекцию
func (c Camera) Projection() mgl32.Mat4 {
	n := c.Normalized()
	return mgl32.Perspective(mgl32.DegToRad(n.FovY), n.Aspect, n.Near, n.Far)
}
