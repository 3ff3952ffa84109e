package vec

import "math"

// Vec2 представляет 2D координаты колонки (x, y)
type Vec2 struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToChunkCoords преобразует координаты колонки в координаты чанка
func (v Vec2) ToChunkCoords(size int) Vec2 {
	return Vec2{X: floorDiv(v.X, size), Y: floorDiv(v.Y, size)}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// WithZ поднимает колонку до точки на высоте z
func (v Vec2) WithZ(z int) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: z}
}
