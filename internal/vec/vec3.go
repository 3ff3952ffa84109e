package vec

import "math"

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Для блоков мира X и Y лежат в горизонтали, Z направлена вверх.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// ToVec2 преобразует Vec3 в Vec2 (колонку), игнорируя координату Z
func (v Vec3) ToVec2() Vec2 {
	return Vec2{
		X: v.X,
		Y: v.Y,
	}
}

// DistanceTo возвращает евклидово расстояние до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	return math.Sqrt(float64(v.DistanceSq(other)))
}

// DistanceSq возвращает квадрат расстояния (без корня, для сравнений)
func (v Vec3) DistanceSq(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale умножает все компоненты на скаляр
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Min возвращает покомпонентный минимум
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{X: min(v.X, other.X), Y: min(v.Y, other.Y), Z: min(v.Z, other.Z)}
}

// Max возвращает покомпонентный максимум
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{X: max(v.X, other.X), Y: max(v.Y, other.Y), Z: max(v.Z, other.Z)}
}

// ToChunkCoords переводит координаты блока в координаты чанка заданного размера.
// Деление с округлением вниз, поэтому отрицательные координаты тоже корректны.
func (v Vec3) ToChunkCoords(size int) Vec3 {
	return Vec3{X: floorDiv(v.X, size), Y: floorDiv(v.Y, size), Z: floorDiv(v.Z, size)}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec3) LocalInChunk(size int) Vec3 {
	return Vec3{X: floorMod(v.X, size), Y: floorMod(v.Y, size), Z: floorMod(v.Z, size)}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
