package cull

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Индексы плоскостей пирамиды видимости
const (
	planeLeft = iota
	planeRight
	planeBottom
	planeTop
	planeNear
	planeFar

	numPlanes
)

// Frustum описывает пирамиду видимости камеры. Плоскость хранится как (a,b,c,d)
// с нормалью внутрь: точка p внутри, если a*x+b*y+c*z+d >= 0.
type Frustum struct {
	planes [numPlanes]mgl32.Vec4
	eye    mgl32.Vec3
}

// NewFrustum извлекает плоскости из строк proj*view
func NewFrustum(proj, view mgl32.Mat4) Frustum {
	m := proj.Mul4(view)
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)

	var f Frustum
	f.planes[planeLeft] = r3.Add(r0)
	f.planes[planeRight] = r3.Sub(r0)
	f.planes[planeBottom] = r3.Add(r1)
	f.planes[planeTop] = r3.Sub(r1)
	f.planes[planeNear] = r3.Add(r2)
	f.planes[planeFar] = r3.Sub(r2)

	for i, p := range f.planes {
		l := p.Vec3().Len()
		if l > 0 {
			f.planes[i] = p.Mul(1 / l)
		}
	}

	f.eye = view.Inv().Col(3).Vec3()
	return f
}

// Eye возвращает позицию камеры, восстановленную из матрицы вида
func (f Frustum) Eye() mgl32.Vec3 {
	return f.eye
}

// IntersectsAABB возвращает false, только если все восемь углов коробки
// лежат по внешнюю сторону одной из плоскостей. Коробка, в которой стоит
// камера, видима всегда.
func (f Frustum) IntersectsAABB(min, max mgl32.Vec3) bool {
	if contains(min, max, f.eye) {
		return true
	}

	for _, p := range f.planes {
		// Угол, дальше всех продвинутый вдоль нормали. Если и он снаружи, снаружи все.
		v := min
		if p.X() >= 0 {
			v[0] = max.X()
		}
		if p.Y() >= 0 {
			v[1] = max.Y()
		}
		if p.Z() >= 0 {
			v[2] = max.Z()
		}
		if p.Vec3().Dot(v)+p.W() < 0 {
			return false
		}
	}
	return true
}

func contains(min, max, p mgl32.Vec3) bool {
	return p.X() >= min.X() && p.X() <= max.X() &&
		p.Y() >= min.Y() && p.Y() <= max.Y() &&
		p.Z() >= min.Z() && p.Z() <= max.Z()
}

// Bounded реализует всё, у чего есть ограничивающая коробка в мировых координатах
type Bounded interface {
	Bounds() (min, max mgl32.Vec3)
}

// Filter возвращает видимые элементы, сохраняя исходный порядок
func Filter[T Bounded](f Frustum, items []T) []T {
	visible := make([]T, 0, len(items))
	for _, it := range items {
		lo, hi := it.Bounds()
		if f.IntersectsAABB(lo, hi) {
			visible = append(visible, it)
		}
	}
	return visible
}
