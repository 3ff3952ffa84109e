package mesh

import (
	"github.com/annel0/blockworld/internal/vec"
	"github.com/annel0/blockworld/internal/world/block"
)

const (
	// UVEpsilon: отступ внутрь тайла, чтобы фильтрация не захватывала соседей по атласу
	UVEpsilon = 0.001
	// LitScalar: множитель яркости для освещённой грани
	LitScalar = 1.0
	// ShadowScalar: множитель яркости для грани в тени
	ShadowScalar = 0.55
	// FluidSurfaceHeight: высота поверхности жидкости, над которой нет жидкости
	FluidSurfaceHeight = 0.875

	// VerticesPerFace: квад из двух треугольников
	VerticesPerFace = 6
)

// Vertex представляет одну вершину меша
type Vertex struct {
	X, Y, Z float32
	U, V    float32
	Light   float32
}

// Mesh содержит геометрию чанка
type Mesh struct {
	Vertices []Vertex
	Faces    int
}

// Empty сообщает, что в меше нет ни одной грани
func (m Mesh) Empty() bool {
	return m.Faces == 0
}

// BlockSource отдаёт блоки и высоты колонок для построения меша. Реализуется world.Grid.
type BlockSource interface {
	GetBlock(x, y, z int) block.ID
	ColumnHeight(x, y int) int
}

// углы граней единичного куба, обход против часовой стрелки снаружи
var corners = [block.NumDirections][4][3]float32{
	block.Up:    {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	block.Down:  {{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
	block.North: {{1, 1, 0}, {0, 1, 0}, {0, 1, 1}, {1, 1, 1}},
	block.South: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	block.East:  {{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	block.West:  {{0, 1, 0}, {0, 0, 0}, {0, 0, 1}, {0, 1, 1}},
}

// порядок углов в двух треугольниках квада
var quadOrder = [VerticesPerFace]int{0, 1, 2, 0, 2, 3}

// Builder строит меши чанков с отсечением скрытых граней
type Builder struct {
	uvEpsilon float32
}

// NewBuilder создаёт построитель со стандартными параметрами
func NewBuilder() *Builder {
	return &Builder{uvEpsilon: UVEpsilon}
}

// Build строит меш для ячеек в диапазоне [min, max). Соседи за пределами
// диапазона берутся из src, за пределами мира считаются прозрачными.
func (b *Builder) Build(src BlockSource, min, max vec.Vec3) Mesh {
	var m Mesh
	for x := min.X; x < max.X; x++ {
		for y := min.Y; y < max.Y; y++ {
			height := src.ColumnHeight(x, y)
			for z := min.Z; z < max.Z; z++ {
				id := src.GetBlock(x, y, z)
				if id == block.None || id.IsAir() {
					continue
				}
				b.emitBlock(&m, src, id, x, y, z, height)
			}
		}
	}
	return m
}

func (b *Builder) emitBlock(m *Mesh, src BlockSource, id block.ID, x, y, z, height int) {
	light := float32(ShadowScalar)
	if id.IsSelfLit() || z >= height {
		light = LitScalar
	}

	top := float32(1)
	if id.IsFluid() && !src.GetBlock(x, y, z+1).IsFluid() {
		top = FluidSurfaceHeight
	}

	for dir := block.Direction(0); dir < block.NumDirections; dir++ {
		dx, dy, dz := dir.Offset()
		if !faceVisible(id, src.GetBlock(x+dx, y+dy, z+dz)) {
			continue
		}
		b.emitFace(m, id, dir, float32(x), float32(y), float32(z), top, light)
	}
}

// faceVisible: грань видна, если сосед прозрачен; между жидкостями граней нет
func faceVisible(id, neighbour block.ID) bool {
	if !neighbour.IsTransparent() {
		return false
	}
	if id.IsFluid() && neighbour.IsFluid() {
		return false
	}
	return true
}

func (b *Builder) emitFace(m *Mesh, id block.ID, dir block.Direction, x, y, z, top, light float32) {
	rect := block.Texture(id, dir).Inset(b.uvEpsilon)
	uv := [4][2]float32{
		{rect.U0, rect.V1},
		{rect.U1, rect.V1},
		{rect.U1, rect.V0},
		{rect.U0, rect.V0},
	}

	if m.Vertices == nil {
		m.Vertices = make([]Vertex, 0, VerticesPerFace*8)
	}
	for _, i := range quadOrder {
		c := corners[dir][i]
		cz := c[2]
		if cz == 1 {
			cz = top
		}
		m.Vertices = append(m.Vertices, Vertex{
			X:     x + c[0],
			Y:     y + c[1],
			Z:     z + cz,
			U:     uv[i][0],
			V:     uv[i][1],
			Light: light,
		})
	}
	m.Faces++
}
