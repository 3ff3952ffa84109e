package world

import (
	"errors"
	"fmt"

	"github.com/annel0/blockworld/internal/vec"
	"github.com/annel0/blockworld/internal/world/block"
)

// MaxDimension ограничивает размер по каждой оси. Координата должна помещаться
// в один байт, а 255 занято маркером «нет блока» в пикинге.
const MaxDimension = 254

var (
	// ErrInvalidDimension: размер по одной из осей вне диапазона 1..MaxDimension
	ErrInvalidDimension = errors.New("invalid grid dimension")
	// ErrSizeMismatch: длина сериализованных данных не равна sx*sy*sz
	ErrSizeMismatch = errors.New("serialized size mismatch")
	// ErrGeneration не выходит наружу, а приводит к плоскому миру
	ErrGeneration = errors.New("terrain generation failed")
)

// ChangeListener получает уведомления об изменениях сетки.
// Реализуется менеджером чанков.
type ChangeListener interface {
	// OnBlockChanged вызывается после записи нового блока в ячейку
	OnBlockChanged(x, y, z int)
	// OnLightChanged вызывается для соседей ячейки, если изменилась карта высот
	OnLightChanged(x, y, z int)
}

// Grid хранит плотную трёхмерную сетку блоков мира.
// Ячейки лежат в порядке x, затем y, затем z (как и в сетевом формате).
type Grid struct {
	sx, sy, sz int
	cells      []block.ID
	heights    []int16 // по колонке (x,y): z верхнего непрозрачного блока, -1 если нет
	spawn      vec.Vec3
	listener   ChangeListener
}

// NewGrid создаёт сетку, заполненную воздухом
func NewGrid(sx, sy, sz int) (*Grid, error) {
	for _, d := range [3]int{sx, sy, sz} {
		if d <= 0 || d > MaxDimension {
			return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimension, sx, sy, sz)
		}
	}

	g := &Grid{
		sx:      sx,
		sy:      sy,
		sz:      sz,
		cells:   make([]block.ID, sx*sy*sz),
		heights: make([]int16, sx*sy),
		spawn:   vec.Vec3{X: sx / 2, Y: sy / 2, Z: sz - 1},
	}
	for i := range g.heights {
		g.heights[i] = -1
	}
	return g, nil
}

// Dimensions возвращает размеры сетки
func (g *Grid) Dimensions() (sx, sy, sz int) {
	return g.sx, g.sy, g.sz
}

// Size возвращает размеры сетки как вектор
func (g *Grid) Size() vec.Vec3 {
	return vec.Vec3{X: g.sx, Y: g.sy, Z: g.sz}
}

// Volume возвращает количество ячеек
func (g *Grid) Volume() int {
	return len(g.cells)
}

// SpawnPoint возвращает точку появления игрока
func (g *Grid) SpawnPoint() vec.Vec3 {
	return g.spawn
}

// SetSpawnPoint задаёт точку появления; координаты вне мира игнорируются
func (g *Grid) SetSpawnPoint(p vec.Vec3) {
	if g.IsInBounds(p.X, p.Y, p.Z) {
		g.spawn = p
	}
}

// SetListener подписывает получателя изменений (один на сетку)
func (g *Grid) SetListener(l ChangeListener) {
	g.listener = l
}

// IsInBounds проверяет, лежит ли ячейка внутри сетки
func (g *Grid) IsInBounds(x, y, z int) bool {
	return x >= 0 && x < g.sx && y >= 0 && y < g.sy && z >= 0 && z < g.sz
}

func (g *Grid) index(x, y, z int) int {
	return (x*g.sy+y)*g.sz + z
}

// GetBlock возвращает блок в ячейке или block.None вне границ. Никогда не паникует.
func (g *Grid) GetBlock(x, y, z int) block.ID {
	if !g.IsInBounds(x, y, z) {
		return block.None
	}
	return g.cells[g.index(x, y, z)]
}

// SetBlock единственный меняет мир во время игры.
// Невалидный ID заменяется воздухом. Вне границ ничего не делает и возвращает false.
// Повторная запись того же блока успешна, но никого не уведомляет.
func (g *Grid) SetBlock(x, y, z int, id block.ID) bool {
	if !g.IsInBounds(x, y, z) {
		return false
	}

	id = id.Sanitize()
	i := g.index(x, y, z)
	if g.cells[i] == id {
		return true
	}

	g.cells[i] = id
	g.UpdateLightingAt(x, y, z)

	if g.listener != nil {
		g.listener.OnBlockChanged(x, y, z)
	}
	return true
}

// Count возвращает количество ячеек с указанным блоком
func (g *Grid) Count(id block.ID) int {
	n := 0
	for _, c := range g.cells {
		if c == id {
			n++
		}
	}
	return n
}

// commit атомарно заменяет содержимое сетки (используется генератором и десериализацией)
func (g *Grid) commit(cells []block.ID) {
	copy(g.cells, cells)
	g.recomputeLighting()
}
