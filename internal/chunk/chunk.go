package chunk

import (
	"github.com/annel0/blockworld/internal/mesh"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultSize задаёт сторону чанка в блоках
const DefaultSize = 16

// State описывает состояние чанка в жизненном цикле подгрузки
type State uint8

const (
	// чанка нет в арене
	Unloaded State = iota
	// ждёт построения меша
	Queued
	// меш актуален
	LoadedClean
	// меш устарел и ждёт перестройки
	LoadedDirty
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Queued:
		return "queued"
	case LoadedClean:
		return "loaded_clean"
	case LoadedDirty:
		return "loaded_dirty"
	default:
		return "unknown"
	}
}

// IsLoaded сообщает, что у чанка есть построенный (возможно устаревший) меш
func (s State) IsLoaded() bool {
	return s == LoadedClean || s == LoadedDirty
}

// Chunk описывает в арене куб SxSxS блоков. Блоки живут в сетке,
// чанк хранит только состояние и ссылку на меш.
type Chunk struct {
	coord    vec.Vec3
	min, max vec.Vec3 // диапазон блоков [min, max), обрезан по сетке
	state    State
	handle   mesh.Handle
	faces    int
	priority float64
	seq      uint64
}

func (c *Chunk) Coord() vec.Vec3 { return c.coord }
func (c *Chunk) State() State    { return c.state }

// Handle возвращает буфер меша; nil, если граней нет или чанк ещё не построен
func (c *Chunk) Handle() mesh.Handle { return c.handle }

// Faces возвращает количество граней последнего построенного меша
func (c *Chunk) Faces() int { return c.faces }

// Priority возвращает приоритет в очереди, меньше значит раньше
func (c *Chunk) Priority() float64 { return c.priority }

// BlockRange возвращает диапазон блоков чанка [min, max)
func (c *Chunk) BlockRange() (min, max vec.Vec3) {
	return c.min, c.max
}

// Bounds возвращает ограничивающую коробку в мировых координатах
func (c *Chunk) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{float32(c.min.X), float32(c.min.Y), float32(c.min.Z)},
		mgl32.Vec3{float32(c.max.X), float32(c.max.Y), float32(c.max.Z)}
}
