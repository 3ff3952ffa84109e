package block

// Direction задаёт сторону грани блока. Z направлена вверх.
type Direction uint8

const (
	Up    Direction = iota // +Z
	Down                   // -Z
	North                  // +Y
	South                  // -Y
	East                   // +X
	West                   // -X

	NumDirections
)

// Offset возвращает единичный сдвиг к соседу с этой стороны
func (d Direction) Offset() (dx, dy, dz int) {
	switch d {
	case Up:
		return 0, 0, 1
	case Down:
		return 0, 0, -1
	case North:
		return 0, 1, 0
	case South:
		return 0, -1, 0
	case East:
		return 1, 0, 0
	default:
		return -1, 0, 0
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// AtlasTiles: количество тайлов по одной стороне атласа
const AtlasTiles = 16

// TextureRect описывает прямоугольник в атласе в UV-координатах [0,1]
type TextureRect struct {
	U0, V0, U1, V1 float32
}

// Inset сжимает прямоугольник внутрь на eps со всех сторон,
// чтобы при фильтрации не подтягивались соседние тайлы атласа.
func (r TextureRect) Inset(eps float32) TextureRect {
	return TextureRect{U0: r.U0 + eps, V0: r.V0 + eps, U1: r.U1 - eps, V1: r.V1 - eps}
}

// индекс тайла в атласе для каждой стороны
type faceTiles [NumDirections]uint8

func same(t uint8) faceTiles {
	return faceTiles{t, t, t, t, t, t}
}

func topSideBottom(top, side, bottom uint8) faceTiles {
	return faceTiles{Up: top, Down: bottom, North: side, South: side, East: side, West: side}
}

var tiles = [numKinds]faceTiles{
	Air:     same(0),
	Bedrock: same(17),
	Rock:    same(1),
	Dirt:    same(2),
	Grass:   topSideBottom(0, 3, 2),
	Sand:    same(18),
	Water:   same(205),
	Wood:    topSideBottom(21, 20, 21),
	Leaves:  same(52),
	Lamp:    same(105),
}

// Texture возвращает прямоугольник текстуры для пары (тип, сторона).
// Чистая функция над статической таблицей.
func Texture(id ID, dir Direction) TextureRect {
	if dir >= NumDirections {
		dir = Up
	}
	t := tiles[id.Sanitize()][dir]
	const step = float32(1) / AtlasTiles
	col := float32(t % AtlasTiles)
	row := float32(t / AtlasTiles)
	return TextureRect{
		U0: col * step,
		V0: row * step,
		U1: (col + 1) * step,
		V1: (row + 1) * step,
	}
}
