package world

import (
	"fmt"

	"github.com/annel0/blockworld/internal/world/block"
)

// NetworkOffset прибавляется к ID блока в сетевом формате.
// Воздух кодируется символом '0'.
const NetworkOffset = '0'

// Serialize кодирует сетку: один байт на ячейку (ID + NetworkOffset),
// порядок обхода: x, затем y, затем z.
func (g *Grid) Serialize() []byte {
	out := make([]byte, len(g.cells))
	for i, id := range g.cells {
		out[i] = byte(id) + NetworkOffset
	}
	return out
}

// Deserialize создаёт сетку из сериализованных данных.
// Байт с неизвестным ID превращается в воздух и не прерывает разбор.
func Deserialize(sx, sy, sz int, data []byte) (*Grid, error) {
	g, err := NewGrid(sx, sy, sz)
	if err != nil {
		return nil, err
	}
	if len(data) != g.Volume() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), g.Volume())
	}

	cells := make([]block.ID, len(data))
	for i, b := range data {
		cells[i] = block.ID(b - NetworkOffset).Sanitize()
	}
	g.commit(cells)
	return g, nil
}

// ToNetworkString возвращает сетевое представление мира для передачи целиком
func (g *Grid) ToNetworkString() string {
	return string(g.Serialize())
}

// CreateFromString восстанавливает мир из сетевой строки
func CreateFromString(sx, sy, sz int, s string) (*Grid, error) {
	return Deserialize(sx, sy, sz, []byte(s))
}
