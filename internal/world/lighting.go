package world

// Освещение сводится к грубой проверке тени по карте высот колонок.
// Полного распространения света нет: после правки обновляется только
// колонка правки, а перестроение запрашивается для 6 соседей.

// ColumnHeight возвращает z верхнего непрозрачного блока колонки или -1
func (g *Grid) ColumnHeight(x, y int) int {
	if x < 0 || x >= g.sx || y < 0 || y >= g.sy {
		return -1
	}
	return int(g.heights[x*g.sy+y])
}

// IsLit сообщает, освещена ли ячейка: она не ниже верхнего непрозрачного блока колонки
func (g *Grid) IsLit(x, y, z int) bool {
	return z >= g.ColumnHeight(x, y)
}

// recomputeLighting строит карту высот целиком, O(объём)
func (g *Grid) recomputeLighting() {
	for x := 0; x < g.sx; x++ {
		for y := 0; y < g.sy; y++ {
			g.heights[x*g.sy+y] = int16(g.scanColumn(x, y, g.sz-1))
		}
	}
}

// scanColumn ищет сверху вниз, начиная с from, первый непрозрачный блок
func (g *Grid) scanColumn(x, y, from int) int {
	base := g.index(x, y, 0)
	for z := from; z >= 0; z-- {
		if g.cells[base+z].IsOpaque() {
			return z
		}
	}
	return -1
}

// UpdateLightingAt корректирует карту высот после изменения ячейки (x,y,z).
// Если высота колонки изменилась, соседи по 6 направлениям помечаются к перестроению.
func (g *Grid) UpdateLightingAt(x, y, z int) {
	if !g.IsInBounds(x, y, z) {
		return
	}

	col := x*g.sy + y
	h := int(g.heights[col])
	opaque := g.cells[g.index(x, y, z)].IsOpaque()

	switch {
	case opaque && z > h:
		g.heights[col] = int16(z)
	case !opaque && z == h:
		g.heights[col] = int16(g.scanColumn(x, y, z-1))
	default:
		return
	}

	if g.listener == nil {
		return
	}
	for _, d := range neighbours6 {
		nx, ny, nz := x+d[0], y+d[1], z+d[2]
		if g.IsInBounds(nx, ny, nz) {
			g.listener.OnLightChanged(nx, ny, nz)
		}
	}
}

var neighbours6 = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}
