package world

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/util"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/annel0/blockworld/internal/world/block"
)

// Generator генерирует ландшафт мира. Результат полностью определяется конфигурацией.
type Generator struct {
	cfg config.GeneratorConfig

	// sampleHeight подменяет шум высот в тестах; nil означает шум из cfg
	sampleHeight func(x, y int) float64
}

// GenerationStats содержит краткую сводку по результату генерации
type GenerationStats struct {
	Fallback   bool
	Trees      int
	CaveCells  int
	SpawnPoint vec.Vec3
}

// NewGenerator создаёт новый генератор мира
func NewGenerator(cfg config.GeneratorConfig) *Generator {
	return &Generator{cfg: cfg}
}

// volume: черновик сетки, в который пишет генератор до фиксации
type volume struct {
	sx, sy, sz int
	cells      []block.ID
}

func (v *volume) in(x, y, z int) bool {
	return x >= 0 && x < v.sx && y >= 0 && y < v.sy && z >= 0 && z < v.sz
}

func (v *volume) get(x, y, z int) block.ID {
	return v.cells[(x*v.sy+y)*v.sz+z]
}

func (v *volume) set(x, y, z int, id block.ID) {
	v.cells[(x*v.sy+y)*v.sz+z] = id
}

// Populate заполняет сетку один раз. Любая ошибка генерации (в том числе паника)
// перехватывается, и мир заполняется плоским ландшафтом; частично заполненной
// сетка не остаётся никогда.
func (gen *Generator) Populate(g *Grid) GenerationStats {
	vol := &volume{sx: g.sx, sy: g.sy, sz: g.sz, cells: make([]block.ID, g.Volume())}

	stats, err := gen.generate(vol)
	if err != nil {
		logging.Warn("⚠️ Генерация мира не удалась, используем плоский мир: %v", err)
		FlatFill(g, gen.cfg.FlatHeight)
		return GenerationStats{Fallback: true, SpawnPoint: g.SpawnPoint()}
	}

	g.commit(vol.cells)
	g.SetSpawnPoint(stats.SpawnPoint)

	logging.Info("🌍 Мир %dx%dx%d сгенерирован (seed=%d): деревьев %d, пещерных ячеек %d",
		g.sx, g.sy, g.sz, gen.cfg.Seed, stats.Trees, stats.CaveCells)
	return stats
}

// validate проверяет, что параметры совместимы с размерами мира
func (gen *Generator) validate(sz int) error {
	c := gen.cfg
	switch {
	case c.Octaves <= 0:
		return fmt.Errorf("%w: octaves must be positive", ErrGeneration)
	case c.Persistence <= 0:
		return fmt.Errorf("%w: persistence must be positive", ErrGeneration)
	case c.WaterLevel < 1 || c.WaterLevel >= sz-1:
		return fmt.Errorf("%w: water level %d outside world height %d", ErrGeneration, c.WaterLevel, sz)
	case c.BaseLevel < 1 || c.BaseLevel >= sz-1:
		return fmt.Errorf("%w: base level %d outside world height %d", ErrGeneration, c.BaseLevel, sz)
	case c.TrunkMin <= 0 || c.TrunkMax < c.TrunkMin:
		return fmt.Errorf("%w: trunk range %d..%d", ErrGeneration, c.TrunkMin, c.TrunkMax)
	case c.PlatformRadius < 0:
		return fmt.Errorf("%w: negative platform radius", ErrGeneration)
	}
	return nil
}

func (gen *Generator) generate(vol *volume) (stats GenerationStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrGeneration, r)
		}
	}()

	if err := gen.validate(vol.sz); err != nil {
		return stats, err
	}

	rng := rand.New(rand.NewSource(gen.cfg.Seed))
	heights := gen.heightField(vol)

	gen.fillColumns(vol, heights)
	stats.CaveCells = gen.carveCaves(vol, heights, rng)

	spawnCol := vec.Vec2{X: vol.sx / 2, Y: vol.sy / 2}
	stats.Trees = gen.plantTrees(vol, heights, spawnCol, rng)
	stats.SpawnPoint = gen.carvePlatform(vol, heights, spawnCol)
	return stats, nil
}

// heightField считает высоту поверхности для каждой колонки
func (gen *Generator) heightField(vol *volume) [][]int {
	sample := gen.sampleHeight
	if sample == nil {
		sample = util.NewHeightNoise(gen.cfg.Seed, gen.cfg.Octaves, gen.cfg.Persistence, gen.cfg.Scale).At
	}

	heights := make([][]int, vol.sx)
	for x := 0; x < vol.sx; x++ {
		heights[x] = make([]int, vol.sy)
		for y := 0; y < vol.sy; y++ {
			h := gen.cfg.BaseLevel + int(math.Round(sample(x, y)*gen.cfg.Amplitude))
			heights[x][y] = clamp(h, 1, vol.sz-2)
		}
	}
	return heights
}

// fillColumns заполняет колонки снизу вверх:
// коренная порода, камень, земля (трава сверху над водой), вода, воздух.
func (gen *Generator) fillColumns(vol *volume, heights [][]int) {
	water := gen.cfg.WaterLevel
	for x := 0; x < vol.sx; x++ {
		for y := 0; y < vol.sy; y++ {
			h := heights[x][y]
			for z := 0; z < vol.sz; z++ {
				var id block.ID
				switch {
				case z == 0:
					id = block.Bedrock
				case z < h-4:
					id = block.Rock
				case z < h:
					id = block.Dirt
				case z == h && h > water:
					id = block.Grass
				case z == h:
					id = block.Dirt
				case z <= water:
					id = block.Water
				default:
					id = block.Air
				}
				vol.set(x, y, z, id)
			}
		}
	}
}

// carveCaves вырезает пещеры. Порог растёт с относительной высотой,
// поэтому внизу пещер больше, чем у поверхности.
func (gen *Generator) carveCaves(vol *volume, heights [][]int, rng *rand.Rand) int {
	noise := util.NewCaveNoise(gen.cfg.Seed)
	carved := 0

	for x := 0; x < vol.sx; x++ {
		for y := 0; y < vol.sy; y++ {
			h := heights[x][y]
			for z := 2; z <= h-3; z++ {
				rel := float64(z) / float64(h)
				threshold := gen.cfg.CaveThreshold + gen.cfg.CaveThresholdSlope*rel
				density := noise.Density(x, y, z)
				if density <= threshold {
					continue
				}
				if vol.get(x, y, z) != block.Air {
					vol.set(x, y, z, block.Air)
					carved++
				}
				if density > threshold+gen.cfg.CaveCavityMargin {
					carved += carveCavity(vol, heights, x, y, z, rng)
				}
			}
		}
	}
	return carved
}

// carveCavity вырезает небольшую случайную полость вокруг ячейки.
// Коренную породу и корку у поверхности не трогает.
func carveCavity(vol *volume, heights [][]int, cx, cy, cz int, rng *rand.Rand) int {
	r := 1 + rng.Intn(2)
	carved := 0
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if dx*dx+dy*dy+dz*dz > r*r || rng.Float64() >= 0.7 {
					continue
				}
				x, y, z := cx+dx, cy+dy, cz+dz
				if !vol.in(x, y, z) || z < 1 || z > heights[x][y]-3 {
					continue
				}
				id := vol.get(x, y, z)
				if id == block.Air || id == block.Bedrock || id.IsFluid() {
					continue
				}
				vol.set(x, y, z, block.Air)
				carved++
			}
		}
	}
	return carved
}

// радиусы слоёв кроны снизу вверх
var canopy = [...]int{2, 2, 1, 1}

// plantTrees сажает деревья на подходящих колонках выше уровня воды
func (gen *Generator) plantTrees(vol *volume, heights [][]int, spawn vec.Vec2, rng *rand.Rand) int {
	c := gen.cfg
	reserved := c.PlatformRadius + 2
	planted := 0

	for x := 0; x < vol.sx; x++ {
		for y := 0; y < vol.sy; y++ {
			h := heights[x][y]
			if h <= c.WaterLevel || h+c.TrunkMax+len(canopy)-1 >= vol.sz {
				continue
			}
			if abs(x-spawn.X) <= reserved && abs(y-spawn.Y) <= reserved {
				continue
			}
			if vol.get(x, y, h) != block.Grass {
				continue
			}
			if rng.Float64() >= c.TreeChance {
				continue
			}

			trunk := c.TrunkMin + rng.Intn(c.TrunkMax-c.TrunkMin+1)
			vol.set(x, y, h, block.Dirt)
			for i := 1; i <= trunk; i++ {
				vol.set(x, y, h+i, block.Wood)
			}

			base := h + trunk - 1
			for layer, r := range canopy {
				z := base + layer
				for dx := -r; dx <= r; dx++ {
					for dy := -r; dy <= r; dy++ {
						if r > 1 && abs(dx) == r && abs(dy) == r {
							continue // срезаем углы
						}
						lx, ly := x+dx, y+dy
						if vol.in(lx, ly, z) && vol.get(lx, ly, z) == block.Air {
							vol.set(lx, ly, z, block.Leaves)
						}
					}
				}
			}
			planted++
		}
	}
	return planted
}

// сколько ячеек воздуха оставлять над площадкой спауна
const platformClearance = 4

// carvePlatform ставит площадку спауна поверх всего сгенерированного
func (gen *Generator) carvePlatform(vol *volume, heights [][]int, spawn vec.Vec2) vec.Vec3 {
	r := gen.cfg.PlatformRadius
	pz := max(heights[spawn.X][spawn.Y], gen.cfg.WaterLevel+1)
	pz = clamp(pz, 1, vol.sz-2)

	for x := spawn.X - r; x <= spawn.X+r; x++ {
		for y := spawn.Y - r; y <= spawn.Y+r; y++ {
			if !vol.in(x, y, pz) {
				continue
			}
			vol.set(x, y, pz, block.Rock)
			for z := pz + 1; z <= pz+platformClearance && z < vol.sz; z++ {
				vol.set(x, y, z, block.Air)
			}
		}
	}
	return spawn.WithZ(pz + 1)
}

// FlatFill заполняет сетку плоским миром: земля ниже height, воздух выше.
// Используется как детерминированный запасной вариант генерации.
func FlatFill(g *Grid, height int) {
	if height <= 0 {
		height = g.sz / 2
	}
	height = clamp(height, 1, g.sz)

	cells := make([]block.ID, g.Volume())
	for x := 0; x < g.sx; x++ {
		for y := 0; y < g.sy; y++ {
			base := (x*g.sy + y) * g.sz
			for z := 0; z < height; z++ {
				cells[base+z] = block.Dirt
			}
		}
	}
	g.commit(cells)
	g.SetSpawnPoint(vec.Vec3{X: g.sx / 2, Y: g.sy / 2, Z: min(height, g.sz-1)})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
