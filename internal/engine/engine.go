package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/blockworld/internal/camera"
	"github.com/annel0/blockworld/internal/chunk"
	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/cull"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/mesh"
	"github.com/annel0/blockworld/internal/metrics"
	"github.com/annel0/blockworld/internal/observability"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel/attribute"
)

// высота глаз над точкой спауна
const eyeHeight = 1.6

// DrawItem описывает видимый чанк с загруженным мешем
type DrawItem struct {
	Coord    vec.Vec3    `json:"coord"`
	Handle   mesh.Handle `json:"-"`
	BufferID uint64      `json:"buffer_id"`
	Vertices int         `json:"vertices"`
	Faces    int         `json:"faces"`
}

// WorldInfo содержит неизменяемые сведения о мире
type WorldInfo struct {
	SizeX    int      `json:"size_x"`
	SizeY    int      `json:"size_y"`
	SizeZ    int      `json:"size_z"`
	Chunk    int      `json:"chunk_size"`
	Seed     int64    `json:"seed"`
	Spawn    vec.Vec3 `json:"spawn"`
	Fallback bool     `json:"fallback"`
	Trees    int      `json:"trees"`
}

// Stats содержит снимок состояния движка
type Stats struct {
	World     WorldInfo          `json:"world"`
	Chunks    chunk.ManagerStats `json:"chunks"`
	LastFrame chunk.FrameStats   `json:"last_frame"`
	Frames    uint64             `json:"frames"`
	Edits     uint64             `json:"edits"`
	Camera    camera.Camera      `json:"camera"`
}

// Engine связывает сетку, менеджер чанков и стример. Ядро однопоточное:
// кадровый цикл и HTTP-обработчики сериализуются одним мьютексом.
type Engine struct {
	mu sync.Mutex

	grid     *world.Grid
	manager  *chunk.Manager
	streamer *chunk.Streamer
	metrics  *metrics.StreamMetrics
	info     WorldInfo

	store *storage.WorldStorage
	meta  storage.WorldMeta

	cam       camera.Camera
	lastFrame chunk.FrameStats
	frames    uint64
	edits     uint64
}

// New генерирует мир по конфигурации и собирает движок
func New(ctx context.Context, cfg *config.Config, backend mesh.Backend, sm *metrics.StreamMetrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := cfg.World
	g, err := world.NewGrid(w.SizeX, w.SizeY, w.SizeZ)
	if err != nil {
		return nil, err
	}

	_, span := observability.StartSpan(ctx, "world.generate",
		attribute.Int64("seed", w.Generator.Seed),
		attribute.Int("volume", g.Volume()),
	)
	start := time.Now()
	stats := world.NewGenerator(w.Generator).Populate(g)
	sm.ObserveGeneration(time.Since(start))
	span.SetAttributes(attribute.Bool("fallback", stats.Fallback))
	span.End()

	e, err := FromGrid(cfg, g, backend, sm)
	if err != nil {
		return nil, err
	}
	e.info.Seed = w.Generator.Seed
	e.info.Fallback = stats.Fallback
	e.info.Trees = stats.Trees
	return e, nil
}

// FromGrid собирает движок поверх готовой сетки (например, загруженной из хранилища)
func FromGrid(cfg *config.Config, g *world.Grid, backend mesh.Backend, sm *metrics.StreamMetrics) (*Engine, error) {
	if backend == nil {
		backend = mesh.NewMemoryBackend(cfg.Stream.MeshCapacity)
	}
	m := chunk.NewManager(g, mesh.NewBuilder(), backend, cfg.World.ChunkSize)
	s, err := chunk.NewStreamer(m, chunk.StreamConfigFrom(cfg.Stream), sm)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("не удалось создать стример: %w", err)
	}

	sx, sy, sz := g.Dimensions()
	sp := g.SpawnPoint()
	e := &Engine{
		grid:     g,
		manager:  m,
		streamer: s,
		metrics:  sm,
		info: WorldInfo{
			SizeX: sx, SizeY: sy, SizeZ: sz,
			Chunk: m.Size(),
			Seed:  cfg.World.Generator.Seed,
			Spawn: sp,
		},
		cam: camera.New(mgl32.Vec3{float32(sp.X) + 0.5, float32(sp.Y) + 0.5, float32(sp.Z) + eyeHeight}),
	}
	return e, nil
}

// Info возвращает сведения о мире
func (e *Engine) Info() WorldInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// Camera возвращает текущую камеру
func (e *Engine) Camera() camera.Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cam
}

// SetCamera задаёт камеру для следующих кадров
func (e *Engine) SetCamera(cam camera.Camera) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cam = cam.Normalized()
}

// Frame выполняет один кадр подгрузки для камеры cam и запоминает её
func (e *Engine) Frame(ctx context.Context, cam camera.Camera) (chunk.FrameStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cam = cam.Normalized()
	return e.frameLocked(ctx)
}

// Tick выполняет кадр для текущей камеры
func (e *Engine) Tick(ctx context.Context) (chunk.FrameStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked(ctx)
}

func (e *Engine) frameLocked(ctx context.Context) (chunk.FrameStats, error) {
	_, span := observability.StartSpan(ctx, "stream.update")
	defer span.End()

	fs, err := e.streamer.Update(e.cam)
	e.lastFrame = fs
	e.frames++

	span.SetAttributes(
		attribute.Int("loaded", fs.Loaded),
		attribute.Int("evicted", fs.Evicted),
		attribute.Int("rebuilt", fs.Rebuilt),
		attribute.Int("queued", fs.Queued),
	)
	observability.RecordError(span, err)
	return fs, err
}

// SetBlock изменяет блок; затронутые чанки станут грязными
func (e *Engine) SetBlock(x, y, z int, id block.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.grid.SetBlock(x, y, z, id) {
		return false
	}
	e.edits++
	e.metrics.BlockEdited()
	return true
}

// GetBlock читает блок; вне мира возвращается block.None
func (e *Engine) GetBlock(x, y, z int) block.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.GetBlock(x, y, z)
}

// ColumnHeight возвращает высоту верхнего непрозрачного блока колонки
func (e *Engine) ColumnHeight(x, y int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.ColumnHeight(x, y)
}

// DrawList возвращает загруженные чанки с мешем, попадающие в пирамиду видимости
func (e *Engine) DrawList(cam camera.Camera) []DrawItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	cam = cam.Normalized()
	f := cull.NewFrustum(cam.Projection(), cam.View())
	visible := cull.Filter(f, e.manager.Loaded())

	items := make([]DrawItem, 0, len(visible))
	for _, ch := range visible {
		h := ch.Handle()
		if h == nil {
			continue
		}
		items = append(items, DrawItem{
			Coord:    ch.Coord(),
			Handle:   h,
			BufferID: h.ID(),
			Vertices: h.VertexCount(),
			Faces:    ch.Faces(),
		})
	}
	return items
}

// Queue возвращает текущую очередь загрузки
func (e *Engine) Queue() []chunk.QueueEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streamer.Queue()
}

// Stats возвращает снимок состояния
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		World:     e.info,
		Chunks:    e.manager.Stats(),
		LastFrame: e.lastFrame,
		Frames:    e.frames,
		Edits:     e.edits,
		Camera:    e.cam,
	}
}

// Export возвращает мир в сетевом текстовом формате
func (e *Engine) Export() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.ToNetworkString()
}

// WithGrid выполняет fn под блокировкой движка (например, для сохранения).
// fn не должна удерживать сетку после возврата.
func (e *Engine) WithGrid(fn func(g *world.Grid) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.grid)
}

// Close освобождает все меши
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manager.Close()
	logging.Info("🧹 Движок остановлен: кадров %d, правок %d", e.frames, e.edits)
}
