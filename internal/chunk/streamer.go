package chunk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/annel0/blockworld/internal/camera"
	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/metrics"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// StreamConfig содержит параметры подгрузки. Расстояния в чанках.
type StreamConfig struct {
	LoadDistance        float64
	UnloadDistance      float64
	MaxChunksPerFrame   int
	MaxRebuildsPerFrame int
	ViewBonus           float64
}

// StreamConfigFrom переносит секцию stream из конфигурации
func StreamConfigFrom(c config.StreamConfig) StreamConfig {
	return StreamConfig{
		LoadDistance:        c.LoadDistance,
		UnloadDistance:      c.UnloadDistance,
		MaxChunksPerFrame:   c.MaxChunksPerFrame,
		MaxRebuildsPerFrame: c.MaxRebuildsPerFrame,
		ViewBonus:           c.ViewBonus,
	}
}

// Validate проверяет, что гистерезис задан и лимиты положительны
func (c StreamConfig) Validate() error {
	if c.LoadDistance < 0 || c.UnloadDistance <= c.LoadDistance {
		return fmt.Errorf("%w: unload distance %.1f must exceed load distance %.1f",
			config.ErrInvalidConfig, c.UnloadDistance, c.LoadDistance)
	}
	if c.MaxChunksPerFrame <= 0 || c.MaxRebuildsPerFrame <= 0 {
		return fmt.Errorf("%w: per-frame caps must be positive", config.ErrInvalidConfig)
	}
	if c.ViewBonus < 0 {
		return fmt.Errorf("%w: view bonus must not be negative", config.ErrInvalidConfig)
	}
	return nil
}

// FrameStats содержит итог одного прохода стримера
type FrameStats struct {
	Enqueued int           `json:"enqueued"`
	Loaded   int           `json:"loaded"`
	Evicted  int           `json:"evicted"`
	Dropped  int           `json:"dropped"`
	Rebuilt  int           `json:"rebuilt"`
	Failed   int           `json:"failed"`
	Queued   int           `json:"queued"`
	Resident int           `json:"resident"`
	Duration time.Duration `json:"duration"`
}

// Streamer по положению камеры решает, какие чанки грузить, какие выгружать
// и сколько работы делать за кадр
type Streamer struct {
	m       *Manager
	cfg     StreamConfig
	metrics *metrics.StreamMetrics
}

// NewStreamer создаёт стример поверх менеджера
func NewStreamer(m *Manager, cfg StreamConfig, sm *metrics.StreamMetrics) (*Streamer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.SetMetrics(sm)
	return &Streamer{m: m, cfg: cfg, metrics: sm}, nil
}

// Config возвращает параметры стримера
func (s *Streamer) Config() StreamConfig { return s.cfg }

// Queue возвращает текущую очередь загрузки по порядку
func (s *Streamer) Queue() []QueueEntry { return s.m.Queue() }

// CameraChunk возвращает чанк, в котором стоит камера
func (s *Streamer) CameraChunk(cam camera.Camera) vec.Vec3 {
	p := cam.Position
	return s.m.ChunkCoordOf(
		int(math.Floor(float64(p.X()))),
		int(math.Floor(float64(p.Y()))),
		int(math.Floor(float64(p.Z()))),
	)
}

// priority: чем ближе и чем точнее по направлению взгляда, тем раньше
func (s *Streamer) priority(forward mgl32.Vec3, from, to vec.Vec3) (dist, prio float64) {
	d := to.Sub(from)
	dist = from.DistanceTo(to)
	if dist == 0 {
		return 0, 0
	}
	dir := mgl32.Vec3{float32(d.X), float32(d.Y), float32(d.Z)}.Normalize()
	dot := float64(forward.Dot(dir))
	return dist, dist - s.cfg.ViewBonus*math.Max(0, dot)
}

// Update выполняет один проход: пересчитывает приоритеты очереди от текущей
// камеры, ставит в очередь чанки в радиусе загрузки, выгружает дальние, строит не больше MaxChunksPerFrame из очереди и
// перестраивает не больше MaxRebuildsPerFrame грязных.
// Ошибки выделения не прерывают проход и возвращаются вместе.
func (s *Streamer) Update(cam camera.Camera) (FrameStats, error) {
	start := time.Now()
	failedBefore := s.m.stats.Failed
	var fs FrameStats

	forward := cam.Forward()
	center := s.CameraChunk(cam)

	// 1. Пересчёт очереди от текущей камеры: за радиусом загрузки чанк уже не нужен
	for _, ch := range append([]*Chunk(nil), s.m.queue...) {
		dist, prio := s.priority(forward, center, ch.coord)
		if dist > s.cfg.LoadDistance {
			s.m.Evict(ch.coord)
			fs.Dropped++
			continue
		}
		ch.priority = prio
	}

	// 2. Очередь по радиусу загрузки
	r := int(math.Ceil(s.cfg.LoadDistance))
	for x := center.X - r; x <= center.X+r; x++ {
		for y := center.Y - r; y <= center.Y+r; y++ {
			for z := center.Z - r; z <= center.Z+r; z++ {
				c := vec.Vec3{X: x, Y: y, Z: z}
				if !s.m.InGrid(c) || s.m.State(c).IsLoaded() {
					continue
				}
				dist, prio := s.priority(forward, center, c)
				if dist > s.cfg.LoadDistance {
					continue
				}
				wasQueued := s.m.State(c) == Queued
				if s.m.Enqueue(c, prio) && !wasQueued {
					fs.Enqueued++
				}
			}
		}
	}
	s.m.sortQueue()

	// 3. Выгрузка за радиусом гистерезиса (только загруженные)
	for _, ch := range s.m.Loaded() {
		if dist := center.DistanceTo(ch.coord); dist > s.cfg.UnloadDistance {
			s.m.Evict(ch.coord)
			logging.LogChunkEvicted(ch.coord.X, ch.coord.Y, ch.coord.Z, dist)
			fs.Evicted++
		}
	}

	// 4. Загрузка из головы очереди
	var errs []error
	n := s.cfg.MaxChunksPerFrame
	if n > len(s.m.queue) {
		n = len(s.m.queue)
	}
	batch := make([]vec.Vec3, 0, n)
	for _, ch := range s.m.queue[:n] {
		batch = append(batch, ch.coord)
	}
	for _, c := range batch {
		if err := s.m.Materialize(c); err != nil {
			errs = append(errs, err)
			continue
		}
		fs.Loaded++
	}

	// 5. Перестройка грязных
	rebuilt, err := s.m.RebuildDirty(s.cfg.MaxRebuildsPerFrame)
	fs.Rebuilt = rebuilt
	if err != nil {
		errs = append(errs, err)
	}
	fs.Failed = int(s.m.stats.Failed - failedBefore)

	st := s.m.Stats()
	fs.Queued = st.Queued
	fs.Resident = st.Loaded
	fs.Duration = time.Since(start)

	s.metrics.SetQueue(st.Queued, st.Loaded)
	s.metrics.ObserveUpdate(fs.Duration)

	if len(errs) > 0 {
		logging.Warn("⚠️ Стример: %d ошибок выделения за кадр", fs.Failed)
	}
	return fs, errors.Join(errs...)
}
