package chunk

import (
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/mesh"
	"github.com/annel0/blockworld/internal/metrics"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/annel0/blockworld/internal/world"
)

// ManagerStats содержит снимок состояния арены
type ManagerStats struct {
	Queued       int    `json:"queued"`
	Loaded       int    `json:"loaded"`
	Dirty        int    `json:"dirty"`
	Faces        int    `json:"faces"`
	Materialized uint64 `json:"materialized"`
	Evicted      uint64 `json:"evicted"`
	Rebuilt      uint64 `json:"rebuilt"`
	Failed       uint64 `json:"failed"`
}

// QueueEntry описывает элемент очереди загрузки
type QueueEntry struct {
	Coord    vec.Vec3 `json:"coord"`
	Priority float64  `json:"priority"`
}

// Manager владеет ареной чанков: очередь загрузки, множество загруженных
// чанков и список грязных. Сетка сообщает ему об изменениях через
// world.ChangeListener. Не потокобезопасен.
type Manager struct {
	grid    *world.Grid
	builder *mesh.Builder
	backend mesh.Backend
	metrics *metrics.StreamMetrics

	size   int
	counts vec.Vec3 // чанков по каждой оси

	chunks map[vec.Vec3]*Chunk
	queue  []*Chunk
	dirty  []*Chunk
	seq    uint64

	stats ManagerStats
}

// NewManager создаёт менеджер и подписывает его на изменения сетки
func NewManager(grid *world.Grid, builder *mesh.Builder, backend mesh.Backend, size int) *Manager {
	if size <= 0 {
		size = DefaultSize
	}
	if builder == nil {
		builder = mesh.NewBuilder()
	}
	if backend == nil {
		backend = mesh.NewMemoryBackend(0)
	}
	sx, sy, sz := grid.Dimensions()
	m := &Manager{
		grid:    grid,
		builder: builder,
		backend: backend,
		size:    size,
		counts: vec.Vec3{
			X: (sx + size - 1) / size,
			Y: (sy + size - 1) / size,
			Z: (sz + size - 1) / size,
		},
		chunks: make(map[vec.Vec3]*Chunk),
	}
	grid.SetListener(m)
	return m
}

// SetMetrics подключает метрики (nil отключает)
func (m *Manager) SetMetrics(sm *metrics.StreamMetrics) {
	m.metrics = sm
}

// Size возвращает сторону чанка в блоках
func (m *Manager) Size() int { return m.size }

// ChunkCoordOf возвращает координату чанка, содержащего блок
func (m *Manager) ChunkCoordOf(x, y, z int) vec.Vec3 {
	return vec.Vec3{X: x, Y: y, Z: z}.ToChunkCoords(m.size)
}

// InGrid проверяет, что чанк пересекается с сеткой
func (m *Manager) InGrid(c vec.Vec3) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 &&
		c.X < m.counts.X && c.Y < m.counts.Y && c.Z < m.counts.Z
}

// GridChunks возвращает количество чанков по каждой оси
func (m *Manager) GridChunks() vec.Vec3 { return m.counts }

// Get возвращает чанк из арены
func (m *Manager) Get(c vec.Vec3) (*Chunk, bool) {
	ch, ok := m.chunks[c]
	return ch, ok
}

// State возвращает состояние чанка; отсутствующий в арене считается Unloaded
func (m *Manager) State(c vec.Vec3) State {
	if ch, ok := m.chunks[c]; ok {
		return ch.state
	}
	return Unloaded
}

func (m *Manager) newChunk(c vec.Vec3) *Chunk {
	lo := c.Scale(m.size)
	hi := lo.Add(vec.Vec3{X: m.size, Y: m.size, Z: m.size}).Min(m.grid.Size())
	ch := &Chunk{coord: c, min: lo, max: hi}
	m.chunks[c] = ch
	return ch
}

// Enqueue ставит чанк в очередь загрузки. Для уже стоящего в очереди
// обновляется приоритет, загруженные чанки не трогаются.
func (m *Manager) Enqueue(c vec.Vec3, priority float64) bool {
	if !m.InGrid(c) {
		return false
	}
	ch, ok := m.chunks[c]
	if !ok {
		ch = m.newChunk(c)
	}
	switch ch.state {
	case Queued:
		ch.priority = priority
		return true
	case LoadedClean, LoadedDirty:
		return false
	}
	m.push(ch, priority)
	return true
}

func (m *Manager) push(ch *Chunk, priority float64) {
	m.seq++
	ch.seq = m.seq
	ch.priority = priority
	ch.state = Queued
	m.queue = append(m.queue, ch)
}

// sortQueue упорядочивает очередь по приоритету, при равенстве по порядку постановки
func (m *Manager) sortQueue() {
	sort.SliceStable(m.queue, func(i, j int) bool {
		a, b := m.queue[i], m.queue[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.seq < b.seq
	})
}

// Queue возвращает копию очереди в текущем порядке
func (m *Manager) Queue() []QueueEntry {
	out := make([]QueueEntry, len(m.queue))
	for i, ch := range m.queue {
		out[i] = QueueEntry{Coord: ch.coord, Priority: ch.priority}
	}
	return out
}

func (m *Manager) removeFromQueue(ch *Chunk) {
	for i, q := range m.queue {
		if q == ch {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

func (m *Manager) removeFromDirty(ch *Chunk) {
	for i, d := range m.dirty {
		if d == ch {
			m.dirty = append(m.dirty[:i], m.dirty[i+1:]...)
			return
		}
	}
}

// Materialize строит меш чанка и загружает его в бэкенд. Старый меш
// освобождается до выделения нового. При ошибке выделения чанк, ещё не
// бывший загруженным, возвращается в очередь, а загруженный остаётся грязным.
func (m *Manager) Materialize(c vec.Vec3) error {
	if !m.InGrid(c) {
		return fmt.Errorf("чанк %v вне сетки", c)
	}
	ch, ok := m.chunks[c]
	if !ok {
		ch = m.newChunk(c)
	}
	wasLoaded := ch.state.IsLoaded()
	if ch.state == Queued {
		m.removeFromQueue(ch)
	}
	if ch.state == LoadedDirty {
		m.removeFromDirty(ch)
	}

	built := m.builder.Build(m.grid, ch.min, ch.max)

	// Старый буфер освобождается до выделения, чтобы перестройка того же
	// размера помещалась в заполненный бэкенд. Если новый не выделится,
	// чанк остаётся грязным без меша до следующей попытки.
	if ch.handle != nil {
		m.backend.Free(ch.handle)
		ch.handle = nil
	}

	if !built.Empty() {
		h, err := m.backend.Allocate(built)
		if err != nil {
			m.stats.Failed++
			m.metrics.AllocationFailed()
			if wasLoaded {
				ch.state = LoadedDirty
				m.dirty = append(m.dirty, ch)
			} else {
				m.push(ch, ch.priority)
			}
			if !errors.Is(err, mesh.ErrMeshAllocation) {
				err = fmt.Errorf("%w: %w", mesh.ErrMeshAllocation, err)
			}
			return fmt.Errorf("чанк %v: %w", c, err)
		}
		ch.handle = h
	}

	ch.faces = built.Faces
	ch.state = LoadedClean
	if wasLoaded {
		m.stats.Rebuilt++
		m.metrics.ChunkRebuilt(built.Faces)
	} else {
		m.stats.Materialized++
		m.metrics.ChunkMaterialized(built.Faces)
		logging.LogChunkMaterialized(c.X, c.Y, c.Z, built.Faces)
	}
	return nil
}

// Evict освобождает меш и удаляет чанк из арены
func (m *Manager) Evict(c vec.Vec3) {
	ch, ok := m.chunks[c]
	if !ok {
		return
	}
	switch ch.state {
	case Queued:
		m.removeFromQueue(ch)
	case LoadedDirty:
		m.removeFromDirty(ch)
	}
	if ch.handle != nil {
		m.backend.Free(ch.handle)
		ch.handle = nil
	}
	wasLoaded := ch.state.IsLoaded()
	ch.state = Unloaded
	delete(m.chunks, c)
	if wasLoaded {
		m.stats.Evicted++
		m.metrics.ChunkEvicted()
	}
}

// RebuildDirty перестраивает до max грязных чанков в порядке пометки.
// max <= 0 означает все. Ошибки отдельных чанков не прерывают проход.
func (m *Manager) RebuildDirty(max int) (int, error) {
	n := len(m.dirty)
	if max > 0 && max < n {
		n = max
	}
	batch := make([]*Chunk, n)
	copy(batch, m.dirty[:n])

	var errs []error
	rebuilt := 0
	for _, ch := range batch {
		if err := m.Materialize(ch.coord); err != nil {
			errs = append(errs, err)
			continue
		}
		rebuilt++
	}
	return rebuilt, errors.Join(errs...)
}

// MarkDirty помечает загруженный чанк для перестройки. Повторная пометка ничего не меняет.
func (m *Manager) MarkDirty(c vec.Vec3) {
	ch, ok := m.chunks[c]
	if !ok || ch.state != LoadedClean {
		return
	}
	ch.state = LoadedDirty
	m.dirty = append(m.dirty, ch)
}

// OnBlockChanged помечает чанк блока и соседние по граням чанки,
// если блок лежит на границе
func (m *Manager) OnBlockChanged(x, y, z int) {
	c := m.ChunkCoordOf(x, y, z)
	m.MarkDirty(c)

	local := vec.Vec3{X: x, Y: y, Z: z}.LocalInChunk(m.size)
	last := m.size - 1
	if local.X == 0 {
		m.MarkDirty(c.Add(vec.Vec3{X: -1}))
	}
	if local.X == last {
		m.MarkDirty(c.Add(vec.Vec3{X: 1}))
	}
	if local.Y == 0 {
		m.MarkDirty(c.Add(vec.Vec3{Y: -1}))
	}
	if local.Y == last {
		m.MarkDirty(c.Add(vec.Vec3{Y: 1}))
	}
	if local.Z == 0 {
		m.MarkDirty(c.Add(vec.Vec3{Z: -1}))
	}
	if local.Z == last {
		m.MarkDirty(c.Add(vec.Vec3{Z: 1}))
	}
}

// OnLightChanged помечает чанк, содержащий ячейку
func (m *Manager) OnLightChanged(x, y, z int) {
	m.MarkDirty(m.ChunkCoordOf(x, y, z))
}

// Loaded возвращает загруженные чанки в детерминированном порядке (x, y, z)
func (m *Manager) Loaded() []*Chunk {
	out := make([]*Chunk, 0, len(m.chunks))
	for _, ch := range m.chunks {
		if ch.state.IsLoaded() {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].coord, out[j].coord
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

// Stats возвращает снимок счётчиков арены
func (m *Manager) Stats() ManagerStats {
	s := m.stats
	s.Queued = len(m.queue)
	s.Dirty = len(m.dirty)
	for _, ch := range m.chunks {
		if ch.state.IsLoaded() {
			s.Loaded++
			s.Faces += ch.faces
		}
	}
	return s
}

// Close освобождает все меши и очищает арену
func (m *Manager) Close() {
	for c, ch := range m.chunks {
		if ch.handle != nil {
			m.backend.Free(ch.handle)
			ch.handle = nil
		}
		ch.state = Unloaded
		delete(m.chunks, c)
	}
	m.queue = nil
	m.dirty = nil
	m.grid.SetListener(nil)
}
