package mesh

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMeshAllocation возвращается, если бэкенд не смог выделить буфер под меш
var ErrMeshAllocation = errors.New("mesh allocation failed")

// Handle ссылается на выделенный бэкендом буфер вершин
type Handle interface {
	ID() uint64
	VertexCount() int
}

// Backend представляет внешний рендер, владеющий буферами вершин
type Backend interface {
	// Allocate загружает меш. Для пустого меша возвращает nil без ошибки.
	Allocate(m Mesh) (Handle, error)
	// Free освобождает буфер; nil и повторное освобождение игнорируются
	Free(h Handle)
}

// BackendStats содержит счётчики бэкенда в памяти
type BackendStats struct {
	Live        int    `json:"live"`
	Vertices    int    `json:"vertices"`
	Capacity    int    `json:"capacity"`
	Allocations uint64 `json:"allocations"`
	Frees       uint64 `json:"frees"`
	Failures    uint64 `json:"failures"`
}

type memoryBuffer struct {
	id       uint64
	vertices int
}

func (b *memoryBuffer) ID() uint64       { return b.id }
func (b *memoryBuffer) VertexCount() int { return b.vertices }

// MemoryBackend работает без GPU и только считает буферы и вершины.
// Используется сервером без рендера и в тестах.
type MemoryBackend struct {
	mu       sync.Mutex
	capacity int // в вершинах, 0 без ограничения
	used     int
	nextID   uint64
	live     map[uint64]int
	stats    BackendStats
}

// NewMemoryBackend создаёт бэкенд с ёмкостью capacity вершин; 0 снимает ограничение
func NewMemoryBackend(capacity int) *MemoryBackend {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryBackend{
		capacity: capacity,
		live:     make(map[uint64]int),
	}
}

// Allocate реализует Backend
func (mb *MemoryBackend) Allocate(m Mesh) (Handle, error) {
	if m.Empty() {
		return nil, nil
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	n := len(m.Vertices)
	if mb.capacity > 0 && mb.used+n > mb.capacity {
		mb.stats.Failures++
		return nil, fmt.Errorf("%w: нужно %d вершин, свободно %d", ErrMeshAllocation, n, mb.capacity-mb.used)
	}

	mb.nextID++
	mb.live[mb.nextID] = n
	mb.used += n
	mb.stats.Allocations++
	return &memoryBuffer{id: mb.nextID, vertices: n}, nil
}

// Free реализует Backend
func (mb *MemoryBackend) Free(h Handle) {
	if h == nil {
		return
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	n, ok := mb.live[h.ID()]
	if !ok {
		return
	}
	delete(mb.live, h.ID())
	mb.used -= n
	mb.stats.Frees++
}

// Stats возвращает снимок счётчиков
func (mb *MemoryBackend) Stats() BackendStats {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	s := mb.stats
	s.Live = len(mb.live)
	s.Vertices = mb.used
	s.Capacity = mb.capacity
	return s
}
