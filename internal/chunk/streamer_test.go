package chunk

import (
	"errors"
	"testing"

	"github.com/annel0/blockworld/internal/camera"
	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/mesh"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStreamConfig() StreamConfig {
	return StreamConfig{
		LoadDistance:        3,
		UnloadDistance:      5,
		MaxChunksPerFrame:   4,
		MaxRebuildsPerFrame: 4,
		ViewBonus:           1.5,
	}
}

// newTestStreamer: мир 128x128x64 блоков, чанки по 16, то есть 8x8x4 чанка по осям
func newTestStreamer(t *testing.T, cfg StreamConfig, capacity int) (*Streamer, *Manager, *mesh.MemoryBackend) {
	t.Helper()
	g := flatWorld(t, 128, 128, 64)
	b := mesh.NewMemoryBackend(capacity)
	m := NewManager(g, nil, b, 16)
	s, err := NewStreamer(m, cfg, nil)
	require.NoError(t, err)
	return s, m, b
}

// inRange перечисляет чанки сетки в радиусе r от центра
func inRange(m *Manager, center vec.Vec3, r float64) []vec.Vec3 {
	var out []vec.Vec3
	n := m.GridChunks()
	for x := 0; x < n.X; x++ {
		for y := 0; y < n.Y; y++ {
			for z := 0; z < n.Z; z++ {
				c := vec.Vec3{X: x, Y: y, Z: z}
				if center.DistanceTo(c) <= r {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func TestNewStreamer_RequiresHysteresis(t *testing.T) {
	cfg := testStreamConfig()
	cfg.UnloadDistance = cfg.LoadDistance
	g := flatWorld(t, 32, 32, 32)
	_, err := NewStreamer(NewManager(g, nil, nil, 16), cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestStreamer_FirstPassFromOrigin(t *testing.T) {
	s, m, _ := newTestStreamer(t, testStreamConfig(), 0)
	cam := camera.New(mgl32.Vec3{0, 0, 0})

	fs, err := s.Update(cam)
	require.NoError(t, err)

	want := inRange(m, vec.Vec3{}, 3)
	assert.Equal(t, len(want), fs.Enqueued)
	assert.Equal(t, 4, fs.Loaded, "не больше MaxChunksPerFrame за кадр")
	assert.Equal(t, len(want)-4, fs.Queued)

	for _, c := range want {
		st := m.State(c)
		assert.True(t, st == Queued || st.IsLoaded(), "чанк %v в состоянии %s", c, st)
	}
	assert.Equal(t, Unloaded, m.State(vec.Vec3{X: 4}), "за радиусом загрузки")
	assert.Equal(t, Unloaded, m.State(vec.Vec3{X: 2, Y: 2, Z: 2}))
}

func TestStreamer_ViewDirectionPriority(t *testing.T) {
	s, m, _ := newTestStreamer(t, testStreamConfig(), 0)
	cam := camera.New(mgl32.Vec3{0, 0, 0}) // взгляд вдоль +X

	_, err := s.Update(cam)
	require.NoError(t, err)

	for _, c := range []vec.Vec3{{X: 1}, {}, {X: 1, Y: 1}, {X: 1, Z: 1}} {
		assert.True(t, m.State(c).IsLoaded(), "чанк %v должен загрузиться первым", c)
	}
	assert.Equal(t, Queued, m.State(vec.Vec3{X: 2}))

	q := s.Queue()
	for i := 1; i < len(q); i++ {
		assert.LessOrEqual(t, q[i-1].Priority, q[i].Priority, "очередь упорядочена")
	}
}

func TestStreamer_DrainsQueueWithinCap(t *testing.T) {
	s, m, _ := newTestStreamer(t, testStreamConfig(), 0)
	cam := camera.New(mgl32.Vec3{8, 8, 8})
	want := inRange(m, vec.Vec3{}, 3)

	frames := 0
	for len(s.Queue()) > 0 || frames == 0 {
		fs, err := s.Update(cam)
		require.NoError(t, err)
		assert.LessOrEqual(t, fs.Loaded, 4)
		frames++
		require.Less(t, frames, 100)
	}
	assert.Equal(t, (len(want)+3)/4, frames)
	assert.Len(t, m.Loaded(), len(want))
}

func TestStreamer_UnloadBeyondHysteresis(t *testing.T) {
	s, m, b := newTestStreamer(t, testStreamConfig(), 0)
	cam := camera.New(mgl32.Vec3{8, 8, 8})
	for i := 0; i < 20; i++ {
		_, err := s.Update(cam)
		require.NoError(t, err)
	}
	require.NotEmpty(t, m.Loaded())

	// Шаг на один чанк: чанки на расстоянии 4 остаются (гистерезис)
	cam.Position = mgl32.Vec3{24, 8, 8}
	fs, err := s.Update(cam)
	require.NoError(t, err)
	assert.Zero(t, fs.Evicted)

	// Прыжок в дальний угол
	cam.Position = mgl32.Vec3{127, 127, 63}
	fs, err = s.Update(cam)
	require.NoError(t, err)
	assert.Greater(t, fs.Evicted, 0)

	center := s.CameraChunk(cam)
	for _, ch := range m.Loaded() {
		assert.LessOrEqual(t, center.DistanceTo(ch.Coord()), 5.0, "чанк %v пережил выгрузку", ch.Coord())
	}
	for _, e := range s.Queue() {
		assert.LessOrEqual(t, center.DistanceTo(e.Coord), 5.0)
	}

	resident := 0
	for _, ch := range m.Loaded() {
		if ch.Handle() != nil {
			resident++
		}
	}
	assert.Equal(t, resident, b.Stats().Live, "выгруженные меши освобождены")
}

func TestStreamer_AllocationFailureDoesNotAbortPass(t *testing.T) {
	s, m, _ := newTestStreamer(t, testStreamConfig(), 1)
	cam := camera.New(mgl32.Vec3{8, 8, 24}) // чанк (0,0,1), над землёй

	fs, err := s.Update(cam)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mesh.ErrMeshAllocation))
	assert.Greater(t, fs.Failed, 0)
	assert.Equal(t, 4, fs.Loaded+fs.Failed, "проход дошёл до конца пачки")

	// Чанк с землёй вернулся в очередь, пустые загрузились
	assert.Equal(t, Queued, m.State(vec.Vec3{X: 1}))
	assert.True(t, m.State(vec.Vec3{X: 1, Z: 1}).IsLoaded())
}

func TestStreamer_RebuildCap(t *testing.T) {
	cfg := testStreamConfig()
	cfg.MaxRebuildsPerFrame = 2
	s, m, _ := newTestStreamer(t, cfg, 0)
	cam := camera.New(mgl32.Vec3{8, 8, 8})
	for len(s.Queue()) > 0 || len(m.Loaded()) == 0 {
		_, err := s.Update(cam)
		require.NoError(t, err)
	}

	loaded := m.Loaded()
	require.GreaterOrEqual(t, len(loaded), 5)
	for _, ch := range loaded[:5] {
		m.MarkDirty(ch.Coord())
	}

	fs, err := s.Update(cam)
	require.NoError(t, err)
	assert.Equal(t, 2, fs.Rebuilt)
	assert.Equal(t, 3, m.Stats().Dirty)
}

func TestStreamer_CameraMoveRefreshesQueue(t *testing.T) {
	cfg := testStreamConfig()
	cfg.MaxChunksPerFrame = 1
	s, m, _ := newTestStreamer(t, cfg, 0)

	cam := camera.New(mgl32.Vec3{8, 8, 8}) // чанк (0,0,0), взгляд вдоль +X
	_, err := s.Update(cam)
	require.NoError(t, err)
	require.Equal(t, Queued, m.State(vec.Vec3{}), "свой чанк ещё ждёт в очереди")

	cam.Position = mgl32.Vec3{72, 8, 8} // чанк (4,0,0)
	fs, err := s.Update(cam)
	require.NoError(t, err)

	center := vec.Vec3{X: 4}
	require.Equal(t, center, s.CameraChunk(cam))
	assert.True(t, m.State(vec.Vec3{X: 5}).IsLoaded(), "первым грузится чанк перед камерой")
	assert.True(t, m.State(vec.Vec3{X: 1}).IsLoaded(), "загруженный чанк держится до радиуса выгрузки")
	assert.Equal(t, Unloaded, m.State(vec.Vec3{}), "старый чанк за радиусом загрузки снят с очереди")
	assert.Greater(t, fs.Dropped, 0)

	q := s.Queue()
	require.NotEmpty(t, q)
	assert.Equal(t, center, q[0].Coord, "чанк камеры во главе очереди")
	for i, e := range q {
		assert.LessOrEqual(t, center.DistanceTo(e.Coord), cfg.LoadDistance, "чанк %v в очереди вне радиуса", e.Coord)
		dist, prio := s.priority(cam.Forward(), center, e.Coord)
		assert.LessOrEqual(t, dist, cfg.LoadDistance)
		assert.InDelta(t, prio, e.Priority, 1e-9, "приоритет %v посчитан от новой камеры", e.Coord)
		if i > 0 {
			assert.LessOrEqual(t, q[i-1].Priority, e.Priority)
		}
	}
}
