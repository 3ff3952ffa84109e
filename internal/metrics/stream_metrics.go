package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blockworld"

// StreamMetrics собирает Prometheus-метрики подгрузки чанков и построения мешей.
// Все методы безопасны для nil-получателя: метрики необязательны.
type StreamMetrics struct {
	queued   prometheus.Gauge
	loaded   prometheus.Gauge
	loads    prometheus.Counter
	evicted  prometheus.Counter
	rebuilt  prometheus.Counter
	failures prometheus.Counter
	edits    prometheus.Counter
	faces    prometheus.Histogram
	update   prometheus.Histogram
	generate prometheus.Histogram
}

// NewStreamMetrics создаёт метрики и регистрирует их в reg.
// nil означает глобальный регистр Prometheus.
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &StreamMetrics{
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunks_queued",
			Help:      "Чанков в очереди на загрузку.",
		}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunks_loaded",
			Help:      "Загруженных чанков (чистых и грязных).",
		}),
		loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunks_materialized_total",
			Help:      "Сколько раз чанк был построен из очереди.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunks_evicted_total",
			Help:      "Выгруженных чанков.",
		}),
		rebuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunks_rebuilt_total",
			Help:      "Перестроенных грязных чанков.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mesh",
			Name:      "allocation_failures_total",
			Help:      "Неудачных выделений буфера под меш.",
		}),
		edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "block_edits_total",
			Help:      "Изменений блоков, применённых к сетке.",
		}),
		faces: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mesh",
			Name:      "faces",
			Help:      "Количество граней в построенном меше чанка.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		update: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "update_duration_seconds",
			Help:      "Длительность одного прохода стримера.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		generate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "generation_duration_seconds",
			Help:      "Длительность генерации мира.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.queued, m.loaded, m.loads, m.evicted, m.rebuilt,
		m.failures, m.edits, m.faces, m.update, m.generate)
	return m
}

// SetQueue обновляет размеры очереди и множества загруженных чанков
func (m *StreamMetrics) SetQueue(queued, loaded int) {
	if m == nil {
		return
	}
	m.queued.Set(float64(queued))
	m.loaded.Set(float64(loaded))
}

// ChunkMaterialized учитывает построенный из очереди чанк
func (m *StreamMetrics) ChunkMaterialized(faces int) {
	if m == nil {
		return
	}
	m.loads.Inc()
	m.faces.Observe(float64(faces))
}

// ChunkRebuilt учитывает перестроенный грязный чанк
func (m *StreamMetrics) ChunkRebuilt(faces int) {
	if m == nil {
		return
	}
	m.rebuilt.Inc()
	m.faces.Observe(float64(faces))
}

func (m *StreamMetrics) ChunkEvicted() {
	if m == nil {
		return
	}
	m.evicted.Inc()
}

func (m *StreamMetrics) AllocationFailed() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *StreamMetrics) BlockEdited() {
	if m == nil {
		return
	}
	m.edits.Inc()
}

// ObserveUpdate записывает длительность прохода стримера
func (m *StreamMetrics) ObserveUpdate(d time.Duration) {
	if m == nil {
		return
	}
	m.update.Observe(d.Seconds())
}

// ObserveGeneration записывает длительность генерации мира
func (m *StreamMetrics) ObserveGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.generate.Observe(d.Seconds())
}

// Handler отдаёт метрики из g в формате Prometheus.
// nil означает глобальный регистр.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
