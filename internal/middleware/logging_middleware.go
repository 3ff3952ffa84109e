package middleware

import (
	"time"

	"github.com/annel0/blockworld/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader содержит trace-ID запроса в ответе
const TraceHeader = "X-Trace-ID"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
// Частые запросы (камера, health) пишутся на уровне Debug.
type RequestLogger struct {
	quiet map[string]bool
}

func NewRequestLogger(quietPaths ...string) *RequestLogger {
	q := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		q[p] = true
	}
	return &RequestLogger{quiet: q}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Пытаемся извлечь trace-id из OpenTelemetry, если уже создан.
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if rl.quiet[path] && status < 400 {
			logging.Debug("[HTTP] %s %s %d %s trace=%s", method, path, status, latency, traceID)
			return
		}
		logging.Info("[HTTP] %s %s %d %s ip=%s trace=%s", method, path, status, latency, c.ClientIP(), traceID)
	}
}
