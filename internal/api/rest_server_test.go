package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/engine"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*RestServer, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.World.SizeX, cfg.World.SizeY, cfg.World.SizeZ = 48, 48, 32
	cfg.World.Generator.BaseLevel = 14
	cfg.World.Generator.WaterLevel = 10
	cfg.World.Generator.Amplitude = 6

	e, err := engine.New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{Engine: e, Registerer: reg, Gatherer: reg})
	return rs, e
}

func do(t *testing.T, rs *RestServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) GenericResponse {
	t.Helper()
	var resp GenericResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rs, _ := newTestServer(t)
	rec := do(t, rs, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestWorldInfo(t *testing.T) {
	rs, e := newTestServer(t)
	rec := do(t, rs, http.MethodGet, "/api/world", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(48), data["size_x"])
	assert.Equal(t, float64(e.Info().Spawn.Z), data["spawn"].(map[string]interface{})["z"])
}

func TestBlocks_GetAndSet(t *testing.T) {
	rs, e := newTestServer(t)

	rec := do(t, rs, http.MethodPut, "/api/world/blocks/1/2/30", map[string]interface{}{"name": "lamp"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, block.Lamp, e.GetBlock(1, 2, 30))

	rec = do(t, rs, http.MethodGet, "/api/world/blocks/1/2/30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec).Data.(map[string]interface{})
	assert.Equal(t, "lamp", data["name"])
	assert.Equal(t, true, data["lit"])

	rec = do(t, rs, http.MethodPut, "/api/world/blocks/1/2/30", map[string]interface{}{"id": int(block.Air)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, block.Air, e.GetBlock(1, 2, 30))
}

func TestBlocks_Errors(t *testing.T) {
	rs, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, rs, http.MethodGet, "/api/world/blocks/a/0/0", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, rs, http.MethodGet, "/api/world/blocks/0/0/99", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, rs, http.MethodPut, "/api/world/blocks/-1/0/0", map[string]interface{}{"name": "rock"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, rs, http.MethodPut, "/api/world/blocks/0/0/0", map[string]interface{}{"id": 200}).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, rs, http.MethodPut, "/api/world/blocks/0/0/0", map[string]interface{}{"name": "diamond"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, rs, http.MethodPut, "/api/world/blocks/0/0/0", map[string]interface{}{}).Code)
}

func TestExport(t *testing.T) {
	rs, e := newTestServer(t)
	rec := do(t, rs, http.MethodGet, "/api/world/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "48x48x32", rec.Header().Get("X-World-Size"))
	assert.Equal(t, e.Export(), rec.Body.String())
}

func TestCameraAndVisibleChunks(t *testing.T) {
	rs, e := newTestServer(t)

	rec := do(t, rs, http.MethodPut, "/api/camera", map[string]interface{}{
		"position": []float32{24, 24, 20},
		"pitch":    -45,
		"yaw":      30,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cam := e.Camera()
	assert.Equal(t, float32(-45), cam.Pitch)
	assert.Equal(t, float32(70), cam.FovY, "остальные поля сохраняются")

	for i := 0; i < 30; i++ {
		_, err := e.Tick(context.Background())
		require.NoError(t, err)
	}

	rec = do(t, rs, http.MethodGet, "/api/chunks/visible", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec).Data.(map[string]interface{})
	assert.Greater(t, data["total"], float64(0))
	assert.Greater(t, data["vertices"], float64(0))

	rec = do(t, rs, http.MethodGet, "/api/chunks/queue", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSave(t *testing.T) {
	rs, e := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, rs, http.MethodPost, "/api/world/save", nil).Code)

	ws, err := storage.NewInMemoryWorldStorage()
	require.NoError(t, err)
	defer ws.Close()
	e.AttachStorage(ws, storage.WorldMeta{Name: "api"})

	rec := do(t, rs, http.MethodPost, "/api/world/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode(t, rec).Data.(map[string]interface{})["id"].(string)

	worlds, err := ws.ListWorlds()
	require.NoError(t, err)
	require.Len(t, worlds, 1)
	assert.Equal(t, id, worlds[0].ID)
}

func TestStatsAndMetrics(t *testing.T) {
	rs, _ := newTestServer(t)

	rec := do(t, rs, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec).Data.(map[string]interface{})
	assert.Contains(t, data, "engine")
	assert.Contains(t, data, "server")

	rec = do(t, rs, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "rest_api_http_request_duration_seconds"))
}
