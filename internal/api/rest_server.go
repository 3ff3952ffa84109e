package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/blockworld/internal/engine"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/metrics"
	"github.com/annel0/blockworld/internal/middleware"
	"github.com/annel0/blockworld/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет административный REST API мира
type RestServer struct {
	router     *gin.Engine
	engine     *engine.Engine
	port       string
	metrics    *ServerMetrics
	httpServer *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string                // порт для запуска сервера, например ":8088"
	Engine      *engine.Engine        // движок мира
	ServiceName string                // имя сервиса для трейсинга и метрик
	Registerer  prometheus.Registerer // nil: дефолтный регистр
	Gatherer    prometheus.Gatherer   // nil: дефолтный регистр
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BlockRequest описывает тело PUT /api/world/blocks/:x/:y/:z. Задаётся id или name.
type BlockRequest struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

// BlockResponse описывает ячейку мира
type BlockResponse struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Z            int    `json:"z"`
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ColumnHeight int    `json:"column_height"`
	Lit          bool   `json:"lit"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "blockworld"
	}

	// Устанавливаем режим релиза для gin, если тесты не выбрали свой
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))

	loggerMw := middleware.NewRequestLogger("/health", "/metrics", "/api/camera")
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", config.Registerer)
	router.Use(promMw.Handler())
	router.GET("/metrics", gin.WrapH(metrics.Handler(config.Gatherer)))

	server := &RestServer{
		router:  router,
		engine:  config.Engine,
		port:    config.Port,
		metrics: NewServerMetrics(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/world", rs.handleWorldInfo)
		api.GET("/world/export", rs.handleExport)
		api.POST("/world/save", rs.handleSave)
		api.GET("/world/blocks/:x/:y/:z", rs.handleGetBlock)
		api.PUT("/world/blocks/:x/:y/:z", rs.handleSetBlock)

		api.GET("/camera", rs.handleGetCamera)
		api.PUT("/camera", rs.handleSetCamera)

		api.GET("/chunks/visible", rs.handleVisibleChunks)
		api.GET("/chunks/queue", rs.handleQueue)

		api.GET("/stats", rs.handleStats)
	}
}

// Handler возвращает http.Handler роутера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, GenericResponse{Success: false, Message: msg})
}

// parseCoords разбирает :x/:y/:z
func parseCoords(c *gin.Context) (x, y, z int, err error) {
	vals := [3]int{}
	for i, name := range [3]string{"x", "y", "z"} {
		v, convErr := strconv.Atoi(c.Param(name))
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("координата %s не число: %q", name, c.Param(name))
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"time":      time.Now().Unix(),
		"memory_mb": fmt.Sprintf("%.1f", rs.metrics.GetMemoryUsage()),
	})
}

func (rs *RestServer) handleWorldInfo(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о мире",
		Data:    rs.engine.Info(),
	})
}

// handleExport отдаёт мир в сетевом текстовом формате
func (rs *RestServer) handleExport(c *gin.Context) {
	info := rs.engine.Info()
	c.Header("X-World-Size", fmt.Sprintf("%dx%dx%d", info.SizeX, info.SizeY, info.SizeZ))
	c.String(http.StatusOK, rs.engine.Export())
}

func (rs *RestServer) handleSave(c *gin.Context) {
	meta, err := rs.engine.Save(c.Request.Context())
	if errors.Is(err, engine.ErrNoStorage) {
		respondError(c, http.StatusServiceUnavailable, "Хранилище не подключено")
		return
	}
	if err != nil {
		logging.Error("❌ Сохранение мира: %v", err)
		respondError(c, http.StatusInternalServerError, "Не удалось сохранить мир")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сохранён",
		Data:    meta,
	})
}

func (rs *RestServer) blockResponse(x, y, z int) BlockResponse {
	id := rs.engine.GetBlock(x, y, z)
	h := rs.engine.ColumnHeight(x, y)
	return BlockResponse{
		X: x, Y: y, Z: z,
		ID:           int(id),
		Name:         id.Name(),
		ColumnHeight: h,
		Lit:          id.IsSelfLit() || z >= h,
	}
}

func (rs *RestServer) handleGetBlock(c *gin.Context) {
	x, y, z, err := parseCoords(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	resp := rs.blockResponse(x, y, z)
	if block.ID(resp.ID) == block.None {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Координаты вне мира", Data: resp})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок", Data: resp})
}

func (rs *RestServer) handleSetBlock(c *gin.Context) {
	x, y, z, err := parseCoords(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}

	var id block.ID
	switch {
	case req.ID != nil:
		if *req.ID < 0 || *req.ID > 255 || !block.ID(*req.ID).Valid() {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("Неизвестный тип блока: %d", *req.ID))
			return
		}
		id = block.ID(*req.ID)
	case req.Name != "":
		var ok bool
		if id, ok = block.ByName(req.Name); !ok {
			respondError(c, http.StatusBadRequest, "Неизвестный тип блока: "+req.Name)
			return
		}
	default:
		respondError(c, http.StatusBadRequest, "Нужно указать id или name")
		return
	}

	if !rs.engine.SetBlock(x, y, z, id) {
		respondError(c, http.StatusNotFound, "Координаты вне мира")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок изменён", Data: rs.blockResponse(x, y, z)})
}

func (rs *RestServer) handleGetCamera(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Камера", Data: rs.engine.Camera()})
}

func (rs *RestServer) handleSetCamera(c *gin.Context) {
	cam := rs.engine.Camera()
	if err := c.ShouldBindJSON(&cam); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат камеры: "+err.Error())
		return
	}
	rs.engine.SetCamera(cam)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Камера обновлена", Data: rs.engine.Camera()})
}

func (rs *RestServer) handleVisibleChunks(c *gin.Context) {
	items := rs.engine.DrawList(rs.engine.Camera())
	vertices := 0
	for _, it := range items {
		vertices += it.Vertices
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Видимые чанки",
		Data: gin.H{
			"chunks":   items,
			"total":    len(items),
			"vertices": vertices,
		},
	})
}

func (rs *RestServer) handleQueue(c *gin.Context) {
	q := rs.engine.Queue()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Очередь загрузки",
		Data:    gin.H{"queue": q, "total": len(q)},
	})
}

func (rs *RestServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика сервера",
		Data: gin.H{
			"engine": rs.engine.Stats(),
			"server": rs.metrics.Snapshot(),
		},
	})
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.GetAPILogger().Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	logging.Info("✅ REST API сервер запущен на http://localhost%s", rs.port)
	return nil
}

// Stop останавливает сервер, дожидаясь завершения текущих запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rs.httpServer.Shutdown(ctx); err != nil {
		logging.Error("❌ Ошибка при остановке HTTP сервера: %v", err)
		return err
	}
	logging.Info("✅ REST API сервер остановлен")
	return nil
}
