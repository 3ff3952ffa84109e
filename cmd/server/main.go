package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/blockworld/internal/api"
	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/engine"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/mesh"
	"github.com/annel0/blockworld/internal/metrics"
	"github.com/annel0/blockworld/internal/observability"
	"github.com/annel0/blockworld/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или BLOCKWORLD_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()
	logging.SetDefaultLevel(logging.ParseLevel(cfg.LogLevel))

	logging.Info("🌍 Запуск Blockworld: мир %dx%dx%d, чанк %d, %d кадров/с",
		cfg.World.SizeX, cfg.World.SizeY, cfg.World.SizeZ, cfg.World.ChunkSize, cfg.Stream.FrameRate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ OpenTelemetry не запущен: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ХРАНИЛИЩЕ И МИР ===
	store, err := storage.NewWorldStorage(cfg.Storage.DataPath)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}

	streamMetrics := metrics.NewStreamMetrics(nil)
	backend := mesh.NewMemoryBackend(cfg.Stream.MeshCapacity)

	eng, err := openOrGenerate(ctx, cfg, store, backend, streamMetrics)
	if err != nil {
		log.Fatalf("❌ Ошибка подготовки мира: %v", err)
	}
	info := eng.Info()
	logging.Info("✅ Мир готов: seed=%d, спаун (%d,%d,%d), плоский=%v",
		info.Seed, info.Spawn.X, info.Spawn.Y, info.Spawn.Z, info.Fallback)

	// === КАДРОВЫЙ ЦИКЛ ===
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runFrames(ctx, eng, cfg.Stream.FrameRate)
	}()

	// === REST API ===
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer := api.NewRestServer(api.Config{
		Port:        restPort,
		Engine:      eng,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err := restServer.Start(); err != nil {
		log.Fatalf("❌ Ошибка запуска REST API: %v", err)
	}

	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()

	if err := restServer.Stop(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	cancel()
	wg.Wait()

	storageLog := logging.GetStorageLogger()
	if meta, err := eng.Save(stopCtx); err != nil {
		storageLog.Error("❌ Финальное сохранение не удалось: %v", err)
	} else {
		storageLog.Info("💾 Мир %s сохранён (%d байт на диске)", meta.ID, meta.StoredSize)
	}

	eng.Close()
	if err := store.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия хранилища: %v", err)
	}
	if err := shutdownTelemetry(stopCtx); err != nil {
		logging.Warn("⚠️ Ошибка остановки OpenTelemetry: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// openOrGenerate восстанавливает мир storage.world_id или генерирует новый
func openOrGenerate(ctx context.Context, cfg *config.Config, store *storage.WorldStorage, backend mesh.Backend, sm *metrics.StreamMetrics) (*engine.Engine, error) {
	id := cfg.Storage.WorldID
	if id != "" {
		eng, err := engine.Open(ctx, cfg, store, id, backend, sm)
		if err == nil {
			logging.Info("📂 Мир %s загружен из хранилища", id)
			return eng, nil
		}
		if !errors.Is(err, storage.ErrWorldNotFound) {
			return nil, err
		}
		logging.Warn("⚠️ Мир %s не найден, генерируем новый", id)
	}

	eng, err := engine.New(ctx, cfg, backend, sm)
	if err != nil {
		return nil, err
	}
	eng.AttachStorage(store, storage.WorldMeta{ID: id, Name: "world", Seed: cfg.World.Generator.Seed})
	return eng, nil
}

// runFrames крутит кадры подгрузки с фиксированной частотой до отмены ctx
func runFrames(ctx context.Context, eng *engine.Engine, frameRate int) {
	streamLog := logging.GetStreamLogger()
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fs, err := eng.Tick(ctx)
			if err != nil {
				streamLog.Warn("⚠️ Кадр с ошибками: %v", err)
				continue
			}
			if fs.Loaded > 0 || fs.Evicted > 0 {
				streamLog.Debug("Кадр: +%d -%d ↻%d, в очереди %d, загружено %d (%s)",
					fs.Loaded, fs.Evicted, fs.Rebuilt, fs.Queued, fs.Resident, fs.Duration)
			}
		}
	}
}
