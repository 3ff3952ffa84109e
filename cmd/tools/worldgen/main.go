package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/world"
	"github.com/annel0/blockworld/internal/world/block"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML конфигурация (размеры и генератор)")
		sx         = flag.Int("sx", 0, "размер по X (0: из конфигурации)")
		sy         = flag.Int("sy", 0, "размер по Y (0: из конфигурации)")
		sz         = flag.Int("sz", 0, "размер по Z (0: из конфигурации)")
		seed       = flag.Int64("seed", 0, "seed генератора (0: из конфигурации)")
		outPath    = flag.String("out", "", "записать сетку сетевой строкой в файл")
		dbPath     = flag.String("db", "", "сохранить мир в хранилище badger по этому пути")
		name       = flag.String("name", "world", "имя мира в хранилище")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}
	if *sx > 0 {
		cfg.World.SizeX = *sx
	}
	if *sy > 0 {
		cfg.World.SizeY = *sy
	}
	if *sz > 0 {
		cfg.World.SizeZ = *sz
	}
	if *seed != 0 {
		cfg.World.Generator.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	logging.SetDefaultLevel(logging.ParseLevel(cfg.LogLevel))
	defer logging.GetLoggerManager().CloseAll()

	worldLog := logging.GetWorldLogger()

	g, err := world.NewGrid(cfg.World.SizeX, cfg.World.SizeY, cfg.World.SizeZ)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	stats := world.NewGenerator(cfg.World.Generator).Populate(g)
	elapsed := time.Since(start)
	worldLog.Info("🌍 Мир %dx%dx%d сгенерирован за %s (seed=%d)",
		cfg.World.SizeX, cfg.World.SizeY, cfg.World.SizeZ, elapsed, cfg.World.Generator.Seed)

	printSummary(g, stats, elapsed)

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(g.ToNetworkString()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Ошибка записи %s: %v\n", *outPath, err)
			os.Exit(1)
		}
		fmt.Printf("📝 Сетевая строка записана в %s\n", *outPath)
	}

	if *dbPath != "" {
		if err := saveToStorage(*dbPath, *name, cfg.World.Generator.Seed, g, stats); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
	}
}

func printSummary(g *world.Grid, stats world.GenerationStats, elapsed time.Duration) {
	sx, sy, sz := g.Dimensions()
	fmt.Printf("Мир %dx%dx%d (%d ячеек), %s\n", sx, sy, sz, g.Volume(), elapsed)
	if stats.Fallback {
		fmt.Println("⚠️  Генерация не удалась, использован плоский мир")
	}
	fmt.Printf("Спаун: (%d, %d, %d)\n", stats.SpawnPoint.X, stats.SpawnPoint.Y, stats.SpawnPoint.Z)
	fmt.Printf("Деревьев: %d, ячеек пещер: %d\n", stats.Trees, stats.CaveCells)

	for _, id := range block.All() {
		if n := g.Count(id); n > 0 {
			fmt.Printf("  %-10s %8d  %5.1f%%\n", id.Name(), n, 100*float64(n)/float64(g.Volume()))
		}
	}
}

func saveToStorage(path, name string, seed int64, g *world.Grid, stats world.GenerationStats) error {
	store, err := storage.NewWorldStorage(path)
	if err != nil {
		return fmt.Errorf("не удалось открыть хранилище: %w", err)
	}
	defer store.Close()

	meta := &storage.WorldMeta{Name: name, Seed: seed, Fallback: stats.Fallback}
	if err := store.SaveWorld(meta, g); err != nil {
		return fmt.Errorf("не удалось сохранить мир: %w", err)
	}
	fmt.Printf("💾 Мир %s сохранён: %d → %d байт\n", meta.ID, meta.RawSize, meta.StoredSize)
	return nil
}
