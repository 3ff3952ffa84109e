package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig возвращается Validate при некорректных значениях
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Stream    StreamConfig    `yaml:"stream"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level"`
}

// WorldConfig содержит размеры сетки и параметры генератора
type WorldConfig struct {
	SizeX     int             `yaml:"size_x"`
	SizeY     int             `yaml:"size_y"`
	SizeZ     int             `yaml:"size_z"`
	ChunkSize int             `yaml:"chunk_size"`
	Generator GeneratorConfig `yaml:"generator"`
}

// GeneratorConfig содержит параметры процедурной генерации ландшафта
type GeneratorConfig struct {
	Seed        int64   `yaml:"seed"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Scale       float64 `yaml:"scale"`     // делитель координат для шума высот
	Amplitude   float64 `yaml:"amplitude"` // размах высот в блоках
	BaseLevel   int     `yaml:"base_level"`
	WaterLevel  int     `yaml:"water_level"`

	CaveThreshold      float64 `yaml:"cave_threshold"`
	CaveThresholdSlope float64 `yaml:"cave_threshold_slope"`
	CaveCavityMargin   float64 `yaml:"cave_cavity_margin"`

	TreeChance float64 `yaml:"tree_chance"`
	TrunkMin   int     `yaml:"trunk_min"`
	TrunkMax   int     `yaml:"trunk_max"`

	PlatformRadius int `yaml:"platform_radius"`
	FlatHeight     int `yaml:"flat_height"` // высота плоского мира при откате
}

// StreamConfig содержит параметры подгрузки чанков
type StreamConfig struct {
	LoadDistance        float64 `yaml:"load_distance"`
	UnloadDistance      float64 `yaml:"unload_distance"`
	MaxChunksPerFrame   int     `yaml:"max_chunks_per_frame"`
	MaxRebuildsPerFrame int     `yaml:"max_rebuilds_per_frame"`
	ViewBonus           float64 `yaml:"view_bonus"`
	FrameRate           int     `yaml:"frame_rate"` // частота кадров серверного цикла
	MeshCapacity        int     `yaml:"mesh_capacity"`
}

// StorageConfig описывает хранилище мира
type StorageConfig struct {
	DataPath string `yaml:"data_path"`
	WorldID  string `yaml:"world_id"` // пустой ID: сгенерировать новый мир
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			SizeX:     128,
			SizeY:     128,
			SizeZ:     64,
			ChunkSize: 16,
			Generator: DefaultGenerator(),
		},
		Stream: StreamConfig{
			LoadDistance:        3,
			UnloadDistance:      5,
			MaxChunksPerFrame:   4,
			MaxRebuildsPerFrame: 4,
			ViewBonus:           1.5,
			FrameRate:           20,
		},
		Storage: StorageConfig{
			DataPath: "data",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "blockworld",
		},
		LogLevel: "info",
	}
}

// DefaultGenerator возвращает параметры генератора по умолчанию
func DefaultGenerator() GeneratorConfig {
	return GeneratorConfig{
		Seed:               1337,
		Octaves:            4,
		Persistence:        0.5,
		Scale:              48,
		Amplitude:          10,
		BaseLevel:          24,
		WaterLevel:         20,
		CaveThreshold:      0.35,
		CaveThresholdSlope: 0.4,
		CaveCavityMargin:   0.15,
		TreeChance:         0.02,
		TrunkMin:           4,
		TrunkMax:           6,
		PlatformRadius:     2,
		FlatHeight:         8,
	}
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	w := c.World
	for _, d := range []int{w.SizeX, w.SizeY, w.SizeZ} {
		if d <= 0 || d > 254 {
			return fmt.Errorf("%w: world size %dx%dx%d out of range 1..254", ErrInvalidConfig, w.SizeX, w.SizeY, w.SizeZ)
		}
	}
	if w.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	}
	s := c.Stream
	if s.LoadDistance < 0 || s.UnloadDistance <= s.LoadDistance {
		return fmt.Errorf("%w: unload_distance (%.1f) must exceed load_distance (%.1f)", ErrInvalidConfig, s.UnloadDistance, s.LoadDistance)
	}
	if s.MaxChunksPerFrame <= 0 || s.MaxRebuildsPerFrame <= 0 {
		return fmt.Errorf("%w: per-frame caps must be positive", ErrInvalidConfig)
	}
	if s.FrameRate <= 0 {
		return fmt.Errorf("%w: frame_rate must be positive", ErrInvalidConfig)
	}
	return nil
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BLOCKWORLD_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV BLOCKWORLD_CONFIG; если и там пусто —
// возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("BLOCKWORLD_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
