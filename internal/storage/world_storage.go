package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/annel0/blockworld/internal/logging"
	"github.com/annel0/blockworld/internal/vec"
	"github.com/annel0/blockworld/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrWorldNotFound: мира с таким ID нет в хранилище
	ErrWorldNotFound = errors.New("world not found")
	// ErrNotReady: хранилище закрыто
	ErrNotReady = errors.New("хранилище не готово")
)

const (
	metaPrefix = "world:meta:"
	gridPrefix = "world:grid:"
)

// WorldMeta описывает сохранённый мир
type WorldMeta struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SizeX      int       `json:"size_x"`
	SizeY      int       `json:"size_y"`
	SizeZ      int       `json:"size_z"`
	Seed       int64     `json:"seed"`
	Spawn      vec.Vec3  `json:"spawn"`
	Fallback   bool      `json:"fallback,omitempty"` // мир плоский после ошибки генерации
	RawSize    int       `json:"raw_size"`
	StoredSize int       `json:"stored_size"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WorldStorage хранит снимки сетки в BadgerDB. Сетка сохраняется
// в сетевом порядке ячеек и сжимается zstd.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// NewWorldStorage открывает хранилище в dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return open(opts, dbPath)
}

// NewInMemoryWorldStorage открывает хранилище без диска (для тестов и утилит)
func NewInMemoryWorldStorage() (*WorldStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, "")
}

func open(opts badger.Options, dbPath string) (*WorldStorage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		enc:     enc,
		dec:     dec,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.enc.Close()
	ws.dec.Close()
	return ws.db.Close()
}

// SaveWorld сохраняет сетку и метаданные одной транзакцией.
// Пустой meta.ID заменяется новым UUID; размеры и точка спауна берутся из сетки.
func (ws *WorldStorage) SaveWorld(meta *WorldMeta, g *world.Grid) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	now := time.Now().UTC()
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	meta.SizeX, meta.SizeY, meta.SizeZ = g.Dimensions()
	meta.Spawn = g.SpawnPoint()

	raw := g.Serialize()
	packed := ws.enc.EncodeAll(raw, make([]byte, 0, len(raw)/8))
	meta.RawSize = len(raw)
	meta.StoredSize = len(packed)

	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	err = ws.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(metaPrefix+meta.ID), metaData); err != nil {
			return err
		}
		return txn.Set([]byte(gridPrefix+meta.ID), packed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	logging.Debug("💾 Мир %s сохранён: %d -> %d байт", meta.ID, meta.RawSize, meta.StoredSize)
	return nil
}

// LoadWorld восстанавливает сетку по ID
func (ws *WorldStorage) LoadWorld(id string) (WorldMeta, *world.Grid, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	var meta WorldMeta
	if !ws.isReady {
		return meta, nil, ErrNotReady
	}

	var packed []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaPrefix + id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte(gridPrefix + id))
		if err != nil {
			return err
		}
		packed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return meta, nil, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	if err != nil {
		return meta, nil, fmt.Errorf("ошибка загрузки из BadgerDB: %w", err)
	}

	raw, err := ws.dec.DecodeAll(packed, make([]byte, 0, meta.RawSize))
	if err != nil {
		return meta, nil, fmt.Errorf("ошибка распаковки сетки: %w", err)
	}

	g, err := world.Deserialize(meta.SizeX, meta.SizeY, meta.SizeZ, raw)
	if err != nil {
		return meta, nil, fmt.Errorf("мир %s повреждён: %w", id, err)
	}
	g.SetSpawnPoint(meta.Spawn)
	return meta, g, nil
}

// ListWorlds возвращает метаданные всех миров по времени создания
func (ws *WorldStorage) ListWorlds() ([]WorldMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrNotReady
	}

	var worlds []WorldMeta
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta WorldMeta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return err
			}
			worlds = append(worlds, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения списка миров: %w", err)
	}

	sort.Slice(worlds, func(i, j int) bool {
		if !worlds[i].CreatedAt.Equal(worlds[j].CreatedAt) {
			return worlds[i].CreatedAt.Before(worlds[j].CreatedAt)
		}
		return worlds[i].ID < worlds[j].ID
	})
	return worlds, nil
}

// DeleteWorld удаляет мир
func (ws *WorldStorage) DeleteWorld(id string) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	err := ws.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(metaPrefix + id)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(metaPrefix + id)); err != nil {
			return err
		}
		return txn.Delete([]byte(gridPrefix + id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}
