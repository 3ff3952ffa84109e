package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/blockworld/internal/config"
	"github.com/annel0/blockworld/internal/mesh"
	"github.com/annel0/blockworld/internal/metrics"
	"github.com/annel0/blockworld/internal/observability"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/world"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNoStorage возвращается, если движок создан без хранилища
var ErrNoStorage = errors.New("storage is not attached")

// AttachStorage подключает хранилище; meta описывает мир при сохранении
func (e *Engine) AttachStorage(ws *storage.WorldStorage, meta storage.WorldMeta) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = ws
	e.meta = meta
	if e.meta.Seed == 0 {
		e.meta.Seed = e.info.Seed
	}
	e.meta.Fallback = e.info.Fallback
}

// Save сохраняет сетку в подключённое хранилище и возвращает метаданные.
// При первом сохранении миру назначается ID.
func (e *Engine) Save(ctx context.Context) (storage.WorldMeta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return storage.WorldMeta{}, ErrNoStorage
	}

	_, span := observability.StartSpan(ctx, "world.save", attribute.String("world_id", e.meta.ID))
	defer span.End()

	meta := e.meta
	if err := e.store.SaveWorld(&meta, e.grid); err != nil {
		observability.RecordError(span, err)
		return meta, fmt.Errorf("не удалось сохранить мир: %w", err)
	}
	e.meta = meta
	span.SetAttributes(attribute.Int("stored_size", meta.StoredSize))
	return meta, nil
}

// Open загружает мир id из хранилища и собирает движок поверх него
func Open(ctx context.Context, cfg *config.Config, ws *storage.WorldStorage, id string, backend mesh.Backend, sm *metrics.StreamMetrics) (*Engine, error) {
	_, span := observability.StartSpan(ctx, "world.load", attribute.String("world_id", id))
	defer span.End()

	meta, g, err := ws.LoadWorld(id)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	e, err := fromStored(cfg, g, meta, backend, sm)
	if err != nil {
		return nil, err
	}
	e.AttachStorage(ws, meta)
	return e, nil
}

func fromStored(cfg *config.Config, g *world.Grid, meta storage.WorldMeta, backend mesh.Backend, sm *metrics.StreamMetrics) (*Engine, error) {
	e, err := FromGrid(cfg, g, backend, sm)
	if err != nil {
		return nil, err
	}
	e.info.Seed = meta.Seed
	e.info.Fallback = meta.Fallback
	return e, nil
}
