package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_WithoutStorage(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Save(context.Background())
	assert.True(t, errors.Is(err, ErrNoStorage))
}

func TestSaveAndOpen(t *testing.T) {
	ws, err := storage.NewInMemoryWorldStorage()
	require.NoError(t, err)
	defer ws.Close()

	e, _ := newTestEngine(t)
	e.AttachStorage(ws, storage.WorldMeta{Name: "engine"})
	sp := e.Info().Spawn
	require.True(t, e.SetBlock(sp.X, sp.Y, sp.Z, block.Lamp))

	meta, err := e.Save(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, meta.ID)
	assert.Equal(t, e.Info().Seed, meta.Seed)

	again, err := e.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, meta.ID, again.ID, "повторное сохранение в тот же мир")

	restored, err := Open(context.Background(), testConfig(), ws, meta.ID, nil, nil)
	require.NoError(t, err)
	defer restored.Close()

	assert.Equal(t, e.Export(), restored.Export())
	assert.Equal(t, block.Lamp, restored.GetBlock(sp.X, sp.Y, sp.Z))
	assert.Equal(t, sp, restored.Info().Spawn)

	_, err = Open(context.Background(), testConfig(), ws, "missing", nil, nil)
	assert.True(t, errors.Is(err, storage.ErrWorldNotFound))
}
