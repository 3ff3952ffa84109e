package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("что-то"))
	assert.Equal(t, "WARN", WARN.String())
}

func TestNewLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	l, err := NewLogger("world")
	require.NoError(t, err)

	l.SetLevels(ERROR, DEBUG)
	l.Debug("chunk %d", 42)
	l.Trace("не должно попасть в файл")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "world_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [world] chunk 42")
	assert.False(t, strings.Contains(string(data), "не должно"))
}

func TestLoggerManager_ReusesLoggers(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	a, err := lm.GetLogger("stream")
	require.NoError(t, err)
	b, err := lm.GetLogger("stream")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, []string{"stream"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("stream", WARN, WARN))
	assert.False(t, a.Enabled(INFO))
	assert.Error(t, lm.SetLogLevel("nope", WARN, WARN))
	require.NoError(t, lm.CloseAll())
}

func TestPackageFunctionsWithoutInit(t *testing.T) {
	// Без инициализации пакетные функции не должны паниковать
	Info("hello %s", "world")
	Debug("hidden")
	assert.NotNil(t, current())
}
