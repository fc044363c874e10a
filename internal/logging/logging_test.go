package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	cfg := Config{Level: "info", FilePath: path, MaxSizeMB: 1, MaxFiles: 2}
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("query executed", "mode", "hybrid", "results", 7)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"query executed"`)
	assert.Contains(t, string(data), `"mode":"hybrid"`)
}

func TestSetup_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path})
	require.NoError(t, err)

	logger.Info("ignored")
	logger.Warn("kept")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ignored")
	assert.Contains(t, string(data), "kept")
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotate.log")

	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	defer w.Close()

	// Cross the 1MB limit in two writes.
	chunk := bytes.Repeat([]byte("x"), 700*1024)
	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write(chunk)
	require.NoError(t, err)

	_, err = os.Stat(path + ".1")
	require.NoError(t, err, "rotated file should exist")

	// Current file holds only the post-rotation write.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())
}

func TestRotatingWriter_DropsOldestBeyondMaxFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotate.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	chunk := strings.Repeat("y", 600*1024)
	for i := 0; i < 6; i++ {
		_, err := w.Write([]byte(chunk))
		require.NoError(t, err)
	}

	// Only .1 may remain with maxFiles=2.
	_, err = os.Stat(path + ".1")
	require.NoError(t, err)
	_, err = os.Stat(path + ".2")
	assert.True(t, os.IsNotExist(err))
}
