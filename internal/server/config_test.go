package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, ":9091", cfg.HTTPAddr)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TRACEKIT_TEST_TOKEN", "s3cret")
	path := writeConfig(t, `
http_addr: ":8080"
auth_token: "${TRACEKIT_TEST_TOKEN}"
data_dir: /var/lib/tracekit
autosave_interval: 30s
history_depth: 10
sync_writes: true
log:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.AuthToken)
	assert.Equal(t, 30*time.Second, cfg.AutoSaveInterval)
	assert.Equal(t, "json", cfg.Log.Format)

	opts := cfg.EngineOptions()
	assert.Equal(t, "/var/lib/tracekit", opts.DataDir)
	assert.Equal(t, 10, opts.HistoryDepth)
	assert.True(t, opts.SyncWrites)
	assert.Equal(t, "tracekit.aof", opts.AofFilename)
}

func TestLoadConfigRejects(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "unknown_key: 1\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "history_depth: -1\nautosave_threshold: -5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_depth")
	assert.Contains(t, err.Error(), "autosave_threshold")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTaskManager(t *testing.T) {
	tm := NewTaskManager()
	ok := tm.Run("save", func() error { return nil })
	failed := tm.Run("aof-rewrite", func() error { return errors.New("disk full") })
	tm.Wait()

	got, found := tm.GetTask(ok.View().ID)
	require.True(t, found)
	assert.Equal(t, TaskStatusCompleted, got.View().Status)
	assert.NotNil(t, got.View().FinishedAt)

	view := failed.View()
	assert.Equal(t, TaskStatusFailed, view.Status)
	assert.Equal(t, "disk full", view.Error)

	_, found = tm.GetTask("nope")
	assert.False(t, found)
}
