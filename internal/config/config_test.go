package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 2000, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 120, cfg.Anthropic.TimeoutSecs)
	assert.Equal(t, 0, cfg.Anthropic.MaxRetries)
	assert.Equal(t, 25, cfg.Import.Workers)
	assert.Equal(t, 10, cfg.Import.BatchSize)
	assert.Equal(t, ";", cfg.Import.Delimiter)
	assert.Equal(t, []string{"SE BILD"}, cfg.Import.PoisonMarkers)
	assert.Equal(t, "data/medical_exam", cfg.Content.Dir)
	assert.Equal(t, "data", cfg.Export.DataDir)
	assert.Equal(t, "public/content.json", cfg.Export.Out)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/content
log:
  level: debug
  format: console
import:
  workers: 5
  batch_size: 3
content:
  dir: testdata/banks
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Import.Workers)
	assert.Equal(t, 3, cfg.Import.BatchSize)
	assert.Equal(t, "testdata/banks", cfg.Content.Dir)
	// Defaults still apply for unset values
	assert.Equal(t, ";", cfg.Import.Delimiter)
	assert.Equal(t, 2000, cfg.Anthropic.MaxTokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
import:
  workers: 5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ILLER_IMPORT_WORKERS", "2")
	t.Setenv("ILLER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, 2, cfg.Import.Workers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ILLER_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("ILLER_IMPORT_BATCH_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, 25, cfg.Import.BatchSize)
}

func TestImportLogPath(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Content.Dir = "data/medical_exam"
	assert.Equal(t, filepath.Join("data/medical_exam", "new_questions_import_log.json"), cfg.ImportLogPath())

	cfg.Content.ImportLog = "/var/state/import.json"
	assert.Equal(t, "/var/state/import.json", cfg.ImportLogPath())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
