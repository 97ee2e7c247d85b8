package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoragePostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.ApplySchema)
	assert.Equal(t, 8, cfg.Engine.StockFanoutLimit)
	assert.Equal(t, 200*time.Millisecond, cfg.Engine.NotifyRetryBackoff)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.NotifyEnqueueWait)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=9000\nSTORAGE_DRIVER=memory\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("PORT", "9100")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg := load(envFile)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
}
