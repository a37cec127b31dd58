package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "bom.db", cfg.Database.Name)
	assert.Equal(t, 30, cfg.Database.TimeoutSeconds)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "ask", cfg.Reconcile.Manufacturer)
	assert.Equal(t, "longest", cfg.Reconcile.Description)
	assert.Equal(t, "unknown", cfg.Purchase.UnknownShop)
	assert.Equal(t, ".", cfg.Purchase.OutputDir)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_PORT", "5432")
	t.Setenv("PURCHASE_UNKNOWN_SHOP", "unsourced")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "unsourced", cfg.Purchase.UnknownShop)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RECONCILE_DESCRIPTION=keep_existing\nSTORAGE_ENABLED=true\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("RECONCILE_DESCRIPTION")
		os.Unsetenv("STORAGE_ENABLED")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "keep_existing", cfg.Reconcile.Description)
	assert.True(t, cfg.Storage.Enabled)
}
