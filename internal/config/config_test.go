package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	return cmd
}

func TestLoadDefaultsWithMemoryStore(t *testing.T) {
	cmd := newCmd()
	require.NoError(t, cmd.PersistentFlags().Set("store", "memory"))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 60*time.Second, cfg.NavTimeout)
	assert.Equal(t, 25, cfg.MaxScrolls)
}

func TestPostgresRequiresDatabaseURL(t *testing.T) {
	_, err := Load(newCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}

func TestPlanFileIsApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	content := `
city: Ankara
districts:
  - Çankaya
  - Keçiören
categories:
  - Kafe
store_driver: memory
nav_timeout: 90s
headless: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd := newCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config", path))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "Ankara", cfg.City)
	assert.Equal(t, []string{"Çankaya", "Keçiören"}, cfg.Districts)
	assert.Equal(t, []string{"Kafe"}, cfg.Categories)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 90*time.Second, cfg.NavTimeout)
	assert.False(t, cfg.Headless)
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	t.Setenv("HARVEST_CITY", "İzmir")
	t.Setenv("HARVEST_STORE_DRIVER", "memory")

	cmd := newCmd()
	require.NoError(t, cmd.PersistentFlags().Set("city", "Ankara"))
	require.NoError(t, cmd.PersistentFlags().Set("districts", "Çankaya, Mamak"))
	require.NoError(t, cmd.PersistentFlags().Set("verbose", "true"))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, "Ankara", cfg.City, "flag beats environment")
	assert.Equal(t, []string{"Çankaya", "Mamak"}, cfg.Districts)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvListParsing(t *testing.T) {
	t.Setenv("HARVEST_CATEGORIES", " Kafe ,Restoran,, Eczane ")
	t.Setenv("HARVEST_STORE_DRIVER", "memory")

	cfg, err := Load(newCmd())
	require.NoError(t, err)
	assert.Equal(t, []string{"Kafe", "Restoran", "Eczane"}, cfg.Categories)
}
