package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: adoption-test\n")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "adoption-test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 10*time.Minute, cfg.Identity.CacheTTL)
	assert.Equal(t, "archived-applications/", cfg.ArchiveExport.Prefix)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFrom_LegacyEnvOverrides(t *testing.T) {
	path := writeConfig(t, "http:\n  port: 9000\n")
	t.Setenv("PORT", "9191")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/adoptions")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTP.Port)
	assert.Equal(t, "postgres://u:p@localhost:5432/adoptions", cfg.Database.DSN)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFrom_SeedPets(t *testing.T) {
	path := writeConfig(t, `
catalog:
  seed_pets:
    - pet_id: p1
      name: Milo
      shelter_id: s1
`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Len(t, cfg.Catalog.SeedPets, 1)
	assert.Equal(t, "s1", cfg.Catalog.SeedPets[0].ShelterID)
}

func TestLoadFrom_ArchiveExportRequiresBucket(t *testing.T) {
	path := writeConfig(t, "archive_export:\n  enabled: true\n  region: us-east-1\n")

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive_export.bucket")
}
