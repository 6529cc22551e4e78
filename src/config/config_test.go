package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesPoolSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagepool.yaml")
	contents := "pool:\n" +
		"  data_file: ./data/main.page\n" +
		"  capacity: 64\n" +
		"  strategy: lru\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./data/main.page", cfg.Pool.DataFile)
	assert.Equal(t, 64, cfg.Pool.Capacity)
	assert.Equal(t, "lru", cfg.Pool.Strategy)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
