package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, cfg.Backend)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, filepath.Join(dir, DefaultDBName), cfg.DBPath)
	assert.Equal(t, []int{5, 10, 20}, cfg.PageSizeOptions)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.Equal(t, "q", cfg.Keys.Quit)
	require.NoError(t, cfg.Validate())

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreateFillsMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	content := `
backend = "local"
page_size = 20
page_size_options = [20, 0, 5, 20]

[keys]
quit = "ctrl+q"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, []int{5, 20}, cfg.PageSizeOptions)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, "ctrl+q", cfg.Keys.Quit)
	assert.Equal(t, "a", cfg.Keys.Add)
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultDBName), cfg.DBPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadOrCreateRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("backend = ["), 0o644))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := defaultConfig(t.TempDir())

	cfg := base
	cfg.Backend = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.APIURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.Backend = BackendLocal
	cfg.APIURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", ResolveConfigPath())

	t.Setenv(EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")
	got := ResolveConfigPath()
	assert.Equal(t, AppName, filepath.Base(filepath.Dir(got)))
	assert.Equal(t, DefaultConfigFileName, filepath.Base(got))
}
