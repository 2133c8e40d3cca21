package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// useTempDir points the package at a throwaway promptdeck dir.
func useTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvDir, dir)
	ClearCache()
	t.Cleanup(ClearCache)
	return dir
}

func boolPtr(b bool) *bool { return &b }

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	useTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Integration.GetPromptMark())
	require.True(t, cfg.Integration.GetCursor())
	require.True(t, cfg.Integration.GetTitle())
	require.True(t, cfg.Title.GetHomeTilde())
	require.Equal(t, 3, cfg.Title.GetMaxComponents())
	require.True(t, cfg.History.GetEnabled())
	require.Equal(t, 90, cfg.History.GetMaxAgeDays())
}

func TestLoadParsesFile(t *testing.T) {
	dir := useTempDir(t)

	content := `
[integration]
cursor = false
title = true

[title]
max_components = 5

[history]
enabled = false
max_age_days = 7

[shell]
command = "/bin/zsh"
theme = "light"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Integration.GetCursor())
	require.True(t, cfg.Integration.GetTitle())
	require.True(t, cfg.Integration.GetPromptMark(), "unset key keeps default")
	require.Equal(t, 5, cfg.Title.GetMaxComponents())
	require.False(t, cfg.History.GetEnabled())
	require.Equal(t, 7, cfg.History.GetMaxAgeDays())
	require.Equal(t, "/bin/zsh", cfg.Shell.Command)
	require.Equal(t, "light", cfg.Shell.Theme)
}

func TestLoadMalformedFileReturnsDefaultsAndError(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not [valid toml"), 0o600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	require.True(t, cfg.Integration.GetPromptMark())
}

func TestLoadCaches(t *testing.T) {
	dir := useTempDir(t)

	cfg1, err := Load()
	require.NoError(t, err)

	// Writing the file behind the cache's back changes nothing until
	// Reload.
	content := "[integration]\ncursor = false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))

	cfg2, err := Load()
	require.NoError(t, err)
	require.Same(t, cfg1, cfg2)

	cfg3, err := Reload()
	require.NoError(t, err)
	require.False(t, cfg3.Integration.GetCursor())
}

func TestSaveRoundTrip(t *testing.T) {
	useTempDir(t)

	cfg := &Config{}
	cfg.Integration.Cursor = boolPtr(false)
	cfg.Shell.Command = "/bin/fish"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	require.False(t, loaded.Integration.GetCursor())
	require.Equal(t, "/bin/fish", loaded.Shell.Command)
}

func TestSaveIsAtomic(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, Save(&Config{}))

	// No temp file may survive a successful save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp")
	}
}

func TestCreateExample(t *testing.T) {
	dir := useTempDir(t)

	require.NoError(t, CreateExample())
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Contains(t, string(data), "[integration]")

	// Never overwrites an existing config.
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("# mine\n"), 0o600))
	require.NoError(t, CreateExample())
	data, err = os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.Equal(t, "# mine\n", string(data))
}

func TestHistoryMaxAgeNegativeMeansKeepAll(t *testing.T) {
	h := HistorySettings{MaxAgeDays: -1}
	require.Equal(t, 0, h.GetMaxAgeDays())
}
