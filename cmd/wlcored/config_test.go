package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/wlcore/internal/config"
	"github.com/danmuck/wlcore/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfigExampleOverrides(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServerConfig("ex.config.toml")
	require.NoError(t, err)

	require.Equal(t, "wlcored.local", cfg.Name)
	require.Equal(t, "127.0.0.1:9410", cfg.AdminAddr)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CorsOrigins)
	require.True(t, cfg.Xwayland.Enabled)
	require.Equal(t, []string{"-noreset"}, cfg.Xwayland.Args)
	require.Equal(t, 2, cfg.Xwayland.DisplayStart)
	require.Equal(t, config.DefaultDisplayEnd, cfg.Xwayland.DisplayEnd)
	require.Equal(t, config.DefaultXwaylandPath, cfg.Xwayland.Path)
	require.Equal(t, "3s", cfg.Xwayland.StopTimeout)
}

func TestLoadServerConfigEmptyFileKeepsDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServerConfig(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoadServerConfigRejectsUnknownKey(t *testing.T) {
	testlog.Start(t)
	_, err := loadServerConfig(writeConfig(t, "heartbeat = \"5s\"\n"))
	require.ErrorContains(t, err, "unknown key")
}

func TestLoadServerConfigValidates(t *testing.T) {
	testlog.Start(t)
	_, err := loadServerConfig(writeConfig(t, "[xwayland]\nstop_timeout = \"abc\"\n"))
	require.ErrorIs(t, err, config.ErrStopTimeout)

	_, err = loadServerConfig(writeConfig(t, "admin_addr = \"\"\n"))
	require.ErrorIs(t, err, config.ErrMissingAdminAddr)
}

func TestApplyFlagOverrides(t *testing.T) {
	testlog.Start(t)
	f := newFlags()
	require.NoError(t, f.set.Parse([]string{"--admin-addr", ":9999", "--xwayland", "--xwayland-path", "/opt/Xwayland"}))

	cfg := config.Default()
	f.apply(&cfg)
	require.Equal(t, ":9999", cfg.AdminAddr)
	require.True(t, cfg.Xwayland.Enabled)
	require.Equal(t, "/opt/Xwayland", cfg.Xwayland.Path)

	f = newFlags()
	require.NoError(t, f.set.Parse([]string{"--xwayland=false"}))
	cfg.Xwayland.Enabled = true
	f.apply(&cfg)
	require.False(t, cfg.Xwayland.Enabled)
	require.Equal(t, ":9999", cfg.AdminAddr)
}
