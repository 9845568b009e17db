package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/wlcore/internal/config"
)

type fileConfig struct {
	Name        string       `toml:"name"`
	AdminAddr   string       `toml:"admin_addr"`
	CorsOrigins []string     `toml:"cors_origins"`
	Xwayland    fileXwayland `toml:"xwayland"`
}

type fileXwayland struct {
	Enabled      bool     `toml:"enabled"`
	Path         string   `toml:"path"`
	Args         []string `toml:"args"`
	SocketDir    string   `toml:"socket_dir"`
	LockDir      string   `toml:"lock_dir"`
	DisplayStart int      `toml:"display_start"`
	DisplayEnd   int      `toml:"display_end"`
	StopTimeout  string   `toml:"stop_timeout"`
}

// loadServerConfig layers only the keys present in path over the defaults,
// so an explicit empty list clears a default and a missing key keeps it.
func loadServerConfig(path string) (config.ServerConfig, error) {
	cfg := config.Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.ServerConfig{}, fmt.Errorf("load wlcored config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config.ServerConfig{}, fmt.Errorf("load wlcored config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}

	x := &cfg.Xwayland
	if meta.IsDefined("xwayland", "enabled") {
		x.Enabled = raw.Xwayland.Enabled
	}
	if meta.IsDefined("xwayland", "path") {
		x.Path = strings.TrimSpace(raw.Xwayland.Path)
	}
	if meta.IsDefined("xwayland", "args") {
		x.Args = normalizeList(raw.Xwayland.Args)
	}
	if meta.IsDefined("xwayland", "socket_dir") {
		x.SocketDir = strings.TrimSpace(raw.Xwayland.SocketDir)
	}
	if meta.IsDefined("xwayland", "lock_dir") {
		x.LockDir = strings.TrimSpace(raw.Xwayland.LockDir)
	}
	if meta.IsDefined("xwayland", "display_start") {
		x.DisplayStart = raw.Xwayland.DisplayStart
	}
	if meta.IsDefined("xwayland", "display_end") {
		x.DisplayEnd = raw.Xwayland.DisplayEnd
	}
	if meta.IsDefined("xwayland", "stop_timeout") {
		x.StopTimeout = strings.TrimSpace(raw.Xwayland.StopTimeout)
	}

	if err := config.ValidateServerConfig(cfg); err != nil {
		return config.ServerConfig{}, err
	}
	return cfg, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
