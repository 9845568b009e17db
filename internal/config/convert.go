package config

import (
	"github.com/danmuck/wlcore/internal/xwayland"
)

// XwaylandOptions maps the [xwayland] table onto bridge options. The config
// must already be validated.
func XwaylandOptions(cfg XwaylandConfig) []xwayland.Option {
	opts := []xwayland.Option{
		xwayland.WithPath(cfg.Path),
		xwayland.WithSocketDir(cfg.SocketDir),
		xwayland.WithLockDir(cfg.LockDir),
		xwayland.WithDisplayRange(cfg.DisplayStart, cfg.DisplayEnd),
	}
	if len(cfg.Args) > 0 {
		opts = append(opts, xwayland.WithArgs(cfg.Args...))
	}
	if d, err := cfg.StopTimeoutDuration(); err == nil {
		opts = append(opts, xwayland.WithStopTimeout(d))
	}
	return opts
}
