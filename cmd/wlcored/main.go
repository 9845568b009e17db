package main

import (
	"fmt"
	"os"

	"github.com/danmuck/wlcore/internal/config"
	"github.com/danmuck/wlcore/internal/logging"
	"github.com/danmuck/wlcore/internal/server"
	"github.com/spf13/pflag"
)

type flags struct {
	set          *pflag.FlagSet
	configPath   string
	adminAddr    string
	xwayland     bool
	xwaylandPath string
	logLevel     string
}

func newFlags() *flags {
	f := &flags{set: pflag.NewFlagSet("wlcored", pflag.ContinueOnError)}
	f.set.StringVar(&f.configPath, "config", "", "path to a wlcored TOML config")
	f.set.StringVar(&f.adminAddr, "admin-addr", "", "admin HTTP listen address")
	f.set.BoolVar(&f.xwayland, "xwayland", false, "launch and supervise Xwayland")
	f.set.StringVar(&f.xwaylandPath, "xwayland-path", "", "Xwayland binary")
	f.set.StringVar(&f.logLevel, "log-level", "", "trace|debug|info|warn|error")
	return f
}

// apply layers explicitly set flags over cfg.
func (f *flags) apply(cfg *config.ServerConfig) {
	if f.set.Changed("admin-addr") {
		cfg.AdminAddr = f.adminAddr
	}
	if f.set.Changed("xwayland") {
		cfg.Xwayland.Enabled = f.xwayland
	}
	if f.set.Changed("xwayland-path") {
		cfg.Xwayland.Path = f.xwaylandPath
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wlcored: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f := newFlags()
	if err := f.set.Parse(args); err != nil {
		return err
	}
	logging.ConfigureRuntime()
	if f.logLevel != "" && !logging.ConfigureLevel(logging.ProfileRuntime, f.logLevel) {
		return fmt.Errorf("unknown log level %q", f.logLevel)
	}

	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := loadServerConfig(f.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	f.apply(&cfg)
	if err := config.ValidateServerConfig(cfg); err != nil {
		return err
	}
	return server.NewService(cfg).Run()
}
