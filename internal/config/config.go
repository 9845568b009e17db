package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/wlcore/internal/xwayland"
	"github.com/pelletier/go-toml/v2"
)

var (
	ErrMissingName      = errors.New("config: missing name")
	ErrMissingAdminAddr = errors.New("config: missing admin_addr")
	ErrDisplayRange     = errors.New("config: invalid xwayland display range")
	ErrStopTimeout      = errors.New("config: invalid xwayland stop_timeout")
)

const (
	DefaultName         = "wlcored"
	DefaultAdminAddr    = "127.0.0.1:9400"
	DefaultXwaylandPath = xwayland.DefaultPath
	DefaultSocketDir    = xwayland.DefaultSocketDir
	DefaultLockDir      = xwayland.DefaultLockDir
	DefaultDisplayStart = xwayland.DefaultDisplayStart
	DefaultDisplayEnd   = xwayland.DefaultDisplayEnd
	DefaultStopTimeout  = "5s"
	maxDisplayNumber    = 1<<16 - 1
)

type ServerConfig struct {
	Name        string         `toml:"name"`
	AdminAddr   string         `toml:"admin_addr"`
	CorsOrigins []string       `toml:"cors_origins"`
	Xwayland    XwaylandConfig `toml:"xwayland"`
}

type XwaylandConfig struct {
	Enabled      bool     `toml:"enabled"`
	Path         string   `toml:"path"`
	Args         []string `toml:"args"`
	SocketDir    string   `toml:"socket_dir"`
	LockDir      string   `toml:"lock_dir"`
	DisplayStart int      `toml:"display_start"`
	DisplayEnd   int      `toml:"display_end"`
	StopTimeout  string   `toml:"stop_timeout"`
}

// Default is the configuration used when no file is given.
func Default() ServerConfig {
	return ServerConfig{
		Name:      DefaultName,
		AdminAddr: DefaultAdminAddr,
		Xwayland: XwaylandConfig{
			Path:         DefaultXwaylandPath,
			SocketDir:    DefaultSocketDir,
			LockDir:      DefaultLockDir,
			DisplayStart: DefaultDisplayStart,
			DisplayEnd:   DefaultDisplayEnd,
			StopTimeout:  DefaultStopTimeout,
		},
	}
}

// LoadServerConfig reads path over Default and validates the result.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	cfg.ApplyDefaults()
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills fields a file set to the empty value.
func (c *ServerConfig) ApplyDefaults() {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultName
	}
	if strings.TrimSpace(c.AdminAddr) == "" {
		c.AdminAddr = DefaultAdminAddr
	}
	x := &c.Xwayland
	if x.Path == "" {
		x.Path = DefaultXwaylandPath
	}
	if x.SocketDir == "" {
		x.SocketDir = DefaultSocketDir
	}
	if x.LockDir == "" {
		x.LockDir = DefaultLockDir
	}
	if x.StopTimeout == "" {
		x.StopTimeout = DefaultStopTimeout
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(cfg.AdminAddr) == "" {
		return ErrMissingAdminAddr
	}
	if err := ValidateXwayland(cfg.Xwayland); err != nil {
		return fmt.Errorf("xwayland invalid: %w", err)
	}
	return nil
}

func ValidateXwayland(cfg XwaylandConfig) error {
	if cfg.DisplayStart < 0 || cfg.DisplayEnd < cfg.DisplayStart || cfg.DisplayEnd > maxDisplayNumber {
		return fmt.Errorf("%w: %d-%d", ErrDisplayRange, cfg.DisplayStart, cfg.DisplayEnd)
	}
	if _, err := cfg.StopTimeoutDuration(); err != nil {
		return err
	}
	if cfg.Enabled && strings.TrimSpace(cfg.Path) == "" {
		return fmt.Errorf("path is required when enabled")
	}
	return nil
}

// StopTimeoutDuration parses stop_timeout; it must be positive.
func (c XwaylandConfig) StopTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.StopTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrStopTimeout, c.StopTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrStopTimeout, c.StopTimeout)
	}
	return d, nil
}
