package xwayland

import (
	"io"
	"time"

	"github.com/danmuck/wlcore/internal/tools"
)

const (
	DefaultPath         = "Xwayland"
	DefaultSocketDir    = "/tmp/.X11-unix"
	DefaultLockDir      = "/tmp"
	DefaultDisplayStart = 0
	DefaultDisplayEnd   = 32
	DefaultStopTimeout  = 5 * time.Second
)

type Options struct {
	Path         string
	Args         []string
	Env          []string
	SocketDir    string
	LockDir      string
	DisplayStart int
	DisplayEnd   int
	StopTimeout  time.Duration
	Launcher     tools.Launcher
	Stderr       io.Writer
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		Path:         DefaultPath,
		SocketDir:    DefaultSocketDir,
		LockDir:      DefaultLockDir,
		DisplayStart: DefaultDisplayStart,
		DisplayEnd:   DefaultDisplayEnd,
		StopTimeout:  DefaultStopTimeout,
		Launcher:     tools.ExecLauncher{},
	}
}

func WithPath(path string) Option {
	return func(o *Options) { o.Path = path }
}

// WithArgs appends arguments after the ones the bridge manages.
func WithArgs(args ...string) Option {
	return func(o *Options) { o.Args = append(o.Args, args...) }
}

func WithEnv(env ...string) Option {
	return func(o *Options) { o.Env = append(o.Env, env...) }
}

func WithSocketDir(dir string) Option {
	return func(o *Options) { o.SocketDir = dir }
}

func WithLockDir(dir string) Option {
	return func(o *Options) { o.LockDir = dir }
}

// WithDisplayRange bounds the display numbers tried, inclusive.
func WithDisplayRange(start, end int) Option {
	return func(o *Options) { o.DisplayStart, o.DisplayEnd = start, end }
}

func WithStopTimeout(d time.Duration) Option {
	return func(o *Options) { o.StopTimeout = d }
}

func WithLauncher(l tools.Launcher) Option {
	return func(o *Options) { o.Launcher = l }
}

func WithStderr(w io.Writer) Option {
	return func(o *Options) { o.Stderr = w }
}
