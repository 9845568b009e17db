package xwayland

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/danmuck/wlcore/internal/logs"
	"golang.org/x/sys/unix"
)

// displaySlot is one claimed X display: its lock file and the sockets X11
// clients connect to.
type displaySlot struct {
	num       int
	lockPath  string
	listeners []*net.UnixListener
}

func lockPath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf(".X%d-lock", n))
}

func socketPath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("X%d", n))
}

// allocateDisplay claims the lowest free display number in range. Stale
// lock files whose owner is gone are reclaimed.
func allocateDisplay(opts Options) (*displaySlot, error) {
	if err := os.MkdirAll(opts.SocketDir, os.ModeSticky|0o777); err != nil {
		return nil, fmt.Errorf("xwayland: socket dir %s: %w", opts.SocketDir, err)
	}
	for n := opts.DisplayStart; n <= opts.DisplayEnd; n++ {
		path := lockPath(opts.LockDir, n)
		ok, err := createLock(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		slot := &displaySlot{num: n, lockPath: path}
		if err := slot.listen(opts.SocketDir); err != nil {
			logs.Debugf("xwayland.allocateDisplay display=%d listen err=%v", n, err)
			slot.release()
			continue
		}
		logs.Infof("xwayland.allocateDisplay display=%d lock=%s", n, path)
		return slot, nil
	}
	return nil, fmt.Errorf("xwayland: displays %d-%d: %w", opts.DisplayStart, opts.DisplayEnd, ErrNoDisplay)
}

// createLock reports false when another live process holds path.
func createLock(path string) (bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%10d\n", os.Getpid())
			cerr := f.Close()
			if err := errors.Join(werr, cerr); err != nil {
				_ = os.Remove(path)
				return false, fmt.Errorf("xwayland: write lock %s: %w", path, err)
			}
			return true, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return false, fmt.Errorf("xwayland: lock %s: %w", path, err)
		}
		if !staleLock(path) {
			return false, nil
		}
		logs.Warnf("xwayland.createLock reclaim stale lock=%s", path)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
	}
	return false, nil
}

func staleLock(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return false
	}
	return errors.Is(unix.Kill(pid, 0), unix.ESRCH)
}

func (d *displaySlot) listen(dir string) error {
	path := socketPath(dir, d.num)
	// the lock is ours, so a leftover socket file is stale
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	names := []string{path}
	if runtime.GOOS == "linux" {
		names = append(names, "@"+path)
	}
	for _, name := range names {
		l, err := net.ListenUnix("unix", &net.UnixAddr{Name: name, Net: "unix"})
		if err != nil {
			return err
		}
		d.listeners = append(d.listeners, l)
	}
	return nil
}

// files duplicates the listening sockets for the child.
func (d *displaySlot) files() ([]*os.File, error) {
	out := make([]*os.File, 0, len(d.listeners))
	for _, l := range d.listeners {
		f, err := l.File()
		if err != nil {
			closeFiles(out)
			return nil, fmt.Errorf("xwayland: listen fd: %w", err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (d *displaySlot) release() {
	for _, l := range d.listeners {
		_ = l.Close()
	}
	d.listeners = nil
	if d.lockPath != "" {
		if err := os.Remove(d.lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logs.Warnf("xwayland.displaySlot.release lock=%s err=%v", d.lockPath, err)
		}
		d.lockPath = ""
	}
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
