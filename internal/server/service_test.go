package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/wlcore/internal/config"
	"github.com/danmuck/wlcore/internal/objects"
	"github.com/danmuck/wlcore/internal/protocol/core"
	"github.com/danmuck/wlcore/internal/protocol/wire"
	"github.com/danmuck/wlcore/internal/testutil/testlog"
	"github.com/danmuck/wlcore/internal/tools"
	"github.com/danmuck/wlcore/internal/xwayland"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type exitingProcess struct {
	exit chan error
	once sync.Once
}

func (p *exitingProcess) Pid() int { return 1000 }

func (p *exitingProcess) Signal(os.Signal) error {
	p.quit(errors.New("signal: terminated"))
	return nil
}

func (p *exitingProcess) Wait() error { return <-p.exit }

func (p *exitingProcess) quit(err error) {
	p.once.Do(func() { p.exit <- err })
}

// readyLauncher announces the display as soon as it is launched.
type readyLauncher struct {
	t    *testing.T
	mu   sync.Mutex
	proc *exitingProcess
}

func (l *readyLauncher) Launch(spec tools.CommandSpec) (tools.Process, error) {
	fd, err := unix.Dup(int(spec.ExtraFiles[0].Fd()))
	if err != nil {
		return nil, err
	}
	peer := os.NewFile(uintptr(fd), "wayland-peer")
	l.t.Cleanup(func() { _ = peer.Close() })
	display := spec.Args[0][1:]
	if _, err := fmt.Fprintf(spec.ExtraFiles[2], "%s\n", display); err != nil {
		return nil, err
	}
	proc := &exitingProcess{exit: make(chan error, 1)}
	l.mu.Lock()
	l.proc = proc
	l.mu.Unlock()
	return proc, nil
}

func (l *readyLauncher) process() *exitingProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.proc
}

func testConfig(t *testing.T, xwaylandEnabled bool) config.ServerConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Name = "wlcored-test"
	cfg.AdminAddr = "127.0.0.1:0"
	cfg.Xwayland.Enabled = xwaylandEnabled
	cfg.Xwayland.SocketDir = filepath.Join(dir, "x11")
	cfg.Xwayland.LockDir = dir
	cfg.Xwayland.DisplayStart, cfg.Xwayland.DisplayEnd = 0, 3
	cfg.Xwayland.StopTimeout = "1s"
	require.NoError(t, config.ValidateServerConfig(cfg))
	return cfg
}

func runAsync(ctx context.Context, s *Service) <-chan error {
	out := make(chan error, 1)
	go func() { out <- s.RunContext(ctx) }()
	return out
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
		return nil
	}
}

func TestRunWithoutXwaylandStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	s := NewService(testConfig(t, false))
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	require.Eventually(t, func() bool { return len(s.Display().Globals()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, waitErr(t, done))
	require.Nil(t, s.Bridge())
}

func TestRunServesXwaylandClientUntilCancel(t *testing.T) {
	testlog.Start(t)
	launcher := &readyLauncher{t: t}
	s := NewService(testConfig(t, true), xwayland.WithLauncher(launcher))
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	require.Eventually(t, func() bool {
		b := s.Bridge()
		return b != nil && b.State() == xwayland.StateRunning
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, s.Display().ClientCount())

	cancel()
	require.NoError(t, waitErr(t, done))
	require.Equal(t, xwayland.StateDestroyed, s.Bridge().State())
	require.Zero(t, s.Display().ClientCount())
}

func TestRunFailsWhenXwaylandCrashes(t *testing.T) {
	testlog.Start(t)
	launcher := &readyLauncher{t: t}
	s := NewService(testConfig(t, true), xwayland.WithLauncher(launcher))
	done := runAsync(context.Background(), s)

	require.Eventually(t, func() bool {
		b := s.Bridge()
		return b != nil && b.State() == xwayland.StateRunning
	}, 2*time.Second, 10*time.Millisecond)
	launcher.process().quit(errors.New("signal: killed"))

	err := waitErr(t, done)
	require.ErrorIs(t, err, xwayland.ErrUnexpectedExit)
}

func TestRunReportsLaunchFailure(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig(t, true)
	cfg.Xwayland.Path = filepath.Join(t.TempDir(), "missing-xwayland")
	s := NewService(cfg)

	err := waitErr(t, runAsync(context.Background(), s))
	require.ErrorContains(t, err, "server: xwayland")
	require.NotNil(t, s.Bridge())
	require.Equal(t, xwayland.StateDestroyed, s.Bridge().State())
}

func socketConns(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	conns := make([]net.Conn, 2)
	for i, fd := range fds {
		f := os.NewFile(uintptr(fd), fmt.Sprintf("conn-%d", i))
		conns[i], err = net.FileConn(f)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	t.Cleanup(func() { _ = conns[1].Close() })
	return conns[0], conns[1]
}

func TestServeClientDestroysClientAfterProtocolError(t *testing.T) {
	testlog.Start(t)
	d := objects.NewDisplay()
	defer d.Destroy()
	serverConn, peer := socketConns(t)
	c, err := d.CreateClient(serverConn)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		serveClient(c)
		close(done)
	}()
	_, err = peer.Write(wire.EncodeHeader(wire.Header{ObjectID: 77, Size: wire.HeaderLen}))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("serveClient did not return")
	}
	require.Zero(t, d.ClientCount())
	require.ErrorIs(t, c.Err(), objects.ErrClientErrored)

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	data, err := io.ReadAll(peer)
	require.NoError(t, err)
	h, err := wire.DecodeHeader(data)
	require.NoError(t, err)
	require.Equal(t, objects.DisplayObjectID, h.ObjectID)
	require.Equal(t, core.DisplayEventError, h.Opcode)
}

func TestServeClientDestroysClientOnHangup(t *testing.T) {
	testlog.Start(t)
	d := objects.NewDisplay()
	defer d.Destroy()
	serverConn, peer := socketConns(t)
	c, err := d.CreateClient(serverConn)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		serveClient(c)
		close(done)
	}()
	require.NoError(t, peer.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("serveClient did not return")
	}
	require.Zero(t, d.ClientCount())
}
