package xwayland

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/objects"
	"github.com/danmuck/wlcore/internal/observability"
	"github.com/danmuck/wlcore/internal/tools"
	"golang.org/x/sys/unix"
)

type State int32

const (
	StateUninitialized State = iota
	StateStarting
	StateRunning
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

var (
	ErrNotInitialized    = errors.New("xwayland: Init has not run")
	ErrNilDisplay        = errors.New("xwayland: nil display")
	ErrNoDisplay         = errors.New("xwayland: no free display number")
	ErrExitedBeforeReady = errors.New("xwayland: exited before ready")
	ErrUnexpectedExit    = errors.New("xwayland: exited unexpectedly")
)

// Descriptor numbers as seen by the child: ExtraFiles start at 3.
const (
	childWaylandFD = 3
	childWMFD      = 4
	childDisplayFD = 5
	childListenFD  = 6
)

// Display is the protocol display the Xwayland client attaches to.
type Display interface {
	CreateClient(conn net.Conn) (*objects.Client, error)
}

// StartingFunc runs once the server is ready. wmFD is the compositor end of
// the window-manager socket; it stays open until the server is destroyed.
type StartingFunc func(userData any, wmFD int, client *objects.Client)

// DestroyedFunc runs exactly once when the server is gone.
type DestroyedFunc func(userData any)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Init prepares process-wide state for the bridge. It is idempotent and has
// no teardown.
func Init() {
	initOnce.Do(func() {
		observability.RegisterMetrics()
		initialized.Store(true)
		logs.Infof("xwayland.Init pid=%d", os.Getpid())
	})
}

// Server is one supervised Xwayland instance.
type Server struct {
	display     Display
	userData    any
	onStarting  StartingFunc
	onDestroyed DestroyedFunc
	opts        Options
	num         int

	slot     *displaySlot
	wm       *os.File
	wayland  *os.File
	displayR *os.File
	proc     tools.Process

	stop     chan struct{}
	stopOnce sync.Once
	ready    chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	state   State
	client  *objects.Client
	err     error
	started time.Time
	pid     int
}

// Setup claims a display, launches Xwayland and returns in StateStarting.
// Readiness and exit are reported through the callbacks from a supervisor
// goroutine. When the launch itself fails, the server is returned already
// destroyed, onDestroyed has run, and the error is returned too.
func Setup(display Display, userData any, onStarting StartingFunc, onDestroyed DestroyedFunc, opts ...Option) (*Server, error) {
	if !initialized.Load() {
		return nil, ErrNotInitialized
	}
	if display == nil {
		return nil, ErrNilDisplay
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Launcher == nil {
		o.Launcher = tools.ExecLauncher{}
	}

	s := &Server{
		display:     display,
		userData:    userData,
		onStarting:  onStarting,
		onDestroyed: onDestroyed,
		opts:        o,
		num:         -1,
		stop:        make(chan struct{}),
		ready:       make(chan struct{}),
		done:        make(chan struct{}),
	}

	slot, err := allocateDisplay(o)
	if err != nil {
		return nil, err
	}
	s.slot = slot
	s.num = slot.num

	extra, err := s.openChannels()
	if err != nil {
		s.release()
		return nil, err
	}
	spec := tools.CommandSpec{
		Path:       o.Path,
		Args:       s.args(len(s.slot.listeners)),
		Env:        s.env(),
		ExtraFiles: extra,
		Stderr:     o.Stderr,
	}

	s.transition(StateStarting)
	proc, err := o.Launcher.Launch(spec)
	closeFiles(extra)
	if err != nil {
		err = fmt.Errorf("xwayland: launch %s: %w", o.Path, err)
		logs.Errf("xwayland.Setup display=%d launch err=%v", s.num, err)
		s.finish(err)
		return s, err
	}

	s.mu.Lock()
	s.proc = proc
	s.pid = proc.Pid()
	s.started = time.Now()
	s.mu.Unlock()
	logs.Infof("xwayland.Setup display=%d pid=%d path=%s", s.num, s.pid, o.Path)

	readyLine := make(chan int, 1)
	exited := make(chan error, 1)
	go s.readDisplayFD(readyLine)
	go func() { exited <- proc.Wait() }()
	go s.supervise(readyLine, exited)
	return s, nil
}

// openChannels creates the Wayland and WM socket pairs and the displayfd
// pipe. It returns the child ends followed by the X11 listening sockets.
func (s *Server) openChannels() ([]*os.File, error) {
	wayland, waylandChild, err := socketPair("wayland")
	if err != nil {
		return nil, err
	}
	s.wayland = wayland

	wm, wmChild, err := socketPair("wm")
	if err != nil {
		closeFiles([]*os.File{waylandChild})
		return nil, err
	}
	s.wm = wm

	r, w, err := os.Pipe()
	if err != nil {
		closeFiles([]*os.File{waylandChild, wmChild})
		return nil, fmt.Errorf("xwayland: displayfd pipe: %w", err)
	}
	s.displayR = r

	listen, err := s.slot.files()
	if err != nil {
		closeFiles([]*os.File{waylandChild, wmChild, w})
		return nil, err
	}
	return append([]*os.File{waylandChild, wmChild, w}, listen...), nil
}

func socketPair(name string) (*os.File, *os.File, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("xwayland: %s socketpair: %w", name, err)
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return os.NewFile(uintptr(fds[0]), name+"-server"), os.NewFile(uintptr(fds[1]), name+"-client"), nil
}

func (s *Server) args(listeners int) []string {
	args := []string{
		fmt.Sprintf(":%d", s.num),
		"-rootless",
		"-terminate",
		"-wm", strconv.Itoa(childWMFD),
		"-displayfd", strconv.Itoa(childDisplayFD),
	}
	for i := 0; i < listeners; i++ {
		args = append(args, "-listenfd", strconv.Itoa(childListenFD+i))
	}
	return append(args, s.opts.Args...)
}

func (s *Server) env() []string {
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "WAYLAND_SOCKET=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, s.opts.Env...)
	return append(env, fmt.Sprintf("WAYLAND_SOCKET=%d", childWaylandFD))
}

// readDisplayFD waits for the display number line Xwayland writes once it
// accepts connections. EOF means the child went away; the exit path
// reports that.
func (s *Server) readDisplayFD(out chan<- int) {
	line, err := bufio.NewReader(s.displayR).ReadString('\n')
	if err != nil {
		logs.Debugf("xwayland.Server.readDisplayFD display=%d err=%v", s.num, err)
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		logs.Warnf("xwayland.Server.readDisplayFD display=%d line=%q", s.num, line)
		return
	}
	out <- n
}

func (s *Server) supervise(readyLine <-chan int, exited <-chan error) {
	stop := s.stop
	var kill <-chan time.Time
	for {
		select {
		case n := <-readyLine:
			readyLine = nil
			if s.stopping() {
				continue
			}
			s.becomeRunning(n)
		case <-stop:
			stop = nil
			s.signal(unix.SIGTERM)
			timer := time.NewTimer(s.opts.StopTimeout)
			defer timer.Stop()
			kill = timer.C
		case <-kill:
			kill = nil
			logs.Warnf("xwayland.Server.supervise display=%d pid=%d stop timeout, killing", s.num, s.pid)
			s.signal(unix.SIGKILL)
		case err := <-exited:
			s.finish(s.exitError(err))
			return
		}
	}
}

func (s *Server) becomeRunning(n int) {
	if n != s.num {
		logs.Warnf("xwayland.Server.becomeRunning claimed=%d reported=%d", s.num, n)
	}
	conn, err := net.FileConn(s.wayland)
	_ = s.wayland.Close()
	s.wayland = nil
	if err != nil {
		s.failStart(fmt.Errorf("xwayland: wayland socket: %w", err))
		return
	}
	client, err := s.display.CreateClient(conn)
	if err != nil {
		_ = conn.Close()
		s.failStart(fmt.Errorf("xwayland: create client: %w", err))
		return
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	s.transition(StateRunning)
	close(s.ready)
	logs.Infof("xwayland.Server.ready display=%d pid=%d client=%d", s.num, s.pid, client.ID())
	if s.onStarting != nil {
		s.onStarting(s.userData, int(s.wm.Fd()), client)
	}
}

func (s *Server) failStart(err error) {
	logs.Errf("xwayland.Server.failStart display=%d err=%v", s.num, err)
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.Stop()
}

func (s *Server) signal(sig unix.Signal) {
	if err := s.proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logs.Warnf("xwayland.Server.signal display=%d pid=%d sig=%s err=%v", s.num, s.pid, sig, err)
	}
}

func (s *Server) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Server) exitError(waitErr error) error {
	s.mu.Lock()
	state, prior := s.state, s.err
	s.mu.Unlock()
	if prior != nil {
		return prior
	}
	if s.stopping() {
		return nil
	}
	status := "exit status 0"
	if waitErr != nil {
		status = fmt.Sprintf("%v (code %d)", waitErr, tools.ExitCode(waitErr))
	}
	if state == StateStarting {
		return fmt.Errorf("%w: %s", ErrExitedBeforeReady, status)
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedExit, status)
}

// finish runs once, on the supervisor goroutine or on a failed launch.
func (s *Server) finish(err error) {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	if err != nil && s.err == nil {
		s.err = err
	}
	client := s.client
	s.mu.Unlock()
	s.transition(StateDestroyed)

	if client != nil {
		client.Destroy()
	}
	s.release()
	if err != nil {
		logs.Warnf("xwayland.Server.destroyed display=%d err=%v", s.num, err)
	} else {
		logs.Infof("xwayland.Server.destroyed display=%d", s.num)
	}
	if s.onDestroyed != nil {
		s.onDestroyed(s.userData)
	}
	close(s.done)
}

func (s *Server) release() {
	var files []*os.File
	for _, f := range []*os.File{s.wm, s.wayland, s.displayR} {
		if f != nil {
			files = append(files, f)
		}
	}
	closeFiles(files)
	s.wayland = nil
	if s.slot != nil {
		s.slot.release()
	}
}

func (s *Server) transition(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	observability.RecordXwaylandTransition(next.String())
	logs.Debugf("xwayland.Server.transition display=%d state=%s", s.num, next)
}

// Stop requests termination without waiting. Safe from the callbacks.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		logs.Infof("xwayland.Server.Stop display=%d", s.num)
		close(s.stop)
	})
}

// Teardown requests termination and waits until the server is destroyed and
// onDestroyed has returned. Callbacks must use Stop instead.
func (s *Server) Teardown() {
	s.Stop()
	<-s.done
}

// Ready is closed when the server reaches StateRunning.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Done is closed after onDestroyed has returned.
func (s *Server) Done() <-chan struct{} { return s.done }

// DisplayNumber is the X display this server owns, valid from StateStarting.
func (s *Server) DisplayNumber() int { return s.num }

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the reason the server was destroyed; nil after a requested stop.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Client is the protocol client Xwayland connected as, nil before ready.
func (s *Server) Client() *objects.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

type Snapshot struct {
	State   string    `json:"state"`
	Display int       `json:"display"`
	PID     int       `json:"pid,omitempty"`
	Client  uint64    `json:"client,omitempty"`
	Started time.Time `json:"started,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func (s *Server) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:   s.state.String(),
		Display: s.num,
		PID:     s.pid,
		Started: s.started,
	}
	if s.client != nil {
		snap.Client = s.client.ID()
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
