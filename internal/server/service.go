package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/wlcore/internal/admin"
	"github.com/danmuck/wlcore/internal/config"
	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/objects"
	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/danmuck/wlcore/internal/xwayland"
)

const (
	heartbeatInterval = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Service runs one display with its admin surface and optional Xwayland.
type Service struct {
	cfg        config.ServerConfig
	bridgeOpts []xwayland.Option

	display *objects.Display
	admin   *admin.Server
	bridge  atomic.Pointer[xwayland.Server]

	adminErr    chan error
	bridgeDone  chan struct{}
	bridgeOnce  sync.Once
	clientsDone sync.WaitGroup
}

// NewService builds a service from a validated config. bridgeOpts are applied
// after the [xwayland] table.
func NewService(cfg config.ServerConfig, bridgeOpts ...xwayland.Option) *Service {
	return &Service{
		cfg:        cfg,
		bridgeOpts: bridgeOpts,
		display:    objects.NewDisplay(),
		adminErr:   make(chan error, 1),
		bridgeDone: make(chan struct{}),
	}
}

func (s *Service) Display() *objects.Display { return s.display }

// Bridge is the Xwayland server, nil when disabled or before bootstrap.
func (s *Service) Bridge() *xwayland.Server { return s.bridge.Load() }

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext blocks until ctx ends, the admin server fails, or Xwayland
// exits on its own. An unexpected Xwayland exit is returned as an error.
func (s *Service) RunContext(ctx context.Context) error {
	defer s.shutdown()
	if err := s.bootstrap(); err != nil {
		return err
	}
	return s.serve(ctx)
}

func (s *Service) bootstrap() error {
	if _, err := objects.AddCompositor(s.display); err != nil {
		return fmt.Errorf("server: compositor global: %w", err)
	}

	s.admin = admin.New(s.cfg.Name, s.cfg.AdminAddr, s.cfg.CorsOrigins, s.display, s.cfg.Xwayland.Enabled)
	go func() {
		s.adminErr <- s.admin.Serve()
	}()

	if !s.cfg.Xwayland.Enabled {
		logs.Infof("server.Service.bootstrap name=%s admin=%s xwayland=off", s.cfg.Name, s.cfg.AdminAddr)
		return nil
	}
	xwayland.Init()
	opts := append(config.XwaylandOptions(s.cfg.Xwayland), s.bridgeOpts...)
	bridge, err := xwayland.Setup(s.display, s.cfg.Name, s.onXwaylandStarting, s.onXwaylandDestroyed, opts...)
	if bridge != nil {
		s.bridge.Store(bridge)
		s.admin.SetBridge(bridge)
	}
	if err != nil {
		return fmt.Errorf("server: xwayland: %w", err)
	}
	logs.Infof(
		"server.Service.bootstrap name=%s admin=%s xwayland=:%d",
		s.cfg.Name,
		s.cfg.AdminAddr,
		bridge.DisplayNumber(),
	)
	return nil
}

func (s *Service) serve(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	bridge := s.bridge.Load()
	bridgeDone := s.bridgeDone
	if bridge == nil {
		bridgeDone = nil
	}
	for {
		select {
		case <-ctx.Done():
			logs.Infof("server.Service.serve shutdown")
			return nil
		case err := <-s.adminErr:
			if err != nil {
				return fmt.Errorf("server: admin: %w", err)
			}
			return nil
		case <-bridgeDone:
			if err := bridge.Err(); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			logs.Infof("server.Service.serve xwayland stopped")
			bridgeDone = nil
		case <-ticker.C:
			state := "off"
			if bridge != nil {
				state = bridge.State().String()
			}
			logs.Infof(
				"server.Service.heartbeat name=%s clients=%d xwayland=%s",
				s.cfg.Name,
				s.display.ClientCount(),
				state,
			)
		}
	}
}

func (s *Service) shutdown() {
	if bridge := s.bridge.Load(); bridge != nil {
		bridge.Teardown()
	}
	if s.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.admin.Shutdown(ctx); err != nil {
			logs.Warnf("server.Service.shutdown admin err=%v", err)
		}
		cancel()
	}
	s.display.Destroy()
	s.clientsDone.Wait()
	logs.Infof("server.Service.shutdown done name=%s", s.cfg.Name)
}

func (s *Service) onXwaylandStarting(_ any, wmFD int, client *objects.Client) {
	logs.Infof("server.Service.xwayland ready client=%d wm_fd=%d", client.ID(), wmFD)
	s.clientsDone.Add(1)
	go func() {
		defer s.clientsDone.Done()
		serveClient(client)
	}()
}

func (s *Service) onXwaylandDestroyed(any) {
	s.bridgeOnce.Do(func() { close(s.bridgeDone) })
}

// serveClient dispatches requests until the connection closes or the client
// is sent a fatal protocol error, then destroys the client.
func serveClient(c *objects.Client) {
	defer c.Destroy()
	for {
		err := c.DispatchNext(nil)
		if err == nil {
			continue
		}
		if c.Err() != nil {
			logs.Warnf("server.serveClient client=%d disconnect err=%v", c.ID(), err)
			return
		}
		if protocol.IsProtocolError(err) {
			logs.Warnf("server.serveClient client=%d protocol err=%v", c.ID(), err)
			continue
		}
		logs.Debugf("server.serveClient client=%d closed err=%v", c.ID(), err)
		return
	}
}
