package admin

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/objects"
	"github.com/danmuck/wlcore/internal/observability"
	"github.com/danmuck/wlcore/internal/xwayland"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

// Bridge is the part of an Xwayland server the admin surface reads.
type Bridge interface {
	State() xwayland.State
	Snapshot() xwayland.Snapshot
}

type Server struct {
	Name    string    `json:"name"`
	Addr    string    `json:"addr"`
	Started time.Time `json:"started"`

	display  *objects.Display
	xwayland bool
	bridge   atomic.Pointer[Bridge]
	router   *gin.Engine
	http     *http.Server
}

// New builds the admin router for display. xwaylandEnabled controls whether
// readiness waits for a running bridge.
func New(name, addr string, corsOrigins []string, display *objects.Display, xwaylandEnabled bool) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.InitLogger(name)))
	r.Use(observability.RequestMetricsMiddleware(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:     name,
		Addr:     addr,
		Started:  time.Now(),
		display:  display,
		xwayland: xwaylandEnabled,
		router:   r,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// SetBridge publishes the current Xwayland server; nil clears it.
func (s *Server) SetBridge(b Bridge) {
	if b == nil {
		s.bridge.Store(nil)
		return
	}
	s.bridge.Store(&b)
}

func (s *Server) currentBridge() Bridge {
	if p := s.bridge.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"name":    s.Name,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		ready, reason := s.ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		body := gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.Started).String(),
			"name":    s.Name,
			"version": version,
		}
		if reason != "" {
			body["reason"] = reason
		}
		c.JSON(status, body)
	})

	s.router.GET("/clients", func(c *gin.Context) {
		clients := s.display.Snapshot()
		globals := s.display.Globals()
		names := make([]gin.H, 0, len(globals))
		for _, g := range globals {
			names = append(names, gin.H{"name": g.Name, "interface": g.Interface.Name, "version": g.Version})
		}
		c.JSON(http.StatusOK, gin.H{
			"count":   len(clients),
			"clients": clients,
			"globals": names,
		})
	})

	s.router.GET("/xwayland", func(c *gin.Context) {
		if !s.xwayland {
			c.JSON(http.StatusOK, gin.H{"enabled": false})
			return
		}
		b := s.currentBridge()
		if b == nil {
			c.JSON(http.StatusOK, gin.H{"enabled": true, "state": xwayland.StateUninitialized.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"enabled": true, "server": b.Snapshot()})
	})
}

func (s *Server) ready() (bool, string) {
	if !s.xwayland {
		return true, ""
	}
	b := s.currentBridge()
	if b == nil {
		return false, "xwayland not started"
	}
	if st := b.State(); st != xwayland.StateRunning {
		return false, "xwayland " + st.String()
	}
	return true, ""
}

// Serve blocks until the listener fails or Shutdown is called.
func (s *Server) Serve() error {
	logs.Infof("admin.Server.Serve name=%s addr=%s", s.Name, s.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	logs.Infof("admin.Server.Shutdown name=%s", s.Name)
	return s.http.Shutdown(ctx)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
