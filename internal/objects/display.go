package objects

import (
	"fmt"
	"net"
	"sync"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/observability"
	"github.com/danmuck/wlcore/internal/protocol/core"
	"github.com/danmuck/wlcore/internal/protocol/schema"
	"github.com/danmuck/wlcore/internal/wlist"
)

// BindFunc creates the resource for a wl_registry.bind of a global.
type BindFunc func(c *Client, version, id uint32) (*Resource, error)

// Global is an object advertised through wl_registry.
type Global struct {
	Name      uint32
	Interface *schema.Interface
	Version   uint32

	bind BindFunc
}

// Display is the root of the object graph.
type Display struct {
	mu         sync.Mutex
	clients    *wlist.Arena[*Client]
	clientHead wlist.Node
	nextClient uint64
	globals    []*Global
	nextGlobal uint32
	serial     uint32
	destroyed  bool
}

func NewDisplay() *Display {
	d := &Display{
		clients:    wlist.NewArena[*Client](),
		nextGlobal: 1,
	}
	d.clientHead = d.clients.NewHead()
	return d
}

// CreateClient adopts conn as a new client. The client starts with its
// wl_display object mapped at id 1.
func (d *Display) CreateClient(conn net.Conn) (*Client, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return nil, ErrDisplayDestroyed
	}
	d.nextClient++
	c := newClient(d, d.nextClient, conn)
	c.link = d.clients.New(c)
	d.clients.PushBack(d.clientHead, c.link)
	d.mu.Unlock()
	observability.AddClients(1)

	if _, err := c.NewResource(core.Display, core.Display.Version, DisplayObjectID, displayImplementation(d)); err != nil {
		c.Destroy()
		return nil, fmt.Errorf("objects: map display object: %w", err)
	}
	logs.Infof("objects.Display.CreateClient client=%d remote=%s", c.id, remoteName(conn))
	return c, nil
}

func remoteName(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil && addr.String() != "" {
		return addr.String()
	}
	return "-"
}

func (d *Display) unlinkClient(c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.link.IsZero() {
		return
	}
	d.clients.Remove(c.link)
	d.clients.Release(c.link)
	c.link = wlist.Node{}
}

// Clients returns the live clients in connection order.
func (d *Display) Clients() []*Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clientHead.IsZero() {
		return nil
	}
	var out []*Client
	for _, c := range d.clients.All(d.clientHead) {
		out = append(out, *c)
	}
	return out
}

func (d *Display) ClientCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clientHead.IsZero() {
		return 0
	}
	return d.clients.Len(d.clientHead)
}

func (d *Display) Snapshot() []ClientSnapshot {
	clients := d.Clients()
	out := make([]ClientSnapshot, 0, len(clients))
	for _, c := range clients {
		out = append(out, c.Snapshot())
	}
	return out
}

func (d *Display) NextSerial() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serial++
	return d.serial
}

// AddGlobal advertises iface at version to every bound registry.
func (d *Display) AddGlobal(iface *schema.Interface, version uint32, bind BindFunc) (*Global, error) {
	if version == 0 || version > iface.Version {
		return nil, fmt.Errorf("objects: global %s version %d of %d: %w",
			iface.Name, version, iface.Version, schema.ErrMalformedSignature)
	}
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return nil, ErrDisplayDestroyed
	}
	g := &Global{Name: d.nextGlobal, Interface: iface, Version: version, bind: bind}
	d.nextGlobal++
	d.globals = append(d.globals, g)
	d.mu.Unlock()

	d.forEachRegistry(func(r *Resource) error { return announceGlobal(r, g) })
	logs.Infof("objects.Display.AddGlobal name=%d interface=%s version=%d", g.Name, iface.Name, version)
	return g, nil
}

// RemoveGlobal withdraws g; bound registries get global_remove.
func (d *Display) RemoveGlobal(g *Global) {
	d.mu.Lock()
	found := false
	for i, cur := range d.globals {
		if cur == g {
			d.globals = append(d.globals[:i], d.globals[i+1:]...)
			found = true
			break
		}
	}
	d.mu.Unlock()
	if !found {
		return
	}
	d.forEachRegistry(func(r *Resource) error {
		return r.PostEvent(core.RegistryEventGlobalRemove, schema.Uint(g.Name))
	})
	logs.Infof("objects.Display.RemoveGlobal name=%d interface=%s", g.Name, g.Interface.Name)
}

func (d *Display) Globals() []*Global {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Global(nil), d.globals...)
}

func (d *Display) global(name uint32) (*Global, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, g := range d.globals {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

func (d *Display) forEachRegistry(fn func(*Resource) error) {
	for _, c := range d.Clients() {
		c.ForEachResource(func(r *Resource) IterResult {
			if r.iface != core.Registry {
				return IterContinue
			}
			if err := fn(r); err != nil {
				logs.Warnf("objects.Display.forEachRegistry client=%d registry=%d err=%v", c.id, r.id, err)
			}
			return IterContinue
		})
	}
}

// Destroy tears down every client, newest first. Later CreateClient calls
// fail with ErrDisplayDestroyed.
func (d *Display) Destroy() {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	var doomed []*Client
	for _, c := range d.clients.Backward(d.clientHead) {
		doomed = append(doomed, *c)
	}
	d.mu.Unlock()

	for _, c := range doomed {
		c.Destroy()
	}

	d.mu.Lock()
	if d.clients.Empty(d.clientHead) {
		d.clients.Release(d.clientHead)
		d.clientHead = wlist.Node{}
	}
	d.globals = nil
	d.mu.Unlock()
	logs.Infof("objects.Display.Destroy clients=%d", len(doomed))
}
