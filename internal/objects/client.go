package objects

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/observability"
	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/danmuck/wlcore/internal/protocol/core"
	"github.com/danmuck/wlcore/internal/protocol/schema"
	"github.com/danmuck/wlcore/internal/protocol/wire"
	"github.com/danmuck/wlcore/internal/wlist"
	"golang.org/x/sys/unix"
)

const (
	// DisplayObjectID is the wl_display object every client starts with.
	DisplayObjectID uint32 = 1
	// ServerIDStart is the first id of the server-allocated range.
	ServerIDStart uint32 = 0xff000000
)

// IterResult tells ForEachResource whether to keep walking.
type IterResult int

const (
	IterStop IterResult = iota
	IterContinue
)

// Client is one connected peer and the objects it owns.
type Client struct {
	display *Display
	conn    net.Conn
	id      uint64
	created time.Time

	mu           sync.Mutex
	objects      map[uint32]*Resource
	resources    *wlist.Arena[*Resource]
	resourceHead wlist.Node
	nextServerID uint32
	postedErr    error
	destroyed    bool

	// dispatchMu serializes request handling against Destroy.
	dispatchMu sync.Mutex
	writeMu    sync.Mutex

	listeners     *wlist.Arena[*Listener]
	destroySignal Signal

	link wlist.Node
}

func newClient(d *Display, id uint64, conn net.Conn) *Client {
	c := &Client{
		display:      d,
		conn:         conn,
		id:           id,
		created:      time.Now(),
		objects:      make(map[uint32]*Resource),
		resources:    wlist.NewArena[*Resource](),
		nextServerID: ServerIDStart,
		listeners:    wlist.NewArena[*Listener](),
	}
	c.resourceHead = c.resources.NewHead()
	c.destroySignal = newSignal(&c.mu, c.listeners)
	return c
}

func (c *Client) ID() uint64         { return c.id }
func (c *Client) Conn() net.Conn     { return c.conn }
func (c *Client) Display() *Display  { return c.display }
func (c *Client) Created() time.Time { return c.created }

// Err returns the protocol error posted to c, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postedErr
}

func (c *Client) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// NewResource maps a new object for c. An id of 0 allocates from the server
// range.
func (c *Client) NewResource(iface *schema.Interface, version, id uint32, impl Implementation) (*Resource, error) {
	if version == 0 || version > iface.Version {
		return nil, fmt.Errorf("objects: %s version %d of %d: %w",
			iface.Name, version, iface.Version, protocol.ErrVersionUnsupported)
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, ErrClientDestroyed
	}
	if id == 0 {
		if c.nextServerID == 0 {
			c.mu.Unlock()
			return nil, ErrIDSpaceExhausted
		}
		id = c.nextServerID
		c.nextServerID++
	}
	if _, taken := c.objects[id]; taken {
		c.mu.Unlock()
		return nil, fmt.Errorf("objects: %s id %d: %w", iface.Name, id, protocol.ErrObjectIDInUse)
	}
	r := &Resource{
		client:        c,
		iface:         iface,
		version:       version,
		id:            id,
		impl:          impl,
		destroySignal: newSignal(&c.mu, c.listeners),
	}
	r.link = c.resources.New(r)
	c.resources.PushBack(c.resourceHead, r.link)
	c.objects[id] = r
	c.mu.Unlock()

	observability.AddResources(1)
	logs.Debugf("objects.Client.NewResource client=%d object=%s version=%d", c.id, r, version)
	return r, nil
}

// Lookup returns the live resource with id.
func (c *Client) Lookup(id uint32) (*Resource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.objects[id]
	return r, ok
}

// ResolveObject makes c a schema.Resolver for its own object ids.
func (c *Client) ResolveObject(id uint32) (*schema.Interface, bool) {
	r, ok := c.Lookup(id)
	if !ok {
		return nil, false
	}
	return r.iface, true
}

func (c *Client) ResourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resourceHead.IsZero() {
		return 0
	}
	return c.resources.Len(c.resourceHead)
}

// ForEachResource calls fn for each resource in creation order until fn
// returns IterStop. Resources created during the walk are not visited.
func (c *Client) ForEachResource(fn func(*Resource) IterResult) {
	for _, r := range c.snapshotResources(false) {
		if fn(r) == IterStop {
			return
		}
	}
}

func (c *Client) snapshotResources(reverse bool) []*Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resourceHead.IsZero() {
		return nil
	}
	walk := c.resources.All
	if reverse {
		walk = c.resources.Backward
	}
	var out []*Resource
	for _, r := range walk(c.resourceHead) {
		out = append(out, *r)
	}
	return out
}

// AddDestroyListener registers l to run when c is destroyed, before its
// resources are torn down. l stays detached once c is being destroyed.
func (c *Client) AddDestroyListener(l *Listener) {
	c.destroySignal.Add(l)
}

// PostError sends wl_display.error naming objectID and marks c as failed.
// Only the first error is delivered.
func (c *Client) PostError(objectID, code uint32, format string, args ...any) error {
	message := fmt.Sprintf(format, args...)

	c.mu.Lock()
	if c.postedErr != nil || c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.postedErr = fmt.Errorf("%w: object %d code %d: %s", ErrClientErrored, objectID, code, message)
	display := c.objects[DisplayObjectID]
	c.mu.Unlock()

	logs.Warnf("objects.Client.PostError client=%d object=%d code=%d message=%q", c.id, objectID, code, message)
	if display == nil {
		return nil
	}
	return display.PostEvent(
		core.DisplayEventError,
		schema.Object(objectID),
		schema.Uint(code),
		schema.String(message),
	)
}

// Destroy emits the client destroy signal, destroys resources in reverse
// creation order, unlinks c from its display and closes the connection.
// It waits for an in-flight request to finish, so request handlers and
// destroy listeners must not call it.
func (c *Client) Destroy() {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.mu.Unlock()

	c.destroySignal.finalEmit(c)

	doomed := c.snapshotResources(true)
	for _, r := range doomed {
		c.destroyResource(r, false)
	}

	c.mu.Lock()
	c.resources.Release(c.resourceHead)
	c.resourceHead = wlist.Node{}
	c.mu.Unlock()

	c.display.unlinkClient(c)
	if err := c.conn.Close(); err != nil {
		logs.Debugf("objects.Client.Destroy client=%d close err=%v", c.id, err)
	}
	observability.AddClients(-1)
	logs.Infof("objects.Client.Destroy client=%d resources=%d", c.id, len(doomed))
}

func (c *Client) destroyResource(r *Resource, ack bool) {
	c.mu.Lock()
	if r.destroyed {
		c.mu.Unlock()
		return
	}
	r.destroyed = true
	c.mu.Unlock()

	r.destroySignal.finalEmit(r)

	c.mu.Lock()
	delete(c.objects, r.id)
	c.resources.Remove(r.link)
	c.resources.Release(r.link)
	r.link = wlist.Node{}
	live := !c.destroyed
	display := c.objects[DisplayObjectID]
	c.mu.Unlock()

	observability.AddResources(-1)
	logs.Debugf("objects.Resource.Destroy client=%d object=%s", c.id, r)
	if !ack || !live || r.id >= ServerIDStart || display == nil {
		return
	}
	if err := display.PostEvent(core.DisplayEventDeleteID, schema.Uint(r.id)); err != nil {
		logs.Warnf("objects.Resource.Destroy client=%d delete_id=%d err=%v", c.id, r.id, err)
	}
}

// send marshals one event. File descriptors need a unix socket.
func (c *Client) send(objectID uint32, opcode uint16, msg *schema.Message, args []schema.Value) error {
	buf, fds, err := wire.Marshal(objectID, opcode, msg, args)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if len(fds) == 0 {
		_, err = c.conn.Write(buf)
		return err
	}
	uc, ok := c.conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("objects: client %d %s: %w", c.id, msg.Name, ErrNoFDTransport)
	}
	_, _, err = uc.WriteMsgUnix(buf, unix.UnixRights(fds...), nil)
	return err
}

// ClientSnapshot is the read-only view served by the admin surface.
type ClientSnapshot struct {
	ID         uint64         `json:"id"`
	Created    time.Time      `json:"created"`
	Resources  int            `json:"resources"`
	Interfaces map[string]int `json:"interfaces"`
	Error      string         `json:"error,omitempty"`
}

func (c *Client) Snapshot() ClientSnapshot {
	snap := ClientSnapshot{ID: c.id, Created: c.created, Interfaces: map[string]int{}}
	c.ForEachResource(func(r *Resource) IterResult {
		snap.Resources++
		snap.Interfaces[r.iface.Name]++
		return IterContinue
	})
	if err := c.Err(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}
