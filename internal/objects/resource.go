package objects

import (
	"fmt"

	"github.com/danmuck/wlcore/internal/protocol/schema"
	"github.com/danmuck/wlcore/internal/wlist"
)

// RequestHandler serves one request opcode. args have already been
// validated against the request descriptor.
type RequestHandler func(r *Resource, args []schema.Value) error

// Implementation is indexed by request opcode. Missing or nil entries
// accept the request without action.
type Implementation []RequestHandler

// Resource is one protocol object owned by a client.
type Resource struct {
	client  *Client
	iface   *schema.Interface
	version uint32
	id      uint32
	impl    Implementation

	// Data carries the server-side state behind the object.
	Data any

	link          wlist.Node
	destroySignal Signal
	destroyed     bool
}

func (r *Resource) Client() *Client              { return r.client }
func (r *Resource) Interface() *schema.Interface { return r.iface }
func (r *Resource) Version() uint32              { return r.version }
func (r *Resource) ID() uint32                   { return r.id }

func (r *Resource) String() string {
	return fmt.Sprintf("%s#%d", r.iface.Name, r.id)
}

// AddDestroyListener registers l to run when r is destroyed. l stays
// detached once r is being destroyed.
func (r *Resource) AddDestroyListener(l *Listener) {
	r.destroySignal.Add(l)
}

// PostEvent sends event opcode from r to its client.
func (r *Resource) PostEvent(opcode uint16, args ...schema.Value) error {
	msg, err := r.iface.Event(opcode, r.version)
	if err != nil {
		return err
	}
	return r.client.send(r.id, opcode, msg, args)
}

// Destroy fires the destroy signal, unmaps the object and, for ids the
// client allocated, acknowledges the id with wl_display.delete_id.
func (r *Resource) Destroy() {
	r.client.destroyResource(r, true)
}

func (r *Resource) handler(opcode uint16) RequestHandler {
	if int(opcode) >= len(r.impl) {
		return nil
	}
	return r.impl[opcode]
}
