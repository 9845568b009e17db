package objects

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/observability"
	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/danmuck/wlcore/internal/protocol/schema"
	"github.com/danmuck/wlcore/internal/protocol/wire"
)

// Dispatch delivers one decoded request to object objectID of c: resource
// lookup, version gate, argument validation, then the request handler.
// Protocol errors are posted to the peer and returned; the caller decides
// when to destroy c.
func Dispatch(c *Client, objectID uint32, opcode uint16, args []schema.Value) error {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	if c.isDestroyed() {
		return fmt.Errorf("objects: client %d: %w", c.id, ErrClientDestroyed)
	}
	if c.Err() != nil {
		return fmt.Errorf("objects: client %d: %w", c.id, ErrClientErrored)
	}
	r, ok := c.Lookup(objectID)
	if !ok {
		return c.fail(DisplayObjectID, fmt.Errorf("objects: object %d: %w", objectID, protocol.ErrUnknownObject))
	}
	msg, err := r.iface.Request(opcode, r.version)
	if err != nil {
		return c.fail(objectID, err)
	}
	if err := msg.Validate(args, c); err != nil {
		return c.fail(objectID, err)
	}
	for i, spec := range msg.Args() {
		if spec.Kind != schema.KindNewID || args[i].IsNull() {
			continue
		}
		if _, taken := c.Lookup(args[i].Object); taken {
			return c.fail(objectID, schema.ValidationError{
				Interface: r.iface.Name,
				Message:   msg.Name,
				Arg:       i + 1,
				Code:      protocol.ErrObjectIDInUse,
				Reason:    fmt.Sprintf("id %d", args[i].Object),
			})
		}
	}

	observability.RecordDispatch(r.iface.Name, msg.Name)
	logs.Tracef("objects.Dispatch client=%d object=%s request=%s args=%v", c.id, r, msg.Name, args)
	handler := r.handler(opcode)
	if handler == nil {
		return nil
	}
	if err := handler(r, args); err != nil {
		return c.fail(objectID, err)
	}
	return nil
}

// DispatchNext reads one request from the client connection and dispatches
// it. fds holds descriptors the transport received alongside the bytes.
// Connection errors are returned without posting anything.
func (c *Client) DispatchNext(fds *wire.FDQueue) error {
	h, args, err := wire.ReadMessage(c.conn, c.requestDescriptor, fds)
	if err != nil {
		if errors.Is(err, io.EOF) || !protocol.IsProtocolError(err) {
			return err
		}
		target := h.ObjectID
		if target == 0 || errors.Is(err, protocol.ErrUnknownObject) {
			target = DisplayObjectID
		}
		return c.fail(target, err)
	}
	return Dispatch(c, h.ObjectID, h.Opcode, args)
}

func (c *Client) requestDescriptor(h wire.Header) (*schema.Message, error) {
	r, ok := c.Lookup(h.ObjectID)
	if !ok {
		return nil, fmt.Errorf("objects: object %d: %w", h.ObjectID, protocol.ErrUnknownObject)
	}
	return r.iface.Request(h.Opcode, r.version)
}

func (c *Client) fail(objectID uint32, err error) error {
	observability.RecordProtocolError(err)
	if postErr := c.PostError(objectID, protocol.DisplayErrorCode(err), "%v", err); postErr != nil {
		logs.Warnf("objects.Client.fail client=%d post err=%v", c.id, postErr)
	}
	return err
}
