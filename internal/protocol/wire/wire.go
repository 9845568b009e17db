package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/danmuck/wlcore/internal/protocol/schema"
)

const (
	HeaderLen      = 8
	MaxMessageSize = 4096
)

var order = binary.NativeEndian

// Header is the fixed message header: sender object, then size and opcode
// packed into one word.
type Header struct {
	ObjectID uint32
	Opcode   uint16
	Size     uint16
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	putHeader(buf, h)
	return buf
}

func putHeader(buf []byte, h Header) {
	order.PutUint32(buf[0:4], h.ObjectID)
	order.PutUint32(buf[4:8], uint32(h.Size)<<16|uint32(h.Opcode))
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, protocol.ErrTruncated
	}
	word := order.Uint32(b[4:8])
	h := Header{
		ObjectID: order.Uint32(b[0:4]),
		Opcode:   uint16(word & 0xffff),
		Size:     uint16(word >> 16),
	}
	if h.Size < HeaderLen || h.Size%4 != 0 {
		return Header{}, fmt.Errorf("wire: header size %d: %w", h.Size, protocol.ErrInvalidLength)
	}
	if h.Size > MaxMessageSize {
		return Header{}, fmt.Errorf("wire: header size %d: %w", h.Size, protocol.ErrMessageTooLarge)
	}
	return h, nil
}

// FDQueue holds file descriptors received out of band, in arrival order.
type FDQueue struct {
	fds []int
}

func (q *FDQueue) Push(fds ...int) {
	q.fds = append(q.fds, fds...)
}

func (q *FDQueue) Pop() (int, bool) {
	if q == nil || len(q.fds) == 0 {
		return -1, false
	}
	fd := q.fds[0]
	q.fds = q.fds[1:]
	return fd, true
}

func (q *FDQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.fds)
}

// Marshal lays args out for message m sent by objectID. File descriptors do
// not travel in the body; they are returned for the transport to attach.
func Marshal(objectID uint32, opcode uint16, m *schema.Message, args []schema.Value) ([]byte, []int, error) {
	if err := m.Validate(args, nil); err != nil {
		return nil, nil, err
	}
	size := HeaderLen
	for _, arg := range args {
		size += argSize(arg)
	}
	if size > MaxMessageSize {
		return nil, nil, fmt.Errorf("wire: %s size %d: %w", m.Name, size, protocol.ErrMessageTooLarge)
	}

	buf := make([]byte, size)
	putHeader(buf, Header{ObjectID: objectID, Opcode: opcode, Size: uint16(size)})
	var fds []int
	off := HeaderLen
	for _, arg := range args {
		switch arg.Kind {
		case schema.KindInt:
			order.PutUint32(buf[off:], uint32(arg.Int))
			off += 4
		case schema.KindUint:
			order.PutUint32(buf[off:], arg.Uint)
			off += 4
		case schema.KindFixed:
			order.PutUint32(buf[off:], uint32(arg.Fixed))
			off += 4
		case schema.KindObject, schema.KindNewID:
			id := arg.Object
			if arg.IsNull() {
				id = 0
			}
			order.PutUint32(buf[off:], id)
			off += 4
		case schema.KindString:
			if arg.IsNull() {
				order.PutUint32(buf[off:], 0)
				off += 4
				continue
			}
			order.PutUint32(buf[off:], uint32(len(arg.Str)+1))
			off += 4
			copy(buf[off:], arg.Str)
			off += padded(len(arg.Str) + 1)
		case schema.KindArray:
			order.PutUint32(buf[off:], uint32(len(arg.Array)))
			off += 4
			copy(buf[off:], arg.Array)
			off += padded(len(arg.Array))
		case schema.KindFD:
			fds = append(fds, arg.FD)
		}
	}
	return buf, fds, nil
}

// Unmarshal decodes the body of a message whose header was h. FD arguments
// are taken from fds in order.
func Unmarshal(h Header, body []byte, m *schema.Message, fds *FDQueue) ([]schema.Value, error) {
	if len(body) != int(h.Size)-HeaderLen {
		return nil, fmt.Errorf("wire: %s body %d bytes, header says %d: %w",
			m.Name, len(body), int(h.Size)-HeaderLen, protocol.ErrInvalidLength)
	}
	specs := m.Args()
	out := make([]schema.Value, 0, len(specs))
	off := 0
	word := func() (uint32, error) {
		if len(body)-off < 4 {
			return 0, protocol.ErrTruncated
		}
		v := order.Uint32(body[off:])
		off += 4
		return v, nil
	}

	for i, spec := range specs {
		fail := func(err error) ([]schema.Value, error) {
			return nil, fmt.Errorf("wire: %s arg=%d (%s): %w", m.Name, i+1, spec.Kind, err)
		}
		if spec.Kind == schema.KindFD {
			fd, ok := fds.Pop()
			if !ok {
				return fail(protocol.ErrMissingFD)
			}
			out = append(out, schema.FD(fd))
			continue
		}

		v, err := word()
		if err != nil {
			return fail(err)
		}
		switch spec.Kind {
		case schema.KindInt:
			out = append(out, schema.Int(int32(v)))
		case schema.KindUint:
			out = append(out, schema.Uint(v))
		case schema.KindFixed:
			out = append(out, schema.FixedValue(protocol.Fixed(int32(v))))
		case schema.KindObject:
			out = append(out, schema.Object(v))
		case schema.KindNewID:
			out = append(out, schema.NewID(v))
		case schema.KindString:
			if v == 0 {
				out = append(out, schema.NullString())
				continue
			}
			if !fitsPadded(v, len(body)-off) {
				return fail(protocol.ErrInvalidLength)
			}
			n := int(v)
			raw := body[off : off+n]
			if raw[n-1] != 0 {
				return fail(protocol.ErrStringNotTerminated)
			}
			out = append(out, schema.String(string(raw[:n-1])))
			off += padded(n)
		case schema.KindArray:
			if !fitsPadded(v, len(body)-off) {
				return fail(protocol.ErrInvalidLength)
			}
			n := int(v)
			if n == 0 && spec.Nullable {
				out = append(out, schema.NullArray())
				continue
			}
			data := make([]byte, n)
			copy(data, body[off:off+n])
			out = append(out, schema.Array(data))
			off += padded(n)
		}
	}
	if off != len(body) {
		return nil, fmt.Errorf("wire: %s: %d trailing bytes: %w", m.Name, len(body)-off, protocol.ErrInvalidLength)
	}
	return out, nil
}

// WriteMessage marshals and writes one message. It returns the descriptors
// the caller must send alongside the bytes.
func WriteMessage(w io.Writer, objectID uint32, opcode uint16, m *schema.Message, args []schema.Value) ([]int, error) {
	buf, fds, err := Marshal(objectID, opcode, m, args)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(buf); err != nil {
		return nil, err
	}
	return fds, nil
}

// ReadMessage reads one message. lookup resolves the descriptor from the
// header, typically through the sender's interface and bound version.
func ReadMessage(
	r io.Reader,
	lookup func(Header) (*schema.Message, error),
	fds *FDQueue,
) (Header, []schema.Value, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, nil, protocol.ErrTruncated
		}
		return Header{}, nil, err
	}
	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Header{}, nil, err
	}
	body := make([]byte, int(h.Size)-HeaderLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return h, nil, protocol.ErrTruncated
	}
	m, err := lookup(h)
	if err != nil {
		return h, nil, err
	}
	args, err := Unmarshal(h, body, m, fds)
	return h, args, err
}

func argSize(arg schema.Value) int {
	switch arg.Kind {
	case schema.KindFD:
		return 0
	case schema.KindString:
		if arg.IsNull() {
			return 4
		}
		return 4 + padded(len(arg.Str)+1)
	case schema.KindArray:
		return 4 + padded(len(arg.Array))
	default:
		return 4
	}
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// fitsPadded reports whether a peer-supplied length fits in remaining bytes
// once padded. The check runs in uint64 so no length wraps on 32-bit ints.
func fitsPadded(length uint32, remaining int) bool {
	return (uint64(length)+3)&^3 <= uint64(remaining)
}
