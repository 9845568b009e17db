package schema

import (
	"fmt"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/protocol"
)

// Interface is the named, versioned contract of one protocol object type.
// Tables are built once, compiled, and never mutated afterwards.
type Interface struct {
	Name     string
	Version  uint32
	Requests []Message
	Events   []Message

	compiled bool
}

// Message describes one request or event. Types holds one entry per o/n
// slot of Signature, left to right; a nil entry leaves that slot untyped.
type Message struct {
	Name      string
	Signature string
	Types     []*Interface

	sig   Signature
	owner string
	ready bool
}

// NewMessage builds and compiles a standalone message descriptor.
func NewMessage(name, signature string, types ...*Interface) (Message, error) {
	m := Message{Name: name, Signature: signature, Types: types}
	if err := m.compile(""); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m *Message) compile(owner string) error {
	sig, err := ParseSignature(m.Signature)
	if err != nil {
		return fmt.Errorf("schema: %s.%s: %w", owner, m.Name, err)
	}
	if slots := sig.ObjectSlots(); slots != len(m.Types) {
		return fmt.Errorf(
			"schema: %s.%s: %w %q: %d object slots, %d interface entries",
			owner, m.Name, ErrMalformedSignature, m.Signature, slots, len(m.Types),
		)
	}
	m.sig = sig
	m.owner = owner
	m.ready = true
	return nil
}

// Since is the first interface version carrying m.
func (m *Message) Since() uint32 {
	m.mustBeCompiled()
	return m.sig.Since
}

// Args returns the parsed argument slots.
func (m *Message) Args() []ArgSpec {
	m.mustBeCompiled()
	return m.sig.Args
}

// Arity is the number of wire arguments.
func (m *Message) Arity() int {
	m.mustBeCompiled()
	return len(m.sig.Args)
}

// SlotInterface returns the expected interface for argument pos, nil when
// the argument is not an object or is untyped.
func (m *Message) SlotInterface(pos int) *Interface {
	m.mustBeCompiled()
	slot := 0
	for i, a := range m.sig.Args {
		if !a.Kind.IsObject() {
			continue
		}
		if i == pos {
			return m.Types[slot]
		}
		slot++
	}
	return nil
}

func (m *Message) mustBeCompiled() {
	if !m.ready {
		panic(fmt.Sprintf("schema: message %q used before compile", m.Name))
	}
}

// Compile parses every message of i. Tables reference each other, so Compile
// is called after all tables of a protocol have been filled in.
func (i *Interface) Compile() error {
	if i.Name == "" {
		return fmt.Errorf("schema: %w: interface without name", ErrMalformedSignature)
	}
	if i.Version == 0 {
		return fmt.Errorf("schema: %s: %w: version 0", i.Name, ErrMalformedSignature)
	}
	for _, table := range [][]Message{i.Requests, i.Events} {
		for idx := range table {
			m := &table[idx]
			if err := m.compile(i.Name); err != nil {
				return err
			}
			if m.sig.Since > i.Version {
				return fmt.Errorf(
					"schema: %s.%s: %w: since %d beyond interface version %d",
					i.Name, m.Name, ErrMalformedSignature, m.sig.Since, i.Version,
				)
			}
		}
	}
	i.compiled = true
	logs.Debugf("schema.Interface.Compile name=%s version=%d requests=%d events=%d",
		i.Name, i.Version, len(i.Requests), len(i.Events))
	return nil
}

// MustCompile compiles every table and panics on the first malformed one.
func MustCompile(ifaces ...*Interface) {
	for _, i := range ifaces {
		if err := i.Compile(); err != nil {
			panic(err)
		}
	}
}

// Equal compares interfaces by name, so equivalent tables from different
// packages match.
func (i *Interface) Equal(other *Interface) bool {
	if i == other {
		return true
	}
	if i == nil || other == nil {
		return false
	}
	return i.Name == other.Name
}

func (i *Interface) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.Name
}

// Request returns request opcode for a binding negotiated at version.
func (i *Interface) Request(opcode uint16, version uint32) (*Message, error) {
	return i.lookup(i.Requests, "request", opcode, version)
}

// Event returns event opcode for a binding negotiated at version.
func (i *Interface) Event(opcode uint16, version uint32) (*Message, error) {
	return i.lookup(i.Events, "event", opcode, version)
}

func (i *Interface) lookup(table []Message, kind string, opcode uint16, version uint32) (*Message, error) {
	if !i.compiled {
		panic(fmt.Sprintf("schema: interface %q used before compile", i.Name))
	}
	if int(opcode) >= len(table) {
		return nil, ValidationError{
			Interface: i.Name,
			Code:      protocol.ErrInvalidOpcode,
			Reason:    fmt.Sprintf("%s opcode %d out of %d", kind, opcode, len(table)),
		}
	}
	m := &table[opcode]
	if err := m.SupportedAt(version); err != nil {
		return nil, err
	}
	return m, nil
}

// SupportedAt rejects m on a binding negotiated below its since version.
func (m *Message) SupportedAt(version uint32) error {
	m.mustBeCompiled()
	if version < m.sig.Since {
		return ValidationError{
			Interface: m.owner,
			Message:   m.Name,
			Code:      protocol.ErrVersionUnsupported,
			Reason:    fmt.Sprintf("since %d, bound at %d", m.sig.Since, version),
		}
	}
	return nil
}

// ValidationError is a recoverable protocol error. Arg is the 1-based
// argument position, 0 for message-level failures.
type ValidationError struct {
	Interface string
	Message   string
	Arg       int
	Code      error
	Reason    string
}

func (e ValidationError) Error() string {
	where := e.Interface
	if e.Message != "" {
		where += "." + e.Message
	}
	if e.Arg == 0 {
		return fmt.Sprintf("schema: %s: %v: %s", where, e.Code, e.Reason)
	}
	return fmt.Sprintf("schema: %s arg=%d: %v: %s", where, e.Arg, e.Code, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.Code
}
