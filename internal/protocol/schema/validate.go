package schema

import (
	"fmt"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/protocol"
)

// Value is one decoded wire argument.
type Value struct {
	Kind   Kind
	Int    int32
	Uint   uint32
	Fixed  protocol.Fixed
	Str    string
	Object uint32
	Array  []byte
	FD     int
	Null   bool
}

func Int(v int32) Value                 { return Value{Kind: KindInt, Int: v} }
func Uint(v uint32) Value               { return Value{Kind: KindUint, Uint: v} }
func FixedValue(v protocol.Fixed) Value { return Value{Kind: KindFixed, Fixed: v} }
func String(s string) Value             { return Value{Kind: KindString, Str: s} }
func NullString() Value                 { return Value{Kind: KindString, Null: true} }
func Object(id uint32) Value            { return Value{Kind: KindObject, Object: id, Null: id == 0} }
func NullObject() Value                 { return Value{Kind: KindObject, Null: true} }
func NewID(id uint32) Value             { return Value{Kind: KindNewID, Object: id, Null: id == 0} }
func Array(b []byte) Value              { return Value{Kind: KindArray, Array: b, Null: b == nil} }
func NullArray() Value                  { return Value{Kind: KindArray, Null: true} }
func FD(fd int) Value                   { return Value{Kind: KindFD, FD: fd} }

// IsNull reports whether v is the null value of a nullable-eligible kind.
func (v Value) IsNull() bool {
	if v.Kind.IsObject() {
		return v.Null || v.Object == 0
	}
	return v.Kind.CanBeNull() && v.Null
}

func (v Value) String() string {
	if v.IsNull() {
		return "nil"
	}
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindUint:
		return fmt.Sprintf("%d", v.Uint)
	case KindFixed:
		return v.Fixed.String()
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindObject, KindNewID:
		return fmt.Sprintf("%s#%d", v.Kind, v.Object)
	case KindArray:
		return fmt.Sprintf("array[%d]", len(v.Array))
	case KindFD:
		return fmt.Sprintf("fd %d", v.FD)
	}
	return v.Kind.String()
}

// Resolver maps a live object id to its interface.
type Resolver interface {
	ResolveObject(id uint32) (*Interface, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(uint32) (*Interface, bool)

func (f ResolverFunc) ResolveObject(id uint32) (*Interface, bool) {
	return f(id)
}

// Validate checks args against m: arity first, then per slot the kind, null
// handling, and for object slots the interface of the resolved object.
// new_id slots are not resolved; the caller allocates them. A nil resolver
// skips object resolution.
func (m *Message) Validate(args []Value, resolver Resolver) error {
	m.mustBeCompiled()
	owner := m.owner
	if len(args) != len(m.sig.Args) {
		logs.Debugf("schema.Message.Validate arity message=%s.%s got=%d want=%d",
			owner, m.Name, len(args), len(m.sig.Args))
		return ValidationError{
			Interface: owner,
			Message:   m.Name,
			Code:      protocol.ErrArity,
			Reason:    fmt.Sprintf("got %d arguments, want %d", len(args), len(m.sig.Args)),
		}
	}

	slot := 0
	for i, spec := range m.sig.Args {
		arg := args[i]
		fail := func(code error, reason string) error {
			logs.Debugf("schema.Message.Validate reject message=%s.%s arg=%d code=%q",
				owner, m.Name, i+1, code)
			return ValidationError{Interface: owner, Message: m.Name, Arg: i + 1, Code: code, Reason: reason}
		}

		if arg.Kind != spec.Kind {
			return fail(protocol.ErrArgumentKind, fmt.Sprintf("got %s, want %s", arg.Kind, spec.Kind))
		}
		var expected *Interface
		if spec.Kind.IsObject() {
			expected = m.Types[slot]
			slot++
		}
		if arg.IsNull() {
			if !spec.Nullable {
				return fail(protocol.ErrNullArgument, fmt.Sprintf("%s is not nullable", spec.Kind))
			}
			continue
		}
		if spec.Kind != KindObject || resolver == nil {
			continue
		}
		got, ok := resolver.ResolveObject(arg.Object)
		if !ok {
			return fail(protocol.ErrUnknownObject, fmt.Sprintf("object %d", arg.Object))
		}
		if expected != nil && !expected.Equal(got) {
			return fail(protocol.ErrInterfaceMismatch,
				fmt.Sprintf("object %d is %s, want %s", arg.Object, got, expected))
		}
	}
	return nil
}
