package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/danmuck/wlcore/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

var (
	bazInterface   = &Interface{Name: "wl_baz", Version: 1}
	otherInterface = &Interface{Name: "wl_other", Version: 1}
)

func init() {
	MustCompile(bazInterface, otherInterface)
}

func resolverFor(objects map[uint32]*Interface) Resolver {
	return ResolverFunc(func(id uint32) (*Interface, bool) {
		iface, ok := objects[id]
		return iface, ok
	})
}

func TestParseSignatureVersionAndNullability(t *testing.T) {
	testlog.Start(t)
	sig, err := ParseSignature("2u?o")
	require.NoError(t, err)
	require.Equal(t, uint32(2), sig.Since)
	require.Equal(t, []ArgSpec{{Kind: KindUint}, {Kind: KindObject, Nullable: true}}, sig.Args)
	require.Equal(t, 1, sig.ObjectSlots())
	require.Equal(t, "2u?o", sig.String())
}

func TestParseSignatureDefaultsToVersionOne(t *testing.T) {
	testlog.Start(t)
	for _, raw := range []string{"", "ii", "?sa"} {
		sig, err := ParseSignature(raw)
		require.NoError(t, err, raw)
		require.Equal(t, DefaultSince, sig.Since, raw)
	}
	sig, err := ParseSignature("12h")
	require.NoError(t, err)
	require.Equal(t, uint32(12), sig.Since)
	require.Equal(t, KindFD, sig.Args[0].Kind)
}

func TestParseSignatureRejectsMalformed(t *testing.T) {
	testlog.Start(t)
	for _, raw := range []string{"x", "u?", "?i", "?h", "??o", "0u", "1u2", "99999999999u"} {
		_, err := ParseSignature(raw)
		require.ErrorIs(t, err, ErrMalformedSignature, raw)
	}
}

func TestNewMessageChecksInterfaceTableLength(t *testing.T) {
	testlog.Start(t)
	_, err := NewMessage("bar", "2u?o")
	require.ErrorIs(t, err, ErrMalformedSignature)
	_, err = NewMessage("bar", "ii", bazInterface)
	require.ErrorIs(t, err, ErrMalformedSignature)
	_, err = NewMessage("bind", "usun", nil)
	require.NoError(t, err, "untyped new_id entry must be accepted")
}

func TestValidateNullableObjectSlot(t *testing.T) {
	testlog.Start(t)
	m, err := NewMessage("bar", "2u?o", bazInterface)
	require.NoError(t, err)
	objects := resolverFor(map[uint32]*Interface{7: otherInterface, 8: bazInterface})

	require.NoError(t, m.Validate([]Value{Uint(5), NullObject()}, objects))
	require.NoError(t, m.Validate([]Value{Uint(5), Object(8)}, objects))

	err = m.Validate([]Value{Uint(5), Object(7)}, objects)
	require.ErrorIs(t, err, protocol.ErrInterfaceMismatch)
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, 2, ve.Arg)
	require.Equal(t, "bar", ve.Message)

	require.ErrorIs(t, m.SupportedAt(1), protocol.ErrVersionUnsupported)
	require.NoError(t, m.SupportedAt(2))
}

func TestValidateUnknownObjectIsDistinctFromNull(t *testing.T) {
	testlog.Start(t)
	m, err := NewMessage("set", "o", bazInterface)
	require.NoError(t, err)
	objects := resolverFor(map[uint32]*Interface{})

	err = m.Validate([]Value{Object(40)}, objects)
	require.ErrorIs(t, err, protocol.ErrUnknownObject)
	require.NotErrorIs(t, err, protocol.ErrNullArgument)
	require.ErrorIs(t, m.Validate([]Value{NullObject()}, objects), protocol.ErrNullArgument)
}

func TestValidateArity(t *testing.T) {
	testlog.Start(t)
	m, err := NewMessage("move", "ii")
	require.NoError(t, err)
	require.ErrorIs(t, m.Validate([]Value{Int(1), Int(2), Int(3)}, nil), protocol.ErrArity)
	require.NoError(t, m.Validate([]Value{Int(1), Int(2)}, nil))
	require.ErrorIs(t, m.Validate([]Value{Int(1), Uint(2)}, nil), protocol.ErrArgumentKind)
}

func TestValidateNullStringAndArray(t *testing.T) {
	testlog.Start(t)
	m, err := NewMessage("title", "?sa")
	require.NoError(t, err)
	require.NoError(t, m.Validate([]Value{NullString(), Array([]byte{1})}, nil))
	require.ErrorIs(t, m.Validate([]Value{String("x"), NullArray()}, nil), protocol.ErrNullArgument)
	require.NoError(t, m.Validate([]Value{String(""), Array([]byte{})}, nil), "empty values are not null")
}

func TestInterfaceLookupGatesOnVersion(t *testing.T) {
	testlog.Start(t)
	foo := &Interface{
		Name:    "wl_foo",
		Version: 3,
		Requests: []Message{
			{Name: "destroy", Signature: ""},
			{Name: "bar", Signature: "2u?o", Types: []*Interface{bazInterface}},
		},
		Events: []Message{
			{Name: "done", Signature: "3u"},
		},
	}
	require.NoError(t, foo.Compile())

	_, err := foo.Request(1, 1)
	require.ErrorIs(t, err, protocol.ErrVersionUnsupported)
	require.NotErrorIs(t, err, ErrMalformedSignature)

	m, err := foo.Request(1, 2)
	require.NoError(t, err)
	require.Equal(t, "bar", m.Name)
	require.Equal(t, uint32(2), m.Since())
	require.Same(t, bazInterface, m.SlotInterface(1))
	require.Nil(t, m.SlotInterface(0))

	_, err = foo.Request(9, 3)
	require.ErrorIs(t, err, protocol.ErrInvalidOpcode)
	_, err = foo.Event(0, 2)
	require.ErrorIs(t, err, protocol.ErrVersionUnsupported)
}

func TestCompileRejectsBadTables(t *testing.T) {
	testlog.Start(t)
	cases := []*Interface{
		{Name: "", Version: 1},
		{Name: "wl_v0", Version: 0},
		{Name: "wl_future", Version: 1, Requests: []Message{{Name: "late", Signature: "2u"}}},
		{Name: "wl_short", Version: 1, Events: []Message{{Name: "obj", Signature: "o"}}},
	}
	for _, iface := range cases {
		require.ErrorIs(t, iface.Compile(), ErrMalformedSignature, iface.Name)
	}

	require.Panics(t, func() {
		MustCompile(&Interface{Name: "wl_bad", Version: 1, Requests: []Message{{Name: "x", Signature: "?i"}}})
	})
}

func TestInterfaceEqualByName(t *testing.T) {
	testlog.Start(t)
	clone := &Interface{Name: "wl_baz", Version: 2}
	require.True(t, bazInterface.Equal(clone))
	require.False(t, bazInterface.Equal(otherInterface))
	require.False(t, bazInterface.Equal(nil))
}
