package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedSignature marks a descriptor that can never be valid. It is a
// programming error surfaced when an interface table is compiled.
var ErrMalformedSignature = errors.New("schema: malformed signature")

// DefaultSince is the version of a message whose signature carries no
// leading version digits.
const DefaultSince uint32 = 1

// Kind is one argument symbol of a signature.
type Kind byte

const (
	KindInt    Kind = 'i'
	KindUint   Kind = 'u'
	KindFixed  Kind = 'f'
	KindString Kind = 's'
	KindObject Kind = 'o'
	KindNewID  Kind = 'n'
	KindArray  Kind = 'a'
	KindFD     Kind = 'h'
)

const nullableMarker = '?'

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFixed:
		return "fixed"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindNewID:
		return "new_id"
	case KindArray:
		return "array"
	case KindFD:
		return "fd"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Valid reports whether k is a known argument symbol.
func (k Kind) Valid() bool {
	switch k {
	case KindInt, KindUint, KindFixed, KindString, KindObject, KindNewID, KindArray, KindFD:
		return true
	}
	return false
}

// IsObject reports whether the slot carries an object id and takes an
// entry in the interface table.
func (k Kind) IsObject() bool {
	return k == KindObject || k == KindNewID
}

// CanBeNull reports whether '?' may precede k.
func (k Kind) CanBeNull() bool {
	switch k {
	case KindString, KindObject, KindNewID, KindArray:
		return true
	}
	return false
}

// ArgSpec is one parsed argument slot.
type ArgSpec struct {
	Kind     Kind
	Nullable bool
}

func (a ArgSpec) String() string {
	if a.Nullable {
		return "?" + string(a.Kind)
	}
	return string(a.Kind)
}

// Signature is the parsed form of a signature string.
type Signature struct {
	Since uint32
	Args  []ArgSpec
}

// ParseSignature parses sig left to right: optional decimal since-version,
// then argument symbols, each optionally preceded by '?'.
func ParseSignature(sig string) (Signature, error) {
	out := Signature{Since: DefaultSince}

	digits := 0
	for digits < len(sig) && sig[digits] >= '0' && sig[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		v, err := strconv.ParseUint(sig[:digits], 10, 32)
		if err != nil || v == 0 {
			return Signature{}, malformed(sig, 0, "invalid since version")
		}
		out.Since = uint32(v)
	}

	nullable := false
	for i := digits; i < len(sig); i++ {
		c := sig[i]
		if c == nullableMarker {
			if nullable {
				return Signature{}, malformed(sig, i, "repeated nullability marker")
			}
			nullable = true
			continue
		}
		k := Kind(c)
		if !k.Valid() {
			return Signature{}, malformed(sig, i, fmt.Sprintf("unknown symbol %q", c))
		}
		if nullable && !k.CanBeNull() {
			return Signature{}, malformed(sig, i, fmt.Sprintf("%s cannot be nullable", k))
		}
		out.Args = append(out.Args, ArgSpec{Kind: k, Nullable: nullable})
		nullable = false
	}
	if nullable {
		return Signature{}, malformed(sig, len(sig), "trailing nullability marker")
	}
	return out, nil
}

// ObjectSlots counts the o and n arguments.
func (s Signature) ObjectSlots() int {
	n := 0
	for _, a := range s.Args {
		if a.Kind.IsObject() {
			n++
		}
	}
	return n
}

// String re-encodes s in canonical form. The since version is written only
// when it differs from DefaultSince.
func (s Signature) String() string {
	var b strings.Builder
	if s.Since != DefaultSince {
		b.WriteString(strconv.FormatUint(uint64(s.Since), 10))
	}
	for _, a := range s.Args {
		b.WriteString(a.String())
	}
	return b.String()
}

func malformed(sig string, at int, reason string) error {
	return fmt.Errorf("%w %q at %d: %s", ErrMalformedSignature, sig, at, reason)
}
