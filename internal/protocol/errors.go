package protocol

import "errors"

// Protocol errors: recoverable, reported to the peer that caused them.
var (
	ErrArity              = errors.New("protocol: argument count mismatch")
	ErrArgumentKind       = errors.New("protocol: argument kind mismatch")
	ErrNullArgument       = errors.New("protocol: null value for non-nullable argument")
	ErrUnknownObject      = errors.New("protocol: unknown object")
	ErrInterfaceMismatch  = errors.New("protocol: object interface mismatch")
	ErrInvalidOpcode      = errors.New("protocol: invalid opcode")
	ErrVersionUnsupported = errors.New("protocol: message not supported at this version")
	ErrObjectIDInUse      = errors.New("protocol: new object id already in use")
)

// Wire errors: the byte stream could not be framed against a message.
var (
	ErrTruncated           = errors.New("protocol: truncated data")
	ErrInvalidLength       = errors.New("protocol: invalid length")
	ErrMessageTooLarge     = errors.New("protocol: message too large")
	ErrStringNotTerminated = errors.New("protocol: string not nul-terminated")
	ErrMissingFD           = errors.New("protocol: missing file descriptor")
)

// Error codes of the wl_display.error event.
const (
	DisplayErrorInvalidObject  uint32 = 0
	DisplayErrorInvalidMethod  uint32 = 1
	DisplayErrorNoMemory       uint32 = 2
	DisplayErrorImplementation uint32 = 3
)

// DisplayErrorCode maps err onto the wl_display.error code sent to a peer.
func DisplayErrorCode(err error) uint32 {
	switch {
	case errors.Is(err, ErrUnknownObject):
		return DisplayErrorInvalidObject
	case errors.Is(err, ErrArity),
		errors.Is(err, ErrArgumentKind),
		errors.Is(err, ErrNullArgument),
		errors.Is(err, ErrInterfaceMismatch),
		errors.Is(err, ErrInvalidOpcode),
		errors.Is(err, ErrVersionUnsupported),
		errors.Is(err, ErrObjectIDInUse),
		errors.Is(err, ErrTruncated),
		errors.Is(err, ErrInvalidLength),
		errors.Is(err, ErrMessageTooLarge),
		errors.Is(err, ErrStringNotTerminated),
		errors.Is(err, ErrMissingFD):
		return DisplayErrorInvalidMethod
	default:
		return DisplayErrorImplementation
	}
}

// ErrorLabel is a short stable name for err, used as a metric label.
func ErrorLabel(err error) string {
	for _, known := range []struct {
		err   error
		label string
	}{
		{ErrArity, "arity"},
		{ErrArgumentKind, "argument_kind"},
		{ErrNullArgument, "null_argument"},
		{ErrUnknownObject, "unknown_object"},
		{ErrInterfaceMismatch, "interface_mismatch"},
		{ErrInvalidOpcode, "invalid_opcode"},
		{ErrVersionUnsupported, "version"},
		{ErrObjectIDInUse, "object_id_in_use"},
		{ErrTruncated, "truncated"},
		{ErrInvalidLength, "invalid_length"},
		{ErrMessageTooLarge, "too_large"},
		{ErrStringNotTerminated, "string"},
		{ErrMissingFD, "missing_fd"},
	} {
		if errors.Is(err, known.err) {
			return known.label
		}
	}
	return "other"
}

// IsProtocolError reports whether err is one of the protocol or wire
// sentinels above, as opposed to a transport or implementation failure.
func IsProtocolError(err error) bool {
	return ErrorLabel(err) != "other"
}
