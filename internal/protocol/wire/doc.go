// Package wire owns the byte layout of protocol messages.
//
// Ownership boundary:
// - 8-byte message header (sender object, size, opcode)
// - argument marshal/demarshal driven by a schema.Message
// - out-of-band file descriptor queue
//
// Socket I/O and fd passing belong to the transport; this package only
// works on byte slices and io streams.
package wire
