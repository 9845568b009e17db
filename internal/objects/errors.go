package objects

import "errors"

var (
	ErrDisplayDestroyed = errors.New("objects: display destroyed")
	ErrClientDestroyed  = errors.New("objects: client destroyed")
	ErrClientErrored    = errors.New("objects: client has a posted protocol error")
	ErrNilConn          = errors.New("objects: nil connection")
	ErrNoFDTransport    = errors.New("objects: connection cannot carry file descriptors")
	ErrIDSpaceExhausted = errors.New("objects: server object ids exhausted")
)
