// Package xwayland supervises an Xwayland server for a protocol display.
//
// Ownership boundary:
// - X display number allocation (lock files and listening sockets)
// - Wayland and window-manager socket pairs handed to the child
// - readiness, exit and teardown state machine
// - starting/destroyed callbacks, each fired at most once per server
//
// Init must run once per process before the first Setup.
package xwayland
