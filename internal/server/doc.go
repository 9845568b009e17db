// Package server owns the wlcored process lifecycle.
//
// Ownership boundary:
// - display and core globals
// - admin HTTP server start and shutdown
// - Xwayland bridge setup, client serving and teardown
//
// Lifecycle order:
// - bootstrap -> serve -> shutdown
//
// - shutdown tears the bridge down before destroying the display.
package server
