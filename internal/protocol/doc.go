// Package protocol owns the primitives shared by the schema and wire layers.
//
// Ownership boundary:
// - protocol and wire sentinel errors
// - wl_display.error code mapping
// - fixed-point numbers
package protocol
