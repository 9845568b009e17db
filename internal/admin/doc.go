// Package admin owns the operator HTTP surface.
//
// Ownership boundary:
// - health and readiness probes
// - prometheus scrape endpoint
// - read-only snapshots of clients, globals and the Xwayland bridge
//
// The admin server never mutates the object graph.
package admin
