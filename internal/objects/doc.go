// Package objects owns the live protocol object graph.
//
// Ownership boundary:
// - display, client and resource lifetimes
// - object id maps and per-client resource lists
// - destroy signals and listener chains
// - request dispatch and protocol error reporting
//
// Lists are wlist arenas: the display keeps one for its clients, each
// client keeps one for its resources and one for listeners. The display
// lock guards the client list only; a client's resources and signals are
// driven by whoever serves that client.
package objects
