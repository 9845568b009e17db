// Package core publishes the descriptor tables of the core protocol
// interfaces.
//
// Ownership boundary:
// - request and event tables indexed by opcode
// - interface versions advertised by this server
// - opcode constants used by dispatch code
//
// Tables are filled and compiled once in init and never mutated afterwards.
package core
