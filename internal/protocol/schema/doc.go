// Package schema owns message descriptors and their validation.
//
// Ownership boundary:
// - signature parsing (since version, argument kinds, nullability)
// - interface and message tables
// - opcode lookup with version gating
// - argument validation and object resolution
//
// Malformed tables are programming errors reported by Compile. Everything
// Validate and the lookups return is a recoverable ValidationError meant
// for the peer.
package schema
