// Package wlist provides intrusive doubly-linked rings backed by an arena.
//
// Ownership boundary:
// - sentinel heads and element links
// - O(1) insert, remove and splice
// - forward/backward walks, with removal-safe variants
//
// An object that belongs to several lists holds one Node per membership,
// each allocated from the Arena of that relationship. The owner is recovered
// with Arena.Value instead of pointer arithmetic.
//
// Misuse (double insert, stale handles, releasing a linked node) panics at
// the call site rather than corrupting a ring.
package wlist
