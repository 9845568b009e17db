// Package tools provides reusable runtime helpers for supervised child
// processes.
//
// Ownership boundary:
// - process launch with inherited descriptors
//
// - exit status classification
package tools
