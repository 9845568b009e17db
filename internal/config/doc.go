// Package config owns the wlcored server file format.
//
// Ownership boundary:
// - TOML decoding over defaults
// - validation of addresses, display ranges and timeouts
// - config templates for configgen
// - mapping the [xwayland] table onto bridge options
package config
