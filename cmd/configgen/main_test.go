package main

import (
	"path/filepath"
	"testing"

	"github.com/danmuck/wlcore/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestWriteThenValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "wlcored.toml")

	require.NoError(t, run([]string{"--kind", "xwayland", "--output", path}))
	require.Error(t, run([]string{"--output", path}))
	require.NoError(t, run([]string{"--output", path, "--force"}))
	require.NoError(t, run([]string{"--validate", "--input", path}))
}

func TestValidateMissingFile(t *testing.T) {
	testlog.Start(t)
	err := run([]string{"--validate", "--input", filepath.Join(t.TempDir(), "nope.toml")})
	require.ErrorContains(t, err, "config load failed")
}

func TestUnknownKind(t *testing.T) {
	testlog.Start(t)
	err := run([]string{"--kind", "compositor", "--output", filepath.Join(t.TempDir(), "x.toml")})
	require.ErrorContains(t, err, "unknown config kind")
}
