package logging

import (
	"testing"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/stretchr/testify/require"
)

func TestParseLevelAliases(t *testing.T) {
	cases := map[string]logs.Level{
		"trace":       logs.TraceLevel,
		"diagnostics": logs.TraceLevel,
		" DEBUG ":     logs.DebugLevel,
		"warning":     logs.WarnLevel,
		"off":         logs.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		require.True(t, ok, "parseLevel(%q)", raw)
		require.Equal(t, want, got, "parseLevel(%q)", raw)
	}
	_, ok := parseLevel("loud")
	require.False(t, ok, "unknown level")
	_, ok = parseLevel("")
	require.False(t, ok, "empty level")
}

func TestEnvOverridesApplyOnTopOfProfile(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "true")
	t.Setenv(EnvLogBypass, "not-a-bool")

	cfg := defaultConfig(ProfileTest)
	applyEnvOverrides(&cfg)
	require.Equal(t, logs.ErrorLevel, cfg.Level)
	require.True(t, cfg.Timestamp)
	require.False(t, cfg.Bypass, "invalid bool must not flip bypass")
}
