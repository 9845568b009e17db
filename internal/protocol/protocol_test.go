package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/wlcore/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestFixedConversions(t *testing.T) {
	testlog.Start(t)
	require.Equal(t, Fixed(768), FixedFromInt(3))
	require.Equal(t, int32(3), FixedFromInt(3).Int())
	require.Equal(t, Fixed(384), FixedFromFloat(1.5))
	require.Equal(t, 1.5, FixedFromFloat(1.5).Float())
	require.Equal(t, -2.25, FixedFromFloat(-2.25).Float())
	require.Equal(t, int32(-1), FixedFromFloat(-1.75).Int(), "Int truncates toward zero")
	require.Equal(t, "0.5", FixedFromFloat(0.5).String())
}

func TestDisplayErrorCodeMapping(t *testing.T) {
	testlog.Start(t)
	wrapped := fmt.Errorf("dispatch: %w", ErrUnknownObject)
	require.Equal(t, DisplayErrorInvalidObject, DisplayErrorCode(wrapped))
	require.Equal(t, DisplayErrorInvalidMethod, DisplayErrorCode(ErrNullArgument))
	require.Equal(t, DisplayErrorImplementation, DisplayErrorCode(errors.New("boom")))
	require.Equal(t, "unknown_object", ErrorLabel(wrapped))
	require.Equal(t, "other", ErrorLabel(errors.New("boom")))
}
