package testlog

import (
	"testing"

	"github.com/danmuck/wlcore/internal/logging"
	"github.com/danmuck/wlcore/internal/logs"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logs.Infof("test=%s", t.Name())
}
