package tools

import (
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/danmuck/wlcore/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestExecLauncherPassesExtraFiles(t *testing.T) {
	testlog.Start(t)
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	proc, err := ExecLauncher{}.Launch(CommandSpec{
		Path:       sh,
		Args:       []string{"-c", "echo ready >&3"},
		ExtraFiles: []*os.File{w},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Positive(t, proc.Pid())

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ready\n", string(buf[:n]))
	require.NoError(t, proc.Wait())
}

func TestExitCodeClassification(t *testing.T) {
	testlog.Start(t)
	require.Equal(t, int32(0), ExitCode(nil))
	require.Equal(t, int32(1), ExitCode(errors.New("boom")))

	_, err := ExecLauncher{}.Launch(CommandSpec{Path: "/nonexistent/wlcore-test-binary"})
	require.Error(t, err)
	require.Equal(t, int32(127), ExitCode(err))

	sh, lookErr := exec.LookPath("sh")
	if lookErr != nil {
		t.Skip("sh not available")
	}
	proc, err := ExecLauncher{}.Launch(CommandSpec{Path: sh, Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	require.Equal(t, int32(3), ExitCode(proc.Wait()))
}
