package tools

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

// CommandSpec describes one child process. ExtraFiles become descriptors
// 3, 4, ... in the child, in order.
type CommandSpec struct {
	Path       string
	Args       []string
	Env        []string
	ExtraFiles []*os.File
	Stdout     io.Writer
	Stderr     io.Writer
}

// Process is a started child.
type Process interface {
	Pid() int
	Signal(sig os.Signal) error
	Wait() error
}

// Launcher abstracts process creation for runtime adapters.
type Launcher interface {
	Launch(spec CommandSpec) (Process, error)
}

// ExecLauncher starts processes on the local host.
type ExecLauncher struct{}

// tools launcher implementation backed by os/exec.
func (ExecLauncher) Launch(spec CommandSpec) (Process, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Env = spec.Env
	cmd.ExtraFiles = spec.ExtraFiles
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Pid() int                   { return p.cmd.Process.Pid }
func (p execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p execProcess) Wait() error                { return p.cmd.Wait() }

// ExitCode classifies a Wait or Start error: 0 on success, the child's exit
// code when it ran, 127 when it could not be executed, 1 otherwise.
func ExitCode(err error) int32 {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitCode())
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
		return 127
	}
	return 1
}
