package mysql

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one invocation of an external client binary.
type Command struct {
	Name string
	Args []string
	// Env is appended to the current process environment.
	Env []string
	// Stdin, when set, is fed to the process.
	Stdin io.Reader
	// Stdout, when set, receives the output instead of it being captured.
	Stdout io.Writer
}

// Runner executes commands. It returns captured stdout when cmd.Stdout is nil.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExitError reports a process that ran but did not succeed.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, msg)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin

	var stdout, stderr bytes.Buffer
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{Name: c.Name, Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return stdout.String(), fmt.Errorf("running %s: %w", c.Name, err)
	}
	return stdout.String(), nil
}
