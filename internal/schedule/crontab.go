package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecCrontab uses the crontab binary.
type ExecCrontab struct {
	// Bin defaults to "crontab".
	Bin string
}

func (c ExecCrontab) bin() string {
	if c.Bin == "" {
		return "crontab"
	}
	return c.Bin
}

// Read returns the current crontab. A user without a crontab gets "".
func (c ExecCrontab) Read(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.bin(), "-l")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// crontab -l exits non-zero when there is no crontab yet.
			return "", nil
		}
		return "", fmt.Errorf("reading crontab: %w", err)
	}
	return stdout.String(), nil
}

// Write installs content as the new crontab.
func (c ExecCrontab) Write(ctx context.Context, content string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.bin(), "-")
	cmd.Stdin = strings.NewReader(content)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("writing crontab: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Compile-time check that ExecCrontab implements Crontab interface
var _ Crontab = ExecCrontab{}
