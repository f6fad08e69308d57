package graphviz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// command is a thin builder over exec.Cmd that reports the exit status
// instead of an *exec.ExitError.
type command struct {
	cmd      *exec.Cmd
	finished []func()
}

func newCommand(ctx context.Context, name string, args ...string) *command {
	c := exec.CommandContext(ctx, name, args...)
	c.Env = os.Environ()

	return &command{
		cmd: c,
	}
}

func (c *command) setStdinString(input string) *command {
	c.cmd.Stdin = strings.NewReader(input)

	return c
}

func (c *command) setStderrObserver(f func([]byte)) *command {
	var buf bytes.Buffer

	c.cmd.Stderr = &buf
	c.finished = append(c.finished, func() {
		f(buf.Bytes())
	})

	return c
}

func (c *command) appendEnv(key, value string) *command {
	c.cmd.Env = append(c.cmd.Env, key+"="+value)

	return c
}

// run executes the command and returns its exit code. The error is only set
// when the process could not be started or waited for.
func (c *command) run(logger *slog.Logger) (int, error) {
	logger.Debug("run cmd", "cmd", strings.Join(c.cmd.Args, " "))

	st, err := status(c.cmd.Run())

	for _, f := range c.finished {
		f()
	}

	return st, err
}

func status(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("run: %w", err)
}
