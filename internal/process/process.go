package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/dcam/internal/logging"
)

// Runner executes external commands to completion.
type Runner interface {
	// Run executes the command and discards its stdout.
	Run(ctx context.Context, name string, args ...string) error
	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// CommandError reports a command that could not start or exited non-zero.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	cmd := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	if e.Stderr != "" {
		return fmt.Sprintf("%s: exit status %d: %s", cmd, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Exec is the Runner backed by os/exec.
type Exec struct {
	logger          *slog.Logger
	gracefulTimeout time.Duration // delay between SIGINT and SIGKILL on cancellation
}

// NewExec creates an Exec runner that logs under the given logger.
func NewExec(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = logging.GetLogger("process")
	}
	return &Exec{
		logger:          logger,
		gracefulTimeout: 2 * time.Second,
	}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, name string, args ...string) error {
	_, err := e.run(ctx, name, args)
	return err
}

// Output implements Runner.
func (e *Exec) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := e.run(ctx, name, args)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (e *Exec) run(ctx context.Context, name string, args []string) (string, error) {
	e.logger.Log(ctx, logging.LevelTrace, "Running command", "command", name, "args", args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
	}
	cmd.WaitDelay = e.gracefulTimeout

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	exitCode := exitCodeFromError(err)

	e.logger.Log(ctx, logging.LevelTrace, "Command finished",
		"command", name,
		"exit_code", exitCode,
		"duration", time.Since(start),
		"stdout", stdout.String(),
		"stderr", stderr.String())

	if err != nil {
		return "", &CommandError{
			Name:     name,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return stdout.String(), nil
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// IsNotFound reports whether err means the command binary does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}
