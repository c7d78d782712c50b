// Package runner executes the external CLI tools the demo delegates to.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Result captures a single external command invocation.
type Result struct {
	Name     string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandLine returns the invocation as a single redacted string.
func (r Result) CommandLine() string {
	return Redacted(r.Name, r.Args...)
}

// Runner executes external commands. Run blocks until the command exits;
// Start hands a command off without ever waiting for it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	Start(ctx context.Context, name string, args ...string) error
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct {
	log *logrus.Entry
}

// NewExecRunner creates a new ExecRunner
func NewExecRunner(log *logrus.Entry) *ExecRunner {
	return &ExecRunner{log: log}
}

// Run executes the command and captures its output. No timeout is imposed
// beyond whatever the caller's context carries.
func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.log.WithField("command", Redacted(name, args...)).Debug("running external command")
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Name:     name,
		Args:     args,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		res.ExitCode = exitCode(err)
		return res, fmt.Errorf("failed to run %s: %s: %w", res.CommandLine(), stderrExcerpt(res.Stderr), err)
	}
	return res, nil
}

// Start launches the command and reaps it in the background. Output goes to
// the null device and completion is never awaited; callers that need the
// outcome must use Run instead.
func (e *ExecRunner) Start(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	e.log.WithField("command", Redacted(name, args...)).Debug("starting background command")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", Redacted(name, args...), err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// stderrExcerpt trims stderr down to a single loggable line.
func stderrExcerpt(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(no stderr)"
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// Redacted renders a command line with credential material masked. Every
// splunk CLI call carries -auth user:pass and none of it may reach a log
// line or an error message.
func Redacted(name string, args ...string) string {
	out := make([]string, 0, len(args)+1)
	out = append(out, name)
	mask := false
	for _, a := range args {
		switch {
		case mask:
			out = append(out, "***")
			mask = false
		case a == "-auth" || a == "--auth":
			out = append(out, a)
			mask = true
		case strings.HasPrefix(a, "-auth=") || strings.HasPrefix(a, "--auth="):
			out = append(out, a[:strings.IndexByte(a, '=')+1]+"***")
		default:
			out = append(out, a)
		}
	}
	return strings.Join(out, " ")
}
