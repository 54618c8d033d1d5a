// Package toolexec wraps the external tools the upgrade engine shells out
// to (blkid, grubby, ybin, createrepo, modifyrepo) behind small capability
// interfaces. Each tool has a Real implementation that actually execs the
// binary and a Recorder implementation that captures the exact argv for
// test assertions instead of running anything, matching the "assert the
// precise command line, including the dry-run gate" requirement.
package toolexec

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hughsie/zif-sub003/ziferr"
)

var log = logrus.WithField("pkg", "toolexec")

// Runner is the minimal capability every tool wrapper is built on: run a
// named binary with arguments, streaming its stdout/stderr, and return an
// error on non-zero exit.
type Runner interface {
	// Run executes cmdName with args and waits for completion. ctx may
	// carry a deadline or cancellation; the child process receives
	// SIGTERM if the parent dies first regardless of ctx.
	Run(ctx context.Context, cmdName string, args ...string) error
}

// OutputRunner is implemented by Runners that can also capture stdout,
// needed only by Blkid (every other tool wrapper is fire-and-forget).
type OutputRunner interface {
	Runner
	Output(ctx context.Context, cmdName string, args ...string) (string, error)
}

// CommandLine renders cmdName and args the way they would be typed at a
// shell, for logging and for dry-run output.
func CommandLine(cmdName string, args ...string) string {
	return shellquote.Join(append([]string{cmdName}, args...)...)
}

// Real is the production Runner: it execs the binary via os/exec, the way
// internal/pkg/cmdrun.RunCmdSync did in the teacher repo, with stdout and
// stderr passed through and Pdeathsig set so a child is never orphaned if
// the calling process is killed mid-upgrade.
type Real struct{}

// Run implements Runner.
func (Real) Run(ctx context.Context, cmdName string, args ...string) error {
	line := CommandLine(cmdName, args...)
	log.WithField("cmd", line).Debug("running")

	cmd := exec.CommandContext(ctx, cmdName, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return ziferr.New(ziferr.SpawnFailed, errors.Wrapf(err, "running %s", line))
	}
	return nil
}

// Output implements OutputRunner, running the command and returning its
// trimmed stdout instead of streaming it.
func (Real) Output(ctx context.Context, cmdName string, args ...string) (string, error) {
	line := CommandLine(cmdName, args...)
	log.WithField("cmd", line).Debug("running (capturing output)")

	cmd := exec.CommandContext(ctx, cmdName, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", ziferr.New(ziferr.SpawnFailed, errors.Wrapf(err, "running %s", line))
	}
	return strings.TrimSpace(string(out)), nil
}

// Invocation is one recorded call captured by Recorder.
type Invocation struct {
	CmdName string
	Args    []string
}

// CommandLine renders the invocation the same way Real would have logged
// it, for use in test assertions.
func (i Invocation) CommandLine() string { return CommandLine(i.CmdName, i.Args...) }

// Recorder is a test-double Runner: it never execs anything, it only
// records what would have been run and returns a canned error and/or
// canned output.
type Recorder struct {
	Invocations []Invocation
	Err         error
	OutputValue string
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, cmdName string, args ...string) error {
	r.Invocations = append(r.Invocations, Invocation{CmdName: cmdName, Args: append([]string(nil), args...)})
	return r.Err
}

// Output implements OutputRunner, returning OutputValue instead of
// spawning anything.
func (r *Recorder) Output(_ context.Context, cmdName string, args ...string) (string, error) {
	r.Invocations = append(r.Invocations, Invocation{CmdName: cmdName, Args: append([]string(nil), args...)})
	return r.OutputValue, r.Err
}

// Last returns the most recently recorded invocation, or the zero value
// if none were recorded.
func (r *Recorder) Last() Invocation {
	if len(r.Invocations) == 0 {
		return Invocation{}
	}
	return r.Invocations[len(r.Invocations)-1]
}
