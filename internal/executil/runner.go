package executil

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/wb-go/wbf/zlog"
)

// ErrTimeout is returned when the command outlived its context deadline.
var ErrTimeout = errors.New("command timed out")

// Command describes one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. Production code uses ExecRunner,
// tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands through go-execute.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it. A nonzero exit code is reported in
// Result, not as an error; errors mean the process could not be run or
// was killed by ctx.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	task := execute.ExecTask{
		Command:     cmd.Name,
		Args:        cmd.Args,
		Cwd:         cmd.Dir,
		StreamStdio: false,
	}

	zlog.Logger.Debug().Str("command", cmd.Name).Strs("args", cmd.Args).Msg("executing")

	res, err := task.Execute(ctx)
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return Result{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode},
			fmt.Errorf("%s: %w", cmd.Name, ErrTimeout)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}

	return Result{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}, nil
}

// LookPath resolves name against PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
