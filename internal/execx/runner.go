// Package execx runs external programs (tar, juju) with structured
// argument vectors and captured combined output.
//
// Commands are never passed through a shell: placement and constraint
// strings reach the program as discrete arguments.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command describes one program invocation.
type Command struct {
	// Name is the program to run, resolved through PATH.
	Name string

	// Args are passed to the program as-is.
	Args []string

	// Env holds KEY=VALUE pairs appended to the current environment.
	Env []string

	// Dir is the working directory; empty means the current one.
	Dir string
}

// String renders the command for logs.
func (c Command) String() string {
	parts := append([]string{}, c.Env...)
	parts = append(parts, c.Name)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// Argv returns the program name followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// Result holds the outcome of a finished command.
type Result struct {
	// Output is stdout and stderr interleaved.
	Output string

	// ExitCode is the process exit status, or -1 when it never ran.
	ExitCode int
}

// Runner provides an abstraction for running external programs.
type Runner interface {
	// Run executes cmd and waits for it. A non-zero exit is returned as an
	// error together with the Result.
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RealRunner implements Runner with os/exec.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes cmd, capturing combined output.
func (r *RealRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var combined bytes.Buffer
	c.Stdout = &combined
	c.Stderr = &combined

	err := c.Run()

	result := &Result{Output: combined.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return result, nil
}

// FakeRunner implements Runner with scripted responses for testing.
type FakeRunner struct {
	// Calls records every command passed to Run, in order.
	Calls []Command

	handlers map[string]func(Command) (*Result, error)
}

// NewFakeRunner creates a FakeRunner where every program succeeds with no
// output until told otherwise.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{handlers: make(map[string]func(Command) (*Result, error))}
}

// Handle sets the behaviour of program name.
func (f *FakeRunner) Handle(name string, fn func(Command) (*Result, error)) {
	if f.handlers == nil {
		f.handlers = make(map[string]func(Command) (*Result, error))
	}
	f.handlers[name] = fn
}

// Fail makes program name exit with code and output.
func (f *FakeRunner) Fail(name string, code int, output string) {
	f.Handle(name, func(Command) (*Result, error) {
		return &Result{Output: output, ExitCode: code}, fmt.Errorf("%s: exit status %d", name, code)
	})
}

// CallsTo returns the recorded calls to program name.
func (f *FakeRunner) CallsTo(name string) []Command {
	var out []Command
	for _, c := range f.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Run records cmd and returns the scripted response.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	f.Calls = append(f.Calls, cmd)
	if err := ctx.Err(); err != nil {
		return &Result{ExitCode: -1}, err
	}
	if fn, ok := f.handlers[cmd.Name]; ok {
		return fn(cmd)
	}
	return &Result{}, nil
}
