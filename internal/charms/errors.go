package charms

import (
	"fmt"
	"strings"

	"github.com/danieljhkim/cloudinstall/internal/execx"
)

// OrchestratorInvocationError is returned when juju exits non-zero or
// cannot be started.
type OrchestratorInvocationError struct {
	Command  execx.Command
	ExitCode int
	Output   string
	Err      error
}

func (e *OrchestratorInvocationError) Error() string {
	return fmt.Sprintf("%s: rc=%d out=%s", e.Command.Name, e.ExitCode, strings.TrimSpace(e.Output))
}

func (e *OrchestratorInvocationError) Unwrap() error {
	return e.Err
}

// invocationError builds an OrchestratorInvocationError from a runner result.
func invocationError(cmd execx.Command, res *execx.Result, err error) *OrchestratorInvocationError {
	e := &OrchestratorInvocationError{Command: cmd, ExitCode: -1, Err: err}
	if res != nil {
		e.ExitCode = res.ExitCode
		e.Output = res.Output
	}
	return e
}
