// Package runner performs the side effects behind rule actions.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudkucooland/farremote/action"

	"github.com/imroc/req/v3"
	log "github.com/sirupsen/logrus"
)

// ErrNoInterpreter is returned for ScriptInterpreter rules when none is configured
var ErrNoInterpreter = errors.New("no script interpreter available on this host")

// ActionError is a failed action: HTTP error status, unreachable endpoint, spawn failure or
// non-zero exit
type ActionError struct {
	Kind   action.Kind
	Target string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Target, e.Err.Error())
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Interpreter is an external program that reads a script on stdin
type Interpreter struct {
	Path string
	Args []string
}

// Runner is the production action.Executor
type Runner struct {
	client      *req.Client
	interpreter *Interpreter
}

// New returns a Runner whose HTTP actions give up after timeout.
// interp may be nil, ScriptInterpreter rules then fail with ErrNoInterpreter.
func New(timeout time.Duration, interp *Interpreter) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if interp != nil && interp.Path == "" {
		interp = nil
	}
	return &Runner{
		client:      req.C().SetTimeout(timeout).SetUserAgent("farremote"),
		interpreter: interp,
	}
}

// HasInterpreter reports whether ScriptInterpreter rules can run here
func (r *Runner) HasInterpreter() bool {
	return r.interpreter != nil
}

// Debug takes no action
func (r *Runner) Debug(_ context.Context, _ action.Debug) action.Outcome {
	log.Debug("debug action, nothing to do")
	return action.Unused()
}

var _ action.Executor = (*Runner)(nil)
