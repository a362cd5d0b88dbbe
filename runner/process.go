package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloudkucooland/farremote/action"

	log "github.com/sirupsen/logrus"
)

// SplitArgs breaks an argument string on whitespace. There is no quoting.
func SplitArgs(s string) []string {
	return strings.Fields(s)
}

// ProcessSpawn starts a.Path in its own directory and waits for it.
// Output is copied line by line into the log as it arrives.
// The process is not killed if it hangs.
func (r *Runner) ProcessSpawn(_ context.Context, a action.ProcessSpawn) action.Outcome {
	path, err := filepath.Abs(a.Path)
	if err != nil {
		return action.Failed(0, &ActionError{Kind: action.KindProcess, Target: a.Path, Err: err})
	}

	cmd := exec.Command(path, a.Args...)
	cmd.Dir = filepath.Dir(path)
	return r.run(action.KindProcess, a.Path, cmd, nil)
}

// Script feeds a.Input to the configured interpreter
func (r *Runner) Script(_ context.Context, a action.Script) action.Outcome {
	if r.interpreter == nil {
		return action.Failed(0, &ActionError{Kind: action.KindScript, Err: ErrNoInterpreter})
	}

	cmd := exec.Command(r.interpreter.Path, r.interpreter.Args...)
	return r.run(action.KindScript, r.interpreter.Path, cmd, strings.NewReader(a.Input))
}

func (r *Runner) run(kind action.Kind, target string, cmd *exec.Cmd, stdin io.Reader) action.Outcome {
	fail := func(err error) action.Outcome {
		return action.Failed(0, &ActionError{Kind: kind, Target: target, Err: err})
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fail(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fail(err)
	}
	var in io.WriteCloser
	if stdin != nil {
		if in, err = cmd.StdinPipe(); err != nil {
			return fail(err)
		}
	}

	if err := cmd.Start(); err != nil {
		return fail(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&wg, stdout, log.Info)
	go drain(&wg, stderr, log.Error)

	if in != nil {
		if _, err := io.Copy(in, stdin); err != nil {
			log.Warnf("%s: unable to write to stdin: %s", target, err.Error())
		}
		in.Close()
	}

	// pipes must be drained before Wait closes them
	wg.Wait()
	err = cmd.Wait()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return action.Outcome{OK: true, Code: 0}
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		return action.Failed(code, &ActionError{Kind: kind, Target: target, Err: fmt.Errorf("exit status %d", code)})
	}
	return fail(err)
}

// maxLine is the longest output line logged as one entry
const maxLine = 1024 * 1024

func drain(wg *sync.WaitGroup, rd io.Reader, out func(...interface{})) {
	defer wg.Done()
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		out(scanner.Text())
	}
	// the child blocks on a full pipe unless the rest is read
	if err := scanner.Err(); err != nil {
		log.Warnf("process output dropped: %s", err.Error())
		io.Copy(io.Discard, rd)
	}
}
