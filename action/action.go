package action

import (
	"context"
	"fmt"
)

// Kind names an action type as it appears in the rules document
type Kind string

// the known kinds; HttpGET is accepted as an alias of HttpGet on input
const (
	KindHTTPGet  Kind = "HttpGet"
	KindHTTPPost Kind = "HttpPost"
	KindProcess  Kind = "ProcessSpawn"
	KindScript   Kind = "ScriptInterpreter"
	KindDebug    Kind = "Debug"
)

// ParseKind maps a document value onto a Kind. Empty means HttpGet.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "HttpGet", "HttpGET":
		return KindHTTPGet, nil
	case "HttpPost", "HttpPOST":
		return KindHTTPPost, nil
	case "ProcessSpawn", "Process":
		return KindProcess, nil
	case "ScriptInterpreter", "AutoHotKey":
		return KindScript, nil
	case "Debug":
		return KindDebug, nil
	}
	return "", fmt.Errorf("unknown action kind %q", s)
}

// Action is one of HTTPGet, HTTPPost, ProcessSpawn, Script or Debug.
// Run hands the action to the matching Executor method.
type Action interface {
	Kind() Kind
	Target() string
	Run(context.Context, Executor) Outcome
}

// Executor performs the side effect for each kind of action.
// A new kind of action means a new method here, so every executor has to grow with it.
type Executor interface {
	HTTPGet(context.Context, HTTPGet) Outcome
	HTTPPost(context.Context, HTTPPost) Outcome
	ProcessSpawn(context.Context, ProcessSpawn) Outcome
	Script(context.Context, Script) Outcome
	Debug(context.Context, Debug) Outcome
}

// HTTPGet issues a GET to URL
type HTTPGet struct {
	URL string
}

// HTTPPost issues a POST to URL with Body as text/plain
type HTTPPost struct {
	URL  string
	Body string
}

// ProcessSpawn launches Path with Args, in Path's directory
type ProcessSpawn struct {
	Path string
	Args []string
}

// Script writes Input to the configured interpreter's stdin
type Script struct {
	Input string
}

// Debug does nothing, it is used to test wiring
type Debug struct{}

func (a HTTPGet) Kind() Kind      { return KindHTTPGet }
func (a HTTPPost) Kind() Kind     { return KindHTTPPost }
func (a ProcessSpawn) Kind() Kind { return KindProcess }
func (a Script) Kind() Kind       { return KindScript }
func (a Debug) Kind() Kind        { return KindDebug }

func (a HTTPGet) Target() string      { return a.URL }
func (a HTTPPost) Target() string     { return a.URL }
func (a ProcessSpawn) Target() string { return a.Path }
func (a Script) Target() string       { return "" }
func (a Debug) Target() string        { return "" }

func (a HTTPGet) Run(ctx context.Context, e Executor) Outcome      { return e.HTTPGet(ctx, a) }
func (a HTTPPost) Run(ctx context.Context, e Executor) Outcome     { return e.HTTPPost(ctx, a) }
func (a ProcessSpawn) Run(ctx context.Context, e Executor) Outcome { return e.ProcessSpawn(ctx, a) }
func (a Script) Run(ctx context.Context, e Executor) Outcome       { return e.Script(ctx, a) }
func (a Debug) Run(ctx context.Context, e Executor) Outcome        { return e.Debug(ctx, a) }
