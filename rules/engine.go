package rules

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cloudkucooland/farremote/action"
	"github.com/cloudkucooland/farremote/metrics"

	log "github.com/sirupsen/logrus"
)

// Result is what happened to one matched rule
type Result struct {
	Rule    Rule
	Outcome action.Outcome
}

// Engine owns the rule set in force and the enabled flag.
// Reloads publish a fully built RuleSet, a dispatch sees either the old one or the new one.
type Engine struct {
	current     atomic.Pointer[RuleSet]
	enabled     atomic.Bool
	exec        action.Executor
	defaultHost string
	metrics     *metrics.Metrics

	mu   sync.Mutex
	subs []func(bool)
}

// NewEngine returns an enabled Engine with an empty rule set
func NewEngine(exec action.Executor, defaultHost string, m *metrics.Metrics) *Engine {
	e := &Engine{
		exec:        exec,
		defaultHost: defaultHost,
		metrics:     m,
	}
	e.current.Store(NewRuleSet())
	e.enabled.Store(true)
	return e
}

// Current is the rule set in force
func (e *Engine) Current() *RuleSet {
	return e.current.Load()
}

// Swap publishes rs
func (e *Engine) Swap(rs *RuleSet) {
	if rs == nil {
		rs = NewRuleSet()
	}
	e.current.Store(rs)
}

// Reload parses doc and publishes the result. On error the previous rule set stays in force.
func (e *Engine) Reload(doc []byte) error {
	rs, err := Parse(doc, e.defaultHost)
	if err != nil {
		log.Errorf("Error loading rules: %s", err.Error())
		e.metrics.Reload(false)
		return err
	}
	e.Swap(rs)
	e.metrics.Reload(true)
	log.Infof("%d rules loaded", rs.Len())
	return nil
}

// Enabled reports whether button presses run rules
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// SetEnabled turns rule execution on or off and returns the new state
func (e *Engine) SetEnabled(on bool) bool {
	old := e.enabled.Swap(on)
	if old != on {
		state := "disabled"
		if on {
			state = "enabled"
		}
		log.Infof("Rule execution %s", state)
		e.notify(on)
	}
	return on
}

// Toggle flips the enabled flag and returns the new state
func (e *Engine) Toggle() bool {
	for {
		old := e.enabled.Load()
		if e.enabled.CompareAndSwap(old, !old) {
			state := "disabled"
			if !old {
				state = "enabled"
			}
			log.Infof("Rule execution %s", state)
			e.notify(!old)
			return !old
		}
	}
}

// Subscribe registers fn to be called whenever the enabled flag changes
func (e *Engine) Subscribe(fn func(bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

func (e *Engine) notify(on bool) {
	e.mu.Lock()
	subs := make([]func(bool), len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, fn := range subs {
		fn(on)
	}
}

// Dispatch runs every rule for button, one after the other in document order.
// A failing rule is logged and the next one still runs.
func (e *Engine) Dispatch(ctx context.Context, button string) []Result {
	if !e.Enabled() {
		log.Warnf("Rule execution is disabled, ignoring button %s", button)
		e.metrics.Button(false)
		return nil
	}
	e.metrics.Button(true)

	// one snapshot for the whole call
	rs := e.current.Load()
	matched := rs.Match(button)
	if len(matched) == 0 {
		log.Debugf("no rule for button %s", button)
		return nil
	}

	results := make([]Result, 0, len(matched))
	for _, r := range matched {
		o := e.run(ctx, r)
		results = append(results, Result{Rule: r, Outcome: o})
	}
	return results
}

func (e *Engine) run(ctx context.Context, r Rule) (o action.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("Rule %q panicked: %v", r.Name, p)
			o = action.Failed(0, fmt.Errorf("action panicked: %v", p))
		}
		kind := "unknown"
		if r.Action != nil {
			kind = string(r.Action.Kind())
		}
		e.metrics.Action(kind, o.OK)
	}()

	o = r.Action.Run(ctx, e.exec)
	switch {
	case o.Err != nil:
		log.Errorf("Rule %q failed: %s", r.Name, o.Err.Error())
	case o.NoResult:
		log.Infof("Rule %q ran", r.Name)
	default:
		log.Infof("Rule %q ran, got %d from %s", r.Name, o.Code, r.Action.Target())
	}
	return o
}
