package action

import "fmt"

// Outcome is the normalized result of running an action.
// Code holds the HTTP status or process exit code; NoResult marks kinds with nothing to report.
type Outcome struct {
	OK       bool
	Code     int
	NoResult bool
	Err      error
}

// Unused is the outcome of an action with no observable result
func Unused() Outcome {
	return Outcome{OK: true, NoResult: true}
}

// Failed wraps err as a failed outcome, code is kept if the action got that far
func Failed(code int, err error) Outcome {
	return Outcome{Code: code, Err: err}
}

func (o Outcome) String() string {
	switch {
	case o.NoResult:
		return "Unused"
	case o.Err != nil && o.Code != 0:
		return fmt.Sprintf("%d (%s)", o.Code, o.Err.Error())
	case o.Err != nil:
		return fmt.Sprintf("Error (%s)", o.Err.Error())
	}
	return fmt.Sprintf("%d", o.Code)
}
