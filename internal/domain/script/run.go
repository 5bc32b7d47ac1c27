package script

import "errors"

// ErrRunActive is returned when an execution context is entered while it is
// already active; scripts may not recursively re-enter execution.
var ErrRunActive = errors.New("script execution context is already active")

type runState int

const (
	runInactive runState = iota
	runActive
	runDone
)

// Run is the execution context for a single script invocation:
// inactive → active → inactive. It is created per call and passed explicitly
// through the call chain, never bound to ambient thread state, and must not
// be shared across goroutines.
type Run struct {
	script string
	state  runState
}

func NewRun(scriptCode string) *Run {
	return &Run{script: scriptCode}
}

// Enter activates the context. A context can only be entered once.
func (r *Run) Enter() error {
	if r.state != runInactive {
		return ErrRunActive
	}
	r.state = runActive
	return nil
}

// Exit deactivates the context permanently.
func (r *Run) Exit() {
	r.state = runDone
}

// Active reports whether a script execution is currently in progress on this
// context. Utility code invoked by a script uses this for introspection.
func (r *Run) Active() bool {
	return r.state == runActive
}

// Script returns the code of the executable script this run belongs to.
func (r *Run) Script() string {
	return r.script
}
