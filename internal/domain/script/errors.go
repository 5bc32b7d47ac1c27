package script

import "fmt"

// CompileError reports a static problem in user-authored script source. It is
// a configuration/authoring error, not a runtime failure.
type CompileError struct {
	Line int
	Col  int
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("script compile error at line %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return "script compile error: " + e.Msg
}

// ExecError reports a script that ran but raised an error or produced a
// wrongly-typed result. It carries the owning script's code for traceability.
type ExecError struct {
	Script string
	Msg    string
}

func (e *ExecError) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("script %s execution failed: %s", e.Script, e.Msg)
	}
	return "script execution failed: " + e.Msg
}

// PrepareError reports a script that could not even be attempted: a missing
// required variable, an unresolvable version-specific source, or an unmet
// mandatory argument. It is raised before the engine is invoked, so a failed
// preparation has no partial side effects.
type PrepareError struct {
	Msg string
}

func (e *PrepareError) Error() string {
	return "script preparation failed: " + e.Msg
}

// FailError is panicked by helper objects when a script calls the fail
// helper. The evaluator recovers it and surfaces it as an execution error.
type FailError struct {
	Msg string
}

func (e *FailError) Error() string {
	return e.Msg
}

// Fail aborts the current script execution with a message. Intended to be
// exposed to scripts through context helper objects.
func Fail(msg string) {
	panic(&FailError{Msg: msg})
}
