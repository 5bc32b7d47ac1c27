package script

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Executor runs executable scripts: it resolves the version-specific source,
// binds variables and arguments, and enforces the declared return type.
type Executor struct {
	eval Evaluator
	log  zerolog.Logger
}

func NewExecutor(eval Evaluator, log zerolog.Logger) *Executor {
	return &Executor{eval: eval, log: log}
}

// Execute evaluates es against the given variables for the target-system
// version and validates the result against want.
//
// Preparation failures (incompatible result type, missing required variable,
// unresolvable source, unmet mandatory argument) are detected before the
// engine is touched, so they never leave partial side effects. run may be
// nil, in which case a fresh execution context is created; passing a run lets
// callers share the context with helper objects exposed to the script.
func (x *Executor) Execute(run *Run, es *ExecutableScript, version string, vars map[string]interface{}, want ReturnType) (interface{}, error) {
	if es == nil || es.Script == nil {
		return nil, &PrepareError{Msg: "executable script is not resolved"}
	}
	s := es.Script

	if !Satisfies(want, s.ReturnType) {
		return nil, &PrepareError{
			Msg: fmt.Sprintf("script %s returns %s, but %s was requested", es.Code, s.ReturnType, want),
		}
	}

	for _, name := range s.RequiredVars {
		if _, ok := vars[name]; !ok {
			return nil, &PrepareError{Msg: fmt.Sprintf("script %s requires variable %s", es.Code, name)}
		}
	}

	src, ok := s.SourceFor(version)
	if !ok {
		return nil, &PrepareError{Msg: fmt.Sprintf("script %s has no source for version %s", es.Code, version)}
	}

	args, err := es.MergedArgs()
	if err != nil {
		return nil, err
	}

	if run == nil {
		run = NewRun(es.Code)
	}
	if err := run.Enter(); err != nil {
		return nil, err
	}
	defer run.Exit()

	bound := make(map[string]interface{}, len(vars)+1)
	for k, v := range vars {
		bound[k] = v
	}
	bound["args"] = args

	out, err := x.eval.Eval(src.ID.String(), src.SourceText, bound)
	if err != nil {
		return nil, withScript(err, es.Code)
	}
	if out == nil {
		return nil, nil
	}

	if !s.ReturnType.Accepts(out) {
		return nil, &ExecError{
			Script: es.Code,
			Msg:    fmt.Sprintf("returned %T, declared return type is %s", out, s.ReturnType),
		}
	}

	x.log.Debug().Str("script", es.Code).Str("version", version).Msg("script executed")
	return out, nil
}

// ExecuteBool runs a guard script and reports whether it evaluated to exactly
// boolean true.
func (x *Executor) ExecuteBool(run *Run, es *ExecutableScript, version string, vars map[string]interface{}) (bool, error) {
	out, err := x.Execute(run, es, version, vars, ReturnBoolean)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	return ok && b, nil
}

// withScript attaches the owning script's code to execution errors so
// diagnostics identify the failing script. Compile and preparation errors
// already identify their source.
func withScript(err error, code string) error {
	var ee *ExecError
	if errors.As(err, &ee) && ee.Script == "" {
		return &ExecError{Script: code, Msg: ee.Msg}
	}
	return err
}
