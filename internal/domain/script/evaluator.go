package script

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/dop251/goja"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Evaluator compiles and evaluates script source against a bound variable
// set. Implementations must be safe for concurrent use; bindings are created
// fresh per call and never shared.
type Evaluator interface {
	// Eval evaluates source with the given variables. key identifies the
	// script for compilation caching; an empty key disables caching for the
	// call.
	Eval(key, source string, vars map[string]interface{}) (interface{}, error)
	// Compile verifies the source compiles. A false result with a nil error
	// means the engine cannot verify compilation, not that the source is
	// invalid.
	Compile(source string) (bool, error)
}

// GojaEvaluator evaluates ECMAScript through goja. Compiled programs are
// cached with a bounded entry count and time-since-last-access expiry; a
// cached program is immutable and may be run concurrently, but every Eval
// builds a fresh runtime so bindings are never shared across calls.
type GojaEvaluator struct {
	programs *expirable.LRU[string, *goja.Program]
}

// NewGojaEvaluator builds an evaluator whose compilation cache holds at most
// maxEntries programs, each expiring ttl after its last refresh.
func NewGojaEvaluator(maxEntries int, ttl time.Duration) *GojaEvaluator {
	return &GojaEvaluator{
		programs: expirable.NewLRU[string, *goja.Program](maxEntries, nil, ttl),
	}
}

func (e *GojaEvaluator) Compile(source string) (bool, error) {
	if _, err := goja.Compile("script", source, false); err != nil {
		return false, newCompileError(err)
	}
	return true, nil
}

func (e *GojaEvaluator) program(key, source string) (*goja.Program, error) {
	if key != "" {
		if p, ok := e.programs.Get(key); ok {
			// Re-add to refresh the entry's expiry; hot scripts stay compiled.
			e.programs.Add(key, p)
			return p, nil
		}
	}
	p, err := goja.Compile("script", source, false)
	if err != nil {
		return nil, newCompileError(err)
	}
	if key != "" {
		e.programs.Add(key, p)
	}
	return p, nil
}

func (e *GojaEvaluator) Eval(key, source string, vars map[string]interface{}) (result interface{}, err error) {
	p, err := e.program(key, source)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	for name, value := range vars {
		if serr := vm.Set(name, value); serr != nil {
			return nil, &ExecError{Msg: "bind variable " + name + ": " + serr.Error()}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*FailError)
			if !ok {
				panic(r)
			}
			result = nil
			err = &ExecError{Msg: fe.Msg}
		}
	}()

	v, rerr := vm.RunProgram(p)
	if rerr != nil {
		return nil, newRunError(rerr)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

// CacheLen reports the number of cached compiled programs.
func (e *GojaEvaluator) CacheLen() int {
	return e.programs.Len()
}

// InterpretedEvaluator is the degradation path for engines without
// pre-compilation support: Eval interprets directly every call and Compile
// always reports "not verified".
type InterpretedEvaluator struct{}

func (InterpretedEvaluator) Compile(string) (bool, error) { return false, nil }

func (InterpretedEvaluator) Eval(_, source string, vars map[string]interface{}) (interface{}, error) {
	e := &GojaEvaluator{programs: expirable.NewLRU[string, *goja.Program](1, nil, time.Minute)}
	return e.Eval("", source, vars)
}

// positionPattern extracts "Line N:M" diagnostics from goja messages.
var positionPattern = regexp.MustCompile(`Line (\d+):(\d+)`)

func newCompileError(err error) *CompileError {
	ce := &CompileError{Msg: err.Error()}
	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		if m := positionPattern.FindStringSubmatch(err.Error()); m != nil {
			ce.Line, _ = strconv.Atoi(m[1])
			ce.Col, _ = strconv.Atoi(m[2])
		}
	}
	return ce
}

func newRunError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &ExecError{Msg: ex.String()}
	}
	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		return newCompileError(err)
	}
	return &ExecError{Msg: err.Error()}
}
