package script

import (
	"errors"
	"testing"
	"time"
)

func newTestEvaluator() *GojaEvaluator {
	return NewGojaEvaluator(16, time.Minute)
}

func TestEvalResultExport(t *testing.T) {
	e := newTestEvaluator()

	out, err := e.Eval("", `input.a + input.b`, map[string]interface{}{
		"input": map[string]interface{}{"a": 2, "b": 3},
	})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if n, ok := out.(int64); !ok || n != 5 {
		t.Fatalf("result = %v (%T), want int64 5", out, out)
	}
}

func TestEvalNullAndUndefined(t *testing.T) {
	e := newTestEvaluator()
	for _, src := range []string{`null`, `undefined`, `var x = 1;`} {
		out, err := e.Eval("", src, nil)
		if err != nil {
			t.Fatalf("Eval(%q): %v", src, err)
		}
		if out != nil {
			t.Errorf("Eval(%q) = %v, want nil", src, out)
		}
	}
}

func TestEvalBindingsNotShared(t *testing.T) {
	e := newTestEvaluator()

	// The first call mutates a global; the second call with the same cache
	// key must not see it.
	if _, err := e.Eval("k", `leak = 42; true`, nil); err != nil {
		t.Fatalf("first eval: %v", err)
	}
	out, err := e.Eval("k", `typeof leak === 'undefined'`, nil)
	if err != nil {
		t.Fatalf("second eval: %v", err)
	}
	if out != true {
		t.Fatal("globals leaked between evaluations")
	}
}

func TestEvalCompileErrorPosition(t *testing.T) {
	e := newTestEvaluator()
	_, err := e.Eval("", "var x = ;", nil)
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if ce.Line != 1 {
		t.Errorf("Line = %d, want 1", ce.Line)
	}
}

func TestEvalThrowIsExecError(t *testing.T) {
	e := newTestEvaluator()
	_, err := e.Eval("", `throw new Error("boom")`, nil)
	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		t.Fatal("a runtime throw must not classify as a compile error")
	}
}

func TestEvalFailHelper(t *testing.T) {
	e := newTestEvaluator()
	helper := map[string]interface{}{
		"fail": func(msg string) { Fail(msg) },
	}
	_, err := e.Eval("", `context.fail("no org unit")`, map[string]interface{}{"context": helper})
	var ee *ExecError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if ee.Msg != "no org unit" {
		t.Errorf("Msg = %q", ee.Msg)
	}
}

func TestCompile(t *testing.T) {
	e := newTestEvaluator()
	ok, err := e.Compile(`output.setValue("name", input.name); true`)
	if err != nil || !ok {
		t.Fatalf("Compile valid source = (%v, %v)", ok, err)
	}
	ok, err = e.Compile(`function (`)
	if ok || err == nil {
		t.Fatal("Compile must reject invalid source")
	}
}

func TestProgramCache(t *testing.T) {
	e := newTestEvaluator()
	if _, err := e.Eval("key-a", `1`, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Eval("key-a", `1`, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Eval("", `1`, nil); err != nil {
		t.Fatal(err)
	}
	if got := e.CacheLen(); got != 1 {
		t.Fatalf("CacheLen = %d, want 1 (keyless evals are not cached)", got)
	}
}

func TestInterpretedEvaluator(t *testing.T) {
	var e InterpretedEvaluator
	ok, err := e.Compile(`anything at all`)
	if ok || err != nil {
		t.Fatalf("Compile = (%v, %v), want unverified (false, nil)", ok, err)
	}
	out, err := e.Eval("ignored", `2 * 21`, nil)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if n, ok := out.(int64); !ok || n != 42 {
		t.Fatalf("result = %v (%T)", out, out)
	}
}
