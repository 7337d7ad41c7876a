package engine

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestEvaluateProgramsWithoutGeometry(t *testing.T) {
	sources := map[string]string{
		"empty":      "",
		"whitespace": "   \n\t  \n  ",
		"arithmetic": "(+ 1 2)",
		"bindings":   "(def x 10)\n(def y 20)\n(+ x y)",
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			g, evalErrs, err := NewEngine().Evaluate(src)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Fatalf("eval errors: %v", evalErrs)
			}
			if g == nil || g.NodeCount() != 0 {
				t.Fatalf("want empty graph, got %v", g)
			}
		})
	}
}

func TestEvaluateUserErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unbalanced paren", "(+ 1 2"},
		{"unbalanced on second line", "(+ 1 2)\n(+ 3"},
		{"undefined symbol", "(+ 1 undefined-symbol)"},
		{"degenerate box", `(defpart "flat" (box 10 0 10))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, evalErrs, err := NewEngine().Evaluate(tt.src)
			if err != nil {
				t.Fatalf("user errors must not be fatal: %v", err)
			}
			if g != nil {
				t.Error("want nil graph")
			}
			if len(evalErrs) == 0 {
				t.Fatal("want at least one eval error")
			}
			for _, e := range evalErrs {
				if e.Message == "" {
					t.Errorf("empty message in %+v", e)
				}
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	if got := (EvalError{Line: 5, Message: "bad radius"}).Error(); got != "line 5: bad radius" {
		t.Errorf("Error() = %q", got)
	}
	if got := (EvalError{Message: "no location"}).Error(); got != "no location" {
		t.Errorf("Error() = %q", got)
	}
}

func TestEvaluateRepeatable(t *testing.T) {
	const src = `(defpart "block" (box 10 20 30))`
	eng := NewEngine()

	var first []string
	for i := 0; i < 3; i++ {
		g, evalErrs, err := eng.Evaluate(src)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("run %d: %v %v", i, err, evalErrs)
		}
		var ids []string
		for id := range g.Nodes {
			ids = append(ids, string(id))
		}
		slices.Sort(ids)
		if i == 0 {
			first = ids
			continue
		}
		if !slices.Equal(ids, first) {
			t.Errorf("run %d: ids %v, first run %v", i, ids, first)
		}
	}
}

func TestAwaitTimeout(t *testing.T) {
	e := NewEngine(WithTimeout(20 * time.Millisecond))
	gen := e.begin()

	start := time.Now()
	_, err := e.await(make(chan evalResult), gen)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestAwaitDropsStaleGeneration(t *testing.T) {
	e := NewEngine()
	stale := e.begin()
	e.begin()

	ch := make(chan evalResult, 1)
	ch <- evalResult{result: &EvalResult{}}
	if _, err := e.await(ch, stale); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	if got := NewEngine(WithTimeout(0)).timeout; got != EvalTimeout {
		t.Errorf("timeout = %s, want %s", got, EvalTimeout)
	}
	if got := NewEngine(WithTimeout(time.Second)).timeout; got != time.Second {
		t.Errorf("timeout = %s, want 1s", got)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"error on line 12: missing paren", 12, "missing paren"},
		{"line 3: bad arity", 3, "bad arity"},
		{"  some generic error \n", 0, "some generic error"},
	}
	for _, tt := range tests {
		errs := parseZygomysError(errors.New(tt.msg))
		if len(errs) != 1 {
			t.Fatalf("%q: got %d errors", tt.msg, len(errs))
		}
		if errs[0].Line != tt.wantLine || errs[0].Message != tt.wantMsg {
			t.Errorf("%q: got line %d %q, want line %d %q", tt.msg, errs[0].Line, errs[0].Message, tt.wantLine, tt.wantMsg)
		}
	}
}

func TestAnalyzeReportsWarnings(t *testing.T) {
	res, err := NewEngine().Analyze(`
(defpart "block" (box 10 10 10))
(place (part "block"))
`)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Errors) > 0 || res.Graph == nil {
		t.Fatalf("errors %v, graph %v", res.Errors, res.Graph)
	}
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "no translation or rotation") {
			return
		}
	}
	t.Errorf("no identity transform warning in %v", res.Warnings)
}
