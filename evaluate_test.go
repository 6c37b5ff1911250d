package tether

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FormatterRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FormatterRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFormatters(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FormatterRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFormatters(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FormatterRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFormatters(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

func newEvaluator(t *testing.T, name string, build func() Evaluator) Evaluator {
	t.Helper()
	evaluator := build()
	if evaluator == nil {
		t.Skipf("%s evaluator not compiled in", name)
	}
	return evaluator
}

func upperRegistry(t *testing.T) *FormatterRegistry {
	t.Helper()
	registry := NewFormatterRegistry()
	if err := registry.Register("upper", ReadOnly(func(value any, _ ...any) (any, error) {
		return strings.ToUpper(Stringify(value)), nil
	})); err != nil {
		t.Fatalf("register upper: %v", err)
	}
	return registry
}

func TestEvaluatorsComputeValues(t *testing.T) {
	cases := []struct {
		name  string
		expr  string
		value any
		args  []any
		want  string
	}{
		{name: "arithmetic", expr: "value * 2", value: 5, want: "10"},
		{name: "comparison", expr: "value > 3", value: 5, want: "true"},
		{name: "formatter call", expr: `call("upper", value)`, value: "ann", want: "ANN"},
	}

	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			registry := upperRegistry(t)
			evaluator := newEvaluator(t, factory.name, func() Evaluator { return factory.new(nil, registry) })
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					got, err := evaluator.Evaluate(EvalContext{Value: tc.value, Args: tc.args}, tc.expr)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if fmt.Sprint(got) != tc.want {
						t.Fatalf("expected %s, got %v (%T)", tc.want, got, got)
					}
				})
			}
		})
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			cache := &fakeProgramCache{}
			evaluator := newEvaluator(t, factory.name, func() Evaluator { return factory.new(cache, nil) })

			for i := 0; i < 3; i++ {
				if _, err := evaluator.Evaluate(EvalContext{Value: i}, "value + 1"); err != nil {
					t.Fatalf("unexpected error on iteration %d: %v", i, err)
				}
			}
			if cache.misses != 1 {
				t.Fatalf("cache misses mismatch, expected 1, got %d", cache.misses)
			}
			if cache.hits != 2 {
				t.Fatalf("cache hits mismatch, expected 2, got %d", cache.hits)
			}
		})
	}
}

func TestEvaluatorCompileErrorsCarryEngine(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := newEvaluator(t, factory.name, func() Evaluator { return factory.new(nil, nil) })

			_, err := evaluator.Compile("value +")
			if err == nil {
				t.Fatalf("expected compile error")
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected EvaluationError, got %T", err)
			}
			if evalErr.Engine != factory.name {
				t.Fatalf("expected engine %q, got %q", factory.name, evalErr.Engine)
			}
			if evalErr.Expr != "value +" {
				t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
			}

			if _, err := evaluator.Evaluate(EvalContext{}, ""); err == nil {
				t.Fatalf("expected empty expression to fail")
			}
		})
	}
}

func TestEvalContextDefaultsNow(t *testing.T) {
	ctx := EvalContext{}.withDefaults()
	if ctx.Now == nil || ctx.Now.IsZero() {
		t.Fatalf("expected Now to be defaulted")
	}
	if ctx.Args == nil {
		t.Fatalf("expected empty args slice")
	}

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx = EvalContext{Now: &fixed}.withDefaults()
	if !ctx.Now.Equal(fixed) {
		t.Fatalf("expected explicit Now to be kept, got %v", ctx.Now)
	}
}

func TestExpressionFormatterReadAndPublish(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := newEvaluator(t, factory.name, func() Evaluator { return factory.new(NewMapCache(), nil) })

			formatter, err := ExpressionFormatter(evaluator, "value * 2", "value / 2")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			read, err := formatter.Read(4)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if fmt.Sprint(read) != "8" {
				t.Fatalf("expected 8, got %v", read)
			}
			published, err := formatter.Publish(8)
			if err != nil {
				t.Fatalf("publish: %v", err)
			}
			if fmt.Sprint(published) != "4" {
				t.Fatalf("expected 4, got %v", published)
			}
		})
	}
}

func TestExpressionFormatterRequiresEvaluator(t *testing.T) {
	if _, err := ExpressionFormatter(nil, "value", ""); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
	if _, err := ExpressionFormatter(NewExprEvaluator(), "", ""); err == nil {
		t.Fatalf("expected an error without expressions")
	}
	if _, err := ExpressionFormatter(NewExprEvaluator(), "value +", ""); err == nil {
		t.Fatalf("expected compile error to surface")
	}
}

func TestExpressionFormatterInsideView(t *testing.T) {
	formatter, err := ExpressionFormatter(NewExprEvaluator(), "value * args[0]", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root, models := mustFragment(t, `<span rv-text="price | scale 3"></span>`, map[string]any{"price": 4})
	view := mustBind(t, root, models, WithFormatter("scale", formatter))
	defer view.Unbind()

	if got := RenderString(root); got != `<span>12</span>` {
		t.Fatalf("unexpected render %q", got)
	}
}

type fakeProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}
