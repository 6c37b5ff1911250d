package tether

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoEvaluator indicates an expression formatter without an evaluator, for
// example the JS evaluator in a build without the js_eval tag.
var ErrNoEvaluator = errors.New("tether: evaluator not configured")

// EvalContext carries the inputs of an expression formatter.
type EvalContext struct {
	Value any
	Args  []any
	Now   *time.Time
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = []any{}
	}
	return ctx
}

// Evaluator executes expressions against an EvalContext.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledExpression, error)
}

// CompiledExpression is a reusable expression program.
type CompiledExpression interface {
	Evaluate(ctx EvalContext) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression
// strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type mapCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMapCache returns an unbounded ProgramCache safe for concurrent use.
func NewMapCache() ProgramCache {
	return &mapCache{programs: make(map[string]any)}
}

func (c *mapCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *mapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}

// ExpressionFormatter compiles read and publish expressions into a
// Formatter. Inside an expression the running value is `value` and the
// formatter arguments are `args`. An empty expression leaves that side nil.
func ExpressionFormatter(evaluator Evaluator, read, publish string) (Formatter, error) {
	if evaluator == nil {
		return Formatter{}, ErrNoEvaluator
	}
	if read == "" && publish == "" {
		return Formatter{}, fmt.Errorf("tether: expression formatter needs a read or publish expression")
	}
	var formatter Formatter
	if read != "" {
		fn, err := compileFormatterFunc(evaluator, read)
		if err != nil {
			return Formatter{}, err
		}
		formatter.Read = fn
	}
	if publish != "" {
		fn, err := compileFormatterFunc(evaluator, publish)
		if err != nil {
			return Formatter{}, err
		}
		formatter.Publish = fn
	}
	return formatter, nil
}

func compileFormatterFunc(evaluator Evaluator, expr string) (FormatterFunc, error) {
	engine := evaluatorEngineName(evaluator)
	compiled, err := evaluator.Compile(expr)
	if err != nil {
		return nil, wrapEvaluationError(engine, expr, err)
	}
	return func(value any, args ...any) (any, error) {
		out, err := compiled.Evaluate(EvalContext{Value: value, Args: args})
		if err != nil {
			return nil, wrapEvaluationError(engine, expr, err)
		}
		return out, nil
	}, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*tether.exprEvaluator":
		return "expr"
	case "*tether.celEvaluator":
		return "cel"
	case "*tether.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
