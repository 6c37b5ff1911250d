package tether

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFormatters exposes the formatters of registry through
// call(name, value, args...).
func ExprWithFormatters(registry *FormatterRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes expressions using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FormatterRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against ctx.
func (e *exprEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, e.environment(ctx.withDefaults()))
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, err)
	}
	return result, nil
}

// Compile returns a compiled expression evaluated per invocation.
func (e *exprEvaluator) Compile(expression string) (CompiledExpression, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiled{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", e.call))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *exprEvaluator) call(params ...any) (any, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("call requires a formatter name and a value")
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("call name must be a string, got %T", params[0])
	}
	return e.registry.Call(name, params[1], params[2:]...)
}

type exprCompiled struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (c *exprCompiled) Evaluate(ctx EvalContext) (any, error) {
	if c.evaluator == nil {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("compiled expression missing evaluator"))
	}
	result, err := exprlang.Run(c.program, c.evaluator.environment(ctx.withDefaults()))
	if err != nil {
		return nil, wrapEvaluationError("expr", c.expression, err)
	}
	return result, nil
}

func (e *exprEvaluator) environment(ctx EvalContext) map[string]any {
	return map[string]any{
		"value": ctx.Value,
		"args":  ctx.Args,
		"now":   *ctx.Now,
	}
}
