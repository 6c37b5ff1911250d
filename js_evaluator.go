//go:build js_eval

package tether

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FormatterRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return true
}

func (e *jsEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, err)
	}
	out, err := e.run(ctx.withDefaults(), program)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, err)
	}
	return out, nil
}

func (e *jsEvaluator) Compile(expression string) (CompiledExpression, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, err)
	}
	return &jsCompiled{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx EvalContext, program *goja.Program) (any, error) {
	vm := goja.New()
	if err := e.injectContext(vm, ctx); err != nil {
		return nil, err
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func (e *jsEvaluator) injectContext(vm *goja.Runtime, ctx EvalContext) error {
	if err := vm.Set("value", ctx.Value); err != nil {
		return err
	}
	if err := vm.Set("args", ctx.Args); err != nil {
		return err
	}
	if err := vm.Set("now", *ctx.Now); err != nil {
		return err
	}
	if e.registry == nil {
		return nil
	}
	return vm.Set("call", func(name string, value any, arguments ...any) (any, error) {
		return e.registry.Call(name, value, arguments...)
	})
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiled struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (c *jsCompiled) Evaluate(ctx EvalContext) (any, error) {
	if c.evaluator == nil {
		return nil, wrapEvaluatorError("js", fmt.Errorf("compiled expression missing evaluator"))
	}
	out, err := c.evaluator.run(ctx.withDefaults(), c.program)
	if err != nil {
		return nil, wrapEvaluationError("js", c.expression, err)
	}
	return out, nil
}
