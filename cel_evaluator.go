package tether

import (
	"fmt"
	"reflect"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFormatters exposes the formatters of registry through
// call(name, value) and call(name, value, [args]).
func CELWithFormatters(registry *FormatterRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FormatterRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, err)
	}
	out, err := e.run(program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, err)
	}
	return out, nil
}

func (e *celEvaluator) Compile(expression string) (CompiledExpression, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, err)
	}
	return &celCompiled{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("args", celgo.ListType(celgo.DynType)),
		celgo.Variable("now", celgo.TimestampType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string_dyn",
				[]*celgo.Type{celgo.StringType, celgo.DynType},
				celgo.DynType,
				celgo.BinaryBinding(func(name, value ref.Val) ref.Val {
					return e.call(name, value, nil)
				}),
			),
			celgo.Overload("call_string_dyn_list",
				[]*celgo.Type{celgo.StringType, celgo.DynType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
					return e.call(values[0], values[1], values[2])
				}),
			),
		))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) run(program celgo.Program, ctx EvalContext) (any, error) {
	ctx = ctx.withDefaults()
	out, _, err := program.Eval(map[string]any{
		"value": ctx.Value,
		"args":  ctx.Args,
		"now":   *ctx.Now,
	})
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

type celCompiled struct {
	evaluator  *celEvaluator
	program    celgo.Program
	expression string
}

func (c *celCompiled) Evaluate(ctx EvalContext) (any, error) {
	if c.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled expression missing evaluator"))
	}
	out, err := c.evaluator.run(c.program, ctx)
	if err != nil {
		return nil, wrapEvaluationError("cel", c.expression, err)
	}
	return out, nil
}

var nativeList = reflect.TypeOf([]any{})

func (e *celEvaluator) call(nameVal, value, argsVal ref.Val) ref.Val {
	name, ok := nameVal.Value().(string)
	if !ok {
		return types.NewErr("tether: call name must be string")
	}
	var args []any
	if argsVal != nil {
		native, err := argsVal.ConvertToNative(nativeList)
		if err != nil {
			return types.NewErr("tether: call args: %v", err)
		}
		args = native.([]any)
	}
	result, err := e.registry.Call(name, value.Value(), args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
