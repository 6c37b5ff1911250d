package tether

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-tether/observe"
	"github.com/goliatone/go-tether/pkg/activity"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Binding connects one node to one binder, one keypath or literal, and a
// formatter pipeline.
type Binding struct {
	id        string
	view      *View
	binder    *Binder
	name      string
	directive Directive
	ctx       *Context

	bound    bool
	literal  any
	observer *observe.Observer
	model    any

	dependencies       []*observe.Observer
	formatterObservers map[int]map[int]*observe.Observer

	generation atomic.Uint64
}

func newBinding(view *View, node *html.Node, typ string, resolution Resolution, directive Directive) *Binding {
	b := &Binding{
		id:        uuid.NewString(),
		view:      view,
		binder:    resolution.Binder,
		name:      resolution.Name,
		directive: directive,
	}
	b.ctx = &Context{
		Node:       node,
		Type:       typ,
		Keypath:    directive.Keypath,
		Args:       resolution.Args,
		Formatters: directive.FormatterNames(),
		binding:    b,
	}
	return b
}

// ID returns the binding identity token.
func (b *Binding) ID() string { return b.id }

// Node returns the bound node.
func (b *Binding) Node() *html.Node { return b.ctx.Node }

// Type returns the directive name without its prefix.
func (b *Binding) Type() string { return b.ctx.Type }

// BinderName returns the registered binder name that matched.
func (b *Binding) BinderName() string { return b.name }

// Binder returns the resolved binder.
func (b *Binding) Binder() *Binder { return b.binder }

// Keypath returns the bound keypath or literal source.
func (b *Binding) Keypath() string { return b.directive.Keypath }

// Directive returns the parsed declaration.
func (b *Binding) Directive() Directive { return b.directive }

// Context returns the context handed to binder hooks.
func (b *Binding) Context() *Context { return b.ctx }

// Bound reports whether Bind has run without a matching Unbind.
func (b *Binding) Bound() bool { return b.bound }

// Priority returns the binder priority.
func (b *Binding) Priority() int { return b.binder.Priority }

// Observer returns the primary observer, nil for literals or while unbound.
func (b *Binding) Observer() *observe.Observer { return b.observer }

// Model returns the object owning the bound key, or the view models when
// the keypath is a literal or currently unreachable.
func (b *Binding) Model() *observe.Object {
	if b.observer != nil {
		if obj, ok := b.observer.Target().(*observe.Object); ok {
			return obj
		}
	}
	return b.view.models
}

// Value returns the raw bound value.
func (b *Binding) Value() any {
	if b.observer != nil {
		return b.observer.Value()
	}
	return b.literal
}

// Bind attaches the binding: it resolves the keypath, runs the binder Bind
// hook and, with preload on, pushes the initial value.
func (b *Binding) Bind() error {
	if b.bound {
		return nil
	}
	b.bound = true
	b.parseTarget()
	b.observeFormatterArguments()

	if b.binder.Bind != nil {
		if err := b.binder.Bind(b.ctx); err != nil {
			b.view.cfg.metrics.RecordFailure(b.name, "bind")
			b.emit(activity.VerbFailure, map[string]any{"stage": "bind", "error": err.Error()})
			b.Unbind()
			return fmt.Errorf("tether: bind %s: %w", b.ctx.Type, err)
		}
	}

	if b.observer != nil {
		b.model = b.observer.Target()
		b.observeDependencies()
	}

	if b.view.cfg.preload {
		b.Sync()
	}
	b.emit(activity.VerbBind, nil)
	return nil
}

// Unbind detaches the binding. It is safe to call repeatedly and on a
// binding that never bound.
func (b *Binding) Unbind() {
	b.generation.Add(1)
	if !b.bound {
		return
	}
	b.bound = false

	if b.binder.Unbind != nil {
		b.binder.Unbind(b.ctx)
	}
	b.view.events.release(b)

	if b.observer != nil {
		b.observer.Unobserve()
		b.observer = nil
	}
	b.model = nil
	b.unobserveDependencies()
	for _, byArg := range b.formatterObservers {
		for _, observer := range byArg {
			observer.Unobserve()
		}
	}
	b.formatterObservers = nil
	b.emit(activity.VerbUnbind, nil)
}

// Sync pushes the current value through the pipeline into the binder.
func (b *Binding) Sync() {
	if b.observer == nil {
		if b.directive.Target.Literal {
			b.set(b.literal)
		}
		return
	}
	if target := b.observer.Target(); !observe.Same(target, b.model) {
		b.model = target
		b.unobserveDependencies()
		b.observeDependencies()
	}
	b.set(b.observer.Value())
}

// Publish reads the node value, runs the pipeline in reverse through each
// formatter's publish side and writes the result to the model. Bindings
// whose binder does not publish are left alone.
func (b *Binding) Publish() error {
	if !b.binder.Publishes || b.observer == nil {
		return nil
	}
	value := b.nodeValue()
	for fi := len(b.directive.Formatters) - 1; fi >= 0; fi-- {
		call := b.directive.Formatters[fi]
		formatter, ok := b.view.cfg.formatters.Lookup(call.Name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFormatter, call.Name)
		}
		if formatter.Publish == nil {
			continue
		}
		next, err := formatter.Publish(value, b.formatterArguments(fi)...)
		if err != nil {
			b.view.cfg.metrics.RecordFailure(b.name, "publish")
			b.emit(activity.VerbFailure, map[string]any{"stage": "publish", "error": err.Error()})
			return fmt.Errorf("tether: publish %s through %s: %w", b.ctx.Type, call.Name, err)
		}
		value = next
	}
	b.observer.SetValue(value)
	b.view.cfg.metrics.RecordPublish(b.name)
	b.emit(activity.VerbPublish, map[string]any{"value": value})
	return nil
}

// Update hands models to the binder Update hook.
func (b *Binding) Update(models map[string]any) {
	if b.binder.Update != nil {
		b.binder.Update(b.ctx, models)
	}
}

func (b *Binding) parseTarget() {
	if b.directive.Target.Literal {
		b.literal = b.directive.Target.Value
		return
	}
	b.observer = observe.NewObserver(b.view.cfg.ifaces, b.view.models, b.directive.Keypath, b)
}

func (b *Binding) observeDependencies() {
	if len(b.directive.Dependencies) == 0 || !observe.IsObject(b.model) {
		return
	}
	for _, dependency := range b.directive.Dependencies {
		observer := observe.NewObserver(b.view.cfg.ifaces, b.model, dependency, observe.NewCallback(b.Sync))
		b.dependencies = append(b.dependencies, observer)
	}
}

func (b *Binding) unobserveDependencies() {
	for _, observer := range b.dependencies {
		observer.Unobserve()
	}
	b.dependencies = nil
}

func (b *Binding) observeFormatterArguments() {
	for fi, call := range b.directive.Formatters {
		for ai, arg := range call.Args {
			if !arg.Literal {
				b.formatterObserver(fi, ai, arg.Keypath)
			}
		}
	}
}

// formatterObserver returns the observer for argument ai of formatter fi,
// creating it on first use.
func (b *Binding) formatterObserver(fi, ai int, keypath string) *observe.Observer {
	if b.formatterObservers == nil {
		b.formatterObservers = make(map[int]map[int]*observe.Observer)
	}
	byArg := b.formatterObservers[fi]
	if byArg == nil {
		byArg = make(map[int]*observe.Observer)
		b.formatterObservers[fi] = byArg
	}
	if observer := byArg[ai]; observer != nil {
		return observer
	}
	observer := observe.NewObserver(b.view.cfg.ifaces, b.view.models, keypath, observe.NewCallback(b.Sync))
	byArg[ai] = observer
	return observer
}

func (b *Binding) formatterArguments(fi int) []any {
	call := b.directive.Formatters[fi]
	if len(call.Args) == 0 {
		return nil
	}
	args := make([]any, len(call.Args))
	for ai, arg := range call.Args {
		switch {
		case arg.Literal:
			args[ai] = arg.Value
		case b.bound:
			args[ai] = b.formatterObserver(fi, ai, arg.Keypath).Value()
		default:
			observer := observe.NewObserver(b.view.cfg.ifaces, b.view.models, arg.Keypath, nil)
			args[ai] = observer.Value()
			observer.Unobserve()
		}
	}
	return args
}

func (b *Binding) formattedValue(value any) (any, error) {
	for fi, call := range b.directive.Formatters {
		formatter, ok := b.view.cfg.formatters.Lookup(call.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormatter, call.Name)
		}
		if formatter.Read == nil {
			continue
		}
		next, err := formatter.Read(value, b.formatterArguments(fi)...)
		if err != nil {
			return nil, fmt.Errorf("tether: formatter %s: %w", call.Name, err)
		}
		value = next
	}
	return value, nil
}

// set formats value and hands it to the binder routine. Deferred results
// are pushed when they settle, unless a newer sync or an unbind happened in
// the meantime.
func (b *Binding) set(value any) {
	generation := b.generation.Add(1)
	start := time.Now()

	if fn, ok := value.(func() any); ok && !b.binder.Function {
		value = fn()
	}
	formatted, err := b.formattedValue(value)
	if err != nil {
		b.fail("formatter", err)
		return
	}

	if deferred, ok := formatted.(Deferred); ok {
		deferred.Then(func(settled any, err error) {
			if b.generation.Load() != generation {
				b.view.cfg.logger.Log(LogEvent{Stage: "deferred.stale", Binder: b.name, Keypath: b.directive.Keypath})
				return
			}
			if err != nil {
				b.fail("deferred", err)
				return
			}
			b.push(settled, start)
		})
		return
	}
	b.push(formatted, start)
}

func (b *Binding) push(value any, start time.Time) {
	if b.binder.Routine != nil {
		b.binder.Routine(b.ctx, value)
	}
	b.view.cfg.metrics.RecordSync(b.name, time.Since(start))
}

func (b *Binding) fail(stage string, err error) {
	b.view.cfg.logger.Log(LogEvent{
		Stage:   stage,
		Binder:  b.name,
		Keypath: b.directive.Keypath,
		Err:     err,
	})
	b.view.cfg.metrics.RecordFailure(b.name, stage)
	b.emit(activity.VerbFailure, map[string]any{"stage": stage, "error": err.Error()})
}

func (b *Binding) nodeValue() any {
	if b.binder.GetValue != nil {
		return b.binder.GetValue(b.ctx)
	}
	return InputValue(b.ctx.Node)
}

func (b *Binding) emit(verb string, metadata map[string]any) {
	emitter := b.view.cfg.emitter
	if !emitter.Enabled() {
		return
	}
	err := emitter.Emit(context.Background(), activity.Event{
		Verb:      verb,
		BindingID: b.id,
		ViewID:    b.view.id,
		Binder:    b.name,
		Keypath:   b.directive.Keypath,
		Node:      nodeLabel(b.ctx.Node),
		Metadata:  metadata,
	})
	if err != nil {
		b.view.cfg.logger.Log(LogEvent{Stage: "activity", Binder: b.name, Keypath: b.directive.Keypath, Err: err})
	}
}
