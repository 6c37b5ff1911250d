package tether

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/goliatone/go-tether/observe"
	"golang.org/x/net/html"
)

// Component is a reusable template mounted on every element whose tag name
// it is registered under.
type Component struct {
	// Template returns the markup that replaces the element children.
	Template func() string
	// Initialize returns the component scope. The locals are used as the
	// scope when Initialize is nil or returns nil.
	Initialize func(ctx *ComponentContext) (*observe.Object, error)
	// Static names attributes passed through as raw strings.
	Static []string
}

// ComponentContext is handed to Component.Initialize.
type ComponentContext struct {
	Node   *html.Node
	Locals map[string]any
	Parent *View
}

// WithComponent registers component for elements named tag.
func WithComponent(tag string, component *Component) Option {
	return func(cfg *config) {
		if component == nil || tag == "" {
			return
		}
		if cfg.components == nil {
			cfg.components = make(map[string]*Component)
		}
		cfg.components[strings.ToLower(tag)] = component
	}
}

type componentState struct {
	component *Component
	static    map[string]any
	keypaths  map[string]string
	observers map[string]*observe.Observer
	upstream  map[string]*observe.Observer
	view      *View
}

// newComponentBinding reads the element attributes into locals: static
// names and literals are copied, everything else is a keypath observed on
// the parent models.
func (v *View) newComponentBinding(node *html.Node, component *Component) *Binding {
	state := &componentState{
		component: component,
		static:    map[string]any{},
		keypaths:  map[string]string{},
	}
	prefix := v.cfg.prefix + "-"
	for _, attr := range node.Attr {
		if strings.HasPrefix(attr.Key, prefix) {
			continue
		}
		property := camelCase(attr.Key)
		if slices.Contains(component.Static, property) {
			state.static[property] = attr.Val
			continue
		}
		arg := ParseArgument(attr.Val)
		if arg.Literal {
			state.static[property] = arg.Value
		} else {
			state.keypaths[property] = arg.Keypath
		}
	}

	binder := &Binder{
		Block:  true,
		Bind:   state.bind,
		Unbind: state.unbind,
	}
	binding := newBinding(v, node, node.Data, Resolution{Name: node.Data, Binder: binder}, Directive{Target: Argument{Literal: true}})
	binding.ctx.Data = state
	return binding
}

func (s *componentState) properties() []string {
	names := make([]string, 0, len(s.keypaths))
	for name := range s.keypaths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *componentState) locals() map[string]any {
	locals := make(map[string]any, len(s.static)+len(s.observers))
	for key, value := range s.static {
		locals[key] = value
	}
	for key, observer := range s.observers {
		locals[key] = observer.Value()
	}
	return locals
}

func (s *componentState) bind(ctx *Context) error {
	parent := ctx.View()
	ifaces := parent.cfg.ifaces

	s.observers = make(map[string]*observe.Observer, len(s.keypaths))
	for _, property := range s.properties() {
		s.observers[property] = observe.NewObserver(ifaces, parent.models, s.keypaths[property], observe.NewCallback(func() {
			if s.view != nil {
				s.view.models.Set(property, s.observers[property].Value())
			}
		}))
	}

	if s.view == nil {
		if err := s.mount(ctx, parent); err != nil {
			parent.cfg.logger.Log(LogEvent{Stage: "component", Binder: ctx.Type, Err: err})
			return err
		}
	}
	if err := s.view.Bind(); err != nil {
		return err
	}

	s.upstream = make(map[string]*observe.Observer, len(s.keypaths))
	for _, property := range s.properties() {
		downstream := s.observers[property]
		upstream := observe.NewObserver(ifaces, s.view.models, property, observe.NewCallback(func() {
			downstream.SetValue(s.view.models.Get(property))
		}))
		s.upstream[property] = upstream
	}
	return nil
}

func (s *componentState) mount(ctx *Context, parent *View) error {
	if s.component.Template != nil {
		nodes, err := html.ParseFragment(strings.NewReader(s.component.Template()), ctx.Node)
		if err != nil {
			return fmt.Errorf("tether: component %s template: %w", ctx.Type, err)
		}
		RemoveChildren(ctx.Node)
		for _, node := range nodes {
			ctx.Node.AppendChild(node)
		}
	}

	locals := s.locals()
	var scope *observe.Object
	if s.component.Initialize != nil {
		var err error
		scope, err = s.component.Initialize(&ComponentContext{Node: ctx.Node, Locals: locals, Parent: parent})
		if err != nil {
			return fmt.Errorf("tether: component %s initialize: %w", ctx.Type, err)
		}
	}
	if scope == nil {
		scope = observe.FromMap(locals)
	}

	view := parent.child(Children(ctx.Node), scope)
	if err := view.Build(); err != nil {
		return err
	}
	s.view = view
	return nil
}

func (s *componentState) unbind(*Context) {
	for _, observer := range s.upstream {
		observer.Unobserve()
	}
	s.upstream = nil
	for _, observer := range s.observers {
		observer.Unobserve()
	}
	s.observers = nil
	if s.view != nil {
		s.view.Unbind()
	}
}

// ComponentView returns the child view mounted by a component binding, or
// nil when b is not a component binding or has not mounted yet.
func ComponentView(b *Binding) *View {
	if b == nil {
		return nil
	}
	state, ok := b.ctx.Data.(*componentState)
	if !ok {
		return nil
	}
	return state.view
}

func camelCase(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '-' && i+1 < len(name) && name[i+1] >= 'a' && name[i+1] <= 'z' {
			b.WriteByte(name[i+1] - ('a' - 'A'))
			i++
			continue
		}
		b.WriteByte(name[i])
	}
	return b.String()
}
