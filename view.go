package tether

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-tether/observe"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// View owns the bindings built from a set of root nodes against one model
// object.
type View struct {
	id       string
	els      []*html.Node
	models   *observe.Object
	cfg      *config
	events   *eventTable
	parent   *View
	bindings []*Binding
}

// NewView builds the bindings for els against models without binding them.
// Build failures are returned as *BuildError.
func NewView(els []*html.Node, models *observe.Object, opts ...Option) (*View, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = observe.NewObject(nil)
	}
	v := &View{
		id:     uuid.NewString(),
		els:    els,
		models: models,
		cfg:    cfg,
		events: newEventTable(),
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	return v, nil
}

// Bind builds a view and binds it.
func Bind(els []*html.Node, models *observe.Object, opts ...Option) (*View, error) {
	v, err := NewView(els, models, opts...)
	if err != nil {
		return nil, err
	}
	if err := v.Bind(); err != nil {
		v.Unbind()
		return nil, err
	}
	return v, nil
}

func (v *View) child(els []*html.Node, models *observe.Object) *View {
	if models == nil {
		models = observe.NewObject(nil)
	}
	return &View{
		id:     uuid.NewString(),
		els:    els,
		models: models,
		cfg:    v.cfg,
		events: v.events,
		parent: v,
	}
}

// ID returns the view identity token.
func (v *View) ID() string { return v.id }

// Els returns the root nodes.
func (v *View) Els() []*html.Node {
	return append([]*html.Node(nil), v.els...)
}

// Models returns the model object bindings resolve against.
func (v *View) Models() *observe.Object { return v.models }

// Parent returns the view that created this one, nil for a root view.
func (v *View) Parent() *View { return v.parent }

// Registry returns the observation registry shared by the view tree.
func (v *View) Registry() *observe.Registry { return v.cfg.registry }

// Binders returns the binder registry in use.
func (v *View) Binders() *BinderRegistry { return v.cfg.binders }

// Formatters returns the formatter registry in use.
func (v *View) Formatters() *FormatterRegistry { return v.cfg.formatters }

// Bindings returns the bindings in execution order.
func (v *View) Bindings() []*Binding {
	return append([]*Binding(nil), v.bindings...)
}

// Select returns the bindings for which fn reports true.
func (v *View) Select(fn func(*Binding) bool) []*Binding {
	var out []*Binding
	for _, binding := range v.bindings {
		if fn(binding) {
			out = append(out, binding)
		}
	}
	return out
}

// Build discards existing bindings and walks the root nodes again.
func (v *View) Build() error {
	v.bindings = nil
	for _, el := range v.els {
		if err := v.parse(el); err != nil {
			return err
		}
	}
	sort.SliceStable(v.bindings, func(i, j int) bool {
		return v.bindings[i].binder.Priority > v.bindings[j].binder.Priority
	})
	return nil
}

func (v *View) parse(node *html.Node) error {
	if node == nil {
		return nil
	}
	block := false
	switch node.Type {
	case html.TextNode:
		return v.parseText(node)
	case html.ElementNode:
		var err error
		if block, err = v.traverse(node); err != nil {
			return err
		}
	case html.CommentNode, html.DoctypeNode:
		return nil
	}
	if block {
		return nil
	}
	for _, child := range Children(node) {
		if err := v.parse(child); err != nil {
			return err
		}
	}
	return nil
}

// parseText replaces a text node holding interpolations with one text node
// per span, binding the dynamic ones.
func (v *View) parseText(node *html.Node) error {
	if node.Parent == nil {
		return nil
	}
	tokens := ParseTemplate(node.Data, v.cfg.openDelim, v.cfg.closeDelim)
	if !hasBindings(tokens) {
		return nil
	}
	parent := node.Parent
	for _, token := range tokens {
		text := &html.Node{Type: html.TextNode}
		parent.InsertBefore(text, node)
		if !token.Binding {
			text.Data = token.Value
			continue
		}
		directive, err := v.parseDirective(token.Value)
		if err != nil {
			return wrapBuildError(text, "", err)
		}
		v.bindings = append(v.bindings, newBinding(v, text, "text", Resolution{Name: "text", Binder: textBinder}, directive))
	}
	parent.RemoveChild(node)
	return nil
}

type directiveMatch struct {
	attr       html.Attribute
	typ        string
	resolution Resolution
}

// traverse builds the bindings declared on node and reports whether node is
// a block that traversal must not descend into.
func (v *View) traverse(node *html.Node) (bool, error) {
	prefix := v.cfg.prefix + "-"
	block := node.DataAtom == atom.Script || node.DataAtom == atom.Style

	var matches []directiveMatch
	var claim *directiveMatch
	for _, attr := range node.Attr {
		if attr.Namespace != "" || !strings.HasPrefix(attr.Key, prefix) {
			continue
		}
		typ := strings.TrimPrefix(attr.Key, prefix)
		resolution, ok := v.cfg.binders.Resolve(typ)
		if !ok {
			return false, &BuildError{Node: node, Attribute: attr.Key, Err: fmt.Errorf("%w: %q", ErrUnknownBinder, typ)}
		}
		match := directiveMatch{attr: attr, typ: typ, resolution: resolution}
		if resolution.Binder.Block {
			if claim != nil {
				return false, &BuildError{
					Node:      node,
					Attribute: attr.Key,
					Err:       fmt.Errorf("%w: %s and %s", ErrBlockConflict, claim.attr.Key, attr.Key),
				}
			}
			claim = &match
		}
		matches = append(matches, match)
	}

	strip := v.cfg.stripAttributes
	if claim != nil {
		block = true
		strip = true
		matches = []directiveMatch{*claim}
	}
	for _, match := range matches {
		directive, err := v.parseDirective(match.attr.Val)
		if err != nil {
			return false, wrapBuildError(node, match.attr.Key, err)
		}
		v.bindings = append(v.bindings, newBinding(v, node, match.typ, match.resolution, directive))
	}
	if strip {
		for _, match := range matches {
			RemoveAttr(node, match.attr.Key)
		}
	}

	if !block {
		if component, ok := v.cfg.components[node.Data]; ok {
			v.bindings = append(v.bindings, v.newComponentBinding(node, component))
			block = true
		}
	}
	return block, nil
}

func (v *View) parseDirective(declaration string) (Directive, error) {
	directive, err := ParseDirective(declaration)
	if err != nil {
		return directive, err
	}
	for _, call := range directive.Formatters {
		if !v.cfg.formatters.Has(call.Name) {
			return directive, fmt.Errorf("%w: %q", ErrUnknownFormatter, call.Name)
		}
	}
	return directive, nil
}

// Bind binds every binding in execution order. Failures are joined; the
// remaining bindings still bind.
func (v *View) Bind() error {
	var errs []error
	for _, binding := range v.bindings {
		if err := binding.Bind(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unbind unbinds every binding.
func (v *View) Unbind() {
	for _, binding := range v.bindings {
		binding.Unbind()
	}
}

// Sync pushes the current model values into every binding.
func (v *View) Sync() {
	for _, binding := range v.bindings {
		binding.Sync()
	}
}

// Publish writes node values back for every two-way binding.
func (v *View) Publish() error {
	var errs []error
	for _, binding := range v.bindings {
		if !binding.binder.Publishes {
			continue
		}
		if err := binding.Publish(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Update merges models into the view models, then hands them to every
// binding.
func (v *View) Update(models map[string]any) {
	keys := make([]string, 0, len(models))
	for key := range models {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		v.models.Set(key, models[key])
	}
	for _, binding := range v.bindings {
		binding.Update(models)
	}
}

// Create clones the node of from, inserts the clone before anchor, and
// builds and binds a child view over it against scope. Structural binders
// use it to stamp out their template in front of their marker.
func (v *View) Create(from *Binding, scope *observe.Object, anchor *html.Node) (*View, error) {
	if from == nil {
		return nil, fmt.Errorf("tether: create: binding is nil")
	}
	if anchor == nil || anchor.Parent == nil {
		return nil, fmt.Errorf("tether: create: anchor is detached")
	}
	template := CloneNode(from.Node())
	anchor.Parent.InsertBefore(template, anchor)

	child := v.child([]*html.Node{template}, scope)
	if err := child.Build(); err != nil {
		Detach(template)
		return nil, err
	}
	if err := child.Bind(); err != nil {
		child.Unbind()
		Detach(template)
		return nil, err
	}
	return child, nil
}

// Log hands event to the configured logger.
func (v *View) Log(event LogEvent) {
	v.cfg.logger.Log(event)
}

// Dispatch fires the handlers registered for event on node.
func (v *View) Dispatch(node *html.Node, event string, detail any) error {
	return v.events.dispatch(node, event, detail)
}

// Listeners reports how many handlers are registered for event on node.
func (v *View) Listeners(node *html.Node, event string) int {
	return v.events.count(node, event)
}

// Dispose unbinds the view. A root view also disposes its registry,
// releasing every observation made through it.
func (v *View) Dispose() {
	v.Unbind()
	if v.parent == nil {
		v.cfg.registry.Dispose()
	}
}
