package tether

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-tether/observe"
	"golang.org/x/net/html"
)

// Binder is the behavior a directive attaches to a node. Every hook is
// optional; a nil hook is skipped.
type Binder struct {
	// Bind runs once when the binding attaches.
	Bind func(ctx *Context) error
	// Unbind runs when the binding detaches.
	Unbind func(ctx *Context)
	// Routine pushes a formatted value into the node.
	Routine func(ctx *Context, value any)
	// Update receives the key/value pairs passed to View.Update.
	Update func(ctx *Context, models map[string]any)
	// GetValue reads the node side value for Publish. InputValue is used
	// when nil.
	GetValue func(ctx *Context) any

	// Publishes opts the binder into reverse sync.
	Publishes bool
	// Block binders own their subtree; traversal does not descend into it.
	Block bool
	// Priority orders bindings, higher first.
	Priority int
	// Function binders receive func values as is instead of their result.
	Function bool
}

// RoutineBinder builds a one-way binder from a routine.
func RoutineBinder(routine func(ctx *Context, value any)) *Binder {
	return &Binder{Routine: routine}
}

// Context is handed to every binder hook. It carries the node, the parsed
// directive and a private Data slot the binder may use freely.
type Context struct {
	Node       *html.Node
	Type       string
	Keypath    string
	Args       []any
	Formatters []string
	Marker     *html.Node
	Data       any

	binding *Binding
}

// Binding returns the binding the context belongs to.
func (c *Context) Binding() *Binding {
	return c.binding
}

// View returns the view that built the binding.
func (c *Context) View() *View {
	if c.binding == nil {
		return nil
	}
	return c.binding.view
}

// Model returns the object owning the bound key, falling back to the view
// models when the keypath is a literal or unreachable.
func (c *Context) Model() *observe.Object {
	if c.binding == nil {
		return nil
	}
	return c.binding.Model()
}

// Value returns the raw, unformatted bound value.
func (c *Context) Value() any {
	if c.binding == nil {
		return nil
	}
	return c.binding.Value()
}

// SetValue writes value through the binding observer without running the
// publish pipeline.
func (c *Context) SetValue(value any) {
	if c.binding == nil || c.binding.observer == nil {
		return
	}
	c.binding.observer.SetValue(value)
}

// Publish runs the reverse pipeline and writes the node value to the model.
func (c *Context) Publish() error {
	if c.binding == nil {
		return nil
	}
	return c.binding.Publish()
}

// On registers handler for event on the context node.
func (c *Context) On(event string, handler EventHandler) {
	if c.binding == nil || handler == nil {
		return
	}
	c.binding.view.events.on(c.Node, event, c.binding, handler)
}

// Off removes the handlers this binding registered for event.
func (c *Context) Off(event string) {
	if c.binding == nil {
		return
	}
	c.binding.view.events.off(c.Node, event, c.binding)
}

// Arg returns the wildcard capture at index or nil.
func (c *Context) Arg(index int) any {
	if index < 0 || index >= len(c.Args) {
		return nil
	}
	return c.Args[index]
}

// Stringify renders a bound value as node text. nil renders as the empty
// string.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case fmt.Stringer:
		return typed.String()
	case *observe.List:
		if typed == nil {
			return ""
		}
		return fmt.Sprint(observe.Plain(typed))
	case *observe.Object:
		if typed == nil {
			return ""
		}
		return fmt.Sprint(observe.Plain(typed))
	default:
		return fmt.Sprint(value)
	}
}

// Truthy reports whether value counts as set for conditional binders.
func Truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	case *observe.List:
		return typed != nil
	case *observe.Object:
		return typed != nil
	default:
		return true
	}
}

// textBinder renders interpolated text spans.
var textBinder = &Binder{
	Routine: func(ctx *Context, value any) {
		ctx.Node.Data = Stringify(value)
	},
}
