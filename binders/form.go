package binders

import (
	"strings"

	tether "github.com/goliatone/go-tether"
	"github.com/goliatone/go-tether/observe"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Value keeps a form control value in sync with the model and publishes on
// change and input events.
func Value() *tether.Binder {
	return &tether.Binder{
		Publishes: true,
		Priority:  PriorityValue,
		Bind:      listen("change", "input"),
		Unbind:    forget("change", "input"),
		Routine: func(ctx *tether.Context, value any) {
			setControlValue(ctx.Node, value)
		},
	}
}

// Checked mirrors a boolean onto a checkbox. A radio button is checked when
// its value attribute equals the bound value, and publishes that value.
func Checked() *tether.Binder {
	return &tether.Binder{
		Publishes: true,
		Priority:  PriorityChecked,
		Bind:      listen("change"),
		Unbind:    forget("change"),
		Routine: func(ctx *tether.Context, value any) {
			toggleAttr(ctx.Node, "checked", checkedState(ctx.Node, value))
		},
		GetValue: func(ctx *tether.Context) any {
			if isRadio(ctx.Node) {
				own, _ := tether.Attr(ctx.Node, "value")
				return own
			}
			return tether.InputValue(ctx.Node)
		},
	}
}

// Unchecked is the inverse of Checked for checkboxes.
func Unchecked() *tether.Binder {
	return &tether.Binder{
		Publishes: true,
		Priority:  PriorityChecked,
		Bind:      listen("change"),
		Unbind:    forget("change"),
		Routine: func(ctx *tether.Context, value any) {
			toggleAttr(ctx.Node, "checked", !tether.Truthy(value))
		},
		GetValue: func(ctx *tether.Context) any {
			checked, _ := tether.InputValue(ctx.Node).(bool)
			return !checked
		},
	}
}

func listen(events ...string) func(*tether.Context) error {
	return func(ctx *tether.Context) error {
		for _, event := range events {
			ctx.On(event, func(tether.Event) error {
				return ctx.Publish()
			})
		}
		return nil
	}
}

func forget(events ...string) func(*tether.Context) {
	return func(ctx *tether.Context) {
		for _, event := range events {
			ctx.Off(event)
		}
	}
}

func isRadio(node *html.Node) bool {
	kind, _ := tether.Attr(node, "type")
	return node.DataAtom == atom.Input && strings.EqualFold(kind, "radio")
}

func checkedState(node *html.Node, value any) bool {
	if isRadio(node) {
		own, _ := tether.Attr(node, "value")
		return own == tether.Stringify(value)
	}
	return tether.Truthy(value)
}

func setControlValue(node *html.Node, value any) {
	switch node.DataAtom {
	case atom.Textarea:
		tether.SetTextContent(node, tether.Stringify(value))
	case atom.Select:
		selected := map[string]bool{}
		switch typed := value.(type) {
		case []any:
			for _, item := range typed {
				selected[tether.Stringify(item)] = true
			}
		case []string:
			for _, item := range typed {
				selected[item] = true
			}
		case *observe.List:
			for _, item := range typed.Items() {
				selected[tether.Stringify(item)] = true
			}
		default:
			selected[tether.Stringify(value)] = true
		}
		for _, option := range tether.Options(node) {
			toggleAttr(option, "selected", selected[tether.OptionValue(option)])
		}
	default:
		tether.SetAttr(node, "value", tether.Stringify(value))
	}
}
