package binders

import (
	"strings"

	tether "github.com/goliatone/go-tether"
	"golang.org/x/net/html"
)

// Text replaces the node children with the value as text.
func Text() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		tether.SetTextContent(ctx.Node, tether.Stringify(value))
	})
}

// HTML parses the value as markup and replaces the node children with it.
// Markup that fails to parse is rendered as text.
func HTML() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		markup := tether.Stringify(value)
		nodes, err := html.ParseFragment(strings.NewReader(markup), ctx.Node)
		if err != nil {
			tether.SetTextContent(ctx.Node, markup)
			return
		}
		tether.RemoveChildren(ctx.Node)
		for _, node := range nodes {
			ctx.Node.AppendChild(node)
		}
	})
}

// Show hides the node when the value is falsy.
func Show() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		setDisplay(ctx.Node, tether.Truthy(value))
	})
}

// Hide hides the node when the value is truthy.
func Hide() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		setDisplay(ctx.Node, !tether.Truthy(value))
	})
}

// Enabled clears the disabled attribute when the value is truthy.
func Enabled() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		toggleAttr(ctx.Node, "disabled", !tether.Truthy(value))
	})
}

// Disabled sets the disabled attribute when the value is truthy.
func Disabled() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		toggleAttr(ctx.Node, "disabled", tether.Truthy(value))
	})
}

// Class toggles the class captured by the wildcard, as in class-active.
func Class() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		name := tether.Stringify(ctx.Arg(0))
		if name == "" {
			return
		}
		current, _ := tether.Attr(ctx.Node, "class")
		classes := strings.Fields(current)
		kept := classes[:0]
		for _, class := range classes {
			if class != name {
				kept = append(kept, class)
			}
		}
		if tether.Truthy(value) {
			kept = append(kept, name)
		}
		if len(kept) == 0 {
			tether.RemoveAttr(ctx.Node, "class")
			return
		}
		tether.SetAttr(ctx.Node, "class", strings.Join(kept, " "))
	})
}

// Attribute sets the attribute named by the directive. A nil value removes
// it.
func Attribute() *tether.Binder {
	return tether.RoutineBinder(func(ctx *tether.Context, value any) {
		if value == nil {
			tether.RemoveAttr(ctx.Node, ctx.Type)
			return
		}
		tether.SetAttr(ctx.Node, ctx.Type, tether.Stringify(value))
	})
}

func toggleAttr(node *html.Node, key string, present bool) {
	if present {
		tether.SetAttr(node, key, "")
		return
	}
	tether.RemoveAttr(node, key)
}

// setDisplay adds or drops a display:none declaration, leaving the rest of
// the inline style alone.
func setDisplay(node *html.Node, visible bool) {
	style, _ := tether.Attr(node, "style")
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		property, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(property), "display") {
			continue
		}
		kept = append(kept, decl)
	}
	if !visible {
		kept = append(kept, "display: none")
	}
	if len(kept) == 0 {
		tether.RemoveAttr(node, "style")
		return
	}
	tether.SetAttr(node, "style", strings.Join(kept, "; ")+";")
}
