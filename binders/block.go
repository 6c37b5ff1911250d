package binders

import (
	"fmt"

	tether "github.com/goliatone/go-tether"
	"github.com/goliatone/go-tether/observe"
	"golang.org/x/net/html"
)

// IndexKey is the scope key holding the position of an iterated item. The
// per-alias key %alias% is set as well.
const IndexKey = "$index"

// If renders the node while the value is truthy. The node is replaced by a
// comment marker and a copy is stamped in front of it on demand.
func If() *tether.Binder {
	return &tether.Binder{
		Block:    true,
		Priority: PriorityBlock,
		Bind: func(ctx *tether.Context) error {
			placeMarker(ctx)
			return nil
		},
		Unbind: func(ctx *tether.Context) {
			if nested, ok := ctx.Data.(*tether.View); ok && nested != nil {
				nested.Unbind()
			}
		},
		Routine: func(ctx *tether.Context, value any) {
			nested, _ := ctx.Data.(*tether.View)
			if !tether.Truthy(value) {
				if nested != nil {
					removeView(nested)
					ctx.Data = nil
				}
				return
			}
			if nested != nil {
				if err := nested.Bind(); err != nil {
					logFailure(ctx, err)
				}
				return
			}
			view := ctx.View()
			created, err := view.Create(ctx.Binding(), view.Models(), ctx.Marker)
			if err != nil {
				logFailure(ctx, err)
				return
			}
			ctx.Data = created
		},
		Update: func(ctx *tether.Context, models map[string]any) {
			if nested, ok := ctx.Data.(*tether.View); ok && nested != nil {
				nested.Update(models)
			}
		},
	}
}

type iteration struct {
	views []*tether.View
}

// Each stamps one copy of the node per item of a list, as in
// each-todo="todos". Every copy binds against a scope holding the item
// under the captured alias and its index under IndexKey and %alias%.
func Each() *tether.Binder {
	return &tether.Binder{
		Block:    true,
		Priority: PriorityBlock,
		Bind: func(ctx *tether.Context) error {
			placeMarker(ctx)
			state, _ := ctx.Data.(*iteration)
			if state == nil {
				ctx.Data = &iteration{}
				return nil
			}
			// copies kept from an earlier bind are live again before the
			// first render reuses them
			for _, view := range state.views {
				if err := view.Bind(); err != nil {
					return err
				}
			}
			return nil
		},
		Unbind: func(ctx *tether.Context) {
			state, _ := ctx.Data.(*iteration)
			if state == nil {
				return
			}
			for _, view := range state.views {
				view.Unbind()
			}
		},
		Routine: func(ctx *tether.Context, value any) {
			state, _ := ctx.Data.(*iteration)
			if state == nil {
				return
			}
			state.render(ctx, items(value))
		},
		Update: func(ctx *tether.Context, models map[string]any) {
			state, _ := ctx.Data.(*iteration)
			if state == nil {
				return
			}
			alias := tether.Stringify(ctx.Arg(0))
			forward := make(map[string]any, len(models))
			for key, value := range models {
				if key != alias {
					forward[key] = value
				}
			}
			for _, view := range state.views {
				view.Update(forward)
			}
		},
	}
}

// render reuses the existing copies by position, stamps the missing ones
// and removes the surplus.
func (it *iteration) render(ctx *tether.Context, values []any) {
	alias := tether.Stringify(ctx.Arg(0))
	indexAlias := "%" + alias + "%"

	for len(it.views) > len(values) {
		last := it.views[len(it.views)-1]
		removeView(last)
		it.views = it.views[:len(it.views)-1]
	}

	for index, item := range values {
		if index < len(it.views) {
			scope := it.views[index].Models()
			scope.Set(alias, item)
			scope.Set(IndexKey, index)
			scope.Set(indexAlias, index)
			continue
		}
		view := ctx.View()
		scope := observe.NewScope(view.Models(), map[string]any{
			alias:      item,
			IndexKey:   index,
			indexAlias: index,
		})
		created, err := view.Create(ctx.Binding(), scope, ctx.Marker)
		if err != nil {
			logFailure(ctx, err)
			return
		}
		it.views = append(it.views, created)
	}
}

func items(value any) []any {
	switch typed := value.(type) {
	case nil:
		return nil
	case *observe.List:
		if typed == nil {
			return nil
		}
		return typed.Items()
	case []any:
		return typed
	case []string:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = observe.FromMap(item)
		}
		return out
	default:
		return nil
	}
}

// placeMarker puts a comment marker after the node and detaches the node the
// first time the binding binds. Copies are inserted in front of the marker;
// the detached node stays the template for Create.
func placeMarker(ctx *tether.Context) {
	if ctx.Marker != nil {
		return
	}
	marker := &html.Node{
		Type: html.CommentNode,
		Data: fmt.Sprintf(" tether: %s %s ", ctx.Type, ctx.Keypath),
	}
	if parent := ctx.Node.Parent; parent != nil {
		parent.InsertBefore(marker, ctx.Node.NextSibling)
		parent.RemoveChild(ctx.Node)
	}
	ctx.Marker = marker
}

func removeView(view *tether.View) {
	view.Unbind()
	for _, el := range view.Els() {
		tether.Detach(el)
	}
}

func logFailure(ctx *tether.Context, err error) {
	if view := ctx.View(); view != nil {
		view.Log(tether.LogEvent{Stage: "block", Binder: ctx.Type, Keypath: ctx.Keypath, Err: err})
	}
}
