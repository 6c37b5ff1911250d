package binders

import (
	"fmt"

	tether "github.com/goliatone/go-tether"
	"github.com/goliatone/go-tether/observe"
)

// On registers the bound function as the handler for the event captured
// by the wildcard, as in on-click. Accepted handler shapes:
//
//	func()
//	func() error
//	func(tether.Event)
//	func(tether.Event) error
//	func(tether.Event, *observe.Object)
//	func(tether.Event, *observe.Object) error
//
// The object is the model of the view that built the binding.
func On() *tether.Binder {
	return &tether.Binder{
		Function: true,
		Unbind: func(ctx *tether.Context) {
			ctx.Off(eventName(ctx))
		},
		Routine: func(ctx *tether.Context, value any) {
			event := eventName(ctx)
			ctx.Off(event)
			if value == nil {
				return
			}
			handler, err := adaptHandler(value, ctx)
			if err != nil {
				ctx.On(event, func(tether.Event) error { return err })
				return
			}
			ctx.On(event, handler)
		},
	}
}

func eventName(ctx *tether.Context) string {
	return tether.Stringify(ctx.Arg(0))
}

func adaptHandler(value any, ctx *tether.Context) (tether.EventHandler, error) {
	models := func() *observe.Object {
		if view := ctx.View(); view != nil {
			return view.Models()
		}
		return nil
	}
	switch fn := value.(type) {
	case tether.EventHandler:
		return fn, nil
	case func(tether.Event) error:
		return fn, nil
	case func(tether.Event):
		return func(evt tether.Event) error {
			fn(evt)
			return nil
		}, nil
	case func():
		return func(tether.Event) error {
			fn()
			return nil
		}, nil
	case func() error:
		return func(tether.Event) error {
			return fn()
		}, nil
	case func(tether.Event, *observe.Object):
		return func(evt tether.Event) error {
			fn(evt, models())
			return nil
		}, nil
	case func(tether.Event, *observe.Object) error:
		return func(evt tether.Event) error {
			return fn(evt, models())
		}, nil
	default:
		return nil, fmt.Errorf("binders: on-%s handler has unsupported type %T", eventName(ctx), value)
	}
}
