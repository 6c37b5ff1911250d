// Package binders holds the stock directive behaviors: content, form
// controls, visibility, classes, events, conditionals and iteration.
package binders

import (
	"errors"

	tether "github.com/goliatone/go-tether"
)

// Priorities of the stock binders. Structural binders run first so their
// subtree is stamped before sibling bindings sync.
const (
	PriorityBlock   = 4000
	PriorityValue   = 3000
	PriorityChecked = 2000
)

// Register adds every stock binder to reg. Names already present are
// reported and left untouched.
func Register(reg *tether.BinderRegistry) error {
	var errs []error
	for _, entry := range stock() {
		if err := reg.Register(entry.name, entry.binder); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Default returns a registry holding the stock binders.
func Default() *tether.BinderRegistry {
	reg := tether.NewBinderRegistry()
	_ = Register(reg)
	return reg
}

type entry struct {
	name   string
	binder *tether.Binder
}

func stock() []entry {
	return []entry{
		{"text", Text()},
		{"html", HTML()},
		{"value", Value()},
		{"checked", Checked()},
		{"unchecked", Unchecked()},
		{"show", Show()},
		{"hide", Hide()},
		{"enabled", Enabled()},
		{"disabled", Disabled()},
		{"if", If()},
		{"each-*", Each()},
		{"class-*", Class()},
		{"on-*", On()},
		{tether.FallbackBinder, Attribute()},
	}
}
