package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Verbs emitted by the binding runtime.
const (
	VerbBind    = "binding.bound"
	VerbUnbind  = "binding.unbound"
	VerbPublish = "binding.published"
	VerbFailure = "binding.failed"
)

// Event describes a binding lifecycle occurrence that can be fanned out to
// hooks. Node is a short description of the bound node, e.g. "<input>".
type Event struct {
	Verb       string
	BindingID  string
	ViewID     string
	Binder     string
	Keypath    string
	Node       string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any fail.
// It normalizes the event and short-circuits when required fields are missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.BindingID == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Clone drops nil hooks and returns a copy safe to mutate.
func (h Hooks) Clone() Hooks {
	if len(h) == 0 {
		return nil
	}
	normalized := make([]ActivityHook, 0, len(h))
	for _, hook := range h {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return Hooks(normalized)
}

// NormalizeEvent trims whitespace, clones metadata, and ensures a timestamp is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.BindingID = strings.TrimSpace(event.BindingID)
	normalized.ViewID = strings.TrimSpace(event.ViewID)
	normalized.Binder = strings.TrimSpace(event.Binder)
	normalized.Keypath = strings.TrimSpace(event.Keypath)
	normalized.Node = strings.TrimSpace(event.Node)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
