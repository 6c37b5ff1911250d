package observe

import (
	"sort"

	"github.com/google/uuid"
)

// Subscriber receives change notifications. Implementations must be
// comparable (pointer types) because registries de-duplicate by identity.
type Subscriber interface {
	Sync()
}

// Callback adapts a function to Subscriber while keeping pointer identity.
type Callback struct {
	fn func()
}

// NewCallback wraps fn.
func NewCallback(fn func()) *Callback {
	return &Callback{fn: fn}
}

// Sync invokes the wrapped function.
func (c *Callback) Sync() {
	if c != nil && c.fn != nil {
		c.fn()
	}
}

type entry struct {
	target    any
	callbacks map[string][]Subscriber
	// pointers is only set for lists: referencing object id -> keys holding
	// the list.
	pointers map[string][]string
}

func (e *entry) empty() bool {
	return len(e.callbacks) == 0 && len(e.pointers) == 0
}

// Registry holds observation state for one binding context. Entries are
// created lazily on first observation and removed once they hold neither
// callbacks nor list pointers. A Registry is not safe for concurrent use.
type Registry struct {
	id       string
	entries  map[string]*entry
	disposed bool
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		id:      uuid.NewString(),
		entries: make(map[string]*entry),
	}
}

// ID returns the registry identity token.
func (r *Registry) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Callbacks returns how many subscribers are registered for (obj, key).
func (r *Registry) Callbacks(obj any, key string) int {
	if r == nil {
		return 0
	}
	e := r.entries[identity(obj)]
	if e == nil {
		return 0
	}
	return len(e.callbacks[key])
}

// Tracks reports whether obj has a registry entry.
func (r *Registry) Tracks(obj any) bool {
	if r == nil {
		return false
	}
	_, ok := r.entries[identity(obj)]
	return ok
}

// Disposed reports whether Dispose was called.
func (r *Registry) Disposed() bool {
	return r == nil || r.disposed
}

// Dispose releases every interceptor and list hook owned by the registry and
// drops all entries. Further observation calls are ignored.
func (r *Registry) Dispose() {
	if r == nil || r.disposed {
		return
	}
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r.release(r.entries[id].target)
		delete(r.entries, id)
	}
	r.disposed = true
}

func (r *Registry) reference(obj any) *entry {
	id := identity(obj)
	if id == "" {
		return nil
	}
	e := r.entries[id]
	if e == nil {
		e = &entry{target: obj, callbacks: make(map[string][]Subscriber)}
		r.entries[id] = e
	}
	return e
}

func (r *Registry) lookup(obj any) *entry {
	return r.entries[identity(obj)]
}

// cleanup removes the entry for obj when it no longer holds anything.
func (r *Registry) cleanup(obj any) {
	id := identity(obj)
	e := r.entries[id]
	if e == nil || !e.empty() {
		return
	}
	r.release(obj)
	delete(r.entries, id)
}

func (r *Registry) release(obj any) {
	switch typed := obj.(type) {
	case *Object:
		typed.release(r.id)
	case *List:
		typed.untrack(r.id)
	}
}

func identity(obj any) string {
	switch typed := obj.(type) {
	case *Object:
		return typed.ID()
	case *List:
		return typed.ID()
	default:
		return ""
	}
}

func containsSubscriber(list []Subscriber, s Subscriber) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func removeSubscriber(list []Subscriber, s Subscriber) ([]Subscriber, bool) {
	for i, item := range list {
		if item == s {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}
