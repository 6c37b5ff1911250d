package observe

import (
	"github.com/google/uuid"
)

// interceptor is the setter installed by an adapter for one observed key.
type interceptor struct {
	owner string
	fn    func(old, next any)
}

// Object is an observable property bag. Every Object carries an identity
// token used by registries to key observation state. Keys keep insertion
// order so rendering over Keys is deterministic.
type Object struct {
	id     string
	values map[string]any
	keys   []string
	parent *Object
	frozen bool

	interceptors map[string][]interceptor
}

// NewObject constructs an Object populated with values. Nested maps and
// slices are left as is; use From for a deep conversion.
func NewObject(values map[string]any) *Object {
	o := &Object{
		id:     uuid.NewString(),
		values: make(map[string]any, len(values)),
	}
	for _, key := range sortedKeys(values) {
		o.keys = append(o.keys, key)
		o.values[key] = values[key]
	}
	return o
}

// NewScope constructs an Object whose parent link points at parent. Keypaths
// whose first segment is not owned by the scope resolve against the nearest
// ancestor that owns it.
func NewScope(parent *Object, values map[string]any) *Object {
	o := NewObject(values)
	o.parent = parent
	return o
}

// ID returns the identity token.
func (o *Object) ID() string {
	if o == nil {
		return ""
	}
	return o.id
}

// Parent returns the enclosing scope, if any.
func (o *Object) Parent() *Object {
	if o == nil {
		return nil
	}
	return o.parent
}

// Get returns the value stored under key or nil.
func (o *Object) Get(key string) any {
	if o == nil {
		return nil
	}
	return o.values[key]
}

// Has reports whether the object itself owns key.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.values[key]
	return ok
}

// Keys returns the owned keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of owned keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Set assigns value to key. Interceptors installed for key run only when
// the value actually changed. Writes to a frozen object are ignored.
func (o *Object) Set(key string, value any) {
	if o == nil || o.frozen {
		return
	}
	old, had := o.values[key]
	if !had {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
	if had && Same(old, value) {
		return
	}
	hooks := o.interceptors[key]
	if len(hooks) == 0 {
		return
	}
	snapshot := make([]interceptor, len(hooks))
	copy(snapshot, hooks)
	for _, hook := range snapshot {
		hook.fn(old, value)
	}
}

// Delete removes key. Observers of key see nil on their next sync.
func (o *Object) Delete(key string) {
	if o == nil || o.frozen {
		return
	}
	if _, ok := o.values[key]; !ok {
		return
	}
	o.Set(key, nil)
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Freeze makes the object read-only. Frozen objects cannot be observed; a
// binding against them reads the value once.
func (o *Object) Freeze() *Object {
	if o != nil {
		o.frozen = true
	}
	return o
}

// Frozen reports whether Freeze was called.
func (o *Object) Frozen() bool {
	return o != nil && o.frozen
}

// Map returns a shallow copy of the owned values.
func (o *Object) Map() map[string]any {
	if o == nil {
		return nil
	}
	out := make(map[string]any, len(o.values))
	for key, value := range o.values {
		out[key] = value
	}
	return out
}

func (o *Object) intercepted(owner, key string) bool {
	for _, hook := range o.interceptors[key] {
		if hook.owner == owner {
			return true
		}
	}
	return false
}

func (o *Object) intercept(owner, key string, fn func(old, next any)) bool {
	if o.frozen {
		return false
	}
	if o.intercepted(owner, key) {
		return true
	}
	if o.interceptors == nil {
		o.interceptors = make(map[string][]interceptor)
	}
	o.interceptors[key] = append(o.interceptors[key], interceptor{owner: owner, fn: fn})
	return true
}

func (o *Object) releaseKey(owner, key string) {
	hooks := o.interceptors[key]
	kept := hooks[:0]
	for _, hook := range hooks {
		if hook.owner != owner {
			kept = append(kept, hook)
		}
	}
	if len(kept) == 0 {
		delete(o.interceptors, key)
		return
	}
	o.interceptors[key] = kept
}

func (o *Object) release(owner string) {
	for key, hooks := range o.interceptors {
		kept := hooks[:0]
		for _, hook := range hooks {
			if hook.owner != owner {
				kept = append(kept, hook)
			}
		}
		if len(kept) == 0 {
			delete(o.interceptors, key)
			continue
		}
		o.interceptors[key] = kept
	}
}
