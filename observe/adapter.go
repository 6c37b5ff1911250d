package observe

import (
	"reflect"
	"sort"
	"strconv"
)

// Adapter is the capability contract over a backing store.
type Adapter interface {
	Get(obj any, key string) any
	Set(obj any, key string, value any)
	Observe(obj any, key string, callback Subscriber)
	Unobserve(obj any, key string, callback Subscriber)
}

// ObjectAdapter is the default adapter. It resolves keys on Objects, Lists,
// string keyed maps and struct fields, and observes Objects through setter
// interceptors and Lists through mutation hooks. Observation state lives in
// the Registry supplied at construction.
type ObjectAdapter struct {
	registry *Registry
}

// NewObjectAdapter constructs an adapter over registry. A nil registry gets
// a fresh one.
func NewObjectAdapter(registry *Registry) *ObjectAdapter {
	if registry == nil {
		registry = NewRegistry()
	}
	return &ObjectAdapter{registry: registry}
}

// Registry returns the observation registry backing the adapter.
func (a *ObjectAdapter) Registry() *Registry {
	return a.registry
}

// Get returns obj[key] or nil when the key is missing.
func (a *ObjectAdapter) Get(obj any, key string) any {
	switch typed := obj.(type) {
	case nil:
		return nil
	case *Object:
		return typed.Get(key)
	case *List:
		if key == "length" {
			return typed.Len()
		}
		if index, err := strconv.Atoi(key); err == nil {
			return typed.At(index)
		}
		return nil
	case map[string]any:
		return typed[key]
	}
	return reflectGet(obj, key)
}

// Set assigns obj[key]. Objects notify their observers synchronously;
// plain maps are written without notification.
func (a *ObjectAdapter) Set(obj any, key string, value any) {
	switch typed := obj.(type) {
	case *Object:
		typed.Set(key, value)
	case *List:
		if index, err := strconv.Atoi(key); err == nil {
			typed.SetAt(index, value)
		}
	case map[string]any:
		if typed != nil {
			typed[key] = value
		}
	default:
		reflectSet(obj, key, value)
	}
}

// Observe registers callback for (obj, key). Only Objects can be observed;
// anything else, including frozen Objects, degrades to a one-time read.
func (a *ObjectAdapter) Observe(obj any, key string, callback Subscriber) {
	target, ok := obj.(*Object)
	if !ok || target == nil || callback == nil || a.registry.Disposed() {
		return
	}
	if target.Frozen() {
		return
	}
	e := a.registry.reference(target)
	if _, exists := e.callbacks[key]; !exists {
		e.callbacks[key] = nil
		target.intercept(a.registry.id, key, func(old, next any) {
			a.changed(target, key, old, next)
		})
	}
	if !containsSubscriber(e.callbacks[key], callback) {
		e.callbacks[key] = append(e.callbacks[key], callback)
	}
	a.observeMutations(target.Get(key), target.ID(), key)
}

// Unobserve removes callback from (obj, key) and drops the registry entry
// once nothing references it.
func (a *ObjectAdapter) Unobserve(obj any, key string, callback Subscriber) {
	target, ok := obj.(*Object)
	if !ok || target == nil || callback == nil {
		return
	}
	e := a.registry.lookup(target)
	if e == nil {
		return
	}
	if callbacks, exists := e.callbacks[key]; exists {
		next, removed := removeSubscriber(callbacks, callback)
		if removed {
			if len(next) == 0 {
				delete(e.callbacks, key)
				target.releaseKey(a.registry.id, key)
				a.unobserveMutations(target.Get(key), target.ID(), key)
			} else {
				e.callbacks[key] = next
			}
		}
	}
	a.registry.cleanup(target)
}

// changed runs inside Object.Set for an intercepted key.
func (a *ObjectAdapter) changed(target *Object, key string, old, next any) {
	a.unobserveMutations(old, target.ID(), key)
	e := a.registry.lookup(target)
	if e == nil {
		return
	}
	a.notify(e, key)
	if len(e.callbacks[key]) > 0 {
		a.observeMutations(next, target.ID(), key)
	}
}

func (a *ObjectAdapter) notify(e *entry, key string) {
	callbacks := e.callbacks[key]
	if len(callbacks) == 0 {
		return
	}
	snapshot := make([]Subscriber, len(callbacks))
	copy(snapshot, callbacks)
	for _, callback := range snapshot {
		// a callback earlier in the batch may have unsubscribed this one
		if containsSubscriber(e.callbacks[key], callback) {
			callback.Sync()
		}
	}
}

func (a *ObjectAdapter) observeMutations(value any, ref, key string) {
	list, ok := value.(*List)
	if !ok || list == nil || a.registry.Disposed() {
		return
	}
	e := a.registry.reference(list)
	if e.pointers == nil {
		e.pointers = make(map[string][]string)
	}
	list.track(a.registry.id, func() {
		a.mutated(list)
	})
	for _, existing := range e.pointers[ref] {
		if existing == key {
			return
		}
	}
	e.pointers[ref] = append(e.pointers[ref], key)
}

func (a *ObjectAdapter) unobserveMutations(value any, ref, key string) {
	list, ok := value.(*List)
	if !ok || list == nil {
		return
	}
	e := a.registry.lookup(list)
	if e == nil {
		return
	}
	if keys, exists := e.pointers[ref]; exists {
		kept := keys[:0:0]
		for _, existing := range keys {
			if existing != key {
				kept = append(kept, existing)
			}
		}
		if len(kept) == 0 {
			delete(e.pointers, ref)
		} else {
			e.pointers[ref] = kept
		}
	}
	a.registry.cleanup(list)
}

// mutated notifies every observer path that reaches list.
func (a *ObjectAdapter) mutated(list *List) {
	e := a.registry.lookup(list)
	if e == nil {
		return
	}
	refs := make([]string, 0, len(e.pointers))
	for ref := range e.pointers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		keys := append([]string(nil), e.pointers[ref]...)
		owner := a.registry.entries[ref]
		if owner == nil {
			continue
		}
		for _, key := range keys {
			a.notify(owner, key)
		}
	}
}

func reflectGet(obj any, key string) any {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		field := rv.FieldByName(key)
		if !field.IsValid() || !field.CanInterface() {
			return nil
		}
		return field.Interface()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		value := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil
		}
		return value.Interface()
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return rv.Len()
		}
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= rv.Len() {
			return nil
		}
		return rv.Index(index).Interface()
	default:
		return nil
	}
}

func reflectSet(obj any, key string, value any) {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return
	}
	field := rv.FieldByName(key)
	if !field.IsValid() || !field.CanSet() {
		return
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return
	}
	incoming := reflect.ValueOf(value)
	if incoming.Type().AssignableTo(field.Type()) {
		field.Set(incoming)
		return
	}
	if incoming.Type().ConvertibleTo(field.Type()) {
		field.Set(incoming.Convert(field.Type()))
	}
}
