package observe

import (
	"reflect"
	"sort"
)

// Same reports whether a and b are the same value for change detection.
// Comparable values compare with ==; containers compare by identity, so a
// replaced map or slice always counts as a change.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}

// IsObject reports whether v can be descended into by an adapter.
func IsObject(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case *Object:
		return typed != nil
	case *List:
		return typed != nil
	case map[string]any:
		return typed != nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		return !rv.IsNil() && rv.Elem().Kind() == reflect.Struct
	case reflect.Struct:
		return true
	case reflect.Map:
		return !rv.IsNil() && rv.Type().Key().Kind() == reflect.String
	default:
		return false
	}
}

// From converts decoded data into an observable graph: every
// map[string]any becomes an *Object and every []any becomes a *List,
// recursively. Other values are returned unchanged.
func From(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return FromMap(typed)
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = From(item)
		}
		return NewList(items...)
	default:
		return v
	}
}

// FromMap deep converts values into an *Object.
func FromMap(values map[string]any) *Object {
	converted := make(map[string]any, len(values))
	for key, value := range values {
		converted[key] = From(value)
	}
	return NewObject(converted)
}

// Plain converts an observable graph back into maps and slices.
func Plain(v any) any {
	switch typed := v.(type) {
	case *Object:
		if typed == nil {
			return nil
		}
		out := make(map[string]any, typed.Len())
		for _, key := range typed.Keys() {
			out[key] = Plain(typed.Get(key))
		}
		return out
	case *List:
		if typed == nil {
			return nil
		}
		out := make([]any, typed.Len())
		for i, item := range typed.Items() {
			out[i] = Plain(item)
		}
		return out
	default:
		return v
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
