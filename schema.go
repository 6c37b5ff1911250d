package tether

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-tether/observe"
)

// FieldDescriptor describes a keypath of a model graph and the inferred
// type of its value.
type FieldDescriptor struct {
	Keypath string
	Type    string
}

// DescribeModel lists the leaf keypaths of value, sorted, using '.' as the
// separator. Lists are reported as a single entry typed by their first item.
func DescribeModel(value any) []FieldDescriptor {
	descriptors := deriveFieldDescriptors(observe.Plain(value), "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return descriptors
}

// Unresolved returns the bindings whose keypath has no owner in the view
// models. Literal bindings are never reported.
func (v *View) Unresolved() []*Binding {
	return v.Select(func(b *Binding) bool {
		if b.directive.Target.Literal || b.directive.Keypath == "" {
			return false
		}
		return v.Trace(b.directive.Keypath).Owner == -1
	})
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Keypath: prefix, Type: "nil"}}
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{
				Keypath: prefix,
				Type:    "object",
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinKeypath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(observe.Plain(typed[0]))
		}
		return []FieldDescriptor{{
			Keypath: prefix,
			Type:    "list<" + elementType + ">",
		}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{
			Keypath: prefix,
			Type:    typeName(typed),
		}}
	}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "nil"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func joinKeypath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
