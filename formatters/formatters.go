// Package formatters holds the stock value formatters used in directive
// pipelines, e.g. rv-text="price | times 1.2 | prefix '$'".
package formatters

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tether "github.com/goliatone/go-tether"
	"github.com/goliatone/go-tether/observe"
)

// ErrNotNumeric indicates an arithmetic formatter received a value that is
// not a number and does not parse as one.
var ErrNotNumeric = errors.New("formatters: value is not numeric")

// DefaultDateLayout is used by date when no layout argument is given.
const DefaultDateLayout = time.RFC3339

// Register adds every stock formatter to reg.
func Register(reg *tether.FormatterRegistry) error {
	entries := []struct {
		name      string
		formatter tether.Formatter
	}{
		{"plus", tether.ReadOnly(arithmetic(func(a, b float64) float64 { return a + b }))},
		{"minus", tether.ReadOnly(arithmetic(func(a, b float64) float64 { return a - b }))},
		{"times", tether.ReadOnly(arithmetic(func(a, b float64) float64 { return a * b }))},
		{"divide", tether.ReadOnly(Divide)},
		{"not", tether.Formatter{Read: Not, Publish: Not}},
		{"eq", tether.ReadOnly(Eq)},
		{"upper", tether.ReadOnly(Upper)},
		{"lower", tether.ReadOnly(Lower)},
		{"default", tether.ReadOnly(DefaultValue)},
		{"length", tether.ReadOnly(Length)},
		{"prefix", tether.ReadOnly(Prefix)},
		{"suffix", tether.ReadOnly(Suffix)},
		{"date", tether.ReadOnly(Date)},
		{"number", tether.Formatter{Read: Number, Publish: Number}},
	}
	var errs []error
	for _, entry := range entries {
		if err := reg.Register(entry.name, entry.formatter); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Default returns a registry holding the stock formatters.
func Default() *tether.FormatterRegistry {
	reg := tether.NewFormatterRegistry()
	_ = Register(reg)
	return reg
}

func arithmetic(op func(a, b float64) float64) tether.FormatterFunc {
	return func(value any, args ...any) (any, error) {
		if len(args) == 0 {
			return value, nil
		}
		left, err := toNumber(value)
		if err != nil {
			return nil, err
		}
		right, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		return normalize(op(left, right)), nil
	}
}

// Divide divides the value by the first argument. Division by zero is an
// error.
func Divide(value any, args ...any) (any, error) {
	if len(args) == 0 {
		return value, nil
	}
	left, err := toNumber(value)
	if err != nil {
		return nil, err
	}
	right, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	if right == 0 {
		return nil, fmt.Errorf("formatters: divide by zero")
	}
	return normalize(left / right), nil
}

// Number parses the value as a number. It also serves as the publish side
// of numeric inputs.
func Number(value any, _ ...any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
		return nil, nil
	}
	n, err := toNumber(value)
	if err != nil {
		return nil, err
	}
	return normalize(n), nil
}

// Not negates the truthiness of the value.
func Not(value any, _ ...any) (any, error) {
	return !tether.Truthy(value), nil
}

// Eq reports whether the value equals the first argument. Numbers compare
// by value regardless of their Go type.
func Eq(value any, args ...any) (any, error) {
	if len(args) == 0 {
		return false, nil
	}
	if left, err := toNumber(value); err == nil {
		if right, err := toNumber(args[0]); err == nil {
			return left == right, nil
		}
	}
	return tether.Stringify(value) == tether.Stringify(args[0]), nil
}

// Upper upper-cases the text of the value.
func Upper(value any, _ ...any) (any, error) {
	return strings.ToUpper(tether.Stringify(value)), nil
}

// Lower lower-cases the text of the value.
func Lower(value any, _ ...any) (any, error) {
	return strings.ToLower(tether.Stringify(value)), nil
}

// DefaultValue returns the first argument when the value is nil or an empty
// string.
func DefaultValue(value any, args ...any) (any, error) {
	if len(args) == 0 {
		return value, nil
	}
	if value == nil {
		return args[0], nil
	}
	if text, ok := value.(string); ok && text == "" {
		return args[0], nil
	}
	return value, nil
}

// Length returns the number of items of a list or object, or the number of
// characters of text.
func Length(value any, _ ...any) (any, error) {
	switch typed := value.(type) {
	case nil:
		return 0, nil
	case *observe.List:
		return typed.Len(), nil
	case *observe.Object:
		return typed.Len(), nil
	case []any:
		return len(typed), nil
	case map[string]any:
		return len(typed), nil
	case string:
		return len([]rune(typed)), nil
	default:
		return len([]rune(tether.Stringify(value))), nil
	}
}

// Prefix prepends the first argument to the text of the value.
func Prefix(value any, args ...any) (any, error) {
	if len(args) == 0 {
		return tether.Stringify(value), nil
	}
	return tether.Stringify(args[0]) + tether.Stringify(value), nil
}

// Suffix appends the first argument to the text of the value.
func Suffix(value any, args ...any) (any, error) {
	if len(args) == 0 {
		return tether.Stringify(value), nil
	}
	return tether.Stringify(value) + tether.Stringify(args[0]), nil
}

// Date formats a time.Time, an RFC 3339 string or unix seconds with the Go
// layout given as first argument.
func Date(value any, args ...any) (any, error) {
	layout := DefaultDateLayout
	if len(args) > 0 {
		if text := tether.Stringify(args[0]); text != "" {
			layout = text
		}
	}
	var t time.Time
	switch typed := value.(type) {
	case nil:
		return "", nil
	case time.Time:
		t = typed
	case *time.Time:
		if typed == nil {
			return "", nil
		}
		t = *typed
	case string:
		parsed, err := time.Parse(time.RFC3339, typed)
		if err != nil {
			return nil, fmt.Errorf("formatters: date: %w", err)
		}
		t = parsed
	default:
		seconds, err := toNumber(value)
		if err != nil {
			return nil, fmt.Errorf("formatters: date: %w", err)
		}
		t = time.Unix(int64(seconds), 0).UTC()
	}
	return t.Format(layout), nil
}

func toNumber(value any) (float64, error) {
	switch typed := value.(type) {
	case int:
		return float64(typed), nil
	case int8:
		return float64(typed), nil
	case int16:
		return float64(typed), nil
	case int32:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case uint:
		return float64(typed), nil
	case uint8:
		return float64(typed), nil
	case uint16:
		return float64(typed), nil
	case uint32:
		return float64(typed), nil
	case uint64:
		return float64(typed), nil
	case float32:
		return float64(typed), nil
	case float64:
		return typed, nil
	case bool:
		if typed {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, typed)
		}
		return n, nil
	case fmt.Stringer:
		return toNumber(typed.String())
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, value)
	}
}

// normalize returns whole results as int.
func normalize(n float64) any {
	if n >= -1<<53 && n <= 1<<53 && n == float64(int(n)) {
		return int(n)
	}
	return n
}
