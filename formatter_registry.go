package tether

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FormatterFunc transforms a value in a binding pipeline. args are the
// resolved formatter arguments.
type FormatterFunc func(value any, args ...any) (any, error)

// Formatter pairs the forward transform with an optional reverse transform
// used when a two-way binder publishes.
type Formatter struct {
	Read    FormatterFunc
	Publish FormatterFunc
}

// ReadOnly wraps fn as a formatter without a publish side.
func ReadOnly(fn FormatterFunc) Formatter {
	return Formatter{Read: fn}
}

// FormatterRegistry stores formatters keyed by case-insensitive name.
type FormatterRegistry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewFormatterRegistry constructs an empty registry.
func NewFormatterRegistry() *FormatterRegistry {
	return &FormatterRegistry{
		formatters: make(map[string]Formatter),
	}
}

// Register stores formatter under name guarding against duplicates.
func (r *FormatterRegistry) Register(name string, formatter Formatter) error {
	if formatter.Read == nil && formatter.Publish == nil {
		return fmt.Errorf("tether: formatter %q has neither read nor publish", name)
	}
	if name == "" {
		return fmt.Errorf("tether: formatter name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.formatters == nil {
		r.formatters = make(map[string]Formatter)
	}
	key := strings.ToLower(name)
	if _, exists := r.formatters[key]; exists {
		return fmt.Errorf("tether: formatter %q already registered", name)
	}
	r.formatters[key] = formatter
	return nil
}

// Replace stores formatter under name, overriding any previous entry.
func (r *FormatterRegistry) Replace(name string, formatter Formatter) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.formatters == nil {
		r.formatters = make(map[string]Formatter)
	}
	r.formatters[strings.ToLower(name)] = formatter
}

// Lookup returns the formatter registered for name.
func (r *FormatterRegistry) Lookup(name string) (Formatter, bool) {
	if r == nil {
		return Formatter{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	formatter, ok := r.formatters[strings.ToLower(name)]
	return formatter, ok
}

// Has reports whether name is registered.
func (r *FormatterRegistry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Clone returns a shallow copy of the registry.
func (r *FormatterRegistry) Clone() *FormatterRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FormatterRegistry{
		formatters: make(map[string]Formatter, len(r.formatters)),
	}
	for name, formatter := range r.formatters {
		clone.formatters[name] = formatter
	}
	return clone
}

// Call runs the read side of the formatter registered for name. Formatters
// without a read side pass value through.
func (r *FormatterRegistry) Call(name string, value any, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("tether: formatter registry is nil")
	}
	formatter, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormatter, name)
	}
	if formatter.Read == nil {
		return value, nil
	}
	return formatter.Read(value, args...)
}

// Names returns registered formatter names sorted alphabetically.
func (r *FormatterRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFormatters merges every formatter of registry into the view
// configuration, overriding formatters registered earlier under the same
// name.
func WithFormatters(registry *FormatterRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		if cfg.formatters == nil {
			cfg.formatters = NewFormatterRegistry()
		}
		for _, name := range registry.Names() {
			formatter, _ := registry.Lookup(name)
			cfg.formatters.Replace(name, formatter)
		}
	}
}

// WithFormatter registers a single formatter on the view configuration.
func WithFormatter(name string, formatter Formatter) Option {
	return func(cfg *config) {
		if cfg.formatters == nil {
			cfg.formatters = NewFormatterRegistry()
		}
		cfg.formatters.Replace(name, formatter)
	}
}
