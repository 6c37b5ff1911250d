package tether

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FallbackBinder is the registry name of the binder used when no other
// binder matches a directive.
const FallbackBinder = "*"

// Resolution is the outcome of matching a directive name against the
// registry.
type Resolution struct {
	// Name is the registered name that matched: the directive itself, a
	// wildcard pattern, or FallbackBinder.
	Name   string
	Binder *Binder
	// Args holds the wildcard captures in pattern order.
	Args []any
}

type binderPattern struct {
	name    string
	binder  *Binder
	order   int
	prefix  int
	literal int
	stars   int
	re      *regexp.Regexp
}

// BinderRegistry resolves directive names to binders. Names without '*'
// match exactly; names with '*' are wildcard patterns; "*" alone is the
// fallback.
type BinderRegistry struct {
	mu       sync.RWMutex
	exact    map[string]*Binder
	patterns []binderPattern
	fallback *Binder
	seq      int
}

// NewBinderRegistry constructs an empty registry.
func NewBinderRegistry() *BinderRegistry {
	return &BinderRegistry{
		exact: make(map[string]*Binder),
	}
}

// Register stores binder under name guarding against duplicates.
func (r *BinderRegistry) Register(name string, binder *Binder) error {
	if binder == nil {
		return fmt.Errorf("tether: binder %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("tether: binder name must not be empty")
	}
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.has(key) {
		return fmt.Errorf("tether: binder %q already registered", name)
	}
	r.store(key, binder)
	return nil
}

// Replace stores binder under name, overriding any previous entry. The
// pattern keeps its original registration order.
func (r *BinderRegistry) Replace(name string, binder *Binder) {
	if binder == nil || name == "" {
		return
	}
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.patterns {
		if r.patterns[i].name == key {
			r.patterns[i].binder = binder
			return
		}
	}
	r.store(key, binder)
}

// Lookup returns the binder registered under exactly name, pattern names
// included.
func (r *BinderRegistry) Lookup(name string) (*Binder, bool) {
	if r == nil {
		return nil, false
	}
	key := strings.ToLower(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key == FallbackBinder {
		return r.fallback, r.fallback != nil
	}
	if binder, ok := r.exact[key]; ok {
		return binder, true
	}
	for _, pattern := range r.patterns {
		if pattern.name == key {
			return pattern.binder, true
		}
	}
	return nil, false
}

// Resolve matches a directive name. Exact names win; then the wildcard
// pattern with the longest literal prefix before its first '*'; then the
// pattern with the most literal characters; then the earliest registered.
// The fallback binder is used last.
func (r *BinderRegistry) Resolve(name string) (Resolution, bool) {
	if r == nil {
		return Resolution{}, false
	}
	key := strings.ToLower(name)
	r.mu.RLock()
	defer r.mu.RUnlock()

	if binder, ok := r.exact[key]; ok {
		return Resolution{Name: key, Binder: binder}, true
	}

	var best *binderPattern
	var captures []string
	for i := range r.patterns {
		pattern := &r.patterns[i]
		match := pattern.re.FindStringSubmatch(key)
		if match == nil {
			continue
		}
		if best == nil || pattern.outranks(best) {
			best = pattern
			captures = match[1:]
		}
	}
	if best != nil {
		return Resolution{Name: best.name, Binder: best.binder, Args: captureArgs(captures)}, true
	}

	if r.fallback != nil {
		return Resolution{Name: FallbackBinder, Binder: r.fallback}, true
	}
	return Resolution{}, false
}

// Clone returns a shallow copy of the registry.
func (r *BinderRegistry) Clone() *BinderRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &BinderRegistry{
		exact:    make(map[string]*Binder, len(r.exact)),
		patterns: append([]binderPattern(nil), r.patterns...),
		fallback: r.fallback,
		seq:      r.seq,
	}
	for name, binder := range r.exact {
		clone.exact[name] = binder
	}
	return clone
}

// Names returns registered binder names sorted alphabetically.
func (r *BinderRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.exact)+len(r.patterns)+1)
	for name := range r.exact {
		names = append(names, name)
	}
	for _, pattern := range r.patterns {
		names = append(names, pattern.name)
	}
	if r.fallback != nil {
		names = append(names, FallbackBinder)
	}
	sort.Strings(names)
	return names
}

func (r *BinderRegistry) has(key string) bool {
	if key == FallbackBinder {
		return r.fallback != nil
	}
	if _, ok := r.exact[key]; ok {
		return true
	}
	for _, pattern := range r.patterns {
		if pattern.name == key {
			return true
		}
	}
	return false
}

func (r *BinderRegistry) store(key string, binder *Binder) {
	if r.exact == nil {
		r.exact = make(map[string]*Binder)
	}
	switch {
	case key == FallbackBinder:
		r.fallback = binder
	case strings.Contains(key, "*"):
		r.patterns = append(r.patterns, compilePattern(key, binder, r.seq))
		r.seq++
	default:
		r.exact[key] = binder
	}
}

func compilePattern(name string, binder *Binder, order int) binderPattern {
	parts := strings.Split(name, "*")
	quoted := make([]string, len(parts))
	literal := 0
	for i, part := range parts {
		quoted[i] = regexp.QuoteMeta(part)
		literal += len(part)
	}
	return binderPattern{
		name:    name,
		binder:  binder,
		order:   order,
		prefix:  len(parts[0]),
		literal: literal,
		stars:   len(parts) - 1,
		re:      regexp.MustCompile("^" + strings.Join(quoted, "(.+?)") + "$"),
	}
}

func (p *binderPattern) outranks(other *binderPattern) bool {
	if p.prefix != other.prefix {
		return p.prefix > other.prefix
	}
	if p.literal != other.literal {
		return p.literal > other.literal
	}
	return p.order < other.order
}

// captureArgs keeps a single capture as text. With several captures each
// numeric capture becomes a number.
func captureArgs(captures []string) []any {
	if len(captures) == 0 {
		return nil
	}
	args := make([]any, len(captures))
	for i, capture := range captures {
		args[i] = capture
		if len(captures) > 1 {
			if number, ok := parseNumber(capture); ok {
				args[i] = number
			}
		}
	}
	return args
}

// WithBinders merges every binder of registry into the view configuration.
// Entries override binders registered earlier under the same name.
func WithBinders(registry *BinderRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		if cfg.binders == nil {
			cfg.binders = NewBinderRegistry()
		}
		registry.mu.RLock()
		defer registry.mu.RUnlock()
		for _, pattern := range registry.patterns {
			cfg.binders.Replace(pattern.name, pattern.binder)
		}
		names := make([]string, 0, len(registry.exact))
		for name := range registry.exact {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cfg.binders.Replace(name, registry.exact[name])
		}
		if registry.fallback != nil {
			cfg.binders.Replace(FallbackBinder, registry.fallback)
		}
	}
}

// WithBinder registers a single binder on the view configuration.
func WithBinder(name string, binder *Binder) Option {
	return func(cfg *config) {
		if cfg.binders == nil {
			cfg.binders = NewBinderRegistry()
		}
		cfg.binders.Replace(name, binder)
	}
}

func parseNumber(text string) (any, bool) {
	if n, err := strconv.Atoi(text); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}
