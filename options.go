package tether

import (
	"fmt"
	"unicode/utf8"

	"github.com/goliatone/go-tether/internal/metrics"
	"github.com/goliatone/go-tether/observe"
	"github.com/goliatone/go-tether/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults applied when no option overrides them.
const (
	DefaultPrefix     = "rv"
	DefaultOpenDelim  = "{"
	DefaultCloseDelim = "}"
)

// Option configures a View.
type Option func(*config)

type config struct {
	prefix          string
	openDelim       string
	closeDelim      string
	rootInterface   rune
	adapters        map[rune]observe.Adapter
	registry        *observe.Registry
	preload         bool
	stripAttributes bool
	binders         *BinderRegistry
	formatters      *FormatterRegistry
	components      map[string]*Component
	logger          Logger
	activityHooks   activity.Hooks
	metrics         *metrics.Recorder

	ifaces  *observe.Interfaces
	emitter *activity.Emitter
}

func defaultConfig() *config {
	return &config{
		prefix:          DefaultPrefix,
		openDelim:       DefaultOpenDelim,
		closeDelim:      DefaultCloseDelim,
		rootInterface:   observe.DefaultRoot,
		preload:         true,
		stripAttributes: true,
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve fills in defaults that depend on other settings and builds the
// adapter set.
func (cfg *config) resolve() error {
	if cfg.prefix == "" {
		return fmt.Errorf("tether: directive prefix must not be empty")
	}
	if cfg.openDelim == "" || cfg.closeDelim == "" {
		return fmt.Errorf("tether: template delimiters must not be empty")
	}
	if cfg.registry == nil {
		cfg.registry = observe.NewRegistry()
	}
	adapters := map[rune]observe.Adapter{
		observe.DefaultRoot: observe.NewObjectAdapter(cfg.registry),
	}
	for marker, adapter := range cfg.adapters {
		adapters[marker] = adapter
	}
	ifaces, err := observe.NewInterfaces(cfg.rootInterface, adapters)
	if err != nil {
		return fmt.Errorf("tether: interfaces: %w", err)
	}
	cfg.ifaces = ifaces
	if cfg.binders == nil {
		cfg.binders = NewBinderRegistry()
	}
	if cfg.formatters == nil {
		cfg.formatters = NewFormatterRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = defaultLogger()
	}
	cfg.emitter = activity.NewEmitter(cfg.activityHooks, activity.Config{Enabled: true})
	return nil
}

// WithPrefix sets the directive attribute prefix, e.g. "rv" for rv-text.
func WithPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.prefix = prefix
	}
}

// WithDelimiters sets the text interpolation delimiters.
func WithDelimiters(open, close string) Option {
	return func(cfg *config) {
		cfg.openDelim = open
		cfg.closeDelim = close
	}
}

// WithRootInterface sets the interface marker used for unmarked keypath
// segments.
func WithRootInterface(marker rune) Option {
	return func(cfg *config) {
		cfg.rootInterface = marker
	}
}

// WithInterfaces adds adapters keyed by interface marker. An adapter for
// '.' replaces the default object adapter.
func WithInterfaces(adapters map[rune]observe.Adapter) Option {
	return func(cfg *config) {
		if cfg.adapters == nil {
			cfg.adapters = make(map[rune]observe.Adapter, len(adapters))
		}
		for marker, adapter := range adapters {
			if adapter != nil && utf8.ValidRune(marker) {
				cfg.adapters[marker] = adapter
			}
		}
	}
}

// WithRegistry makes the default object adapter record observations in
// registry. Disposing it detaches every binding of the view at once.
func WithRegistry(registry *observe.Registry) Option {
	return func(cfg *config) {
		cfg.registry = registry
	}
}

// WithPreload toggles the initial sync performed on bind.
func WithPreload(enabled bool) Option {
	return func(cfg *config) {
		cfg.preload = enabled
	}
}

// WithStripAttributes toggles removal of non-block directive attributes
// once their bindings are built.
func WithStripAttributes(enabled bool) Option {
	return func(cfg *config) {
		cfg.stripAttributes = enabled
	}
}

// WithActivityHooks attaches lifecycle hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithMetrics records binding counters on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.metrics = metrics.NewRecorder(reg)
	}
}
