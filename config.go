package tether

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is the file form of the view options.
type Config struct {
	Prefix          string
	OpenDelimiter   string
	CloseDelimiter  string
	RootInterface   rune
	Preload         bool
	StripAttributes bool
	// LogLevel, when set, routes runtime events to the global zerolog
	// logger at that level.
	LogLevel string
	// Expressions declares formatters backed by an expression engine, keyed
	// by formatter name.
	Expressions map[string]ExpressionConfig
}

// ExpressionConfig is one [formatters.<name>] table. Engine is expr, cel or
// js and defaults to expr. Read and Publish are the two pipeline sides; at
// least one must be set.
type ExpressionConfig struct {
	Engine  string `toml:"engine"`
	Read    string `toml:"read"`
	Publish string `toml:"publish"`
}

type fileConfig struct {
	Prefix          string `toml:"prefix"`
	OpenDelimiter   string `toml:"open_delimiter"`
	CloseDelimiter  string `toml:"close_delimiter"`
	RootInterface   string `toml:"root_interface"`
	Preload         bool   `toml:"preload"`
	StripAttributes bool   `toml:"strip_attributes"`
	LogLevel        string `toml:"log_level"`

	Formatters map[string]ExpressionConfig `toml:"formatters"`
}

// DefaultConfig returns the configuration matching a view built without
// options.
func DefaultConfig() Config {
	return Config{
		Prefix:          DefaultPrefix,
		OpenDelimiter:   DefaultOpenDelim,
		CloseDelimiter:  DefaultCloseDelim,
		RootInterface:   '.',
		Preload:         true,
		StripAttributes: true,
	}
}

// LoadConfig reads a TOML file over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("tether: load config: %w", err)
	}
	return buildConfig(meta, raw)
}

// ParseConfig decodes TOML text over the defaults and validates the result.
func ParseConfig(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("tether: parse config: %w", err)
	}
	return buildConfig(meta, raw)
}

func buildConfig(meta toml.MetaData, raw fileConfig) (Config, error) {
	cfg := DefaultConfig()
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("tether: config: unknown key %q", undecoded[0].String())
	}
	if meta.IsDefined("prefix") {
		cfg.Prefix = strings.TrimSpace(raw.Prefix)
	}
	if meta.IsDefined("open_delimiter") {
		cfg.OpenDelimiter = raw.OpenDelimiter
	}
	if meta.IsDefined("close_delimiter") {
		cfg.CloseDelimiter = raw.CloseDelimiter
	}
	if meta.IsDefined("root_interface") {
		marker, size := utf8.DecodeRuneInString(raw.RootInterface)
		if size == 0 || size != len(raw.RootInterface) {
			return Config{}, fmt.Errorf("tether: config: root_interface must be a single character, got %q", raw.RootInterface)
		}
		cfg.RootInterface = marker
	}
	if meta.IsDefined("preload") {
		cfg.Preload = raw.Preload
	}
	if meta.IsDefined("strip_attributes") {
		cfg.StripAttributes = raw.StripAttributes
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if len(raw.Formatters) > 0 {
		cfg.Expressions = raw.Formatters
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings a view cannot be built with.
func (c Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("tether: config: prefix must not be empty")
	}
	if strings.ContainsAny(c.Prefix, " \t\n=") {
		return fmt.Errorf("tether: config: prefix %q is not a valid attribute name", c.Prefix)
	}
	if c.OpenDelimiter == "" || c.CloseDelimiter == "" {
		return fmt.Errorf("tether: config: delimiters must not be empty")
	}
	if c.OpenDelimiter == c.CloseDelimiter {
		return fmt.Errorf("tether: config: delimiters must differ, got %q twice", c.OpenDelimiter)
	}
	if c.RootInterface == 0 || !utf8.ValidRune(c.RootInterface) {
		return fmt.Errorf("tether: config: root interface is not set")
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("tether: config: log level: %w", err)
		}
	}
	if _, err := c.ExpressionFormatters(); err != nil {
		return err
	}
	return nil
}

// ExpressionFormatters compiles the declared expression formatters. Each
// engine keeps one program cache across formatters.
func (c Config) ExpressionFormatters() (map[string]Formatter, error) {
	if len(c.Expressions) == 0 {
		return nil, nil
	}
	exprCache, celCache, jsCache := NewMapCache(), NewMapCache(), NewMapCache()
	names := make([]string, 0, len(c.Expressions))
	for name := range c.Expressions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]Formatter, len(names))
	for _, name := range names {
		decl := c.Expressions[name]
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("tether: config: formatter name must not be empty")
		}
		var evaluator Evaluator
		switch engine := strings.ToLower(strings.TrimSpace(decl.Engine)); engine {
		case "", "expr":
			evaluator = NewExprEvaluator(ExprWithProgramCache(exprCache))
		case "cel":
			evaluator = NewCELEvaluator(CELWithProgramCache(celCache))
		case "js":
			evaluator = NewJSEvaluator(JSWithProgramCache(jsCache))
		default:
			return nil, fmt.Errorf("tether: config: formatter %q: unknown engine %q", name, decl.Engine)
		}
		formatter, err := ExpressionFormatter(evaluator, decl.Read, decl.Publish)
		if err != nil {
			return nil, fmt.Errorf("tether: config: formatter %q: %w", name, err)
		}
		out[name] = formatter
	}
	return out, nil
}

// Options converts the configuration into view options.
func (c Config) Options() []Option {
	opts := []Option{
		WithPrefix(c.Prefix),
		WithDelimiters(c.OpenDelimiter, c.CloseDelimiter),
		WithRootInterface(c.RootInterface),
		WithPreload(c.Preload),
		WithStripAttributes(c.StripAttributes),
	}
	if c.LogLevel != "" {
		if level, err := zerolog.ParseLevel(c.LogLevel); err == nil {
			opts = append(opts, WithLogger(NewZerologLogger(log.Logger.Level(level))))
		}
	}
	// compile errors were reported by Validate
	if expressions, err := c.ExpressionFormatters(); err == nil {
		for name, formatter := range expressions {
			opts = append(opts, WithFormatter(name, formatter))
		}
	}
	return opts
}
