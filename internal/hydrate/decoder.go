package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-tether/observe"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a model payload.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the payload format from a file extension. Unknown
// extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Context carries identifiers tied to a model payload.
type Context struct {
	Source string
	Format Format
}

// PreHook lets callers mutate or normalise the payload before conversion.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the observable model after
// conversion.
type PostHook func(Context, *observe.Object) error

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts JSON or YAML payloads into observable models.
type Decoder struct {
	preHooks  []PreHook
	postHooks []PostHook
	useNumber bool
	freeze    bool
}

// WithPreHook applies hook prior to conversion.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after conversion completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber keeps integral JSON numbers as int instead of float64.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// WithFrozen freezes the decoded root so it is read once and never observed.
func WithFrozen() DecoderOption {
	return func(d *Decoder) {
		d.freeze = true
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses raw according to ctx.Format and converts it into an
// observable model, applying configured hooks.
func (d *Decoder) Decode(ctx Context, raw []byte) (*observe.Object, error) {
	if ctx.Format == "" {
		ctx.Format = FormatFromPath(ctx.Source)
	}

	payload, err := d.parse(ctx, raw)
	if err != nil {
		return nil, err
	}
	return d.DecodeMap(ctx, payload)
}

// DecodeMap converts an already parsed payload into an observable model.
func (d *Decoder) DecodeMap(ctx Context, payload map[string]any) (*observe.Object, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	current := payload
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Source, err)
		}
		if next != nil {
			current = next
		}
	}

	model := observe.FromMap(current)

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, model); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Source, err)
		}
	}

	if d.freeze {
		model.Freeze()
	}
	return model, nil
}

func (d *Decoder) parse(ctx Context, raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var payload map[string]any
	switch ctx.Format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("hydrate: decode yaml %q: %w", ctx.Source, err)
		}
		return normalizeYAML(payload).(map[string]any), nil
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(raw))
		if d.useNumber {
			decoder.UseNumber()
		}
		if err := decoder.Decode(&payload); err != nil {
			return nil, fmt.Errorf("hydrate: decode json %q: %w", ctx.Source, err)
		}
		if d.useNumber {
			return normalizeNumbers(payload).(map[string]any), nil
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("hydrate: unsupported format %q", ctx.Format)
	}
}

func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return int(n)
		}
		f, _ := typed.Float64()
		return f
	case map[string]any:
		for key, item := range typed {
			typed[key] = normalizeNumbers(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = normalizeNumbers(item)
		}
		return typed
	default:
		return value
	}
}

// normalizeYAML converts the map[any]any nodes yaml can produce for
// non-string keys into string keyed maps.
func normalizeYAML(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return map[string]any{}
		}
		for key, item := range typed {
			typed[key] = normalizeYAML(item)
		}
		return typed
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range typed {
			typed[i] = normalizeYAML(item)
		}
		return typed
	default:
		return value
	}
}
