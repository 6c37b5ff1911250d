package hydrate

import (
	"fmt"
	"os"

	"github.com/goliatone/go-tether/observe"
)

// MergeLayers composes decoded payloads ordered from strongest to weakest.
// Nested maps merge key by key; any other value, lists included, is taken
// whole from the strongest layer that sets it. The inputs are not modified.
func MergeLayers(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		merged = mergeMap(layers[i], merged)
	}
	return merged
}

func mergeMap(strong, weak map[string]any) map[string]any {
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = cloneValue(value)
	}
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := result[key].(map[string]any)
		if strongIsMap && weakIsMap {
			result[key] = mergeMap(strongMap, weakMap)
			continue
		}
		result[key] = cloneValue(value)
	}
	return result
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for key, item := range typed {
			clone[key] = cloneValue(item)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, item := range typed {
			clone[i] = cloneValue(item)
		}
		return clone
	default:
		return value
	}
}

// DecodeFiles reads every path, later paths overriding earlier ones, and
// converts the merged payload into an observable model. Hooks run once on
// the merged payload with the last path as source.
func (d *Decoder) DecodeFiles(paths ...string) (*observe.Object, error) {
	if len(paths) == 0 {
		return d.DecodeMap(Context{}, nil)
	}
	layers := make([]map[string]any, len(paths))
	for i, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("hydrate: read %q: %w", path, err)
		}
		payload, err := d.parse(Context{Source: path, Format: FormatFromPath(path)}, raw)
		if err != nil {
			return nil, err
		}
		layers[len(paths)-1-i] = payload
	}
	last := paths[len(paths)-1]
	return d.DecodeMap(Context{Source: last, Format: FormatFromPath(last)}, MergeLayers(layers...))
}
