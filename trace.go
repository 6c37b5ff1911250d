package tether

import (
	"encoding/json"

	"github.com/goliatone/go-tether/observe"
)

// Trace captures how a keypath resolves through the scope chain of a view.
type Trace struct {
	Keypath string       `json:"keypath"`
	Value   any          `json:"value,omitempty"`
	Owner   int          `json:"owner"`
	Scopes  []Provenance `json:"scopes"`
}

// Provenance details what one scope of the chain holds for the first
// keypath segment.
type Provenance struct {
	Depth   int    `json:"depth"`
	ScopeID string `json:"scope_id"`
	Key     string `json:"key"`
	Value   any    `json:"value,omitempty"`
	Found   bool   `json:"found"`
}

// Trace reports, innermost scope first, which scope owns the first segment
// of keypath and the value the keypath currently resolves to. Owner is -1
// when no scope owns it.
func (v *View) Trace(keypath string) Trace {
	tokens := v.cfg.ifaces.Tokenize(keypath)
	key := tokens[0].Path

	trace := Trace{Keypath: keypath, Owner: -1}
	for depth, scope := 0, v.models; scope != nil; depth, scope = depth+1, scope.Parent() {
		provenance := Provenance{
			Depth:   depth,
			ScopeID: scope.ID(),
			Key:     key,
			Found:   scope.Has(key),
		}
		if provenance.Found {
			provenance.Value = observe.Plain(scope.Get(key))
			if trace.Owner == -1 {
				trace.Owner = depth
			}
		}
		trace.Scopes = append(trace.Scopes, provenance)
	}

	observer := observe.NewObserver(v.cfg.ifaces, v.models, keypath, nil)
	trace.Value = observe.Plain(observer.Value())
	observer.Unobserve()
	return trace
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
