package observe

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultRoot is the interface marker of the default object adapter.
const DefaultRoot = '.'

// ErrRootAdapter indicates an Interfaces set without an adapter for its root
// marker.
var ErrRootAdapter = errors.New("observe: root interface has no adapter")

// Token is one resolution step of a keypath: the interface governing the
// step and the property path within it.
type Token struct {
	Interface rune
	Path      string
}

func (t Token) String() string {
	return string(t.Interface) + t.Path
}

// Tokenize splits keypath on the known interface markers. A keypath starting
// with a marker uses that marker for its first token, otherwise root.
func Tokenize(keypath string, markers string, root rune) []Token {
	current := Token{Interface: root}
	runes := []rune(keypath)
	if len(runes) > 0 && strings.ContainsRune(markers, runes[0]) {
		current.Interface = runes[0]
		runes = runes[1:]
	}
	var tokens []Token
	var path strings.Builder
	for _, r := range runes {
		if strings.ContainsRune(markers, r) {
			current.Path = path.String()
			tokens = append(tokens, current)
			current = Token{Interface: r}
			path.Reset()
			continue
		}
		path.WriteRune(r)
	}
	current.Path = path.String()
	return append(tokens, current)
}

// Interfaces is the adapter set of a binding context, keyed by single rune
// interface markers.
type Interfaces struct {
	root     rune
	adapters map[rune]Adapter
	markers  string
}

// NewInterfaces validates and constructs an adapter set.
func NewInterfaces(root rune, adapters map[rune]Adapter) (*Interfaces, error) {
	if adapters[root] == nil {
		return nil, fmt.Errorf("%w: %q", ErrRootAdapter, root)
	}
	copied := make(map[rune]Adapter, len(adapters))
	markers := make([]rune, 0, len(adapters))
	for marker, adapter := range adapters {
		if adapter == nil {
			continue
		}
		copied[marker] = adapter
		markers = append(markers, marker)
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i] < markers[j] })
	return &Interfaces{root: root, adapters: copied, markers: string(markers)}, nil
}

// DefaultInterfaces returns the '.' object adapter over registry.
func DefaultInterfaces(registry *Registry) *Interfaces {
	ifaces, _ := NewInterfaces(DefaultRoot, map[rune]Adapter{
		DefaultRoot: NewObjectAdapter(registry),
	})
	return ifaces
}

// Root returns the default marker.
func (i *Interfaces) Root() rune {
	return i.root
}

// Markers returns every known marker.
func (i *Interfaces) Markers() string {
	return i.markers
}

// Adapter returns the adapter for marker, falling back to the root adapter.
func (i *Interfaces) Adapter(marker rune) Adapter {
	if adapter := i.adapters[marker]; adapter != nil {
		return adapter
	}
	return i.adapters[i.root]
}

// WithRoot returns a copy using a different default marker.
func (i *Interfaces) WithRoot(root rune) (*Interfaces, error) {
	return NewInterfaces(root, i.adapters)
}

// Registry returns the registry of the root adapter when it is an
// ObjectAdapter.
func (i *Interfaces) Registry() *Registry {
	if adapter, ok := i.adapters[i.root].(*ObjectAdapter); ok {
		return adapter.Registry()
	}
	return nil
}

// Tokenize splits keypath against the known markers.
func (i *Interfaces) Tokenize(keypath string) []Token {
	return Tokenize(keypath, i.markers, i.root)
}
