package observe

import "github.com/google/uuid"

// Observer keeps a live link between a root object and a keypath. The
// intermediate links subscribe the observer itself so a replaced link
// triggers re-resolution; the terminal (target, key) pair subscribes the
// callback directly.
type Observer struct {
	id         string
	ifaces     *Interfaces
	keypath    string
	callback   Subscriber
	obj        any
	target     any
	key        Token
	tokens     []Token
	objectPath []any
}

// NewObserver resolves keypath against obj and starts observing it.
func NewObserver(ifaces *Interfaces, obj any, keypath string, callback Subscriber) *Observer {
	if ifaces == nil {
		ifaces = DefaultInterfaces(nil)
	}
	o := &Observer{
		id:       uuid.NewString(),
		ifaces:   ifaces,
		keypath:  keypath,
		callback: callback,
	}
	tokens := ifaces.Tokenize(keypath)
	o.key = tokens[len(tokens)-1]
	o.tokens = tokens[:len(tokens)-1]
	o.obj = o.rootObject(obj)
	o.target = o.realize()
	if IsObject(o.target) {
		o.subscribe(o.key, o.target, o.callback)
	}
	return o
}

// ID returns the observer identity token.
func (o *Observer) ID() string { return o.id }

// Keypath returns the observed keypath.
func (o *Observer) Keypath() string { return o.keypath }

// Key returns the terminal token.
func (o *Observer) Key() Token { return o.key }

// Tokens returns the intermediate tokens.
func (o *Observer) Tokens() []Token {
	out := make([]Token, len(o.tokens))
	copy(out, o.tokens)
	return out
}

// Root returns the object resolution starts from.
func (o *Observer) Root() any { return o.obj }

// Target returns the object owning the terminal key, or nil when the path
// is unreachable.
func (o *Observer) Target() any {
	if !IsObject(o.target) {
		return nil
	}
	return o.target
}

// Depth returns how many intermediate links are currently resolved.
func (o *Observer) Depth() int { return len(o.objectPath) }

// rootObject walks parent scopes until one owns the first segment.
func (o *Observer) rootObject(obj any) any {
	scope, ok := obj.(*Object)
	if !ok || scope == nil || scope.Parent() == nil {
		return obj
	}
	prop := o.key.Path
	if len(o.tokens) > 0 {
		prop = o.tokens[0].Path
	}
	current := scope
	for current.Parent() != nil && !current.Has(prop) {
		current = current.Parent()
	}
	return current
}

// realize walks the tokens, re-subscribing at every link whose object
// changed identity, and returns the object the terminal key resolves on.
func (o *Observer) realize() any {
	current := o.obj
	unreached := -1
	for index, token := range o.tokens {
		if IsObject(current) {
			if index < len(o.objectPath) {
				if prev := o.objectPath[index]; !Same(prev, current) {
					o.unsubscribe(token, prev, o)
					o.subscribe(token, current, o)
					o.objectPath[index] = current
				}
			} else {
				o.subscribe(token, current, o)
				o.objectPath = append(o.objectPath, current)
			}
			current = o.get(token, current)
			continue
		}
		if unreached == -1 {
			unreached = index
		}
		if index < len(o.objectPath) {
			if prev := o.objectPath[index]; prev != nil {
				o.unsubscribe(token, prev, o)
			}
		}
	}
	if unreached != -1 && unreached < len(o.objectPath) {
		o.objectPath = o.objectPath[:unreached]
	}
	return current
}

// Sync re-resolves the path after an intermediate link changed.
func (o *Observer) Sync() {
	next := o.realize()
	if !Same(next, o.target) {
		if IsObject(o.target) {
			o.unsubscribe(o.key, o.target, o.callback)
		}
		if IsObject(next) {
			o.subscribe(o.key, next, o.callback)
		}
		oldValue := o.Value()
		o.target = next
		_, isList := o.Value().(*List)
		if !Same(o.Value(), oldValue) || isList {
			o.notify()
		}
		return
	}
	if _, isList := next.(*List); isList {
		o.notify()
	}
}

// Value returns the current leaf value or nil when unreachable.
func (o *Observer) Value() any {
	if !IsObject(o.target) {
		return nil
	}
	return o.get(o.key, o.target)
}

// SetValue writes the leaf value. Writes to an unreachable path are dropped.
func (o *Observer) SetValue(value any) {
	if !IsObject(o.target) {
		return
	}
	o.ifaces.Adapter(o.key.Interface).Set(o.target, o.key.Path, value)
}

// Unobserve detaches every registered callback.
func (o *Observer) Unobserve() {
	for index, token := range o.tokens {
		if index >= len(o.objectPath) {
			break
		}
		if obj := o.objectPath[index]; obj != nil {
			o.unsubscribe(token, obj, o)
		}
	}
	if IsObject(o.target) {
		o.unsubscribe(o.key, o.target, o.callback)
	}
}

func (o *Observer) notify() {
	if o.callback != nil {
		o.callback.Sync()
	}
}

func (o *Observer) get(token Token, obj any) any {
	return o.ifaces.Adapter(token.Interface).Get(obj, token.Path)
}

func (o *Observer) subscribe(token Token, obj any, callback Subscriber) {
	if callback == nil {
		return
	}
	o.ifaces.Adapter(token.Interface).Observe(obj, token.Path, callback)
}

func (o *Observer) unsubscribe(token Token, obj any, callback Subscriber) {
	if callback == nil {
		return
	}
	o.ifaces.Adapter(token.Interface).Unobserve(obj, token.Path, callback)
}
