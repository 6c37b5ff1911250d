package tether

import "sync"

// Deferred is a value that settles later. A binding whose formatted value is
// Deferred pushes the settled value once it resolves successfully.
type Deferred interface {
	Then(fn func(value any, err error))
}

// Promise is a Deferred settled by Resolve or Reject. Settling twice has no
// effect.
type Promise struct {
	mu        sync.Mutex
	settled   bool
	value     any
	err       error
	callbacks []func(any, error)
}

// NewPromise returns an unsettled promise.
func NewPromise() *Promise {
	return &Promise{}
}

// Resolved returns a promise already settled with value.
func Resolved(value any) *Promise {
	p := NewPromise()
	p.Resolve(value)
	return p
}

// Then registers fn to run once the promise settles. fn runs immediately
// when the promise is already settled.
func (p *Promise) Then(fn func(value any, err error)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	if p.settled {
		value, err := p.value, p.err
		p.mu.Unlock()
		fn(value, err)
		return
	}
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}

// Resolve settles the promise with value.
func (p *Promise) Resolve(value any) {
	p.settle(value, nil)
}

// Reject settles the promise with err.
func (p *Promise) Reject(err error) {
	p.settle(nil, err)
}

// Settled reports whether the promise has settled.
func (p *Promise) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

func (p *Promise) settle(value any, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.value, p.err = value, err
	callbacks := p.callbacks
	p.callbacks = nil
	p.mu.Unlock()
	for _, fn := range callbacks {
		fn(value, err)
	}
}
