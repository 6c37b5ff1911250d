package observe

import (
	"sort"

	"github.com/google/uuid"
)

type listHook struct {
	owner string
	fn    func()
}

// List is an observable ordered container. Structural operations notify the
// mutation hooks installed by adapters after the change is applied, so every
// keypath reaching the list observes in-place mutation without the list
// itself being replaced.
type List struct {
	id    string
	items []any
	hooks []listHook
}

// NewList constructs a List holding items.
func NewList(items ...any) *List {
	out := make([]any, len(items))
	copy(out, items)
	return &List{id: uuid.NewString(), items: out}
}

// ID returns the identity token.
func (l *List) ID() string {
	if l == nil {
		return ""
	}
	return l.id
}

// Len returns the number of items.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns the item at index or nil when out of range.
func (l *List) At(index int) any {
	if l == nil || index < 0 || index >= len(l.items) {
		return nil
	}
	return l.items[index]
}

// Items returns a copy of the items.
func (l *List) Items() []any {
	if l == nil {
		return nil
	}
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Push appends items and returns the new length.
func (l *List) Push(items ...any) int {
	l.items = append(l.items, items...)
	l.notify()
	return len(l.items)
}

// Unshift prepends items and returns the new length.
func (l *List) Unshift(items ...any) int {
	next := make([]any, 0, len(l.items)+len(items))
	next = append(next, items...)
	l.items = append(next, l.items...)
	l.notify()
	return len(l.items)
}

// Pop removes and returns the last item.
func (l *List) Pop() any {
	if len(l.items) == 0 {
		l.notify()
		return nil
	}
	last := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	l.notify()
	return last
}

// Shift removes and returns the first item.
func (l *List) Shift() any {
	if len(l.items) == 0 {
		l.notify()
		return nil
	}
	first := l.items[0]
	l.items = l.items[1:]
	l.notify()
	return first
}

// Splice removes deleteCount items starting at start, inserts items in
// their place and returns the removed items. A negative start counts from
// the end.
func (l *List) Splice(start, deleteCount int, items ...any) []any {
	n := len(l.items)
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if start > n {
		start = n
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if start+deleteCount > n {
		deleteCount = n - start
	}
	removed := make([]any, deleteCount)
	copy(removed, l.items[start:start+deleteCount])

	next := make([]any, 0, n-deleteCount+len(items))
	next = append(next, l.items[:start]...)
	next = append(next, items...)
	next = append(next, l.items[start+deleteCount:]...)
	l.items = next
	l.notify()
	return removed
}

// SetAt replaces the item at index. Out of range indexes are ignored.
func (l *List) SetAt(index int, value any) {
	if index < 0 || index >= len(l.items) {
		return
	}
	l.items[index] = value
	l.notify()
}

// Sort orders the items with less, keeping equal items in place.
func (l *List) Sort(less func(a, b any) bool) {
	sort.SliceStable(l.items, func(i, j int) bool {
		return less(l.items[i], l.items[j])
	})
	l.notify()
}

// Reverse reverses the items in place.
func (l *List) Reverse() {
	for i, j := 0, len(l.items)-1; i < j; i, j = i+1, j-1 {
		l.items[i], l.items[j] = l.items[j], l.items[i]
	}
	l.notify()
}

func (l *List) notify() {
	if len(l.hooks) == 0 {
		return
	}
	snapshot := make([]listHook, len(l.hooks))
	copy(snapshot, l.hooks)
	for _, hook := range snapshot {
		hook.fn()
	}
}

// track installs fn once per owner.
func (l *List) track(owner string, fn func()) bool {
	for _, hook := range l.hooks {
		if hook.owner == owner {
			return false
		}
	}
	l.hooks = append(l.hooks, listHook{owner: owner, fn: fn})
	return true
}

func (l *List) untrack(owner string) {
	kept := l.hooks[:0]
	for _, hook := range l.hooks {
		if hook.owner != owner {
			kept = append(kept, hook)
		}
	}
	l.hooks = kept
}

func (l *List) tracked(owner string) bool {
	for _, hook := range l.hooks {
		if hook.owner == owner {
			return true
		}
	}
	return false
}
