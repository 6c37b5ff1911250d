package tether

import (
	"errors"

	"golang.org/x/net/html"
)

// Event is delivered to handlers registered through Context.On.
type Event struct {
	Type   string
	Node   *html.Node
	Detail any
}

// EventHandler reacts to a dispatched event.
type EventHandler func(Event) error

type listener struct {
	owner   *Binding
	handler EventHandler
}

// eventTable stands in for host event listeners. A root view and every
// child view it creates share one table.
type eventTable struct {
	listeners map[*html.Node]map[string][]listener
}

func newEventTable() *eventTable {
	return &eventTable{listeners: make(map[*html.Node]map[string][]listener)}
}

func (t *eventTable) on(node *html.Node, event string, owner *Binding, handler EventHandler) {
	byEvent := t.listeners[node]
	if byEvent == nil {
		byEvent = make(map[string][]listener)
		t.listeners[node] = byEvent
	}
	byEvent[event] = append(byEvent[event], listener{owner: owner, handler: handler})
}

func (t *eventTable) off(node *html.Node, event string, owner *Binding) {
	byEvent := t.listeners[node]
	if byEvent == nil {
		return
	}
	kept := byEvent[event][:0:0]
	for _, l := range byEvent[event] {
		if l.owner != owner {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(byEvent, event)
	} else {
		byEvent[event] = kept
	}
	if len(byEvent) == 0 {
		delete(t.listeners, node)
	}
}

// release drops every listener registered by owner.
func (t *eventTable) release(owner *Binding) {
	for node, byEvent := range t.listeners {
		for event := range byEvent {
			t.off(node, event, owner)
		}
	}
}

func (t *eventTable) count(node *html.Node, event string) int {
	return len(t.listeners[node][event])
}

func (t *eventTable) dispatch(node *html.Node, event string, detail any) error {
	snapshot := append([]listener(nil), t.listeners[node][event]...)
	evt := Event{Type: event, Node: node, Detail: detail}
	var errs []error
	for _, l := range snapshot {
		if err := l.handler(evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
