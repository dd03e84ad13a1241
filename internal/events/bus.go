// Package events carries the host's chat and group notifications to the
// chat list.
package events

import (
	"context"
	"slices"
	"sync"
)

// Type identifies a host event.
type Type string

const (
	ChatChanged  Type = "chat-changed"
	ChatDeleted  Type = "chat-deleted"
	ChatRenamed  Type = "chat-renamed"
	GroupUpdated Type = "group-updated"
)

// Event is a host notification. NewChatID is set for renames, GroupID for
// group updates and group chats.
type Event struct {
	Type      Type
	ChatID    string
	NewChatID string
	GroupID   string
}

// Handler is invoked when an event matches a subscription.
type Handler func(ctx context.Context, event *Event)

// Filter selects events.
type Filter struct {
	// Types filters by event type (nil = all types).
	Types []Type

	// GroupID filters to one group (empty = all).
	GroupID string
}

// Matches returns true if the event matches the filter criteria.
func (f *Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, event.Type) {
		return false
	}
	if f.GroupID != "" && event.GroupID != f.GroupID {
		return false
	}
	return true
}

type subscription struct {
	id      string
	filter  Filter
	handler Handler
}

// Bus is an in-process publish/subscribe hub.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscriptions: make(map[string]*subscription)}
}

// Publish runs every matching handler in the caller's goroutine.
func (b *Bus) Publish(ctx context.Context, event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	var handlers []Handler
	for _, sub := range b.subscriptions {
		if sub.filter.Matches(event) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	// handlers may subscribe or unsubscribe
	for _, h := range handlers {
		h(ctx, event)
	}
}

// PublishAsync runs each matching handler in its own goroutine.
func (b *Bus) PublishAsync(ctx context.Context, event *Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscriptions {
		if sub.filter.Matches(event) {
			go sub.handler(ctx, event)
		}
	}
}

// Subscribe registers handler under id.
func (b *Bus) Subscribe(id string, filter Filter, handler Handler) error {
	if id == "" {
		return ErrInvalidSubscriptionID
	}
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subscriptions[id]; exists {
		return ErrSubscriptionExists
	}
	b.subscriptions[id] = &subscription{id: id, filter: filter, handler: handler}
	return nil
}

// Unsubscribe removes a subscription by ID.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subscriptions[id]; !exists {
		return ErrSubscriptionNotFound
	}
	delete(b.subscriptions, id)
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Errors for bus operations.
var (
	ErrInvalidSubscriptionID = &BusError{Message: "subscription ID is required"}
	ErrNilHandler            = &BusError{Message: "handler cannot be nil"}
	ErrSubscriptionExists    = &BusError{Message: "subscription with this ID already exists"}
	ErrSubscriptionNotFound  = &BusError{Message: "subscription not found"}
)

// BusError represents an error from bus operations.
type BusError struct {
	Message string
}

func (e *BusError) Error() string {
	return e.Message
}
