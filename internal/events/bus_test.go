package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  *Event
		want   bool
	}{
		{name: "empty filter", filter: Filter{}, event: &Event{Type: ChatChanged}, want: true},
		{name: "nil event", filter: Filter{}, event: nil, want: false},
		{name: "type match", filter: Filter{Types: []Type{ChatDeleted}}, event: &Event{Type: ChatDeleted}, want: true},
		{name: "type mismatch", filter: Filter{Types: []Type{ChatDeleted}}, event: &Event{Type: ChatChanged}, want: false},
		{name: "group match", filter: Filter{GroupID: "g1"}, event: &Event{Type: GroupUpdated, GroupID: "g1"}, want: true},
		{name: "group mismatch", filter: Filter{GroupID: "g1"}, event: &Event{Type: GroupUpdated, GroupID: "g2"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}
}

func TestSubscribeErrors(t *testing.T) {
	b := NewBus()
	noop := func(context.Context, *Event) {}

	assert.ErrorIs(t, b.Subscribe("", Filter{}, noop), ErrInvalidSubscriptionID)
	assert.ErrorIs(t, b.Subscribe("a", Filter{}, nil), ErrNilHandler)
	require.NoError(t, b.Subscribe("a", Filter{}, noop))
	assert.ErrorIs(t, b.Subscribe("a", Filter{}, noop), ErrSubscriptionExists)
	assert.Equal(t, 1, b.SubscriberCount())

	require.NoError(t, b.Unsubscribe("a"))
	assert.ErrorIs(t, b.Unsubscribe("a"), ErrSubscriptionNotFound)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestPublishOnlyMatching(t *testing.T) {
	b := NewBus()
	var got []Type
	require.NoError(t, b.Subscribe("deletes", Filter{Types: []Type{ChatDeleted}}, func(_ context.Context, e *Event) {
		got = append(got, e.Type)
	}))

	b.Publish(context.Background(), &Event{Type: ChatChanged})
	b.Publish(context.Background(), &Event{Type: ChatDeleted})
	b.Publish(context.Background(), nil)
	assert.Equal(t, []Type{ChatDeleted}, got)
}

func TestPublishAsync(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	wg.Add(2)
	for _, id := range []string{"a", "b"} {
		require.NoError(t, b.Subscribe(id, Filter{}, func(context.Context, *Event) { wg.Done() }))
	}
	b.PublishAsync(context.Background(), &Event{Type: ChatChanged})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handlers did not run")
	}
}

type recordingTarget struct {
	calls []string
}

func (r *recordingTarget) Invalidate(chatID string) { r.calls = append(r.calls, "invalidate:"+chatID) }
func (r *recordingTarget) ClearPreviewCache()       { r.calls = append(r.calls, "clear-previews") }
func (r *recordingTarget) Reset()                   { r.calls = append(r.calls, "reset") }

func TestWireList(t *testing.T) {
	tests := []struct {
		name  string
		event *Event
		want  []string
	}{
		{name: "changed", event: &Event{Type: ChatChanged, ChatID: "c1"}, want: []string{"invalidate:c1", "reset", "reload"}},
		{name: "deleted", event: &Event{Type: ChatDeleted, ChatID: "c1"}, want: []string{"invalidate:c1", "reset", "reload"}},
		{name: "renamed", event: &Event{Type: ChatRenamed, ChatID: "old", NewChatID: "new"}, want: []string{"invalidate:old", "invalidate:new", "reset", "reload"}},
		{name: "group updated", event: &Event{Type: GroupUpdated, GroupID: "g1"}, want: []string{"clear-previews", "reset", "reload"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBus()
			target := &recordingTarget{}
			require.NoError(t, WireList(b, "list", target, func(context.Context) {
				target.calls = append(target.calls, "reload")
			}))
			b.Publish(context.Background(), tt.event)
			assert.Equal(t, tt.want, target.calls)
		})
	}
}
