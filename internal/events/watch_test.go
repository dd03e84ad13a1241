package events

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, e *Event) {
	r.mu.Lock()
	r.events = append(r.events, *e)
	r.mu.Unlock()
}

func (r *recorder) count(typ Type, chatID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ && e.ChatID == chatID {
			n++
		}
	}
	return n
}

func TestChatIDFromPath(t *testing.T) {
	id, ok := chatIDFromPath("/chats/Alice/Alice - 2024-1-2@15h04m05s.jsonl")
	assert.True(t, ok)
	assert.Equal(t, "Alice - 2024-1-2@15h04m05s", id)

	_, ok = chatIDFromPath("/chats/Alice/notes.txt")
	assert.False(t, ok)
	_, ok = chatIDFromPath("/chats/Alice/.jsonl")
	assert.False(t, ok)
}

func TestWatcherCoalescesWritesAndReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	bus := NewBus()
	rec := &recorder{}
	require.NoError(t, bus.Subscribe("test", Filter{}, rec.handle))

	w, err := NewWatcher(context.Background(), bus, dir, WithCoalesceWindow(100*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "chat-1.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"user_name":"You"}`+"\n"), 0o644))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.WriteString(`{"mes":"hi"}` + "\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return rec.count(ChatChanged, "chat-1") == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(ChatChanged, "chat-1"))

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return rec.count(ChatDeleted, "chat-1") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, rec.count(ChatChanged, "notes"))
}

func TestWatcherRemovalDoesNotWaitOnSubscribers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jsonl", "b.jsonl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o644))
	}

	bus := NewBus()
	rec := &recorder{}
	release := make(chan struct{})
	require.NoError(t, bus.Subscribe("slow", Filter{Types: []Type{ChatDeleted}}, func(ctx context.Context, e *Event) {
		rec.handle(ctx, e)
		<-release
	}))

	w, err := NewWatcher(context.Background(), bus, dir)
	require.NoError(t, err)
	defer w.Close()
	defer close(release)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.jsonl")))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.jsonl")))

	require.Eventually(t, func() bool {
		return rec.count(ChatDeleted, "a") == 1 && rec.count(ChatDeleted, "b") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(context.Background(), NewBus(), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(context.Background(), NewBus(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
