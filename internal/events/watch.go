package events

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/strrl/chat-history/internal/logging"
)

// DefaultCoalesceWindow batches bursts of writes to one chat file; the host
// appends a line per message.
const DefaultCoalesceWindow = 200 * time.Millisecond

// Watcher turns changes to *.jsonl files in a chats directory into bus
// events. Writes to the same chat inside the coalesce window publish once.
type Watcher struct {
	bus    *Bus
	window time.Duration
	log    zerolog.Logger

	fs *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	done    chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithCoalesceWindow sets how long writes to one chat are batched.
func WithCoalesceWindow(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.window = d
		}
	}
}

// NewWatcher starts watching dir. Close stops it.
func NewWatcher(ctx context.Context, bus *Bus, dir string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		bus:     bus,
		window:  DefaultCoalesceWindow,
		log:     logging.Component("watch").With().Str("dir", dir).Logger(),
		fs:      fw,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run(ctx)
	return w, nil
}

// Close stops the watcher and drops events not yet published.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for id, t := range w.pending {
		t.Stop()
		delete(w.pending, id)
	}
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	chatID, ok := chatIDFromPath(ev.Name)
	if !ok {
		return
	}
	switch {
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancel(chatID)
		w.log.Debug().Str("chat_id", chatID).Msg("chat file removed")
		// the read loop never waits on subscribers
		w.bus.PublishAsync(ctx, &Event{Type: ChatDeleted, ChatID: chatID})
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		w.schedule(ctx, chatID)
	}
}

// schedule publishes ChatChanged once the chat has been quiet for the
// coalesce window.
func (w *Watcher) schedule(ctx context.Context, chatID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[chatID]; ok {
		t.Reset(w.window)
		return
	}
	w.pending[chatID] = time.AfterFunc(w.window, func() {
		w.mu.Lock()
		_, live := w.pending[chatID]
		delete(w.pending, chatID)
		closed := w.closed
		w.mu.Unlock()
		if !live || closed {
			return
		}
		w.bus.Publish(ctx, &Event{Type: ChatChanged, ChatID: chatID})
	})
}

func (w *Watcher) cancel(chatID string) {
	w.mu.Lock()
	if t, ok := w.pending[chatID]; ok {
		t.Stop()
		delete(w.pending, chatID)
	}
	w.mu.Unlock()
}

func chatIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), ".jsonl") {
		return "", false
	}
	id := strings.TrimSuffix(base, filepath.Ext(base))
	return id, id != ""
}
