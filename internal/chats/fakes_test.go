package chats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/pkg/models"
)

// fakeLister returns fresh records per call; the first call can be held.
type fakeLister struct {
	mu      sync.Mutex
	build   func() []*models.ChatRecord
	err     error
	calls   int
	hold    chan struct{}
	entered chan struct{}
}

func (l *fakeLister) ListChats(ctx context.Context, scope models.Scope) ([]*models.ChatRecord, error) {
	l.mu.Lock()
	l.calls++
	hold := l.hold
	l.hold = nil
	l.mu.Unlock()

	if hold != nil {
		if l.entered != nil {
			close(l.entered)
		}
		<-hold
	}
	if l.err != nil {
		return nil, l.err
	}
	if l.build == nil {
		return nil, nil
	}
	return l.build(), nil
}

func (l *fakeLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fakeSearcher struct {
	records []*models.ChatRecord
	err     error
	queries []string
}

func (s *fakeSearcher) Search(ctx context.Context, query string, scope models.Scope) ([]*models.ChatRecord, error) {
	s.queries = append(s.queries, query)
	return s.records, s.err
}

// numbered builds n chats, chat-01 being the most recent.
func numbered(n int) func() []*models.ChatRecord {
	return func() []*models.ChatRecord {
		base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		out := make([]*models.ChatRecord, 0, n)
		for i := n; i >= 1; i-- {
			r := models.NewChatRecord(fmt.Sprintf("chat-%02d.jsonl", i))
			t := base.Add(-time.Duration(i) * time.Hour)
			r.LastMessageAt = &t
			r.MessageCount = i
			out = append(out, r)
		}
		return out
	}
}

// chatFetcher answers every chat with a background named after it.
type chatFetcher struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	calls  map[string]int
}

func newChatFetcher() *chatFetcher {
	return &chatFetcher{delays: map[string]time.Duration{}, calls: map[string]int{}}
}

func (f *chatFetcher) GetCharacterChat(ctx context.Context, avatarRef, displayName, fileName string) ([]byte, error) {
	f.mu.Lock()
	f.calls[fileName]++
	delay := f.delays[fileName]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return []byte(fmt.Sprintf(`[{"custom_background":"%s.png","create_date":"2024-01-02T03:04:05Z"}]`, fileName)), nil
}

func (f *chatFetcher) GetGroupChat(ctx context.Context, chatID string) ([]byte, error) {
	return f.GetCharacterChat(ctx, "", "", chatID)
}

func (f *chatFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type harness struct {
	fetcher  *chatFetcher
	preview  *hydrate.PreviewCache
	creation *hydrate.CreationCache
	lister   *fakeLister
	searcher *fakeSearcher
	ctrl     *Controller
}

var sevenScope = models.CharacterScope("7", "seven.png", "Seven")

func newHarness(n int) *harness {
	h := &harness{
		fetcher:  newChatFetcher(),
		lister:   &fakeLister{build: numbered(n)},
		searcher: &fakeSearcher{},
	}
	h.preview = hydrate.NewPreviewCache(h.fetcher)
	h.creation = hydrate.NewCreationCache(h.fetcher)
	h.ctrl = NewController(h.lister, h.searcher, h.preview, h.creation, WithScope(sevenScope))
	return h
}
