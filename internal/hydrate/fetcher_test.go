package hydrate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strrl/chat-history/pkg/models"
)

// fakeFetcher serves canned chat bodies keyed by file name and counts calls.
type fakeFetcher struct {
	mu       sync.Mutex
	bodies   map[string]string
	delays   map[string]time.Duration
	gates    map[string]chan struct{}
	failures map[string]error
	calls    map[string]int
	started  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies:   map[string]string{},
		delays:   map[string]time.Duration{},
		gates:    map[string]chan struct{}{},
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeFetcher) serve(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	f.calls[name]++
	f.started = append(f.started, name)
	body, ok := f.bodies[name]
	delay := f.delays[name]
	gate := f.gates[name]
	failure := f.failures[name]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func (f *fakeFetcher) GetCharacterChat(ctx context.Context, avatarRef, displayName, fileName string) ([]byte, error) {
	return f.serve(ctx, fileName)
}

func (f *fakeFetcher) GetGroupChat(ctx context.Context, chatID string) ([]byte, error) {
	return f.serve(ctx, chatID)
}

func (f *fakeFetcher) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) startOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

type staticGroups map[string]*models.Group

func (g staticGroups) Group(id string) (*models.Group, bool) {
	grp, ok := g[id]
	return grp, ok
}

func records(names ...string) []*models.ChatRecord {
	out := make([]*models.ChatRecord, 0, len(names))
	for _, n := range names {
		out = append(out, models.NewChatRecord(n))
	}
	return out
}

var aliceScope = models.CharacterScope("7", "alice.png", "Alice")
