// Package hydrate fills in the expensive per-chat facets (background preview
// and creation date) behind memoized, scope-keyed caches.
package hydrate

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/strrl/chat-history/internal/logging"
	"github.com/strrl/chat-history/pkg/models"
)

// ChatFetcher loads stored chats from the host. *api.Client satisfies it.
type ChatFetcher interface {
	GetCharacterChat(ctx context.Context, avatarRef, displayName, fileName string) ([]byte, error)
	GetGroupChat(ctx context.Context, chatID string) ([]byte, error)
}

// GroupLookup exposes the host's in-memory group objects.
type GroupLookup interface {
	Group(id string) (*models.Group, bool)
}

// Hydrator is the contract shared by PreviewCache and CreationCache.
type Hydrator interface {
	// Hydrate resolves the facet for every record and applies it in place.
	// It never fails; an unavailable facet is applied as nil.
	Hydrate(ctx context.Context, records []*models.ChatRecord, scope models.Scope, opts HydrateOptions)
	// Invalidate drops every entry for chatID across all scopes.
	Invalidate(chatID string)
	// Clear drops every entry.
	Clear()
}

// HydrateOptions tunes a single Hydrate call.
type HydrateOptions struct {
	// PriorityID names the chat resolved and applied before the rest of
	// the batch is dispatched.
	PriorityID string
}

type options struct {
	groups    GroupLookup
	thumbnail ThumbnailFunc
	logger    *zerolog.Logger
}

// Option configures a cache.
type Option func(*options)

// WithGroups sets the group lookup used before any network call.
func WithGroups(g GroupLookup) Option {
	return func(o *options) {
		o.groups = g
	}
}

// WithThumbnail replaces the thumbnail URL deriver.
func WithThumbnail(f ThumbnailFunc) Option {
	return func(o *options) {
		o.thumbnail = f
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{
		thumbnail: DefaultThumbnail,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l := logging.Component(component)
		o.logger = &l
	}
	return o
}

// facetCache is the machinery both caches share: a memo of flights per
// scope key, a resolver producing the facet and an applier writing it onto
// a record.
type facetCache[T any] struct {
	memo    *memo[*T]
	resolve func(ctx context.Context, scope models.Scope, fileName string) *T
	apply   func(rec *models.ChatRecord, v *T)

	mu      sync.RWMutex
	onApply []func(rec *models.ChatRecord, v *T)

	resolutions atomic.Int64
}

func newFacetCache[T any](
	resolve func(ctx context.Context, scope models.Scope, fileName string) *T,
	apply func(rec *models.ChatRecord, v *T),
) *facetCache[T] {
	return &facetCache[T]{
		memo:    newMemo[*T](),
		resolve: resolve,
		apply:   apply,
	}
}

func (c *facetCache[T]) subscribe(fn func(rec *models.ChatRecord, v *T)) {
	c.mu.Lock()
	c.onApply = append(c.onApply, fn)
	c.mu.Unlock()
}

func (c *facetCache[T]) hydrateOne(ctx context.Context, rec *models.ChatRecord, scope models.Scope) {
	key := scope.CacheKey(rec.FileName)
	fileName := rec.FileName
	f, started := c.memo.do(ctx, key, func(ctx context.Context) *T {
		return c.resolve(ctx, scope, fileName)
	})
	if started {
		c.resolutions.Add(1)
	}
	v, ok := f.wait(ctx)
	if !ok {
		return
	}
	c.apply(rec, v)

	c.mu.RLock()
	hooks := c.onApply
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(rec, v)
	}
}

func (c *facetCache[T]) hydrate(ctx context.Context, records []*models.ChatRecord, scope models.Scope, opts HydrateOptions) {
	if scope.IsNone() || len(records) == 0 {
		return
	}

	priorityKey := models.ChatKey(opts.PriorityID)
	var priority *models.ChatRecord
	rest := make([]*models.ChatRecord, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if priority == nil && priorityKey != "" && rec.Key() == priorityKey {
			priority = rec
			continue
		}
		rest = append(rest, rec)
	}

	// the priority record is applied before the batch is even issued
	if priority != nil {
		c.hydrateOne(ctx, priority, scope)
	}
	if ctx.Err() != nil {
		return
	}

	var wg sync.WaitGroup
	for _, rec := range rest {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.hydrateOne(ctx, rec, scope)
		}()
	}
	wg.Wait()
}

func (c *facetCache[T]) invalidate(chatID string) int {
	key := models.ChatKey(chatID)
	if key == "" {
		return 0
	}
	return c.memo.invalidateSuffix(":" + key)
}

func (c *facetCache[T]) clear() {
	c.memo.clear()
}

// started returns how many resolutions were started since creation.
func (c *facetCache[T]) started() int64 {
	return c.resolutions.Load()
}
