package chats

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/internal/logging"
	"github.com/strrl/chat-history/pkg/models"
)

// DefaultPageSize is the paged window size.
const DefaultPageSize = 10

// showAllPages is how many pages ShowAll raises the window to at least.
const showAllPages = 3

// Mode is the controller's list state.
type Mode string

const (
	ModePaged      Mode = "paged"
	ModeAutoPaging Mode = "auto-paging"
	ModeSearch     Mode = "search"
)

// LoadRequest is the input of one Load.
type LoadRequest struct {
	Query         string
	Sort          SortOrder
	CurrentChatID string
}

// LoadResult is what a render layer needs to draw the list.
type LoadResult struct {
	Generation   uint64
	IsSearchMode bool
	SortedItems  []*models.ChatRecord
	ToRender     []*models.ChatRecord
	HasMore      bool
	IsAutoPaging bool
}

// Mode reports the list state the result was produced in.
func (r *LoadResult) Mode() Mode {
	switch {
	case r.IsSearchMode:
		return ModeSearch
	case r.IsAutoPaging:
		return ModeAutoPaging
	default:
		return ModePaged
	}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPageSize sets the page size; values below 1 are ignored.
func WithPageSize(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithScope sets the initial scope.
func WithScope(s models.Scope) ControllerOption {
	return func(c *Controller) {
		c.scope = s
	}
}

// WithControllerLogger replaces the component logger.
func WithControllerLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = l
	}
}

// Controller owns the pagination cursor of one chat list and orchestrates
// listing or search, sorting and hydration of the visible slice.
type Controller struct {
	lister   Lister
	searcher Searcher
	preview  hydrate.Hydrator
	creation hydrate.Hydrator
	pageSize int
	log      zerolog.Logger

	mu         sync.Mutex
	scope      models.Scope
	visible    int
	autoPaging bool

	generation atomic.Uint64
}

// NewController creates a controller in paged mode with no scope.
func NewController(lister Lister, searcher Searcher, preview, creation hydrate.Hydrator, opts ...ControllerOption) *Controller {
	c := &Controller{
		lister:   lister,
		searcher: searcher,
		preview:  preview,
		creation: creation,
		pageSize: DefaultPageSize,
		scope:    models.NoScope(),
		log:      logging.Component("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.visible = c.pageSize
	return c
}

// PageSize returns the configured page size.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Reset returns to paged mode showing one page.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.visible = c.pageSize
	c.autoPaging = false
	c.mu.Unlock()
}

// ShowMore leaves auto-paging and grows the window by one page.
func (c *Controller) ShowMore() {
	c.mu.Lock()
	c.autoPaging = false
	c.visible += c.pageSize
	c.mu.Unlock()
}

// ShowAll enters auto-paging with at least three pages visible.
func (c *Controller) ShowAll() {
	c.mu.Lock()
	c.autoPaging = true
	if floor := c.pageSize * showAllPages; c.visible < floor {
		c.visible = floor
	}
	c.mu.Unlock()
}

// AutoLoadNextChunk grows the window by multiplier pages while
// auto-paging. It reports whether the window changed.
func (c *Controller) AutoLoadNextChunk(multiplier int) bool {
	if multiplier < 1 {
		multiplier = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.autoPaging {
		return false
	}
	c.visible += c.pageSize * multiplier
	return true
}

// VisibleCount returns the current window size.
func (c *Controller) VisibleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// AutoPaging reports whether ShowAll is in effect.
func (c *Controller) AutoPaging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoPaging
}

// SetScope switches to another character or group. The cursor is reset
// and in-flight loads become stale; cached facets are kept.
func (c *Controller) SetScope(s models.Scope) {
	c.mu.Lock()
	c.scope = s
	c.visible = c.pageSize
	c.autoPaging = false
	c.mu.Unlock()
	c.generation.Add(1)
}

// Scope returns the active scope.
func (c *Controller) Scope() models.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// IsCurrent reports whether gen is still the latest load.
func (c *Controller) IsCurrent(gen uint64) bool {
	return c.generation.Load() == gen
}

// Load lists or searches the active scope, sorts the whole set and hydrates
// only the visible slice, the current chat first. Listing and search errors
// are returned as *LoadError; a load overtaken by a newer one returns
// ErrSuperseded.
func (c *Controller) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	gen := c.generation.Add(1)
	scope := c.Scope()
	query := strings.TrimSpace(req.Query)
	searchMode := query != ""

	log := c.log.With().
		Str("load_id", uuid.NewString()).
		Uint64("generation", gen).
		Str("scope", scope.String()).
		Logger()
	start := time.Now()

	var raw []*models.ChatRecord
	var err error
	op := "list"
	switch {
	case scope.IsNone():
	case searchMode:
		op = "search"
		raw, err = c.searcher.Search(ctx, query, scope)
	default:
		raw, err = c.lister.ListChats(ctx, scope)
	}

	if !c.IsCurrent(gen) {
		log.Debug().Msg("load superseded before apply")
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, &LoadError{Op: op, Scope: scope, Err: err}
	}

	sorted := SortChats(raw, req.Sort)

	c.mu.Lock()
	visible := c.visible
	autoPaging := c.autoPaging
	c.mu.Unlock()

	toRender := sorted
	hasMore := false
	if !searchMode && visible < len(sorted) {
		toRender = sorted[:visible:visible]
		hasMore = true
	}

	c.hydrate(ctx, toRender, scope, req.CurrentChatID)

	if !c.IsCurrent(gen) {
		log.Debug().Msg("load superseded during hydration")
		return nil, ErrSuperseded
	}

	log.Debug().
		Str("op", op).
		Int("total", len(sorted)).
		Int("rendered", len(toRender)).
		Bool("has_more", hasMore).
		Dur("took", time.Since(start)).
		Msg("load done")

	return &LoadResult{
		Generation:   gen,
		IsSearchMode: searchMode,
		SortedItems:  sorted,
		ToRender:     toRender,
		HasMore:      hasMore,
		IsAutoPaging: autoPaging && !searchMode,
	}, nil
}

// hydrate runs both caches over records concurrently.
func (c *Controller) hydrate(ctx context.Context, records []*models.ChatRecord, scope models.Scope, priority string) {
	if len(records) == 0 {
		return
	}
	opts := hydrate.HydrateOptions{PriorityID: priority}
	var wg sync.WaitGroup
	for _, h := range []hydrate.Hydrator{c.preview, c.creation} {
		if h == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Hydrate(ctx, records, scope, opts)
		}()
	}
	wg.Wait()
}

// Invalidate forgets both facets of chatID.
func (c *Controller) Invalidate(chatID string) {
	c.InvalidatePreview(chatID)
	if c.creation != nil {
		c.creation.Invalidate(chatID)
	}
}

// InvalidatePreview forgets the preview of chatID.
func (c *Controller) InvalidatePreview(chatID string) {
	if c.preview != nil {
		c.preview.Invalidate(chatID)
	}
}

// ClearPreviewCache forgets every preview.
func (c *Controller) ClearPreviewCache() {
	if c.preview != nil {
		c.preview.Clear()
	}
}

// ClearCaches forgets every preview and creation date.
func (c *Controller) ClearCaches() {
	c.ClearPreviewCache()
	if c.creation != nil {
		c.creation.Clear()
	}
}
