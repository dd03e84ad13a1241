package hydrate

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/strrl/chat-history/pkg/models"
)

// CreationCache resolves and memoizes chat creation timestamps.
type CreationCache struct {
	fetcher ChatFetcher
	opts    options
	cache   *facetCache[models.CreationEntry]
}

var _ Hydrator = (*CreationCache)(nil)

// NewCreationCache creates an empty creation cache backed by fetcher.
func NewCreationCache(fetcher ChatFetcher, opts ...Option) *CreationCache {
	c := &CreationCache{
		fetcher: fetcher,
		opts:    buildOptions("creation-cache", opts),
	}
	c.cache = newFacetCache(c.resolve, func(rec *models.ChatRecord, v *models.CreationEntry) {
		rec.SetCreation(v)
	})
	return c
}

// Hydrate applies the creation timestamp to every record.
func (c *CreationCache) Hydrate(ctx context.Context, records []*models.ChatRecord, scope models.Scope, opts HydrateOptions) {
	c.cache.hydrate(ctx, records, scope, opts)
}

// Invalidate forgets chatID under every scope.
func (c *CreationCache) Invalidate(chatID string) {
	n := c.cache.invalidate(chatID)
	c.opts.logger.Debug().Str("chat", chatID).Int("entries", n).Msg("creation invalidated")
}

// Clear forgets everything.
func (c *CreationCache) Clear() {
	c.cache.clear()
}

// OnResolved registers fn to run after a creation entry is applied.
func (c *CreationCache) OnResolved(fn func(rec *models.ChatRecord, e *models.CreationEntry)) {
	c.cache.subscribe(fn)
}

// Len returns the number of cached entries.
func (c *CreationCache) Len() int {
	return c.cache.memo.len()
}

// Resolutions returns how many resolutions have been started.
func (c *CreationCache) Resolutions() int64 {
	return c.cache.started()
}

func (c *CreationCache) resolve(ctx context.Context, scope models.Scope, fileName string) *models.CreationEntry {
	log := c.opts.logger.With().Str("scope", scope.String()).Str("chat", fileName).Logger()

	switch scope.Type {
	case models.ScopeGroup:
		var fallbackRaw string
		if c.opts.groups != nil {
			if g, ok := c.opts.groups.Group(scope.ID); ok {
				if md, ok := g.Metadata(fileName); ok && strings.TrimSpace(md.CreateDate) != "" {
					if ms, raw, ok := parseTimestamp(stringValue(md.CreateDate)); ok {
						return newCreationEntry(ms, raw, models.ScopeGroup)
					}
					fallbackRaw = md.CreateDate
				}
			}
		}
		body, err := c.fetcher.GetGroupChat(ctx, fileName)
		if err != nil {
			log.Debug().Err(err).Msg("group chat fetch failed")
			return rawOnly(fallbackRaw, models.ScopeGroup)
		}
		if ms, raw, ok := scanMessageTime(firstElement(body)); ok {
			return newCreationEntry(ms, raw, models.ScopeGroup)
		}
		return rawOnly(fallbackRaw, models.ScopeGroup)

	case models.ScopeCharacter:
		body, err := c.fetcher.GetCharacterChat(ctx, scope.AvatarRef, scope.DisplayName, fileName)
		if err != nil {
			log.Debug().Err(err).Msg("chat fetch failed")
			return nil
		}
		if !gjson.ValidBytes(body) {
			log.Debug().Msg("chat body is not valid JSON")
			return nil
		}
		arr := gjson.ParseBytes(body)
		if !arr.IsArray() {
			return nil
		}

		var fallbackRaw string
		header := arr.Get("0")
		if cd := header.Get("create_date"); cd.Exists() {
			if ms, raw, ok := parseTimestamp(cd); ok {
				return newCreationEntry(ms, raw, models.ScopeCharacter)
			}
			if cd.Type == gjson.String {
				fallbackRaw = strings.TrimSpace(cd.String())
			}
		}
		if ms, raw, ok := scanMessageTime(arr.Get("1")); ok {
			return newCreationEntry(ms, raw, models.ScopeCharacter)
		}
		return rawOnly(fallbackRaw, models.ScopeCharacter)
	}
	return nil
}

func newCreationEntry(ms int64, raw string, source models.ScopeType) *models.CreationEntry {
	if raw == "" {
		raw = isoFromMillis(ms)
	}
	return &models.CreationEntry{Timestamp: &ms, Raw: raw, Source: source}
}

// rawOnly keeps an unparseable create_date as display text.
func rawOnly(raw string, source models.ScopeType) *models.CreationEntry {
	if raw == "" {
		return nil
	}
	return &models.CreationEntry{Raw: raw, Source: source}
}
