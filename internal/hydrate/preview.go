package hydrate

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/strrl/chat-history/pkg/models"
)

const (
	SourceCustomBackground = "custom_background"
	SourceChatBackgrounds  = "chat_backgrounds"
)

// PreviewCache resolves and memoizes chat background previews.
type PreviewCache struct {
	fetcher ChatFetcher
	opts    options
	cache   *facetCache[models.PreviewEntry]
}

var _ Hydrator = (*PreviewCache)(nil)

// NewPreviewCache creates an empty preview cache backed by fetcher.
func NewPreviewCache(fetcher ChatFetcher, opts ...Option) *PreviewCache {
	c := &PreviewCache{
		fetcher: fetcher,
		opts:    buildOptions("preview-cache", opts),
	}
	c.cache = newFacetCache(c.resolve, func(rec *models.ChatRecord, v *models.PreviewEntry) {
		rec.SetPreview(v)
	})
	return c
}

// Hydrate applies the background preview to every record.
func (c *PreviewCache) Hydrate(ctx context.Context, records []*models.ChatRecord, scope models.Scope, opts HydrateOptions) {
	c.cache.hydrate(ctx, records, scope, opts)
}

// Invalidate forgets chatID under every scope.
func (c *PreviewCache) Invalidate(chatID string) {
	n := c.cache.invalidate(chatID)
	c.opts.logger.Debug().Str("chat", chatID).Int("entries", n).Msg("preview invalidated")
}

// Clear forgets everything.
func (c *PreviewCache) Clear() {
	c.cache.clear()
}

// OnResolved registers fn to run after a preview is applied to a record.
func (c *PreviewCache) OnResolved(fn func(rec *models.ChatRecord, p *models.PreviewEntry)) {
	c.cache.subscribe(fn)
}

// Len returns the number of cached entries.
func (c *PreviewCache) Len() int {
	return c.cache.memo.len()
}

// Resolutions returns how many resolutions have been started.
func (c *PreviewCache) Resolutions() int64 {
	return c.cache.started()
}

func (c *PreviewCache) resolve(ctx context.Context, scope models.Scope, fileName string) *models.PreviewEntry {
	log := c.opts.logger.With().Str("scope", scope.String()).Str("chat", fileName).Logger()

	switch scope.Type {
	case models.ScopeGroup:
		if c.opts.groups != nil {
			if g, ok := c.opts.groups.Group(scope.ID); ok {
				if md, ok := g.Metadata(fileName); ok {
					if ref, _ := backgroundFromMetadata(md); ref != "" {
						return BuildPreview(ref, "group", c.opts.thumbnail)
					}
				}
			}
		}
		start := time.Now()
		body, err := c.fetcher.GetGroupChat(ctx, fileName)
		if err != nil {
			log.Debug().Err(err).Msg("group chat fetch failed")
			return nil
		}
		log.Trace().Dur("took", time.Since(start)).Msg("group chat fetched")
		ref, source := backgroundFromHeader(firstElement(body))
		return BuildPreview(ref, source, c.opts.thumbnail)

	case models.ScopeCharacter:
		start := time.Now()
		body, err := c.fetcher.GetCharacterChat(ctx, scope.AvatarRef, scope.DisplayName, fileName)
		if err != nil {
			log.Debug().Err(err).Msg("chat fetch failed")
			return nil
		}
		log.Trace().Dur("took", time.Since(start)).Msg("chat fetched")
		ref, source := backgroundFromHeader(firstElement(body))
		return BuildPreview(ref, source, c.opts.thumbnail)
	}
	return nil
}

// firstElement returns index 0 of a JSON array body, or a non-existent
// result when the body is not an array.
func firstElement(body []byte) gjson.Result {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}
	}
	arr := gjson.ParseBytes(body)
	if !arr.IsArray() {
		return gjson.Result{}
	}
	return arr.Get("0")
}

// backgroundFromHeader reads custom_background, falling back to the last
// entry of chat_backgrounds, at top level or under chat_metadata.
func backgroundFromHeader(header gjson.Result) (string, string) {
	if !header.IsObject() {
		return "", ""
	}
	for _, prefix := range []string{"chat_metadata.", ""} {
		if v := header.Get(prefix + "custom_background"); v.Type == gjson.String && v.String() != "" {
			return v.String(), SourceCustomBackground
		}
	}
	for _, prefix := range []string{"chat_metadata.", ""} {
		stack := header.Get(prefix + "chat_backgrounds")
		if !stack.IsArray() {
			continue
		}
		items := stack.Array()
		for i := len(items) - 1; i >= 0; i-- {
			if items[i].Type == gjson.String && items[i].String() != "" {
				return items[i].String(), SourceChatBackgrounds
			}
		}
	}
	return "", ""
}

func backgroundFromMetadata(md models.ChatMetadata) (string, string) {
	if md.CustomBackground != "" {
		return md.CustomBackground, SourceCustomBackground
	}
	for i := len(md.ChatBackgrounds) - 1; i >= 0; i-- {
		if md.ChatBackgrounds[i] != "" {
			return md.ChatBackgrounds[i], SourceChatBackgrounds
		}
	}
	return "", ""
}
