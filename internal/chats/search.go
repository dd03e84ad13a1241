package chats

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/strrl/chat-history/internal/logging"
	"github.com/strrl/chat-history/pkg/models"
)

// SearchAPI is the host search endpoint. *api.Client satisfies it.
type SearchAPI interface {
	SearchChats(ctx context.Context, query, avatarRef, groupID string) ([]byte, error)
}

// Searcher resolves a free-text query to ranked chat records.
type Searcher interface {
	Search(ctx context.Context, query string, scope models.Scope) ([]*models.ChatRecord, error)
}

// SearchClient maps host search results into the same records the listing
// produces, so sorting, paging and hydration do not care which mode ran.
type SearchClient struct {
	api SearchAPI
	log zerolog.Logger
}

var _ Searcher = (*SearchClient)(nil)

// NewSearchClient creates a search client.
func NewSearchClient(a SearchAPI) *SearchClient {
	return &SearchClient{api: a, log: logging.Component("search")}
}

// Search issues one search call for scope. Errors are returned as is; a
// failed search is never softened into an empty result.
func (c *SearchClient) Search(ctx context.Context, query string, scope models.Scope) ([]*models.ChatRecord, error) {
	if scope.IsNone() {
		return nil, nil
	}

	var avatar, group string
	switch scope.Type {
	case models.ScopeCharacter:
		avatar = scope.AvatarRef
	case models.ScopeGroup:
		group = scope.ID
	}

	body, err := c.api.SearchChats(ctx, strings.TrimSpace(query), avatar, group)
	if err != nil {
		return nil, err
	}
	records, ok := recordsFromBody(body)
	if !ok {
		return nil, fmt.Errorf("malformed search response")
	}
	c.log.Debug().Str("scope", scope.String()).Str("query", query).Int("matches", len(records)).Msg("search done")
	return records, nil
}
