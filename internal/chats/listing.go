package chats

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/internal/logging"
	"github.com/strrl/chat-history/pkg/models"
)

// Lister returns every saved chat of a scope.
type Lister interface {
	ListChats(ctx context.Context, scope models.Scope) ([]*models.ChatRecord, error)
}

// ListingAPI is the part of the host API the HTTP lister needs.
type ListingAPI interface {
	ListCharacterChats(ctx context.Context, avatarRef string) ([]byte, error)
	GroupChatInfo(ctx context.Context, chatID string) ([]byte, error)
}

// HTTPLister lists chats through the host REST API.
type HTTPLister struct {
	api    ListingAPI
	groups hydrate.GroupLookup
	log    zerolog.Logger
}

var _ Lister = (*HTTPLister)(nil)

// NewHTTPLister creates a lister. groups may be nil, in which case group
// scopes list nothing.
func NewHTTPLister(a ListingAPI, groups hydrate.GroupLookup) *HTTPLister {
	return &HTTPLister{api: a, groups: groups, log: logging.Component("lister")}
}

// ListChats lists a character's chats in one call, or a group's chats one
// info call per chat.
func (l *HTTPLister) ListChats(ctx context.Context, scope models.Scope) ([]*models.ChatRecord, error) {
	switch scope.Type {
	case models.ScopeCharacter:
		body, err := l.api.ListCharacterChats(ctx, scope.AvatarRef)
		if err != nil {
			return nil, err
		}
		records, ok := recordsFromBody(body)
		if !ok {
			return nil, fmt.Errorf("malformed chat listing for %s", scope.AvatarRef)
		}
		return records, nil
	case models.ScopeGroup:
		return l.listGroup(ctx, scope)
	default:
		return nil, nil
	}
}

func (l *HTTPLister) listGroup(ctx context.Context, scope models.Scope) ([]*models.ChatRecord, error) {
	if l.groups == nil {
		return nil, nil
	}
	g, ok := l.groups.Group(scope.ID)
	if !ok {
		l.log.Debug().Str("group", scope.ID).Msg("group not known, nothing to list")
		return nil, nil
	}

	out := make([]*models.ChatRecord, len(g.Chats))
	var wg sync.WaitGroup
	for i, chatID := range g.Chats {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = l.groupChat(ctx, chatID)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := out[:0]
	for _, r := range out {
		if r != nil {
			records = append(records, r)
		}
	}
	return records, nil
}

// groupChat describes one group chat. A failed info call still lists the
// chat under its bare id.
func (l *HTTPLister) groupChat(ctx context.Context, chatID string) *models.ChatRecord {
	if models.NormalizeFileName(chatID) == "" {
		return nil
	}
	body, err := l.api.GroupChatInfo(ctx, chatID)
	if err != nil {
		l.log.Debug().Err(err).Str("chat", chatID).Msg("group chat info failed")
		return models.NewChatRecord(chatID)
	}
	if gjson.ValidBytes(body) {
		if rec := recordFromJSON(gjson.ParseBytes(body)); rec != nil {
			return rec
		}
	}
	return models.NewChatRecord(chatID)
}
