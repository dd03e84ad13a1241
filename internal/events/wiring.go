package events

import (
	"context"

	"github.com/strrl/chat-history/internal/logging"
)

// ListTarget is what a chat list exposes to host events. *chats.Controller
// satisfies it.
type ListTarget interface {
	Invalidate(chatID string)
	ClearPreviewCache()
	Reset()
}

// ListEvents are the events a chat list reacts to.
var ListEvents = []Type{ChatChanged, ChatDeleted, ChatRenamed, GroupUpdated}

// WireList subscribes target to the list events: the affected chat is
// invalidated, the list is reset, then reload runs. Group updates drop
// every preview since group backgrounds come from the group object.
func WireList(bus *Bus, id string, target ListTarget, reload func(ctx context.Context)) error {
	log := logging.Component("events")
	return bus.Subscribe(id, Filter{Types: ListEvents}, func(ctx context.Context, e *Event) {
		switch e.Type {
		case ChatRenamed:
			target.Invalidate(e.ChatID)
			if e.NewChatID != "" {
				target.Invalidate(e.NewChatID)
			}
		case GroupUpdated:
			target.ClearPreviewCache()
			if e.ChatID != "" {
				target.Invalidate(e.ChatID)
			}
		default:
			if e.ChatID != "" {
				target.Invalidate(e.ChatID)
			}
		}
		target.Reset()
		log.Debug().Str("event", string(e.Type)).Str("chat", e.ChatID).Msg("list invalidated")
		if reload != nil {
			reload(ctx)
		}
	})
}
