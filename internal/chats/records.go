package chats

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/pkg/models"
)

// recordFromJSON maps a chat stub from the listing, group info or search
// endpoints into a ChatRecord. Returns nil when the stub has no file name.
func recordFromJSON(v gjson.Result) *models.ChatRecord {
	if !v.IsObject() {
		return nil
	}
	name := strings.TrimSpace(v.Get("file_name").String())
	if name == "" {
		return nil
	}
	rec := models.NewChatRecord(name)

	if size := v.Get("file_size"); size.Exists() {
		rec.FileSizeLabel = size.String()
	}
	rec.MessageCount = intField(v, "message_count", "chat_items")

	if last := v.Get("last_mes"); last.Exists() && last.Type != gjson.Null {
		rec.LastMessageRaw = last.String()
		if t, ok := hydrate.ParseChatTime(rec.LastMessageRaw); ok {
			rec.LastMessageAt = &t
		}
	}
	for _, field := range []string{"preview_message", "mes"} {
		if s := v.Get(field).String(); s != "" {
			rec.LastMessagePreview = s
			break
		}
	}
	return rec
}

// intField reads the first present field as a number, coercing strings.
// Malformed values are 0.
func intField(v gjson.Result, fields ...string) int {
	for _, f := range fields {
		r := v.Get(f)
		if !r.Exists() || r.Type == gjson.Null {
			continue
		}
		n := r.Int()
		if n < 0 {
			return 0
		}
		return int(n)
	}
	return 0
}

// recordsFromBody maps a JSON array, or an object keyed by index, of chat
// stubs. The host answers {"error": true} on failure.
func recordsFromBody(body []byte) ([]*models.ChatRecord, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	root := gjson.ParseBytes(body)
	if root.IsObject() && root.Get("error").Bool() {
		return nil, false
	}
	if !root.IsArray() && !root.IsObject() {
		return nil, false
	}

	var out []*models.ChatRecord
	root.ForEach(func(_, v gjson.Result) bool {
		if rec := recordFromJSON(v); rec != nil {
			out = append(out, rec)
		}
		return true
	})
	return out, true
}
