package chats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/chat-history/pkg/models"
)

func chat(name string, lastMs int64, count int) *models.ChatRecord {
	r := models.NewChatRecord(name)
	if lastMs > 0 {
		t := time.UnixMilli(lastMs)
		r.LastMessageAt = &t
	}
	r.MessageCount = count
	return r
}

func names(records []*models.ChatRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.FileName
	}
	return out
}

func TestSortChatsNameAsc(t *testing.T) {
	got := SortChats([]*models.ChatRecord{chat("b", 5, 0), chat("a", 1, 0)}, SortNameAsc)
	assert.Equal(t, []string{"a", "b"}, names(got))
}

func TestSortChatsNameIsNumericAware(t *testing.T) {
	in := []*models.ChatRecord{chat("chat 10", 1, 0), chat("chat 2", 1, 0), chat("chat 1", 1, 0)}
	assert.Equal(t, []string{"chat 1", "chat 2", "chat 10"}, names(SortChats(in, SortNameAsc)))
	assert.Equal(t, []string{"chat 10", "chat 2", "chat 1"}, names(SortChats(in, SortNameDesc)))
}

func TestSortChatsNameTieBreaksByRecency(t *testing.T) {
	older := chat("same", 1, 0)
	newer := chat("same", 9, 0)
	got := SortChats([]*models.ChatRecord{older, newer}, SortNameAsc)
	assert.Same(t, newer, got[0])
	assert.Same(t, older, got[1])
}

func TestSortChatsTime(t *testing.T) {
	in := []*models.ChatRecord{chat("b", 100, 0), chat("a", 300, 0), chat("c", 200, 0)}
	assert.Equal(t, []string{"a", "c", "b"}, names(SortChats(in, SortTimeDesc)))
	assert.Equal(t, []string{"b", "c", "a"}, names(SortChats(in, SortTimeAsc)))
}

func TestSortChatsTimeTieBreaksByName(t *testing.T) {
	in := []*models.ChatRecord{chat("b", 100, 0), chat("a", 100, 0)}
	assert.Equal(t, []string{"a", "b"}, names(SortChats(in, SortTimeDesc)))
	assert.Equal(t, []string{"a", "b"}, names(SortChats(in, SortTimeAsc)))
}

func TestSortChatsTimeFallsBackToRawValue(t *testing.T) {
	raw := models.NewChatRecord("raw")
	raw.LastMessageRaw = "2030-1-2@15h04m05s"
	unknown := models.NewChatRecord("unknown")
	unknown.LastMessageRaw = "not a date"

	got := SortChats([]*models.ChatRecord{unknown, chat("known", 1000, 0), raw}, SortTimeDesc)
	assert.Equal(t, []string{"raw", "known", "unknown"}, names(got))
}

func TestSortChatsMessages(t *testing.T) {
	in := []*models.ChatRecord{chat("a", 1, 5), chat("b", 2, 50), chat("c", 3, 5), chat("d", 4, -3)}
	assert.Equal(t, []string{"b", "c", "a", "d"}, names(SortChats(in, SortMessagesDesc)))
	assert.Equal(t, []string{"d", "c", "a", "b"}, names(SortChats(in, SortMessagesAsc)))
}

func TestSortChatsUnknownOrderIsTimeDesc(t *testing.T) {
	in := []*models.ChatRecord{chat("a", 1, 0), chat("b", 2, 0)}
	assert.Equal(t, []string{"b", "a"}, names(SortChats(in, SortOrder("bogus"))))
}

func TestSortChatsLeavesInputUntouched(t *testing.T) {
	in := []*models.ChatRecord{chat("b", 1, 0), chat("a", 2, 0), nil}
	got := SortChats(in, SortNameAsc)
	assert.Equal(t, "b", in[0].FileName)
	assert.Equal(t, "a", in[1].FileName)
	assert.Len(t, got, 2)
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder(" Name-Asc ")
	require.NoError(t, err)
	assert.Equal(t, SortNameAsc, o)

	o, err = ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, o)

	_, err = ParseSortOrder("size-desc")
	assert.Error(t, err)
}

func TestSortOrderNextCycles(t *testing.T) {
	seen := map[SortOrder]bool{}
	o := DefaultSort
	for range SortOrders() {
		seen[o] = true
		o = o.Next()
	}
	assert.Equal(t, DefaultSort, o)
	assert.Len(t, seen, len(SortOrders()))
}
