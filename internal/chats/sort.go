// Package chats lists, searches, sorts and pages a scope's saved chats.
package chats

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/pkg/models"
)

// SortOrder names one of the supported list orderings.
type SortOrder string

const (
	SortNameAsc      SortOrder = "name-asc"
	SortNameDesc     SortOrder = "name-desc"
	SortTimeAsc      SortOrder = "time-asc"
	SortTimeDesc     SortOrder = "time-desc"
	SortMessagesAsc  SortOrder = "messages-asc"
	SortMessagesDesc SortOrder = "messages-desc"

	DefaultSort = SortTimeDesc
)

// SortOrders lists every order in display order.
func SortOrders() []SortOrder {
	return []SortOrder{SortTimeDesc, SortTimeAsc, SortNameAsc, SortNameDesc, SortMessagesDesc, SortMessagesAsc}
}

// ParseSortOrder validates user input.
func ParseSortOrder(s string) (SortOrder, error) {
	o := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	if o == "" {
		return DefaultSort, nil
	}
	if slices.Contains(SortOrders(), o) {
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Next cycles to the following order, used by the TUI sort key.
func (o SortOrder) Next() SortOrder {
	all := SortOrders()
	i := slices.Index(all, o)
	return all[(i+1)%len(all)]
}

type sortKey struct {
	rec     *models.ChatRecord
	recency int64
	count   int
}

// SortChats returns a sorted copy of records. Unknown orders sort as
// time-desc. The input slice is left untouched.
func SortChats(records []*models.ChatRecord, order SortOrder) []*models.ChatRecord {
	keys := make([]sortKey, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		count := r.MessageCount
		if count < 0 {
			count = 0
		}
		keys = append(keys, sortKey{rec: r, recency: recency(r), count: count})
	}

	// collators keep internal buffers, one per call
	col := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	byName := func(a, b sortKey) int {
		return col.CompareString(a.rec.FileName, b.rec.FileName)
	}
	byRecency := func(a, b sortKey) int {
		return cmpInt64(a.recency, b.recency)
	}
	byCount := func(a, b sortKey) int {
		return cmpInt64(int64(a.count), int64(b.count))
	}

	var cmp func(a, b sortKey) int
	switch order {
	case SortNameAsc:
		cmp = then(byName, desc(byRecency))
	case SortNameDesc:
		cmp = then(desc(byName), desc(byRecency))
	case SortTimeAsc:
		cmp = then(byRecency, byName)
	case SortMessagesAsc:
		cmp = then(byCount, desc(byRecency))
	case SortMessagesDesc:
		cmp = then(desc(byCount), desc(byRecency))
	default:
		cmp = then(desc(byRecency), byName)
	}
	slices.SortStableFunc(keys, cmp)

	out := make([]*models.ChatRecord, len(keys))
	for i, k := range keys {
		out[i] = k.rec
	}
	return out
}

// recency is the last message time in unix ms, 0 when unknown.
func recency(r *models.ChatRecord) int64 {
	if r.LastMessageAt != nil && !r.LastMessageAt.IsZero() {
		return r.LastMessageAt.UnixMilli()
	}
	if t, ok := hydrate.ParseChatTime(r.LastMessageRaw); ok {
		return t.UnixMilli()
	}
	return 0
}

func then(first, second func(a, b sortKey) int) func(a, b sortKey) int {
	return func(a, b sortKey) int {
		if c := first(a, b); c != 0 {
			return c
		}
		return second(a, b)
	}
}

func desc(f func(a, b sortKey) int) func(a, b sortKey) int {
	return func(a, b sortKey) int {
		return f(b, a)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
