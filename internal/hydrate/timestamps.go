package hydrate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// messageTimeFields are probed in order on the first stored message.
var messageTimeFields = []string{"send_date", "create_date", "created_at", "timestamp", "gen_started"}

// humanized matches the host's file-name style dates, e.g.
// 2024-1-2@15h04m05s and 2024-1-2 @15h 04m 05s 678ms.
var humanized = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s*@\s*(\d{1,2})h\s*(\d{1,2})m\s*(\d{1,2})s(?:\s*(\d{1,3})ms)?$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006 3:04pm",
	"January 2, 2006 3:04 pm",
	"Jan 2, 2006 3:04pm",
	"2006-01-02",
}

// maxEpochMillis rejects numbers no real chat date reaches (year ~33658);
// larger values overflow int64 once scaled.
const maxEpochMillis = 1e15

// parseTimestamp reads a numeric or string timestamp. Numbers below 1e11
// are taken as seconds. raw is the original string, empty for numbers.
func parseTimestamp(v gjson.Result) (ms int64, raw string, ok bool) {
	switch v.Type {
	case gjson.Number:
		return fromEpoch(v.Float())
	case gjson.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return 0, "", false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f)
		}
		t, ok := parseDateString(s)
		if !ok {
			return 0, "", false
		}
		return t.UnixMilli(), s, true
	default:
		return 0, "", false
	}
}

func fromEpoch(f float64) (int64, string, bool) {
	if !(f > 0) {
		return 0, "", false
	}
	if f < 1e11 {
		f *= 1000
	}
	if f > maxEpochMillis {
		return 0, "", false
	}
	return int64(f), "", true
}

func parseDateString(s string) (time.Time, bool) {
	if m := humanized.FindStringSubmatch(s); m != nil {
		n := make([]int, 7)
		for i := 1; i <= 7; i++ {
			if m[i] == "" {
				continue
			}
			n[i-1], _ = strconv.Atoi(m[i])
		}
		return time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], n[6]*int(time.Millisecond), time.Local), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseChatTime parses a listing timestamp the same way creation dates are
// parsed. Used as the sort fallback when a record has no parsed time.
func ParseChatTime(s string) (time.Time, bool) {
	ms, _, ok := parseTimestamp(stringValue(s))
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func stringValue(s string) gjson.Result {
	return gjson.Result{Type: gjson.String, Str: s}
}

// scanMessageTime returns the first parseable timestamp of msg.
func scanMessageTime(msg gjson.Result) (int64, string, bool) {
	if !msg.IsObject() {
		return 0, "", false
	}
	for _, field := range messageTimeFields {
		v := msg.Get(field)
		if !v.Exists() {
			continue
		}
		if ms, raw, ok := parseTimestamp(v); ok {
			return ms, raw, true
		}
	}
	return 0, "", false
}

func isoFromMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
