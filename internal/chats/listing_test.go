package chats

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/chat-history/internal/api"
	"github.com/strrl/chat-history/pkg/models"
)

func hostServer(t *testing.T, routes map[string]func(body map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		status, resp := route(body)
		w.WriteHeader(status)
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPListerCharacter(t *testing.T) {
	srv := hostServer(t, map[string]func(map[string]any) (int, string){
		api.PathCharacterChats: func(body map[string]any) (int, string) {
			assert.Equal(t, "seven.png", body["avatar_url"])
			return 200, `{"0":{"file_name":"a.jsonl","chat_items":2,"mes":"hi","last_mes":1700000000000},"1":{"file_name":"B.jsonl","chat_items":"7"}}`
		},
	})

	l := NewHTTPLister(api.NewClient(srv.URL, time.Second), nil)
	records, err := l.ListChats(context.Background(), sevenScope)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.ElementsMatch(t, []string{"a", "B"}, names(records))
}

func TestHTTPListerCharacterFailure(t *testing.T) {
	srv := hostServer(t, map[string]func(map[string]any) (int, string){
		api.PathCharacterChats: func(map[string]any) (int, string) { return 500, "boom" },
	})

	l := NewHTTPLister(api.NewClient(srv.URL, time.Second), nil)
	_, err := l.ListChats(context.Background(), sevenScope)
	var he *api.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 500, he.Status)
}

func TestHTTPListerCharacterHostError(t *testing.T) {
	srv := hostServer(t, map[string]func(map[string]any) (int, string){
		api.PathCharacterChats: func(map[string]any) (int, string) { return 200, `{"error":true}` },
	})

	l := NewHTTPLister(api.NewClient(srv.URL, time.Second), nil)
	_, err := l.ListChats(context.Background(), sevenScope)
	assert.Error(t, err)
}

func TestHTTPListerGroupSoftFailsPerChat(t *testing.T) {
	srv := hostServer(t, map[string]func(map[string]any) (int, string){
		api.PathGroupChatInfo: func(body map[string]any) (int, string) {
			switch body["id"] {
			case "party":
				return 200, `{"file_name":"party.jsonl","chat_items":12,"mes":"cheers"}`
			default:
				return 500, "nope"
			}
		},
	})

	groups := NewGroupStore()
	groups.Put(&models.Group{ID: "g1", Chats: []string{"party", "broken", " "}})

	l := NewHTTPLister(api.NewClient(srv.URL, time.Second), groups)
	records, err := l.ListChats(context.Background(), models.GroupScope("g1"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "party", records[0].FileName)
	assert.Equal(t, 12, records[0].MessageCount)
	assert.Equal(t, "broken", records[1].FileName)
	assert.Zero(t, records[1].MessageCount)
}

func TestHTTPListerUnknownGroupIsEmpty(t *testing.T) {
	l := NewHTTPLister(api.NewClient("http://127.0.0.1:1", time.Second), NewGroupStore())
	records, err := l.ListChats(context.Background(), models.GroupScope("missing"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGroupStoreRefresh(t *testing.T) {
	srv := hostServer(t, map[string]func(map[string]any) (int, string){
		api.PathGroupsAll: func(map[string]any) (int, string) {
			return 200, `[
				{"id":"g1","name":"Party","chats":["one","two"],"chat_id":"two",
				 "chat_metadata":{"custom_background":"url(\"backgrounds/two.png\")"},
				 "past_metadata":{"one":{"chat_backgrounds":["a.png","b.png"],"create_date":"2024-01-02T03:04:05Z"}}},
				{"name":"no id"}
			]`
		},
	})

	s := NewGroupStore()
	s.Put(&models.Group{ID: "stale"})
	require.NoError(t, s.Refresh(context.Background(), api.NewClient(srv.URL, time.Second)))

	assert.Equal(t, 1, s.Len())
	_, ok := s.Group("stale")
	assert.False(t, ok)

	g, ok := s.Group("g1")
	require.True(t, ok)
	assert.Equal(t, "Party", g.Name)
	assert.Equal(t, []string{"one", "two"}, g.Chats)

	md, ok := g.Metadata("ONE.jsonl")
	require.True(t, ok)
	assert.Equal(t, []string{"a.png", "b.png"}, md.ChatBackgrounds)
	assert.Equal(t, "2024-01-02T03:04:05Z", md.CreateDate)

	md, ok = g.Metadata("two")
	require.True(t, ok)
	assert.Equal(t, `url("backgrounds/two.png")`, md.CustomBackground)

	s.Delete("g1")
	assert.Equal(t, 0, s.Len())
}

func TestGroupStoreRefreshFailureKeepsContent(t *testing.T) {
	srv := hostServer(t, map[string]func(map[string]any) (int, string){
		api.PathGroupsAll: func(map[string]any) (int, string) { return 200, `{"oops":1}` },
	})

	s := NewGroupStore()
	s.Put(&models.Group{ID: "kept"})
	assert.Error(t, s.Refresh(context.Background(), api.NewClient(srv.URL, time.Second)))
	_, ok := s.Group("kept")
	assert.True(t, ok)
}
