package chats

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/pkg/models"
)

// GroupsAPI lists the host's group objects. *api.Client satisfies it.
type GroupsAPI interface {
	ListGroups(ctx context.Context) ([]byte, error)
}

// GroupStore is the in-memory copy of the host's groups. It is the
// GroupLookup the caches consult before going to the network.
type GroupStore struct {
	mu     sync.RWMutex
	groups map[string]*models.Group
}

var _ hydrate.GroupLookup = (*GroupStore)(nil)

// NewGroupStore creates an empty store.
func NewGroupStore() *GroupStore {
	return &GroupStore{groups: make(map[string]*models.Group)}
}

// Group returns the group with id.
func (s *GroupStore) Group(id string) (*models.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	return g, ok
}

// Put replaces the group with the same id.
func (s *GroupStore) Put(g *models.Group) {
	if g == nil || g.ID == "" {
		return
	}
	s.mu.Lock()
	s.groups[g.ID] = g
	s.mu.Unlock()
}

// Delete forgets a group.
func (s *GroupStore) Delete(id string) {
	s.mu.Lock()
	delete(s.groups, id)
	s.mu.Unlock()
}

// Len returns the number of known groups.
func (s *GroupStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// Refresh replaces the store's content with the host's current groups.
func (s *GroupStore) Refresh(ctx context.Context, a GroupsAPI) error {
	body, err := a.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("list groups: malformed response")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return fmt.Errorf("list groups: expected an array")
	}

	groups := make(map[string]*models.Group)
	for _, v := range root.Array() {
		if g := groupFromJSON(v); g != nil {
			groups[g.ID] = g
		}
	}
	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()
	return nil
}

// groupFromJSON reads a host group. Metadata of past chats lives under
// past_metadata; the active chat's metadata is chat_metadata.
func groupFromJSON(v gjson.Result) *models.Group {
	id := v.Get("id").String()
	if id == "" {
		return nil
	}
	g := &models.Group{
		ID:           id,
		Name:         v.Get("name").String(),
		ChatMetadata: make(map[string]models.ChatMetadata),
	}
	for _, c := range v.Get("chats").Array() {
		if c.String() != "" {
			g.Chats = append(g.Chats, c.String())
		}
	}
	v.Get("past_metadata").ForEach(func(k, md gjson.Result) bool {
		g.ChatMetadata[k.String()] = metadataFromJSON(md)
		return true
	})
	if active := v.Get("chat_id").String(); active != "" && v.Get("chat_metadata").IsObject() {
		g.ChatMetadata[active] = metadataFromJSON(v.Get("chat_metadata"))
	}
	return g
}

func metadataFromJSON(v gjson.Result) models.ChatMetadata {
	md := models.ChatMetadata{
		CustomBackground: v.Get("custom_background").String(),
		CreateDate:       v.Get("create_date").String(),
	}
	for _, bg := range v.Get("chat_backgrounds").Array() {
		md.ChatBackgrounds = append(md.ChatBackgrounds, bg.String())
	}
	return md
}
