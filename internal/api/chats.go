package api

import "context"

type chatGetRequest struct {
	FileName  string `json:"file_name"`
	AvatarURL string `json:"avatar_url"`
	ChName    string `json:"ch_name,omitempty"`
}

type idRequest struct {
	ID string `json:"id"`
}

type searchRequest struct {
	Query     string  `json:"query"`
	AvatarURL *string `json:"avatar_url"`
	GroupID   *string `json:"group_id"`
}

type characterChatsRequest struct {
	AvatarURL string `json:"avatar_url"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetCharacterChat fetches a stored character chat. Index 0 of the returned
// array is the chat header with its metadata, messages follow.
func (c *Client) GetCharacterChat(ctx context.Context, avatarRef, displayName, fileName string) ([]byte, error) {
	return c.PostJSON(ctx, PathChatGet, chatGetRequest{
		FileName:  fileName,
		AvatarURL: avatarRef,
		ChName:    displayName,
	})
}

// GetGroupChat fetches a stored group chat: an array of messages.
func (c *Client) GetGroupChat(ctx context.Context, chatID string) ([]byte, error) {
	return c.PostJSON(ctx, PathGroupChatGet, idRequest{ID: chatID})
}

// SearchChats runs the host's ranked chat search for a character or group.
func (c *Client) SearchChats(ctx context.Context, query, avatarRef, groupID string) ([]byte, error) {
	return c.PostJSON(ctx, PathChatSearch, searchRequest{
		Query:     query,
		AvatarURL: optional(avatarRef),
		GroupID:   optional(groupID),
	})
}

// ListCharacterChats lists every stored chat of a character.
func (c *Client) ListCharacterChats(ctx context.Context, avatarRef string) ([]byte, error) {
	return c.PostJSON(ctx, PathCharacterChats, characterChatsRequest{AvatarURL: avatarRef})
}

// GroupChatInfo describes a single group chat file.
func (c *Client) GroupChatInfo(ctx context.Context, chatID string) ([]byte, error) {
	return c.PostJSON(ctx, PathGroupChatInfo, idRequest{ID: chatID})
}

// ListGroups returns every group object the host knows, including each
// group's chat ids and per-chat metadata.
func (c *Client) ListGroups(ctx context.Context) ([]byte, error) {
	return c.PostJSON(ctx, PathGroupsAll, struct{}{})
}
