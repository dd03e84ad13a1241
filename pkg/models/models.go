package models

import (
	"strings"
	"sync"
	"time"
)

// ScopeType identifies whose chats are being listed
type ScopeType string

const (
	ScopeCharacter ScopeType = "character"
	ScopeGroup     ScopeType = "group"
	ScopeNone      ScopeType = "none"
)

// Scope is the character or group whose chats are listed
type Scope struct {
	Type        ScopeType
	ID          string
	AvatarRef   string // character avatar file, e.g. "alice.png"
	DisplayName string
}

// CharacterScope builds a character scope
func CharacterScope(id, avatarRef, displayName string) Scope {
	return Scope{Type: ScopeCharacter, ID: id, AvatarRef: avatarRef, DisplayName: displayName}
}

// GroupScope builds a group scope
func GroupScope(id string) Scope {
	return Scope{Type: ScopeGroup, ID: id}
}

// NoScope is the empty scope
func NoScope() Scope {
	return Scope{Type: ScopeNone}
}

// IsNone reports whether there is nothing to list
func (s Scope) IsNone() bool {
	return s.Type == "" || s.Type == ScopeNone
}

// CacheKey returns the composite key for a chat under this scope
func (s Scope) CacheKey(fileName string) string {
	id := s.ID
	if id == "" {
		id = "na"
	}
	typ := s.Type
	if typ == "" {
		typ = ScopeNone
	}
	return string(typ) + ":" + id + ":" + strings.ToLower(NormalizeFileName(fileName))
}

func (s Scope) String() string {
	if s.IsNone() {
		return "none"
	}
	return string(s.Type) + ":" + s.ID
}

// NormalizeFileName canonicalizes a chat file name: surrounding space
// trimmed and a trailing .jsonl removed. Case is preserved; comparisons
// go through Key.
func NormalizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= len(".jsonl") && strings.EqualFold(name[len(name)-len(".jsonl"):], ".jsonl") {
		name = name[:len(name)-len(".jsonl")]
	}
	return name
}

// ChatKey is the lower-cased canonical form used for lookups
func ChatKey(name string) string {
	return strings.ToLower(NormalizeFileName(name))
}

// PreviewEntry is a renderable chat background
type PreviewEntry struct {
	CSSImage    string
	PreviewURL  string
	OriginalURL string
	Source      string // custom_background, chat_backgrounds or group
}

// CreationEntry is the resolved creation time of a chat
type CreationEntry struct {
	Timestamp *int64 // unix milliseconds
	Raw       string
	Source    ScopeType
}

// ChatRecord is one saved chat session
type ChatRecord struct {
	FileName           string
	LastMessageAt      *time.Time
	LastMessageRaw     string
	LastMessagePreview string
	MessageCount       int
	FileSizeLabel      string

	mu           sync.RWMutex
	preview      *PreviewEntry
	createdAt    *time.Time
	createdAtRaw string
}

// NewChatRecord builds a record with a canonical file name
func NewChatRecord(fileName string) *ChatRecord {
	return &ChatRecord{FileName: NormalizeFileName(fileName)}
}

// Key returns the lower-cased file name
func (r *ChatRecord) Key() string {
	return strings.ToLower(r.FileName)
}

// Preview returns the hydrated background, nil until known
func (r *ChatRecord) Preview() *PreviewEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preview
}

// SetPreview applies a resolved background facet
func (r *ChatRecord) SetPreview(p *PreviewEntry) {
	r.mu.Lock()
	r.preview = p
	r.mu.Unlock()
}

// CreatedAt returns the hydrated creation time and its raw form
func (r *ChatRecord) CreatedAt() (*time.Time, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.createdAt, r.createdAtRaw
}

// SetCreation applies a resolved creation facet; nil clears it
func (r *ChatRecord) SetCreation(e *CreationEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e == nil {
		r.createdAt = nil
		r.createdAtRaw = ""
		return
	}
	r.createdAtRaw = e.Raw
	r.createdAt = nil
	if e.Timestamp != nil {
		t := time.UnixMilli(*e.Timestamp)
		r.createdAt = &t
	}
}

// ChatMetadata is what the host keeps in memory for one chat
type ChatMetadata struct {
	CustomBackground string
	ChatBackgrounds  []string
	CreateDate       string
}

// Group is the in-memory group object known to the host
type Group struct {
	ID           string
	Name         string
	Chats        []string
	ChatMetadata map[string]ChatMetadata
}

// Metadata looks up chat metadata by canonical, case-insensitive id
func (g *Group) Metadata(chatID string) (ChatMetadata, bool) {
	if g == nil || len(g.ChatMetadata) == 0 {
		return ChatMetadata{}, false
	}
	if md, ok := g.ChatMetadata[chatID]; ok {
		return md, true
	}
	key := ChatKey(chatID)
	for id, md := range g.ChatMetadata {
		if ChatKey(id) == key {
			return md, true
		}
	}
	return ChatMetadata{}, false
}
