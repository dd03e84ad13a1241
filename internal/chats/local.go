package chats

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/strrl/chat-history/internal/db"
	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/internal/logging"
	"github.com/strrl/chat-history/pkg/models"
)

// LocalLister reads chat files straight from the host's data directory.
// Character chats live in <root>/<avatar without extension>/*.jsonl and
// group chats in the sibling "group chats" directory.
type LocalLister struct {
	root   string
	groups hydrate.GroupLookup
	open   func() (*sql.DB, error)
	log    zerolog.Logger
}

var _ Lister = (*LocalLister)(nil)

// NewLocalLister creates a lister over root. groups may be nil.
func NewLocalLister(root string, groups hydrate.GroupLookup) *LocalLister {
	return &LocalLister{
		root:   root,
		groups: groups,
		open:   db.GetDB,
		log:    logging.Component("local-lister"),
	}
}

// CharacterDir returns the directory holding a character's chats.
func (l *LocalLister) CharacterDir(scope models.Scope) string {
	name := strings.TrimSuffix(scope.AvatarRef, filepath.Ext(scope.AvatarRef))
	if name == "" {
		name = scope.DisplayName
	}
	return filepath.Join(l.root, name)
}

// GroupDir returns the directory holding group chats.
func (l *LocalLister) GroupDir() string {
	return filepath.Join(filepath.Dir(l.root), "group chats")
}

// ListChats summarizes every chat file of the scope in one DuckDB query.
func (l *LocalLister) ListChats(ctx context.Context, scope models.Scope) ([]*models.ChatRecord, error) {
	var dir string
	var only map[string]bool
	switch scope.Type {
	case models.ScopeCharacter:
		dir = l.CharacterDir(scope)
	case models.ScopeGroup:
		if l.groups == nil {
			return nil, nil
		}
		g, ok := l.groups.Group(scope.ID)
		if !ok {
			return nil, nil
		}
		only = make(map[string]bool, len(g.Chats))
		for _, c := range g.Chats {
			only[models.ChatKey(c)] = true
		}
		dir = l.GroupDir()
	default:
		return nil, nil
	}

	glob := filepath.Join(dir, "*.jsonl")
	matches, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("invalid chat directory %q: %w", dir, err)
	}
	// read_json fails on an empty glob
	if len(matches) == 0 {
		return nil, nil
	}

	database, err := l.open()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			filename,
			COUNT(mes) AS message_count,
			last(CAST(send_date AS VARCHAR)) FILTER (WHERE mes IS NOT NULL) AS last_mes,
			last(CAST(mes AS VARCHAR)) FILTER (WHERE mes IS NOT NULL) AS preview
		FROM %s
		GROUP BY filename
	`, db.ReadJSONLines(glob))

	start := time.Now()
	rows, err := database.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute chat listing query: %w", err)
	}
	defer rows.Close()

	var records []*models.ChatRecord
	for rows.Next() {
		var path string
		var count int64
		var lastMes, preview sql.NullString
		if err := rows.Scan(&path, &count, &lastMes, &preview); err != nil {
			l.log.Debug().Err(err).Msg("skipping unreadable row")
			continue
		}

		rec := models.NewChatRecord(filepath.Base(path))
		if only != nil && !only[rec.Key()] {
			continue
		}
		rec.MessageCount = int(count)
		rec.LastMessagePreview = preview.String
		if lastMes.Valid {
			rec.LastMessageRaw = lastMes.String
			if t, ok := hydrate.ParseChatTime(lastMes.String); ok {
				rec.LastMessageAt = &t
			}
		}
		if info, err := os.Stat(path); err == nil {
			rec.FileSizeLabel = humanize.Bytes(uint64(info.Size()))
			if rec.LastMessageAt == nil {
				mod := info.ModTime()
				rec.LastMessageAt = &mod
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat listing: %w", err)
	}

	l.log.Debug().Str("dir", dir).Int("chats", len(records)).Dur("took", time.Since(start)).Msg("local listing done")
	return records, nil
}

// headLines is how much of a chat file the facet caches need: the header
// and the first message.
const headLines = 2

var _ hydrate.ChatFetcher = (*LocalLister)(nil)

// GetCharacterChat returns the head of a character chat file as a JSON
// array, the shape the host's chat endpoint answers with.
func (l *LocalLister) GetCharacterChat(ctx context.Context, avatarRef, displayName, fileName string) ([]byte, error) {
	dir := l.CharacterDir(models.CharacterScope("", avatarRef, displayName))
	return readHead(dir, fileName)
}

// GetGroupChat returns the head of a group chat file.
func (l *LocalLister) GetGroupChat(ctx context.Context, chatID string) ([]byte, error) {
	return readHead(l.GroupDir(), chatID)
}

func readHead(dir, name string) ([]byte, error) {
	name = models.NormalizeFileName(name)
	if name == "" || name != filepath.Base(name) || name == ".." {
		return nil, fmt.Errorf("invalid chat file name %q", name)
	}
	f, err := os.Open(filepath.Join(dir, name+".jsonl"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n < headLines && scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(line)
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
