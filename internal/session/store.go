package session

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edvisor-fi/edvisor/internal/database"
	"github.com/edvisor-fi/edvisor/internal/log"
)

// titleRunes is how much of the first user message becomes the session title.
const titleRunes = 30

// defaultTitle names sessions that have no user message yet.
const defaultTitle = "New Chat"

// Store persists conversations, one sqlite database file per owner. The
// per-owner split keeps conversations isolated without WHERE-clause
// discipline and makes the data dir safe to copy as a whole for backups.
type Store struct {
	dir    string
	logger log.Logger

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewStore creates a Store keeping its databases under dir. Databases are
// opened lazily on first use per owner.
func NewStore(dir string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		dbs:    make(map[string]*sql.DB),
	}
}

// ownerKey canonicalizes an owner identity. Owners are typically email
// addresses; case and surrounding whitespace must not split one user's
// history across files.
func ownerKey(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}

// ownerFile derives the database filename from the owner key. Hashing keeps
// arbitrary identities filesystem-safe and avoids leaking addresses in
// directory listings.
func ownerFile(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "owner_" + hex.EncodeToString(sum[:8]) + ".db"
}

// ownerDB opens (creating if needed) the owner's database. Read paths share
// it too: a never-seen owner gets an empty database file on first read. That
// keeps the open/migrate logic in one place; the stray file is harmless and
// will be reused the moment the owner writes.
func (s *Store) ownerDB(owner string) (*sql.DB, error) {
	key := ownerKey(owner)
	if key == "" {
		return nil, ErrInvalidOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[key]; ok {
		return db, nil
	}

	db, err := database.Open(filepath.Join(s.dir, ownerFile(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation database: %w", err)
	}
	s.dbs[key] = db
	return db, nil
}

// CreateSession returns a fresh chat id for owner. Nothing is written; the
// session exists once its first message is appended.
func (s *Store) CreateSession(owner string) (string, error) {
	if ownerKey(owner) == "" {
		return "", ErrInvalidOwner
	}
	return uuid.NewString(), nil
}

// Append stores one message with a server-assigned timestamp. Appending to
// an unknown chat id creates the session implicitly.
func (s *Store) Append(ctx context.Context, owner, chatID, role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	db, err := s.ownerDB(owner)
	if err != nil {
		return err
	}

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		chatID, role, content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	s.logger.Debug("message appended", "chat_id", chatID, "role", role)
	return nil
}

// History returns the messages of one session in append order. An unknown
// chat id yields an empty history, not an error.
func (s *Store) History(ctx context.Context, owner, chatID string) ([]Message, error) {
	db, err := s.ownerDB(owner)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages WHERE chat_id = ? ORDER BY id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var history []Message
	for rows.Next() {
		var msg Message
		var createdAt string
		if err := rows.Scan(&msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			s.logger.Warn("unparseable message timestamp", "chat_id", chatID, "created_at", createdAt, "error", err)
		}
		history = append(history, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return history, nil
}

// DeleteSession removes every message of the session. Deleting a session
// that does not exist is a no-op.
func (s *Store) DeleteSession(ctx context.Context, owner, chatID string) error {
	db, err := s.ownerDB(owner)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Debug("session deleted", "chat_id", chatID)
	return nil
}

// ListSessions derives the owner's sessions from their messages. The title
// is the first user message cut to a preview length; sessions with no user
// message yet are listed as "New Chat". Newest session first.
func (s *Store) ListSessions(ctx context.Context, owner string) ([]SessionInfo, error) {
	db, err := s.ownerDB(owner)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT chat_id, role, content, created_at FROM messages ORDER BY chat_id, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	type agg struct {
		title     string
		createdAt time.Time
	}
	byChat := make(map[string]*agg)
	var order []string

	for rows.Next() {
		var chatID, role, content, createdAt string
		if err := rows.Scan(&chatID, &role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		a, ok := byChat[chatID]
		if !ok {
			a = &agg{}
			a.createdAt, err = time.Parse(time.RFC3339Nano, createdAt)
			if err != nil {
				s.logger.Warn("unparseable message timestamp", "chat_id", chatID, "created_at", createdAt, "error", err)
			}
			byChat[chatID] = a
			order = append(order, chatID)
		}
		if a.title == "" && role == RoleUser {
			a.title = sessionTitle(content)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(order))
	for _, chatID := range order {
		a := byChat[chatID]
		title := a.title
		if title == "" {
			title = defaultTitle
		}
		sessions = append(sessions, SessionInfo{ChatID: chatID, Title: title, CreatedAt: a.createdAt})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ChatID < sessions[j].ChatID
	})
	return sessions, nil
}

// Close closes every open owner database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, key)
	}
	return firstErr
}

// sessionTitle previews the first user message as a listing title. The
// ellipsis marks an actual cut; messages within the preview length come back
// verbatim.
func sessionTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > titleRunes {
		return string(runes[:titleRunes]) + "..."
	}
	return string(runes)
}
