// Package session persists conversations. Each owner gets a private sqlite
// database file; sessions are identified by chat id and materialize on first
// append rather than being created as rows.
package session

import "time"

// Message roles. Only end-user and assistant turns are persisted.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one persisted conversation turn.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// SessionInfo describes one conversation in a listing. It is derived from
// the messages at read time; there is no separate sessions table.
type SessionInfo struct {
	ChatID    string
	Title     string
	CreatedAt time.Time
}
