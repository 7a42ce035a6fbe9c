package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/edvisor-fi/edvisor/internal/log"
)

const testOwner = "student@example.com"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir(), log.NewNop())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chatID, err := s.CreateSession(testOwner)
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	if err := s.Append(ctx, testOwner, chatID, RoleUser, "Do I need a visa?"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := s.Append(ctx, testOwner, chatID, RoleAssistant, "Yes, for stays over 90 days."); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	history, err := s.History(ctx, testOwner, chatID)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d messages, want 2", len(history))
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Errorf("history order wrong: %+v", history)
	}
	if history[0].CreatedAt.IsZero() {
		t.Error("message has no server timestamp")
	}
}

func TestHistory_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	history, err := s.History(context.Background(), testOwner, "no-such-chat")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("got %d messages for unknown session, want 0", len(history))
	}
}

func TestAppend_InvalidRole(t *testing.T) {
	s := newTestStore(t)

	err := s.Append(context.Background(), testOwner, "chat", "system", "nope")
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("error = %v, want ErrInvalidRole", err)
	}
}

func TestAppend_AutoCreatesSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// No CreateSession call; the id is new to the store.
	if err := s.Append(ctx, testOwner, "adopted-chat", RoleUser, "hello"); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	history, err := s.History(ctx, testOwner, "adopted-chat")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d messages, want 1", len(history))
	}
}

func TestDeleteSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chatID, _ := s.CreateSession(testOwner)
	if err := s.Append(ctx, testOwner, chatID, RoleUser, "hello"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSession(ctx, testOwner, chatID); err != nil {
		t.Fatalf("DeleteSession() error: %v", err)
	}
	if err := s.DeleteSession(ctx, testOwner, chatID); err != nil {
		t.Fatalf("second DeleteSession() error: %v", err)
	}

	history, err := s.History(ctx, testOwner, chatID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("history survived deletion: %+v", history)
	}
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, _ := s.CreateSession(testOwner)
	if err := s.Append(ctx, testOwner, first, RoleUser, "What are the tuition fees at the University of Helsinki?"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(5 * time.Millisecond) // distinct created_at for ordering

	second, _ := s.CreateSession(testOwner)
	if err := s.Append(ctx, testOwner, second, RoleAssistant, "Hello! How can I help?"); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.ListSessions(ctx, testOwner)
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}

	// Newest first: second was appended after first.
	if sessions[0].ChatID != second {
		t.Errorf("sessions not sorted newest first: %+v", sessions)
	}

	// No user message yet means the default title.
	if sessions[0].Title != "New Chat" {
		t.Errorf("title = %q, want New Chat", sessions[0].Title)
	}

	// Title is the first user message cut to a preview.
	want := "What are the tuition fees at t..."
	if sessions[1].Title != want {
		t.Errorf("title = %q, want %q", sessions[1].Title, want)
	}
}

func TestSessionTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "short message verbatim",
			in:   "Hi",
			want: "Hi",
		},
		{
			name: "exactly thirty runes verbatim",
			in:   strings.Repeat("a", 30),
			want: strings.Repeat("a", 30),
		},
		{
			name: "thirty-one runes truncated",
			in:   strings.Repeat("a", 31),
			want: strings.Repeat("a", 30) + "...",
		},
		{
			name: "long question truncated",
			in:   "Can I study in Finland without IELTS?",
			want: "Can I study in Finland without...",
		},
		{
			name: "surrounding whitespace trimmed first",
			in:   "  Hi there  ",
			want: "Hi there",
		},
		{
			name: "multibyte runes counted as runes",
			in:   strings.Repeat("ä", 31),
			want: strings.Repeat("ä", 30) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sessionTitle(tt.in); got != tt.want {
				t.Errorf("sessionTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestListSessions_ShortTitleKeptVerbatim(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chatID, _ := s.CreateSession(testOwner)
	if err := s.Append(ctx, testOwner, chatID, RoleUser, "Hi"); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.ListSessions(ctx, testOwner)
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].Title != "Hi" {
		t.Errorf("title = %q, want %q", sessions[0].Title, "Hi")
	}
}

func TestListSessions_Empty(t *testing.T) {
	s := newTestStore(t)

	sessions, err := s.ListSessions(context.Background(), testOwner)
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions, want 0", len(sessions))
	}
}

func TestOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewStore(dir, log.NewNop())
	defer s.Close()

	chatID, _ := s.CreateSession("alice@example.com")
	if err := s.Append(ctx, "alice@example.com", chatID, RoleUser, "secret question"); err != nil {
		t.Fatal(err)
	}

	// Same chat id under another owner sees nothing.
	history, err := s.History(ctx, "bob@example.com", chatID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("cross-owner read returned %d messages", len(history))
	}

	// One database file per owner, names not derived from the raw address.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var dbs int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".db") {
			dbs++
			if strings.Contains(e.Name(), "alice") || strings.Contains(e.Name(), "bob") {
				t.Errorf("owner identity leaked into filename %q", e.Name())
			}
		}
	}
	if dbs != 2 {
		t.Errorf("got %d owner databases, want 2", dbs)
	}
}

func TestOwnerKeyCanonicalization(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chatID, _ := s.CreateSession("Alice@Example.com ")
	if err := s.Append(ctx, "Alice@Example.com ", chatID, RoleUser, "hello"); err != nil {
		t.Fatal(err)
	}

	history, err := s.History(ctx, "alice@example.com", chatID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("canonicalized owner sees %d messages, want 1", len(history))
	}
}

func TestInvalidOwner(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateSession("   "); !errors.Is(err, ErrInvalidOwner) {
		t.Errorf("CreateSession error = %v, want ErrInvalidOwner", err)
	}
	if err := s.Append(context.Background(), "", "chat", RoleUser, "hi"); !errors.Is(err, ErrInvalidOwner) {
		t.Errorf("Append error = %v, want ErrInvalidOwner", err)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now.Add(-30 * time.Second), "Just now"},
		{"minutes", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"one minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"hours", now.Add(-3 * time.Hour), "3 hours ago"},
		{"yesterday", now.Add(-30 * time.Hour), "Yesterday"},
		{"days", now.Add(-4 * 24 * time.Hour), "4 days ago"},
		{"weeks", now.Add(-16 * 24 * time.Hour), "2 weeks ago"},
		{"months", now.Add(-70 * 24 * time.Hour), "2 months ago"},
		{"years", now.Add(-800 * 24 * time.Hour), "2 years ago"},
		{"future clock skew", now.Add(time.Minute), "Just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTime(tt.t, now); got != tt.want {
				t.Errorf("RelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}
