// Package memory condenses conversation history into a short summary that
// fits the prompt budget better than raw turns.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/edvisor-fi/edvisor/internal/llm"
	"github.com/edvisor-fi/edvisor/internal/log"
	"github.com/edvisor-fi/edvisor/internal/session"
)

// HistoryLoader provides the ordered history of one session, satisfied by
// *session.Store.
type HistoryLoader interface {
	History(ctx context.Context, owner, chatID string) ([]session.Message, error)
}

// summaryInstruction asks the model for a compact, factual recap. The
// summary feeds back into the next prompt, so it must stay short and free of
// role markers.
const summaryInstruction = "Summarize the following conversation between a student and an advisor " +
	"in a few sentences. Keep concrete facts the student mentioned (countries, programs, dates, amounts) " +
	"and the advice already given. Reply with the summary only.\n\nConversation:\n"

// Summarizer turns a session's history into a summary via the Generator.
// Summaries are recomputed per turn, never cached or persisted: the history
// itself stays the single source of truth.
type Summarizer struct {
	history   HistoryLoader
	generator llm.Generator
	logger    log.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(history HistoryLoader, generator llm.Generator, logger log.Logger) *Summarizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Summarizer{history: history, generator: generator, logger: logger}
}

// Summarize returns a summary of the session so far. A session with no
// messages yields an empty summary and no error; the model's output is
// returned verbatim otherwise.
func (s *Summarizer) Summarize(ctx context.Context, owner, chatID string) (string, error) {
	history, err := s.history.History(ctx, owner, chatID)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) == 0 {
		return "", nil
	}

	summary, err := s.generator.Generate(ctx, summaryInstruction+Transcript(history))
	if err != nil {
		return "", fmt.Errorf("failed to summarize conversation: %w", err)
	}

	s.logger.Debug("conversation summarized", "chat_id", chatID, "turns", len(history))
	return summary, nil
}

// Transcript renders history as plain "User:"/"Assistant:" lines.
func Transcript(history []session.Message) string {
	var b strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case session.RoleUser:
			b.WriteString("User: ")
		case session.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}
