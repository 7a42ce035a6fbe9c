// Package engine runs one conversational turn: retrieve, summarize, budget,
// assemble, generate, persist.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
	"github.com/edvisor-fi/edvisor/internal/llm"
	"github.com/edvisor-fi/edvisor/internal/log"
	"github.com/edvisor-fi/edvisor/internal/prompt"
	"github.com/edvisor-fi/edvisor/internal/session"
)

// ErrEmptyMessage indicates a turn with no user content after trimming.
var ErrEmptyMessage = errors.New("empty message")

// Retriever finds passages relevant to the user's message. A k of zero asks
// for the retriever's default.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, filter map[string]string) ([]knowledge.RetrievalResult, error)
}

// Summarizer condenses the session history so far.
type Summarizer interface {
	Summarize(ctx context.Context, owner, chatID string) (string, error)
}

// Conversations is the persistence the engine needs, satisfied by
// *session.Store.
type Conversations interface {
	CreateSession(owner string) (string, error)
	Append(ctx context.Context, owner, chatID, role, content string) error
}

// Config carries the engine's prompt settings.
type Config struct {
	SystemPrompt     string
	MaxContextTokens int
}

// Turn is the outcome of one Respond call.
type Turn struct {
	ChatID   string
	Reply    string
	Passages []knowledge.Passage // passages that made it into the prompt
}

// Engine orchestrates one synchronous turn per Respond call. Retrieval and
// summarization failures degrade to an empty context so the bot still
// answers; generation failure aborts the turn and persists nothing.
type Engine struct {
	retriever  Retriever
	summarizer Summarizer
	store      Conversations
	budgeter   *prompt.Budgeter
	generator  llm.Generator
	cfg        Config
	logger     log.Logger
}

// New creates an Engine.
func New(retriever Retriever, summarizer Summarizer, store Conversations, budgeter *prompt.Budgeter, generator llm.Generator, cfg Config, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		retriever:  retriever,
		summarizer: summarizer,
		store:      store,
		budgeter:   budgeter,
		generator:  generator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Respond answers one user message. An empty chatID starts a new session;
// the returned Turn carries the id either way. The user and assistant
// messages are appended only after generation succeeds, so a failed turn
// leaves the history untouched.
func (e *Engine) Respond(ctx context.Context, owner, chatID, message string) (Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Turn{}, ErrEmptyMessage
	}

	if chatID == "" {
		id, err := e.store.CreateSession(owner)
		if err != nil {
			return Turn{}, fmt.Errorf("failed to create session: %w", err)
		}
		chatID = id
	}

	var (
		results []knowledge.RetrievalResult
		summary string
	)
	if prompt.IsGreeting(message) {
		e.logger.Debug("greeting detected, skipping retrieval", "chat_id", chatID)
	} else {
		var err error
		results, err = e.retriever.Retrieve(ctx, message, 0, nil)
		if err != nil {
			e.logger.Warn("retrieval failed, answering without passages", "chat_id", chatID, "error", err)
			results = nil
		}

		summary, err = e.summarizer.Summarize(ctx, owner, chatID)
		if err != nil {
			e.logger.Warn("summarization failed, answering without summary", "chat_id", chatID, "error", err)
			summary = ""
		}
	}

	bundle, err := e.budgeter.BuildContext(e.cfg.SystemPrompt, summary, results, message, e.cfg.MaxContextTokens)
	if err != nil {
		return Turn{}, fmt.Errorf("failed to build context: %w", err)
	}

	raw, err := e.generator.Generate(ctx, prompt.Assemble(bundle))
	if err != nil {
		return Turn{}, fmt.Errorf("failed to generate reply: %w", err)
	}
	reply := prompt.ParseReply(raw)

	if err := e.store.Append(ctx, owner, chatID, session.RoleUser, message); err != nil {
		return Turn{}, fmt.Errorf("failed to persist user message: %w", err)
	}
	if err := e.store.Append(ctx, owner, chatID, session.RoleAssistant, reply); err != nil {
		return Turn{}, fmt.Errorf("failed to persist reply: %w", err)
	}

	e.logger.Info("turn completed",
		"chat_id", chatID,
		"passages", len(bundle.Passages),
		"context_tokens", bundle.Tokens,
	)
	return Turn{ChatID: chatID, Reply: reply, Passages: bundle.Passages}, nil
}
