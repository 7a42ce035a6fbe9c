package cmd

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/edvisor-fi/edvisor/internal/config"
	"github.com/edvisor-fi/edvisor/internal/engine"
	"github.com/edvisor-fi/edvisor/internal/index"
	"github.com/edvisor-fi/edvisor/internal/knowledge"
	"github.com/edvisor-fi/edvisor/internal/llm"
	"github.com/edvisor-fi/edvisor/internal/log"
	"github.com/edvisor-fi/edvisor/internal/memory"
	"github.com/edvisor-fi/edvisor/internal/prompt"
	"github.com/edvisor-fi/edvisor/internal/rag"
	"github.com/edvisor-fi/edvisor/internal/session"
)

// indexName is the collection family the passage index lives under.
const indexName = "passages"

// app holds the wired application graph shared by the commands.
type app struct {
	cfg    *config.Config
	logger log.Logger

	gemini *llm.Gemini
	index  *index.Index
	store  *session.Store
	engine *engine.Engine
}

// newApp loads config and wires every component. The Gemini API key comes
// from the environment only.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	logger := newLogger()

	apiKey := config.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY", config.ErrMissingAPIKey)
	}

	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:         apiKey,
		Model:          cfg.ModelName,
		EmbeddingModel: cfg.EmbeddingModel,
		MaxNewTokens:   cfg.MaxNewTokens,
	}, logger.With("component", "llm"))
	if err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(cfg.IndexDir(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	ix, err := index.New(db, indexName, gemini.EmbeddingFunc(), logger.With("component", "index"))
	if err != nil {
		return nil, err
	}

	store := session.NewStore(cfg.ConversationsDir(), logger.With("component", "session"))

	counter, err := prompt.NewTiktokenCounter(cfg.TokenizerEncoding)
	if err != nil {
		return nil, err
	}

	retriever := rag.NewRetriever(ix, cfg.RetrievalK, logger.With("component", "retriever"))
	summarizer := memory.NewSummarizer(store, gemini, logger.With("component", "memory"))

	eng := engine.New(retriever, summarizer, store, prompt.NewBudgeter(counter), gemini,
		engine.Config{
			SystemPrompt:     cfg.SystemPrompt,
			MaxContextTokens: cfg.MaxContextTokens,
		},
		logger.With("component", "engine"),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		gemini: gemini,
		index:  ix,
		store:  store,
		engine: eng,
	}, nil
}

// indexer builds the ingestion pipeline on the wired index.
func (a *app) indexer() *rag.Indexer {
	chunker := knowledge.NewChunker(knowledge.ChunkerConfig{
		ChunkSize:    a.cfg.ChunkSize,
		ChunkOverlap: a.cfg.ChunkOverlap,
	})
	return rag.NewIndexer(chunker, a.index, a.logger.With("component", "indexer"))
}

// Close releases held resources.
func (a *app) Close() error {
	return a.store.Close()
}
