package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/edvisor-fi/edvisor/internal/log"
)

// DefaultRequestsPerMinute matches the free-tier quota of the Gemini API.
// Waiting proactively beats retrying 429s.
const DefaultRequestsPerMinute = 15

// GeminiConfig configures the Gemini-backed generator and embedder.
type GeminiConfig struct {
	APIKey            string
	Model             string
	EmbeddingModel    string
	MaxNewTokens      int
	RequestsPerMinute int
}

// Gemini implements Generator on the Gemini API and also provides the
// embedding function used by the passage index.
type Gemini struct {
	client       *genai.Client
	model        string
	embedModel   string
	maxNewTokens int
	limiter      *rate.Limiter
	logger       log.Logger
}

// NewGemini creates a Gemini client. Generation and embedding calls share
// one rate limiter since they draw from the same quota.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger log.Logger) (*Gemini, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}

	return &Gemini{
		client:       client,
		model:        cfg.Model,
		embedModel:   cfg.EmbeddingModel,
		maxNewTokens: cfg.MaxNewTokens,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:       logger,
	}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	var config *genai.GenerateContentConfig
	if g.maxNewTokens > 0 {
		config = &genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxNewTokens)}
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}

	g.logger.Debug("completion generated", "model", g.model, "duration", time.Since(start))
	return text, nil
}

// EmbeddingFunc returns the embedding function for the passage index. The
// same function serves both index and query time, which retrieval relies on.
func (g *Gemini) EmbeddingFunc() func(ctx context.Context, text string) ([]float32, error) {
	return func(ctx context.Context, text string) ([]float32, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
		if err != nil {
			return nil, fmt.Errorf("embed request failed: %w", err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return nil, fmt.Errorf("embed request returned no vector")
		}
		return resp.Embeddings[0].Values, nil
	}
}
