// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (EDVISOR_* runtime override)
//  2. Config file (<data_dir>/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: generation model, embedding model, tokenizer encoding, token budgets
//   - Retrieval: top-k, chunk size and overlap
//   - Storage: data directory layout (index, conversations)
//   - Server: HTTP listen address
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTokens indicates the context window budget is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max context tokens")

	// ErrInvalidRetrievalK indicates the retrieval top-k is out of range.
	ErrInvalidRetrievalK = errors.New("invalid retrieval k")

	// ErrInvalidChunking indicates chunk size/overlap are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunk size or overlap")

	// ErrMissingAPIKey indicates the generation backend API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Defaults for the retrieval pipeline. Chunk size and overlap match the
// splitter settings the knowledge base was tuned with.
//
// max_context_tokens budgets the prompt CONTENT (system prompt, summary,
// passages, user message). The instruct template adds a few dozen tokens of
// fixed role markers and section headers on top, and the reply needs
// max_new_tokens more, so keep the sum comfortably below the model's real
// context window. The default leaves ample headroom on every Gemini model.
const (
	DefaultModelName         = "gemini-2.5-flash"
	DefaultEmbeddingModel    = "gemini-embedding-001"
	DefaultTokenizerEncoding = "cl100k_base"
	DefaultMaxContextTokens  = 8192
	DefaultMaxNewTokens      = 256
	DefaultRetrievalK        = 2
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultServerAddr        = "127.0.0.1:3400"

	// MaxAllowedContextTokens bounds the budget to prevent misconfiguration.
	MaxAllowedContextTokens = 2_000_000

	// MaxRetrievalK bounds top-k; large values degrade answer quality.
	MaxRetrievalK = 20
)

// DefaultSystemPrompt is the fixed instruction for the assistant persona.
const DefaultSystemPrompt = "You are Edvisor, an assistant for Finland study and visa services. " +
	"Answer using the provided context when it is relevant, and say so plainly when you do not know."

// Config stores application configuration.
type Config struct {
	// Storage layout
	DataDir    string `mapstructure:"data_dir" json:"data_dir"`
	DatasetDir string `mapstructure:"dataset_dir" json:"dataset_dir"`

	// AI configuration
	ModelName         string `mapstructure:"model_name" json:"model_name"`
	EmbeddingModel    string `mapstructure:"embedding_model" json:"embedding_model"`
	TokenizerEncoding string `mapstructure:"tokenizer_encoding" json:"tokenizer_encoding"`
	SystemPrompt      string `mapstructure:"system_prompt" json:"system_prompt"`
	MaxContextTokens  int    `mapstructure:"max_context_tokens" json:"max_context_tokens"`
	MaxNewTokens      int    `mapstructure:"max_new_tokens" json:"max_new_tokens"`

	// Retrieval configuration
	RetrievalK   int `mapstructure:"retrieval_k" json:"retrieval_k"`
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
}

// IndexDir returns the directory holding the persisted passage index.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}

// ConversationsDir returns the directory holding per-owner conversation
// databases. Both directories back up as a plain directory copy.
func (c *Config) ConversationsDir() string {
	return filepath.Join(c.DataDir, "conversations")
}

// APIKey returns the generation backend API key from the environment.
// Keys never live in the config file.
func APIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// Load reads configuration from defaults, the optional config file, and
// EDVISOR_* environment variables, then validates the result.
func Load() (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".edvisor")

	v.SetDefault("data_dir", dataDir)
	v.SetDefault("dataset_dir", filepath.Join(dataDir, "dataset"))
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedding_model", DefaultEmbeddingModel)
	v.SetDefault("tokenizer_encoding", DefaultTokenizerEncoding)
	v.SetDefault("system_prompt", DefaultSystemPrompt)
	v.SetDefault("max_context_tokens", DefaultMaxContextTokens)
	v.SetDefault("max_new_tokens", DefaultMaxNewTokens)
	v.SetDefault("retrieval_k", DefaultRetrievalK)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("server_addr", DefaultServerAddr)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)

	v.SetEnvPrefix("EDVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything has defaults.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return fmt.Errorf("%w: embedding_model is empty", ErrInvalidModelName)
	}
	if c.MaxContextTokens <= 0 || c.MaxContextTokens > MaxAllowedContextTokens {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidMaxTokens, c.MaxContextTokens, MaxAllowedContextTokens)
	}
	if c.MaxNewTokens <= 0 || c.MaxNewTokens >= c.MaxContextTokens {
		return fmt.Errorf("%w: max_new_tokens %d must be positive and below max_context_tokens %d",
			ErrInvalidMaxTokens, c.MaxNewTokens, c.MaxContextTokens)
	}
	if c.RetrievalK <= 0 || c.RetrievalK > MaxRetrievalK {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidRetrievalK, c.RetrievalK, MaxRetrievalK)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size %d)", ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// EnsureDirs creates the storage directories with restricted permissions.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.IndexDir(), c.ConversationsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
