// Package prompt builds the final model prompt: exact token accounting,
// budget-driven context selection, and instruct-template rendering.
package prompt

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tokenizer encoding used when the config does not
// override it.
const DefaultEncoding = "cl100k_base"

// TokenCounter counts tokens the way the target model does. Budget math on
// estimates drifts; the budgeter needs exact counts.
type TokenCounter interface {
	Count(text string) int
	TruncateFront(text string, maxTokens int) string
}

// TiktokenCounter implements TokenCounter on a tiktoken encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// TruncateFront drops tokens from the front until text fits maxTokens. The
// tail is kept: for summaries the recent turns matter most.
func (c *TiktokenCounter) TruncateFront(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.enc.Decode(tokens[len(tokens)-maxTokens:])
}
