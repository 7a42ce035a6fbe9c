package prompt

import (
	"errors"
	"fmt"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
)

// ErrBudgetExceeded indicates the parts that may never be truncated (system
// prompt and user message) do not fit the token budget on their own.
var ErrBudgetExceeded = errors.New("context budget exceeded")

// ContextBundle is the budgeted input to the prompt template. Passages keep
// their retrieval order; Tokens is the exact count of everything included.
type ContextBundle struct {
	System      string
	Summary     string
	Passages    []knowledge.Passage
	UserMessage string
	Tokens      int
}

// Budgeter selects what fits into the model context. Priority order, fixed:
// the system prompt and the user message are always included whole, passages
// are taken whole-or-dropped from the most similar down, and the summary
// takes whatever budget remains, truncated from the front.
//
// The budget covers the content pieces only; the template's fixed role
// markers and section headers are not counted, so callers configure
// maxTokens with headroom below the model's real window (see the config
// package).
type Budgeter struct {
	counter TokenCounter
}

// NewBudgeter creates a Budgeter counting with counter.
func NewBudgeter(counter TokenCounter) *Budgeter {
	return &Budgeter{counter: counter}
}

// BuildContext fits the turn's material into maxTokens. Results arrive
// sorted by similarity descending; a passage that does not fit is dropped
// and smaller lower-ranked ones may still be taken.
func (b *Budgeter) BuildContext(system, summary string, results []knowledge.RetrievalResult, userMsg string, maxTokens int) (ContextBundle, error) {
	used := b.counter.Count(system)
	if used > maxTokens {
		return ContextBundle{}, fmt.Errorf("%w: system prompt is %d tokens, budget %d", ErrBudgetExceeded, used, maxTokens)
	}

	userTokens := b.counter.Count(userMsg)
	if used+userTokens > maxTokens {
		return ContextBundle{}, fmt.Errorf("%w: system prompt and user message need %d tokens, budget %d", ErrBudgetExceeded, used+userTokens, maxTokens)
	}
	used += userTokens

	bundle := ContextBundle{System: system, UserMessage: userMsg}

	for _, r := range results {
		cost := b.counter.Count(renderPassage(r.Passage))
		if used+cost > maxTokens {
			continue
		}
		bundle.Passages = append(bundle.Passages, r.Passage)
		used += cost
	}

	if remaining := maxTokens - used; remaining > 0 && summary != "" {
		bundle.Summary = b.counter.TruncateFront(summary, remaining)
		used += b.counter.Count(bundle.Summary)
	}

	bundle.Tokens = used
	return bundle, nil
}
