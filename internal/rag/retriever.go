package rag

import (
	"context"
	"fmt"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
	"github.com/edvisor-fi/edvisor/internal/log"
)

// DefaultK is the number of passages retrieved per query when the caller
// does not say otherwise.
const DefaultK = 2

// Searcher is the read side of the passage store, satisfied by *index.Index.
type Searcher interface {
	Query(ctx context.Context, text string, k int, filter map[string]string) ([]knowledge.RetrievalResult, error)
}

// Retriever finds the passages most relevant to a query. It is a thin policy
// layer over the index: it owns the default k and logs what it found, but
// never reorders or rescores results.
type Retriever struct {
	searcher Searcher
	k        int
	logger   log.Logger
}

// NewRetriever creates a Retriever. k <= 0 falls back to DefaultK.
func NewRetriever(searcher Searcher, k int, logger log.Logger) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{searcher: searcher, k: k, logger: logger}
}

// Retrieve returns up to k passages ranked by similarity; k <= 0 uses the
// configured default. An empty index yields an empty result, not an error.
// The optional filter restricts candidates by passage metadata.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filter map[string]string) ([]knowledge.RetrievalResult, error) {
	if k <= 0 {
		k = r.k
	}
	results, err := r.searcher.Query(ctx, query, k, filter)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) > 0 {
		r.logger.Debug("passages retrieved",
			"count", len(results),
			"top_id", results[0].Passage.ID,
			"top_similarity", results[0].Similarity,
		)
	}
	return results, nil
}
