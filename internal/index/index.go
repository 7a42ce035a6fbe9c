// Package index provides the embedding-backed passage store.
//
// The index maps passages to vectors via a configured embedding function and
// supports add, similarity query, delete-by-filter, and atomic rebuild.
// Rebuilds write into a fresh collection and swap the active pointer, so
// readers never observe a partially-built index: in-flight queries against
// the old generation complete safely before it is dropped.
package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
	"github.com/edvisor-fi/edvisor/internal/log"
)

// EmbeddingFunc turns text into a fixed-dimension vector. The same function
// must be used at index time and at query time.
type EmbeddingFunc = chromem.EmbeddingFunc

var (
	// ErrDuplicateID indicates an Add with a passage id already present in
	// the active generation.
	ErrDuplicateID = errors.New("duplicate passage id")

	// ErrEmbedding indicates the embedding backend failed. The operation is
	// aborted with no partial results.
	ErrEmbedding = errors.New("embedding failed")
)

// metaContextLabel stores the passage heading inside collection metadata so
// it round-trips through queries.
const metaContextLabel = "context_label"

// Index is a generation-swapped passage store backed by chromem-go.
//
// Reads may run concurrently; Rebuild is exclusive with other rebuilds and
// swaps the active collection under a write lock.
type Index struct {
	db     *chromem.DB
	name   string
	embed  EmbeddingFunc
	logger log.Logger

	rebuildMu sync.Mutex // serializes rebuilds

	mu   sync.RWMutex
	coll *chromem.Collection
	gen  int
}

// New opens the index named name inside db. If persisted generations exist,
// the highest one becomes active and stale generations are dropped.
func New(db *chromem.DB, name string, embed EmbeddingFunc, logger log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	ix := &Index{db: db, name: name, embed: embed, logger: logger}

	prefix := name + "_g"
	var stale []string
	for collName := range db.ListCollections() {
		if !strings.HasPrefix(collName, prefix) {
			continue
		}
		gen, err := strconv.Atoi(strings.TrimPrefix(collName, prefix))
		if err != nil {
			continue
		}
		if gen > ix.gen {
			if ix.gen > 0 {
				stale = append(stale, ix.collName(ix.gen))
			}
			ix.gen = gen
		} else {
			stale = append(stale, collName)
		}
	}
	for _, collName := range stale {
		if err := db.DeleteCollection(collName); err != nil {
			logger.Warn("failed to drop stale index generation", "collection", collName, "error", err)
		}
	}
	if ix.gen == 0 {
		ix.gen = 1
	}

	coll, err := db.GetOrCreateCollection(ix.collName(ix.gen), nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open index collection: %w", err)
	}
	ix.coll = coll

	return ix, nil
}

func (ix *Index) collName(gen int) string {
	return fmt.Sprintf("%s_g%d", ix.name, gen)
}

// collection returns the active generation for reads.
func (ix *Index) collection() *chromem.Collection {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.coll
}

// Count returns the number of passages in the active generation.
func (ix *Index) Count() int {
	return ix.collection().Count()
}

// Rebuild replaces the entire index contents atomically from the caller's
// perspective. The new generation is built and embedded first; only then is
// the active pointer swapped and the old generation dropped.
func (ix *Index) Rebuild(ctx context.Context, passages []knowledge.Passage) error {
	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	ix.mu.RLock()
	nextGen := ix.gen + 1
	ix.mu.RUnlock()

	next, err := ix.db.CreateCollection(ix.collName(nextGen), nil, ix.embed)
	if err != nil {
		return fmt.Errorf("failed to create index generation %d: %w", nextGen, err)
	}

	docs := make([]chromem.Document, 0, len(passages))
	for _, p := range passages {
		docs = append(docs, passageToDoc(p))
	}
	if len(docs) > 0 {
		if err := next.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			// Drop the half-built generation; the active one is untouched.
			if delErr := ix.db.DeleteCollection(ix.collName(nextGen)); delErr != nil {
				ix.logger.Warn("failed to drop aborted index generation", "error", delErr)
			}
			return fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
	}

	ix.mu.Lock()
	oldName := ix.collName(ix.gen)
	ix.coll = next
	ix.gen = nextGen
	ix.mu.Unlock()

	if err := ix.db.DeleteCollection(oldName); err != nil {
		ix.logger.Warn("failed to drop previous index generation", "collection", oldName, "error", err)
	}

	ix.logger.Debug("index rebuilt", "generation", nextGen, "passages", len(passages))
	return nil
}

// Add inserts one passage into the active generation. Adding an id that is
// already present fails with ErrDuplicateID; callers choose skip-or-replace
// explicitly rather than relying on silent upserts.
func (ix *Index) Add(ctx context.Context, p knowledge.Passage) error {
	coll := ix.collection()

	if _, err := coll.GetByID(ctx, p.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}

	if err := coll.AddDocument(ctx, passageToDoc(p)); err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	ix.logger.Debug("passage added", "id", p.ID)
	return nil
}

// Query embeds text with the index's embedding function, normalized with the
// same rule as indexed passages, and returns up to k passages ranked by
// similarity descending, ties broken by ascending passage id. A filter
// restricts results to passages whose metadata matches every key/value pair.
// Fewer than k passages returns all available; an empty index returns an
// empty result, never an error.
func (ix *Index) Query(ctx context.Context, text string, k int, filter map[string]string) ([]knowledge.RetrievalResult, error) {
	coll := ix.collection()

	count := coll.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	vec, err := ix.embed(ctx, knowledge.Normalize(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	res, err := coll.QueryEmbedding(ctx, vec, k, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	results := make([]knowledge.RetrievalResult, 0, len(res))
	for _, r := range res {
		results = append(results, knowledge.RetrievalResult{
			Passage:    docToPassage(r.ID, r.Content, r.Metadata),
			Similarity: r.Similarity,
		})
	}

	// Deterministic ordering: similarity descending, passage id ascending.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Passage.ID < results[j].Passage.ID
	})

	return results, nil
}

// Delete removes all passages whose metadata matches the filter. An empty
// filter matches nothing and is a no-op.
func (ix *Index) Delete(ctx context.Context, filter map[string]string) error {
	if len(filter) == 0 {
		return nil
	}
	if err := ix.collection().Delete(ctx, filter, nil); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

func passageToDoc(p knowledge.Passage) chromem.Document {
	meta := make(map[string]string, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		meta[k] = v
	}
	meta[metaContextLabel] = p.ContextLabel
	return chromem.Document{
		ID:       p.ID,
		Content:  p.Text,
		Metadata: meta,
	}
}

func docToPassage(id, content string, meta map[string]string) knowledge.Passage {
	label := meta[metaContextLabel]
	cleaned := make(map[string]string, len(meta))
	for k, v := range meta {
		if k == metaContextLabel {
			continue
		}
		cleaned[k] = v
	}
	return knowledge.Passage{
		ID:           id,
		Text:         content,
		ContextLabel: label,
		Metadata:     cleaned,
	}
}
