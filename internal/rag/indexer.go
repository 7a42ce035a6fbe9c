package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
	"github.com/edvisor-fi/edvisor/internal/log"
)

// PassageIndex is the write side of the passage store, satisfied by
// *index.Index.
type PassageIndex interface {
	Rebuild(ctx context.Context, passages []knowledge.Passage) error
	Count() int
}

// IndexResult summarizes one ingestion run.
type IndexResult struct {
	Documents int      // source files parsed
	Passages  int      // passages written to the index
	Skipped   []string // files ignored (unsupported extension or parse failure)
}

// Indexer ingests a directory of source files into the passage index.
type Indexer struct {
	chunker *knowledge.Chunker
	index   PassageIndex
	logger  log.Logger
}

// NewIndexer creates an Indexer writing through chunker into idx.
func NewIndexer(chunker *knowledge.Chunker, idx PassageIndex, logger log.Logger) *Indexer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Indexer{chunker: chunker, index: idx, logger: logger}
}

// IndexDir parses every supported file directly under dir, chunks the
// documents, and rebuilds the index with the result. Files are processed in
// name order so passage ids are stable across runs. A file that fails to
// parse is skipped with a warning rather than aborting the run; a missing or
// unreadable directory is an error.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (IndexResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return IndexResult{}, fmt.Errorf("failed to read knowledge dir: %w", err)
	}

	var res IndexResult
	var passages []knowledge.Passage

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		doc, err := ix.loadDocument(path, name)
		if err != nil {
			ix.logger.Warn("skipping source file", "file", name, "error", err)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if doc == nil {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		chunks := ix.chunker.Chunk(*doc)
		ix.logger.Debug("chunked source file", "file", name, "passages", len(chunks))
		passages = append(passages, chunks...)
		res.Documents++
	}

	if err := ix.index.Rebuild(ctx, passages); err != nil {
		return IndexResult{}, fmt.Errorf("failed to rebuild index: %w", err)
	}

	res.Passages = len(passages)
	ix.logger.Info("knowledge base indexed", "documents", res.Documents, "passages", res.Passages, "skipped", len(res.Skipped))
	return res, nil
}

// loadDocument reads one source file. Returns (nil, nil) for unsupported
// extensions.
func (ix *Indexer) loadDocument(path, name string) (*knowledge.Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		fields, err := ParseJSON(f)
		if err != nil {
			return nil, err
		}
		return &knowledge.Document{SourceName: name, Fields: fields}, nil

	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &knowledge.Document{SourceName: name, RawText: string(data)}, nil

	default:
		return nil, nil
	}
}
