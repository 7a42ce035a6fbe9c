package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
	"github.com/edvisor-fi/edvisor/internal/log"
)

type fakeIndex struct {
	passages   []knowledge.Passage
	rebuildErr error
}

func (f *fakeIndex) Rebuild(_ context.Context, passages []knowledge.Passage) error {
	if f.rebuildErr != nil {
		return f.rebuildErr
	}
	f.passages = passages
	return nil
}

func (f *fakeIndex) Count() int { return len(f.passages) }

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestIndexDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helsinki.json", `{"university name": "University of Helsinki", "about": "Finland's oldest university."}`)
	writeFile(t, dir, "visa.txt", "Context: Permits\nStudents need a residence permit.\n")
	writeFile(t, dir, "notes.md", "ignored")
	writeFile(t, dir, "broken.json", `{"university name": `)

	idx := &fakeIndex{}
	ix := NewIndexer(knowledge.NewChunker(knowledge.ChunkerConfig{}), idx, log.NewNop())

	res, err := ix.IndexDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexDir() error: %v", err)
	}

	if res.Documents != 2 {
		t.Errorf("Documents = %d, want 2", res.Documents)
	}
	if len(res.Skipped) != 2 {
		t.Errorf("Skipped = %v, want 2 entries", res.Skipped)
	}
	if res.Passages != len(idx.passages) {
		t.Errorf("Passages = %d, index got %d", res.Passages, len(idx.passages))
	}
	if res.Passages == 0 {
		t.Fatal("no passages produced")
	}

	// Files are processed in name order: broken.json, helsinki.json,
	// notes.md, visa.txt. The json document's passages come first.
	if idx.passages[0].Metadata[knowledge.MetaSourceName] != "helsinki.json" {
		t.Errorf("first passage source = %q", idx.passages[0].Metadata[knowledge.MetaSourceName])
	}
}

func TestIndexDir_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"university name": "Aalto University", "about": "In Espoo."}`)
	writeFile(t, dir, "b.txt", "Context: Fees\nFees vary.\n")

	run := func() []knowledge.Passage {
		idx := &fakeIndex{}
		ix := NewIndexer(knowledge.NewChunker(knowledge.ChunkerConfig{}), idx, log.NewNop())
		if _, err := ix.IndexDir(context.Background(), dir); err != nil {
			t.Fatalf("IndexDir() error: %v", err)
		}
		return idx.passages
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("passage counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Text != second[i].Text {
			t.Errorf("passage %d differs between runs", i)
		}
	}
}

func TestIndexDir_MissingDir(t *testing.T) {
	ix := NewIndexer(knowledge.NewChunker(knowledge.ChunkerConfig{}), &fakeIndex{}, log.NewNop())

	if _, err := ix.IndexDir(context.Background(), "/nonexistent/knowledge"); err == nil {
		t.Fatal("IndexDir() on missing dir succeeded, want error")
	}
}

func TestIndexDir_RebuildFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "some text\n")

	idx := &fakeIndex{rebuildErr: errors.New("embedding backend down")}
	ix := NewIndexer(knowledge.NewChunker(knowledge.ChunkerConfig{}), idx, log.NewNop())

	if _, err := ix.IndexDir(context.Background(), dir); err == nil {
		t.Fatal("IndexDir() succeeded, want rebuild error")
	}
}
