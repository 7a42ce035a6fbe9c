package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
	"github.com/edvisor-fi/edvisor/internal/log"
)

type fakeSearcher struct {
	gotText   string
	gotK      int
	gotFilter map[string]string
	results   []knowledge.RetrievalResult
	err       error
}

func (f *fakeSearcher) Query(_ context.Context, text string, k int, filter map[string]string) ([]knowledge.RetrievalResult, error) {
	f.gotText = text
	f.gotK = k
	f.gotFilter = filter
	return f.results, f.err
}

func TestRetrieve(t *testing.T) {
	s := &fakeSearcher{results: []knowledge.RetrievalResult{
		{Passage: knowledge.Passage{ID: "a_0", Text: "visa rules"}, Similarity: 0.9},
	}}
	r := NewRetriever(s, 3, log.NewNop())

	results, err := r.Retrieve(context.Background(), "do i need a visa", 0, map[string]string{"type": "text"})
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(results) != 1 || results[0].Passage.ID != "a_0" {
		t.Errorf("results = %+v", results)
	}
	if s.gotK != 3 {
		t.Errorf("k = %d, want 3", s.gotK)
	}
	if s.gotFilter["type"] != "text" {
		t.Errorf("filter not forwarded: %v", s.gotFilter)
	}
}

func TestRetrieve_DefaultK(t *testing.T) {
	s := &fakeSearcher{}
	r := NewRetriever(s, 0, log.NewNop())

	if _, err := r.Retrieve(context.Background(), "anything", 0, nil); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if s.gotK != DefaultK {
		t.Errorf("k = %d, want DefaultK (%d)", s.gotK, DefaultK)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	r := NewRetriever(&fakeSearcher{}, 2, log.NewNop())

	results, err := r.Retrieve(context.Background(), "anything", 0, nil)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want empty", results)
	}
}

func TestRetrieve_SearchError(t *testing.T) {
	s := &fakeSearcher{err: errors.New("backend down")}
	r := NewRetriever(s, 2, log.NewNop())

	if _, err := r.Retrieve(context.Background(), "anything", 0, nil); err == nil {
		t.Fatal("Retrieve() succeeded, want error")
	}
}
