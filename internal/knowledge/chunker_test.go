package knowledge

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func universityDoc() Document {
	return Document{
		ID:         "aalto",
		SourceName: "aalto.json",
		Fields: []Field{
			{Key: "university name", Value: ScalarValue("Aalto University")},
			{Key: "short name", Value: ScalarValue("Aalto")},
			{Key: "about", Value: ScalarValue("A multidisciplinary university in Espoo.")},
			{Key: "contact email", Value: ScalarValue("admissions@aalto.fi")},
			{Key: "bachelor programs", Value: ListValue([]Value{
				MapValue([]Field{
					{Key: "program", Value: ScalarValue("Computer Science")},
					{Key: "tuition", Value: ScalarValue("12000 EUR per year")},
				}),
				MapValue([]Field{
					{Key: "program", Value: ScalarValue("Economics")},
					{Key: "tuition", Value: ScalarValue("10000 EUR per year")},
				}),
			})},
			{Key: "application period", Value: ScalarValue("January 3 to January 17")},
		},
	}
}

func TestChunk_Structured(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	passages := c.Chunk(universityDoc())

	// identity + 2 programs + application period
	if len(passages) != 4 {
		t.Fatalf("Chunk() returned %d passages, want 4", len(passages))
	}

	identity := passages[0]
	if identity.ContextLabel != "about Aalto University" {
		t.Errorf("identity label = %q", identity.ContextLabel)
	}
	if identity.Metadata[MetaType] != TypeIdentity {
		t.Errorf("identity type = %q", identity.Metadata[MetaType])
	}
	if !strings.Contains(identity.Text, "espoo") {
		t.Errorf("identity text not normalized/lower-cased: %q", identity.Text)
	}
	if !strings.Contains(identity.Text, "admissions@aalto.fi") {
		// '@' is stripped by normalization; only the words survive.
		if !strings.Contains(identity.Text, "aalto.fi") {
			t.Errorf("identity text missing contact content: %q", identity.Text)
		}
	}

	cs := passages[1]
	if cs.Metadata[MetaProgram] != "Computer Science" {
		t.Errorf("program metadata = %q, want Computer Science", cs.Metadata[MetaProgram])
	}
	if cs.ContextLabel != "Computer Science at Aalto University" {
		t.Errorf("program label = %q", cs.ContextLabel)
	}

	period := passages[3]
	if period.ContextLabel != "application period at Aalto University" {
		t.Errorf("remaining-key label = %q", period.ContextLabel)
	}
	if period.Metadata[MetaType] != "application period" {
		t.Errorf("remaining-key type = %q", period.Metadata[MetaType])
	}
}

func TestChunk_PassageIDs(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	passages := c.Chunk(universityDoc())

	for i, p := range passages {
		want := fmt.Sprintf("aalto.json_%d", i)
		if p.ID != want {
			t.Errorf("passage %d id = %q, want %q", i, p.ID, want)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewChunker(ChunkerConfig{})

	first := c.Chunk(universityDoc())
	second := c.Chunk(universityDoc())

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Chunk() is not deterministic for the same document")
	}
}

func TestChunk_TextSections(t *testing.T) {
	doc := Document{
		SourceName: "visa.txt",
		RawText: "Context: Residence permits\n" +
			"Students need a residence permit for studies over 90 days.\n" +
			"Context: Working while studying\n" +
			"Students may work up to 30 hours per week.\n",
	}

	c := NewChunker(ChunkerConfig{})
	passages := c.Chunk(doc)

	if len(passages) != 2 {
		t.Fatalf("Chunk() returned %d passages, want 2", len(passages))
	}
	if passages[0].ContextLabel != "Residence permits" {
		t.Errorf("section label = %q", passages[0].ContextLabel)
	}
	if passages[0].Metadata[MetaContext] != "Residence permits" {
		t.Errorf("section metadata = %q", passages[0].Metadata[MetaContext])
	}
	if !strings.Contains(passages[1].Text, "30 hours per week") {
		t.Errorf("second section text = %q", passages[1].Text)
	}
}

func TestChunk_TextBeforeFirstMarker(t *testing.T) {
	doc := Document{
		SourceName: "intro.txt",
		RawText:    "General information without a header.\nContext: Fees\nTuition fees vary by program.\n",
	}

	c := NewChunker(ChunkerConfig{})
	passages := c.Chunk(doc)

	if len(passages) != 2 {
		t.Fatalf("Chunk() returned %d passages, want 2", len(passages))
	}
	// Preamble gets the source name as its label.
	if passages[0].ContextLabel != "intro.txt" {
		t.Errorf("preamble label = %q", passages[0].ContextLabel)
	}
}

func TestChunk_OversizedSectionSplitsWithOverlap(t *testing.T) {
	sentence := "finnish universities offer many programs taught in english. "
	body := strings.Repeat(sentence, 20) // ~1180 bytes

	doc := Document{
		SourceName: "long.txt",
		RawText:    "Context: Programs\n" + body,
	}

	c := NewChunker(ChunkerConfig{ChunkSize: 300, ChunkOverlap: 60})
	passages := c.Chunk(doc)

	if len(passages) < 2 {
		t.Fatalf("oversized section not split, got %d passages", len(passages))
	}
	for i, p := range passages {
		if len(p.Text) > 300 {
			t.Errorf("passage %d exceeds chunk size: %d bytes", i, len(p.Text))
		}
	}
	// Consecutive chunks share overlapping content.
	tail := passages[0].Text[len(passages[0].Text)-20:]
	if !strings.Contains(passages[1].Text, strings.TrimSpace(tail)) {
		t.Errorf("no overlap between consecutive chunks: tail %q not in %q...", tail, passages[1].Text[:60])
	}
}

func TestChunk_EmptyText(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	passages := c.Chunk(Document{SourceName: "empty.txt", RawText: "\n\n"})
	if len(passages) != 0 {
		t.Fatalf("Chunk() on empty text returned %d passages, want 0", len(passages))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lower-cases and keeps sentence punctuation",
			in:   "Can I study in Finland? Yes!",
			want: "can i study in finland? yes!",
		},
		{
			name: "strips special characters",
			in:   "Tuition (per year): €12,000 @ Aalto",
			want: "tuition per year: 12,000  aalto",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  hello  ",
			want: "hello",
		},
		{
			name: "keeps unicode letters",
			in:   "Jyväskylän Yliopisto",
			want: "jyväskylän yliopisto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
