package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default splitter settings for unstructured text. A cut in the middle of a
// section loses context; the overlap lets retrieval recover it.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// contextMarker starts a new section in unstructured source files.
const contextMarker = "Context:"

// identityKeys are the top-level fields folded into a single identity
// passage for structured records.
var identityKeys = map[string]bool{
	"university name": true,
	"short name":      true,
	"about":           true,
}

// ChunkerConfig configures passage splitting.
type ChunkerConfig struct {
	// ChunkSize is the maximum passage length in bytes for unstructured
	// text. Zero uses DefaultChunkSize.
	ChunkSize int

	// ChunkOverlap is the number of bytes carried between consecutive
	// chunks of the same section. Zero uses DefaultChunkOverlap.
	ChunkOverlap int
}

// Chunker splits documents into retrieval-sized passages. Chunk is a pure
// function over its input: the same document and config always yield the
// same passages and ids.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Out-of-range config values fall back to the
// defaults rather than erroring; the caller validated them already.
func NewChunker(cfg ChunkerConfig) *Chunker {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits a document into passages with provenance metadata. Passage
// ids are assigned sequentially per source: "<source_name>_<seq>".
func (c *Chunker) Chunk(doc Document) []Passage {
	var passages []Passage
	if doc.Structured() {
		passages = c.chunkStructured(doc)
	} else {
		passages = c.chunkText(doc)
	}

	for i := range passages {
		passages[i].ID = fmt.Sprintf("%s_%d", doc.SourceName, i)
		passages[i].Text = Normalize(passages[i].Text)
	}
	return passages
}

// chunkStructured produces one passage for the identity fields, one per
// list entry (e.g. one per program), and one per remaining top-level key.
func (c *Chunker) chunkStructured(doc Document) []Passage {
	title := documentTitle(doc)

	var identity []Field
	for _, f := range doc.Fields {
		if isIdentityKey(f.Key) {
			identity = append(identity, f)
		}
	}

	var passages []Passage
	if len(identity) > 0 {
		passages = append(passages, Passage{
			Text:         renderFields(identity, ""),
			ContextLabel: "about " + title,
			Metadata: map[string]string{
				MetaSourceName: doc.SourceName,
				MetaType:       TypeIdentity,
				MetaUniversity: title,
			},
		})
	}

	for _, f := range doc.Fields {
		if isIdentityKey(f.Key) {
			continue
		}
		label := f.Key + " at " + title
		switch {
		case f.Value.IsList():
			for _, item := range f.Value.Items {
				meta := map[string]string{
					MetaSourceName: doc.SourceName,
					MetaType:       f.Key,
					MetaUniversity: title,
				}
				var text string
				if item.IsMap() {
					text = renderFields(item.Fields, "")
					if program := scalarField(item.Fields, "program"); program != "" {
						meta[MetaProgram] = program
						label = program + " at " + title
					}
				} else {
					text = renderValue(item, "")
				}
				passages = append(passages, Passage{
					Text:         text,
					ContextLabel: label,
					Metadata:     meta,
				})
				label = f.Key + " at " + title
			}
		default:
			passages = append(passages, Passage{
				Text:         renderValue(f.Value, ""),
				ContextLabel: label,
				Metadata: map[string]string{
					MetaSourceName: doc.SourceName,
					MetaType:       f.Key,
					MetaUniversity: title,
				},
			})
		}
	}
	return passages
}

// chunkText splits raw text on "Context:" section markers, then recursively
// splits oversized sections with bounded overlap.
func (c *Chunker) chunkText(doc Document) []Passage {
	var passages []Passage

	flush := func(label, body string) {
		for i, chunk := range c.splitSection(body) {
			contextLabel := label
			if contextLabel == "" {
				contextLabel = doc.SourceName
			}
			passages = append(passages, Passage{
				Text:         chunk,
				ContextLabel: contextLabel,
				Metadata: map[string]string{
					MetaSourceName: doc.SourceName,
					MetaType:       TypeText,
					MetaContext:    contextLabel,
					"chunk":        fmt.Sprintf("%d", i),
				},
			})
		}
	}

	var label string
	var body strings.Builder
	for _, line := range strings.Split(doc.RawText, "\n") {
		if strings.HasPrefix(line, contextMarker) {
			flush(label, body.String())
			label = strings.TrimSpace(strings.TrimPrefix(line, contextMarker))
			body.Reset()
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush(label, body.String())

	return passages
}

// splitSection splits one section into chunks of at most c.size bytes,
// carrying c.overlap bytes between consecutive chunks. Cuts prefer
// paragraph, then line, then word boundaries near the limit.
func (c *Chunker) splitSection(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			if tail := strings.TrimSpace(text[start:]); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		cut := findCut(text, start, end)
		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - c.overlap
		if next <= start {
			next = cut // guarantee forward progress on short chunks
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return chunks
}

// findCut returns the cut position in (start, end] closest to end that
// lands on a paragraph, line, or word boundary, falling back to a rune
// boundary at end.
func findCut(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + i
		}
	}
	for end > start+1 && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}

// documentTitle picks the human-readable identity of a structured record.
func documentTitle(doc Document) string {
	if name := scalarField(doc.Fields, "university name"); name != "" {
		return name
	}
	return doc.SourceName
}

func isIdentityKey(key string) bool {
	return identityKeys[key] || strings.HasPrefix(key, "contact")
}

// scalarField returns the scalar value for key, or "" when absent.
func scalarField(fields []Field, key string) string {
	for _, f := range fields {
		if f.Key == key && f.Value.IsScalar() {
			return f.Value.Scalar
		}
	}
	return ""
}

// renderFields renders an ordered field list as indented "key: value" lines.
func renderFields(fields []Field, indent string) string {
	var lines []string
	for _, f := range fields {
		lines = append(lines, indent+f.Key+": "+renderValue(f.Value, indent+"  "))
	}
	return strings.Join(lines, "\n")
}

// renderValue renders a structured value; nested mappings and lists start on
// their own lines with deeper indentation.
func renderValue(v Value, indent string) string {
	switch {
	case v.IsMap():
		return "\n" + renderFields(v.Fields, indent)
	case v.IsList():
		var lines []string
		for _, item := range v.Items {
			lines = append(lines, indent+"- "+renderValue(item, indent+"  "))
		}
		return "\n" + strings.Join(lines, "\n")
	default:
		return v.Scalar
	}
}
