// Package knowledge defines the document model for the Edvisor knowledge
// base and the chunker that turns documents into retrievable passages.
package knowledge

// Document is one named unit of source knowledge. A document carries either
// ordered structured fields (university records) or raw text (fact sheets
// delimited by "Context:" headers). Documents are immutable once ingested;
// re-ingestion replaces them wholesale.
type Document struct {
	ID         string
	SourceName string
	Fields     []Field // ordered; nil for unstructured sources
	RawText    string  // set for unstructured sources
}

// Structured returns true when the document carries structured fields.
func (d Document) Structured() bool {
	return len(d.Fields) > 0
}

// Field is a single key/value pair in a structured document. Order matters,
// so structured content is a slice of fields rather than a map.
type Field struct {
	Key   string
	Value Value
}

// Value is a structured field value: exactly one of Scalar, Fields (nested
// mapping), or Items (ordered list) is meaningful.
type Value struct {
	Scalar string
	Fields []Field
	Items  []Value
}

// IsScalar reports whether the value is a plain scalar.
func (v Value) IsScalar() bool { return len(v.Fields) == 0 && len(v.Items) == 0 }

// IsMap reports whether the value is a nested mapping.
func (v Value) IsMap() bool { return len(v.Fields) > 0 }

// IsList reports whether the value is an ordered list.
func (v Value) IsList() bool { return len(v.Items) > 0 }

// ScalarValue wraps a scalar into a Value.
func ScalarValue(s string) Value { return Value{Scalar: s} }

// MapValue wraps nested fields into a Value.
func MapValue(fields []Field) Value { return Value{Fields: fields} }

// ListValue wraps list items into a Value.
func ListValue(items []Value) Value { return Value{Items: items} }

// Passage is a retrievable unit derived from a Document. Passages are owned
// by the index: created during a rebuild, destroyed wholesale on the next.
type Passage struct {
	// ID is deterministic and stable across rebuilds: "<source_name>_<seq>".
	ID string

	// Text is the normalized passage body (see Normalize).
	Text string

	// ContextLabel is a human-readable heading, e.g. "bachelor programs at
	// University of Helsinki".
	ContextLabel string

	// Metadata carries source_name plus any structured keys useful for
	// filtering (type, university, program, context).
	Metadata map[string]string
}

// RetrievalResult pairs a passage with its similarity score for one query.
// Results are ephemeral and never persisted.
type RetrievalResult struct {
	Passage    Passage
	Similarity float32 // cosine similarity, 0..1, higher is more relevant
}

// Metadata keys attached to passages.
const (
	MetaSourceName = "source_name"
	MetaType       = "type"
	MetaUniversity = "university"
	MetaProgram    = "program"
	MetaContext    = "context"
)

// Passage type values used in metadata.
const (
	TypeIdentity = "identity"
	TypeText     = "text"
)
