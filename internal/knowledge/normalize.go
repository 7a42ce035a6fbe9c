package knowledge

import (
	"strings"
	"unicode"
)

// sentencePunct is the punctuation preserved by Normalize. Everything else
// outside letters, digits, and whitespace is dropped so queries and indexed
// text share one normalization rule.
const sentencePunct = ".,!?;:'-"

// Normalize lower-cases text and strips characters outside letters, digits,
// whitespace, and sentence punctuation. The same rule is applied to passage
// text at index time and to query text at search time; retrieval quality
// depends on the two sides agreeing.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(sentencePunct, r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
