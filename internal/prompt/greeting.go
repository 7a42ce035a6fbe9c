package prompt

import "regexp"

// greetingRe matches messages that are only a salutation, including the
// common Finnish ones. Greetings skip retrieval and summarization; there is
// nothing to look up for "hello".
var greetingRe = regexp.MustCompile(
	`(?i)^\s*(hi|hiya|hello|hey|howdy|good\s+(morning|afternoon|evening|day)|greetings|moi|moikka|hei|terve|moro)(\s+there)?[\s!.,?]*$`,
)

// IsGreeting reports whether the message is a bare greeting.
func IsGreeting(text string) bool {
	return greetingRe.MatchString(text)
}
