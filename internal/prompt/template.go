package prompt

import (
	"strings"

	"github.com/edvisor-fi/edvisor/internal/knowledge"
)

// Llama-3-instruct role markers. The generation backend may echo them back,
// so ParseReply understands them too.
const (
	beginOfText     = "<|begin_of_text|>"
	startHeader     = "<|start_header_id|>"
	endHeader       = "<|end_header_id|>"
	endOfTurn       = "<|eot_id|>"
	assistantMarker = startHeader + "assistant" + endHeader
)

// Assemble renders the budgeted context as a Llama-3-instruct prompt. The
// system turn carries, in order: system prompt, conversation summary, and
// retrieved passages; the user turn is the verbatim user message. Empty
// sections are omitted entirely.
func Assemble(b ContextBundle) string {
	var sb strings.Builder

	sb.WriteString(beginOfText)
	sb.WriteString(startHeader)
	sb.WriteString("system")
	sb.WriteString(endHeader)
	sb.WriteString("\n\n")
	sb.WriteString(b.System)

	if b.Summary != "" {
		sb.WriteString("\n\nConversation so far:\n")
		sb.WriteString(b.Summary)
	}

	if len(b.Passages) > 0 {
		sb.WriteString("\n\nRelevant information:\n")
		for i, p := range b.Passages {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(renderPassage(p))
		}
	}

	sb.WriteString(endOfTurn)
	sb.WriteString(startHeader)
	sb.WriteString("user")
	sb.WriteString(endHeader)
	sb.WriteString("\n\n")
	sb.WriteString(b.UserMessage)
	sb.WriteString(endOfTurn)
	sb.WriteString(assistantMarker)
	sb.WriteString("\n\n")

	return sb.String()
}

// renderPassage renders one passage for the prompt. The budgeter counts this
// exact rendering, so the two must not diverge.
func renderPassage(p knowledge.Passage) string {
	if p.ContextLabel == "" {
		return p.Text + "\n"
	}
	return "[" + p.ContextLabel + "]\n" + p.Text + "\n"
}

// ParseReply extracts the assistant's turn from raw model output. Backends
// differ: some return bare text, some echo the whole templated exchange.
// The reply is whatever follows the last assistant marker, cut at the next
// end-of-turn marker; without any marker the trimmed text is returned as is.
// ParseReply never fails; worst case it returns an empty string.
func ParseReply(raw string) string {
	text := raw
	if i := strings.LastIndex(text, assistantMarker); i >= 0 {
		text = text[i+len(assistantMarker):]
	}
	if i := strings.Index(text, endOfTurn); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
