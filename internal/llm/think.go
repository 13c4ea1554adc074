package llm

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// splitThink separates an inline <think> block from the answer. Some servers
// drop the opening tag, so a lone closing tag also ends the reasoning.
func splitThink(text string) (reasoning, answer string) {
	end := strings.Index(text, thinkClose)
	if end < 0 {
		return "", strings.TrimSpace(text)
	}
	reasoning = text[:end]
	if start := strings.Index(reasoning, thinkOpen); start >= 0 {
		reasoning = reasoning[start+len(thinkOpen):]
	}
	return strings.TrimSpace(reasoning), strings.TrimSpace(text[end+len(thinkClose):])
}
