package llm

import (
	"context"

	"github.com/Veraticus/the-glossary-must-flow/internal/config"
)

// Role is the author of a chat message.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// TaskKind selects a sampling profile.
type TaskKind string

// Task kinds.
const (
	KindWordExtraction         TaskKind = "word_extraction"
	KindWordExtractionDegraded TaskKind = "word_extraction_degraded"
	KindTranslation            TaskKind = "translation"
	KindTest                   TaskKind = "test"
)

// Response is the vendor-neutral outcome of one Send.
type Response struct {
	Reasoning    string
	Text         string
	InputTokens  int
	OutputTokens int
	// Skip reports a transport or vendor failure; the caller retries later.
	Skip bool
	// Degraded reports that the response hit the output token ceiling.
	Degraded bool
}

// Sender is implemented by Gateway and by test doubles.
type Sender interface {
	Send(ctx context.Context, messages []Message, kind TaskKind) Response
}

// SamplingParams are the resolved request parameters for one call.
type SamplingParams struct {
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	MaxTokens        int
}

var samplingTable = map[TaskKind]SamplingParams{
	KindWordExtraction:         {Temperature: 0.05, TopP: 0.95, MaxTokens: 4096},
	KindWordExtractionDegraded: {Temperature: 0.3, TopP: 0.95, FrequencyPenalty: 0.2, MaxTokens: 4096},
	KindTranslation:            {Temperature: 0.3, TopP: 0.95, MaxTokens: 4096},
	KindTest:                   {Temperature: 0, TopP: 1, MaxTokens: 512},
}

// SamplingFor resolves the parameters for kind, applying platform overrides.
// Unknown kinds use the word extraction profile.
func SamplingFor(kind TaskKind, overrides config.Sampling) SamplingParams {
	p, ok := samplingTable[kind]
	if !ok {
		p = samplingTable[KindWordExtraction]
	}
	if overrides.Temperature != nil {
		p.Temperature = *overrides.Temperature
	}
	if overrides.TopP != nil {
		p.TopP = *overrides.TopP
	}
	if overrides.FrequencyPenalty != nil {
		p.FrequencyPenalty = *overrides.FrequencyPenalty
	}
	if overrides.MaxTokens != nil {
		p.MaxTokens = *overrides.MaxTokens
	}
	return p
}

// splitSystem separates system turns from the conversation for vendors that
// carry the system prompt out of band.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
