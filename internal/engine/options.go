package engine

import (
	"context"
	"log/slog"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/observe"
	"github.com/Veraticus/the-glossary-must-flow/internal/prompt"
	"github.com/Veraticus/the-glossary-must-flow/internal/storage"
	"github.com/Veraticus/the-glossary-must-flow/internal/text"
)

// Listener receives run events. Any field may be nil. Callbacks run on
// engine goroutines and must not block for long.
type Listener struct {
	OnProgress func(model.RunState)
	OnDone     func(Result)
	OnError    func(error)
}

// SlotProbe reports how many parallel requests a local server accepts.
type SlotProbe func(ctx context.Context, baseURL string) (int, error)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithListener adds a listener.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithCheckpointStore replaces the default checkpoint store.
func WithCheckpointStore(s *storage.CheckpointStore) Option {
	return func(e *Engine) { e.checkpoint = s }
}

// WithTokenizer replaces the BPE tokenizer used for chunking.
func WithTokenizer(t text.Tokenizer) Option {
	return func(e *Engine) { e.tokenizer = t }
}

// WithMetrics records chunk metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRules sets cleaning and exclusion rules.
func WithRules(r text.Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithPromptBuilder replaces the prompt builder.
func WithPromptBuilder(b *prompt.Builder) Option {
	return func(e *Engine) { e.prompts = b }
}

// WithSlotProbe replaces the local slot probe.
func WithSlotProbe(p SlotProbe) Option {
	return func(e *Engine) { e.probe = p }
}
