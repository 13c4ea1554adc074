package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/llm"
	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/prompt"
	"github.com/Veraticus/the-glossary-must-flow/internal/text"
)

// TaskResult is what one chunk attempt produced.
type TaskResult struct {
	ItemIDs      []int
	Candidates   []model.GlossaryCandidate
	InputTokens  int
	OutputTokens int
	// Processed means every item in the chunk is done.
	Processed bool
	// Degraded means the response hit the token ceiling and the items should
	// be retried with the degraded profile.
	Degraded bool
}

// Task extracts glossary candidates from one chunk.
type Task struct {
	sender         llm.Sender
	prompts        *prompt.Builder
	cleaner        *text.Cleaner
	logger         *slog.Logger
	sourceLanguage string
	targetLanguage string
	items          []model.TextItem
}

// Run performs the attempt. It never returns an error: failures leave the
// result unprocessed so the chunk is retried in a later round.
func (t *Task) Run(ctx context.Context) TaskResult {
	result := TaskResult{ItemIDs: make([]int, len(t.items))}
	for i, item := range t.items {
		result.ItemIDs[i] = item.ID
	}

	lines := make([]string, 0, len(t.items))
	owners := make([]int, 0, len(t.items))
	degraded := false
	for _, item := range t.items {
		if cleaned := t.cleaner.Clean(item.SourceText, item.FirstCharacterName); cleaned != "" {
			lines = append(lines, cleaned)
			owners = append(owners, item.ID)
		}
		degraded = degraded || item.Degraded
	}

	if len(lines) == 0 {
		result.Processed = true
		return result
	}

	system, err := t.prompts.System(t.sourceLanguage, t.targetLanguage)
	if err != nil {
		t.logger.Error("Failed to build prompt", "error", err)
		return result
	}

	kind := llm.KindWordExtraction
	if degraded {
		kind = llm.KindWordExtractionDegraded
	}

	resp := t.sender.Send(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: prompt.User(lines)},
	}, kind)
	if resp.Skip {
		return result
	}

	result.InputTokens = resp.InputTokens
	result.OutputTokens = resp.OutputTokens

	// A truncated answer on the normal profile is retried on the degraded one.
	// On the degraded profile whatever came back is kept.
	if resp.Degraded && !degraded {
		result.Degraded = true
		return result
	}

	candidates := DecodeCandidates(resp.Text)
	for i := range candidates {
		candidates[i].ItemID = owner(candidates[i].SourceTerm, lines, owners)
	}
	result.Candidates = candidates
	result.Processed = true

	t.logger.Debug("Chunk extracted",
		"items", len(t.items),
		"lines", len(lines),
		"candidates", len(candidates),
		"kind", kind)
	return result
}

// owner returns the id of the first line mentioning term, or the first line.
func owner(term string, lines []string, owners []int) int {
	for i, line := range lines {
		if strings.Contains(line, term) {
			return owners[i]
		}
	}
	return owners[0]
}
