package engine

import (
	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/text"
)

// minChunkLines is the floor of the per-chunk line cap.
const minChunkLines = 8

// LineCap returns the per-chunk line limit for a token threshold.
func LineCap(threshold int) int {
	return max(minChunkLines, threshold/16)
}

// Chunk groups the unprocessed items in order. A chunk never spans two files
// and never exceeds threshold tokens or LineCap(threshold) lines, except that
// its first item is always accepted.
func Chunk(items []model.TextItem, threshold int, tok text.Tokenizer) [][]model.TextItem {
	lineCap := LineCap(threshold)

	var (
		chunks  [][]model.TextItem
		current []model.TextItem
		tokens  int
	)
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, current)
		}
		current = nil
		tokens = 0
	}

	for i := range items {
		item := items[i]
		if !item.Eligible() {
			continue
		}
		n := tok.Count(item.SourceText)
		if len(current) > 0 &&
			(len(current)+1 > lineCap || tokens+n > threshold || item.FilePath != current[0].FilePath) {
			flush()
		}
		current = append(current, item)
		tokens += n
	}
	flush()
	return chunks
}
