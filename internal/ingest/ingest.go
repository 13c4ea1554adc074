// Package ingest reads source documents into text items and writes finished
// glossaries out.
package ingest

import (
	"context"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

// Source produces text items from an input path.
type Source interface {
	ReadItems(ctx context.Context, path, sourceLanguage string) ([]model.TextItem, error)
}

// Sink persists a consolidated glossary.
type Sink interface {
	WriteGlossary(ctx context.Context, path string, entries []model.GlossaryEntry) error
}
