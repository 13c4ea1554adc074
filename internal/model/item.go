package model

import "fmt"

// ItemStatus tracks where a text item is in the extraction lifecycle.
type ItemStatus string

// Item status constants.
const (
	ItemUnprocessed         ItemStatus = "UNPROCESSED"
	ItemProcessed           ItemStatus = "PROCESSED"
	ItemExcluded            ItemStatus = "EXCLUDED"
	ItemDuplicated          ItemStatus = "DUPLICATED"
	ItemProcessedPreviously ItemStatus = "PROCESSED_PREVIOUSLY"
)

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemUnprocessed, ItemProcessed, ItemExcluded, ItemDuplicated, ItemProcessedPreviously:
		return true
	default:
		return false
	}
}

// Covered reports whether the item's text counts as part of the searchable corpus
// once a run has finished. Duplicates are left out so each distinct line is
// counted once.
func (s ItemStatus) Covered() bool {
	return s == ItemProcessed || s == ItemProcessedPreviously
}

// TextItem is one line or segment of source text.
type TextItem struct {
	SourceText         string     `json:"src"`
	FilePath           string     `json:"file_path"`
	FirstCharacterName string     `json:"name,omitempty"`
	Status             ItemStatus `json:"status"`
	ID                 int        `json:"id"`
	RetryCount         int        `json:"retry_count"`
	Degraded           bool       `json:"degraded,omitempty"`
}

// Validate checks the item for structural problems.
func (t *TextItem) Validate() error {
	if t.ID < 0 {
		return fmt.Errorf("item id must be non-negative, got %d", t.ID)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("item %d has unknown status %q", t.ID, t.Status)
	}
	return nil
}

// Eligible reports whether the item may be submitted to the model.
func (t *TextItem) Eligible() bool {
	return t.Status == ItemUnprocessed
}

// CountByStatus tallies items per status.
func CountByStatus(items []TextItem) map[ItemStatus]int {
	counts := make(map[ItemStatus]int, 5)
	for i := range items {
		counts[items[i].Status]++
	}
	return counts
}
