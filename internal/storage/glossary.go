package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

// SaveGlossary replaces the stored glossary with entries.
func (s *SQLiteStorage) SaveGlossary(ctx context.Context, entries []model.GlossaryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM glossary_entries`); err != nil {
		return fmt.Errorf("failed to clear glossary: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO glossary_entries (src, dst, info, occurrences, context, translations, classifications)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		contextJSON, err := marshalList(e.ContextLines)
		if err != nil {
			return err
		}
		translationsJSON, err := marshalList(e.Translations)
		if err != nil {
			return err
		}
		classificationsJSON, err := marshalList(e.Classifications)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			e.SourceTerm, e.TranslatedTerm, e.Classification, e.OccurrenceCount,
			contextJSON, translationsJSON, classificationsJSON,
		); err != nil {
			return fmt.Errorf("failed to insert entry %q: %w", e.SourceTerm, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit glossary: %w", err)
	}
	return nil
}

// GetGlossary returns stored entries by descending occurrence count.
func (s *SQLiteStorage) GetGlossary(ctx context.Context) ([]model.GlossaryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT src, dst, info, occurrences, context, translations, classifications
		FROM glossary_entries
		ORDER BY occurrences DESC, src ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query glossary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.GlossaryEntry
	for rows.Next() {
		var e model.GlossaryEntry
		var contextJSON, transJSON, classJSON string
		if err := rows.Scan(&e.SourceTerm, &e.TranslatedTerm, &e.Classification, &e.OccurrenceCount,
			&contextJSON, &transJSON, &classJSON); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(contextJSON), &e.ContextLines); err != nil {
			return nil, fmt.Errorf("failed to decode context for %q: %w", e.SourceTerm, err)
		}
		if err := json.Unmarshal([]byte(transJSON), &e.Translations); err != nil {
			return nil, fmt.Errorf("failed to decode translations for %q: %w", e.SourceTerm, err)
		}
		if err := json.Unmarshal([]byte(classJSON), &e.Classifications); err != nil {
			return nil, fmt.Errorf("failed to decode classifications for %q: %w", e.SourceTerm, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// marshalList encodes a slice column, storing nil as an empty array.
func marshalList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(b), nil
}
