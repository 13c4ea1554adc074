// Package storage persists extraction state: the JSON checkpoint files a run
// resumes from, and a SQLite database of consolidated glossaries and run history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrInvalidEntry = errors.New("invalid glossary entry")
	ErrInvalidRun   = errors.New("invalid run record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateEntries(entries []model.GlossaryEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		if strings.TrimSpace(e.SourceTerm) == "" {
			return fmt.Errorf("%w at index %d: empty source term", ErrInvalidEntry, i)
		}
		if e.OccurrenceCount < 0 {
			return fmt.Errorf("%w %q: negative occurrence count", ErrInvalidEntry, e.SourceTerm)
		}
		if _, dup := seen[e.SourceTerm]; dup {
			return fmt.Errorf("%w %q: duplicate source term", ErrInvalidEntry, e.SourceTerm)
		}
		seen[e.SourceTerm] = struct{}{}
	}
	return nil
}

func validateRun(run *RunRecord) error {
	if run == nil {
		return fmt.Errorf("%w: nil", ErrInvalidRun)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRun)
	}
	if run.Outcome == "" {
		return fmt.Errorf("%w %s: empty outcome", ErrInvalidRun, run.ID)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w %s: finished before it started", ErrInvalidRun, run.ID)
	}
	return nil
}
