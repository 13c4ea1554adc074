package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

// RunRecord summarizes one finished extraction run.
type RunRecord struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	ID             string
	Platform       string
	Outcome        model.Outcome
	TotalLines     int
	ProcessedLines int
	InputTokens    int64
	OutputTokens   int64
	ElapsedSeconds float64
	Rounds         int
}

// NewRunRecord builds a record from the final run state.
func NewRunRecord(state model.RunState, platform string, outcome model.Outcome, finished time.Time) RunRecord {
	return RunRecord{
		ID:             state.RunID,
		Platform:       platform,
		Outcome:        outcome,
		StartedAt:      state.StartTime,
		FinishedAt:     finished,
		TotalLines:     state.TotalLineCount,
		ProcessedLines: state.ProcessedLineCount,
		InputTokens:    state.TotalInputTokens,
		OutputTokens:   state.TotalOutputTokens,
		ElapsedSeconds: state.ElapsedSeconds,
		Rounds:         state.Round,
	}
}

// RecordRun inserts or updates a run. A resumed run keeps its id, so the
// latest outcome wins.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(&run); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, platform, outcome, started_at, finished_at, total_lines,
			processed_lines, input_tokens, output_tokens, elapsed_seconds, rounds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			platform = excluded.platform,
			outcome = excluded.outcome,
			finished_at = excluded.finished_at,
			total_lines = excluded.total_lines,
			processed_lines = excluded.processed_lines,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			elapsed_seconds = excluded.elapsed_seconds,
			rounds = excluded.rounds`,
		run.ID, run.Platform, string(run.Outcome), run.StartedAt, run.FinishedAt,
		run.TotalLines, run.ProcessedLines, run.InputTokens, run.OutputTokens,
		run.ElapsedSeconds, run.Rounds)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns recorded runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform, outcome, started_at, finished_at, total_lines,
			processed_lines, input_tokens, output_tokens, elapsed_seconds, rounds
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var (
			r       RunRecord
			outcome string
		)
		if err := rows.Scan(&r.ID, &r.Platform, &outcome, &r.StartedAt, &r.FinishedAt, &r.TotalLines,
			&r.ProcessedLines, &r.InputTokens, &r.OutputTokens, &r.ElapsedSeconds, &r.Rounds); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Outcome = model.Outcome(outcome)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
