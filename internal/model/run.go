package model

import "time"

// RunStatus is the engine-wide lifecycle state.
type RunStatus int

// Run status constants.
const (
	RunIdle RunStatus = iota
	RunTesting
	RunExtracting
	RunStopping
)

// String returns the human-readable name of the status.
func (s RunStatus) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunTesting:
		return "testing"
	case RunExtracting:
		return "extracting"
	case RunStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// RunState is the mutable per-run aggregate persisted with each checkpoint.
type RunState struct {
	StartTime          time.Time           `json:"start_time"`
	RunID              string              `json:"run_id"`
	Candidates         []GlossaryCandidate `json:"candidates"`
	TotalLineCount     int                 `json:"total_line"`
	ProcessedLineCount int                 `json:"line"`
	TotalInputTokens   int64               `json:"total_input_tokens"`
	TotalOutputTokens  int64               `json:"total_output_tokens"`
	ElapsedSeconds     float64             `json:"time"`
	Round              int                 `json:"round"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s RunState) Clone() RunState {
	out := s
	out.Candidates = append([]GlossaryCandidate(nil), s.Candidates...)
	return out
}

// Outcome describes how a run ended.
type Outcome string

// Outcome constants.
const (
	OutcomeDone    Outcome = "done"
	OutcomeStopped Outcome = "stopped"
	OutcomeFailed  Outcome = "failed"
)
