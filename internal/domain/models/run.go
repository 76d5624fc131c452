package models

import "time"

// SymbolStatus is the terminal outcome of one symbol's worker invocation.
type SymbolStatus string

const (
	StatusPending  SymbolStatus = "pending"
	StatusSuccess  SymbolStatus = "success"
	StatusFailed   SymbolStatus = "failed"
	StatusTimedOut SymbolStatus = "timed_out"
)

// RunState is the orchestrator's per-run state machine.
type RunState string

const (
	RunIdle            RunState = "idle"
	RunRunning         RunState = "running"
	RunCompleted       RunState = "completed"
	RunPartiallyFailed RunState = "partially_failed"
)

// SymbolResult is one symbol's outcome within a batch run.
type SymbolResult struct {
	Symbol   string        `json:"symbol"`
	Status   SymbolStatus  `json:"status"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration_ms"`
	Err      string        `json:"error,omitempty"`
}

// RunSummary is the aggregate result of a batch run. It is ephemeral:
// persisted only as logs/metrics/events, never as durable state.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Mode       string         `json:"mode"` // "incremental" or "full_backfill"
	State      RunState       `json:"state"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   time.Duration  `json:"duration_ms"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	TimedOut   int            `json:"timed_out"`
	Symbols    []SymbolResult `json:"symbols"`
}

// Total returns the number of symbols in the run.
func (s *RunSummary) Total() int { return len(s.Symbols) }
