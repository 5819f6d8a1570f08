package model

import (
	"encoding/json"
	"time"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageDiscovery  Stage = "discovery"
	StageExtraction Stage = "extraction"
	StageSynthesis  Stage = "synthesis"
)

// RunStatus represents the current state of a batch run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Run is the audit row for one batch invocation of a stage.
type Run struct {
	ID        string          `json:"id"`
	Stage     Stage           `json:"stage"`
	Params    json.RawMessage `json:"params,omitempty"`
	Status    RunStatus       `json:"status"`
	Summary   json.RawMessage `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
