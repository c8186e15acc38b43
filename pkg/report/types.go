// Package report writes a JSON record of one playback.
//
// The report file is rewritten atomically while the macro plays, so a
// consumer polling it always reads a complete document. Every step of the
// macro has one entry; loops show up as visit counts, not repeated entries.
package report

import "time"

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped || s == StatusCancelled
}

// Report is the whole report document.
type Report struct {
	Version     string      `json:"version"`
	UpdateSeq   uint64      `json:"updateSeq"`
	RunID       string      `json:"runId,omitempty"`
	Status      Status      `json:"status"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	Duration    *int64      `json:"duration,omitempty"` // milliseconds
	LastUpdated time.Time   `json:"lastUpdated"`
	Runner      RunnerInfo  `json:"runner"`
	Macro       MacroInfo   `json:"macro"`
	Summary     Summary     `json:"summary"`
	Steps       []StepEntry `json:"steps"`
	Error       *Error      `json:"error,omitempty"`
}

// RunnerInfo contains macrotool information.
type RunnerInfo struct {
	Version string `json:"version"`
	Backend string `json:"backend"` // desktop, mock
}

// MacroInfo identifies the played macro.
type MacroInfo struct {
	Name       string            `json:"name"`
	SourceFile string            `json:"sourceFile,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
}

// Summary contains aggregated counts.
type Summary struct {
	Total    int  `json:"total"`
	Passed   int  `json:"passed"`
	Failed   int  `json:"failed"`
	Skipped  int  `json:"skipped"`
	Pending  int  `json:"pending"`
	Visits   int  `json:"visits"`            // Top-level steps executed, loops included
	Executed int  `json:"executed"`          // All steps executed, embedded macros included
	Current  *int `json:"current,omitempty"` // Step currently running
}

// StepEntry records one step of the macro.
type StepEntry struct {
	Index       int        `json:"index"`
	Type        string     `json:"type"`
	Label       string     `json:"label,omitempty"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Visits      int        `json:"visits"`
	FirstStart  *time.Time `json:"firstStart,omitempty"`
	LastStart   *time.Time `json:"lastStart,omitempty"`
}

// Error contains error details.
type Error struct {
	Category string                 `json:"category"` // control_flow, config, device, state
	Code     string                 `json:"code,omitempty"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
}
