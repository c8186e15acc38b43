package core

// PlayerState is the state of the playback orchestrator.
type PlayerState int

const (
	StateStopped   PlayerState = iota // Idle; the macro may be edited
	StateRecording                    // An external recorder is capturing input
	StatePlaying                      // A playback task is running
)

// String returns the string representation of PlayerState
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// IsBusy returns true if the macro must not be edited in this state
func (s PlayerState) IsBusy() bool {
	return s != StateStopped
}

// RunStatus is the outcome of one playback.
type RunStatus int

const (
	RunCompleted RunStatus = iota // Cursor left the step range
	RunCancelled                  // Stop was requested
	RunFailed                     // A control-flow or configuration error ended the run
)

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	switch s {
	case RunCompleted:
		return "completed"
	case RunCancelled:
		return "cancelled"
	case RunFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone        ErrorCategory = iota // No error
	ErrCategoryControlFlow                      // Unresolved label, missing start label, depth exceeded
	ErrCategoryConfig                           // Empty search area, missing template, empty path
	ErrCategoryDevice                           // Capture, injection, OCR or load failure
	ErrCategoryState                            // Operation not allowed in the current player state
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryControlFlow:
		return "control_flow"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryState:
		return "state"
	default:
		return "unknown"
	}
}
