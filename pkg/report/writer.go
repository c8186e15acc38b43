package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/executor"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// flushDelay debounces progress writes. Start and Finish write at once.
const flushDelay = 100 * time.Millisecond

// Config describes the run being reported.
type Config struct {
	RunnerVersion string
	Backend       string
	Variables     map[string]string
}

// Writer keeps the report of one playback up to date on disk. It is safe
// for concurrent use: steps are reported from the playback goroutine while
// the caller finishes the run.
type Writer struct {
	mu     sync.Mutex
	path   string
	report *Report
	timer  *time.Timer
	last   int // step reported running, -1 if none
	done   bool
}

// NewWriter builds the skeleton for m, every step pending, and writes it.
func NewWriter(path string, m *macro.Macro, cfg Config) (*Writer, error) {
	now := time.Now()
	r := &Report{
		Version:     Version,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Runner:      RunnerInfo{Version: cfg.RunnerVersion, Backend: cfg.Backend},
		Macro: MacroInfo{
			Name:       m.Name,
			SourceFile: m.SourcePath,
			Variables:  cfg.Variables,
		},
		Steps: make([]StepEntry, m.Len()),
	}
	for i, s := range m.Steps() {
		entry := StepEntry{
			Index:       i,
			Label:       s.TrimmedLabel(),
			Description: s.Describe(),
			Status:      StatusPending,
		}
		if s.Action != nil {
			entry.Type = string(s.Action.Kind())
		}
		r.Steps[i] = entry
	}

	w := &Writer{path: path, report: r, last: -1}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

// Start marks the run as started.
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.Status = StatusRunning
	w.report.StartTime = time.Now()
	w.logFlush()
}

// StepStarted records a visit of step index. The previously running step
// is done once another one starts.
func (w *Writer) StepStarted(index int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.report.Steps) {
		return
	}
	if w.report.Status == StatusPending {
		w.report.Status = StatusRunning
	}
	if w.last >= 0 && w.last != index {
		w.report.Steps[w.last].Status = StatusPassed
	}

	now := time.Now()
	s := &w.report.Steps[index]
	s.Status = StatusRunning
	s.Visits++
	if s.FirstStart == nil {
		s.FirstStart = &now
	}
	s.LastStart = &now
	w.last = index

	if w.timer == nil && !w.done {
		w.timer = time.AfterFunc(flushDelay, func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if !w.done {
				w.logFlush()
			}
		})
	}
}

// Finish records the outcome. The running step passes, fails or is
// cancelled with the run; steps never visited are skipped.
func (w *Writer) Finish(result executor.RunResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.done = true
	w.report.RunID = result.RunID
	if !result.Started.IsZero() {
		w.report.StartTime = result.Started
	}
	end := w.report.StartTime.Add(result.Duration)
	duration := result.Duration.Milliseconds()
	w.report.EndTime = &end
	w.report.Duration = &duration
	w.report.Summary.Executed = result.StepsExecuted

	final := StatusPassed
	switch result.Status {
	case core.RunFailed:
		final = StatusFailed
		w.report.Error = toError(result.Err)
	case core.RunCancelled:
		final = StatusCancelled
	}
	w.report.Status = final

	if w.last >= 0 {
		w.report.Steps[w.last].Status = final
	}
	for i := range w.report.Steps {
		if w.report.Steps[i].Visits == 0 {
			w.report.Steps[i].Status = StatusSkipped
		}
	}
	return w.flushLocked()
}

// Report returns a copy of the current report.
func (w *Writer) Report() Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := *w.report
	r.Steps = append([]StepEntry(nil), w.report.Steps...)
	return r
}

// Load reads a report file.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- report path is user-provided
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid report %s: %w", path, err)
	}
	return &r, nil
}

func (w *Writer) logFlush() {
	if err := w.flushLocked(); err != nil {
		logger.Warn("writing report: %v", err)
	}
}

func (w *Writer) flushLocked() error {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.report.UpdateSeq++
	w.report.LastUpdated = time.Now()
	w.report.Summary = w.summary()
	return atomicWriteJSON(w.path, w.report)
}

func (w *Writer) summary() Summary {
	s := Summary{Total: len(w.report.Steps), Executed: w.report.Summary.Executed}
	for i, step := range w.report.Steps {
		s.Visits += step.Visits
		switch step.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusPending:
			s.Pending++
		case StatusRunning:
			idx := i
			s.Current = &idx
		}
	}
	return s
}

func toError(err error) *Error {
	if err == nil {
		return nil
	}
	var ee *core.ExecutionError
	if errors.As(err, &ee) {
		return &Error{
			Category: ee.Category.String(),
			Code:     ee.Code,
			Message:  err.Error(),
			Details:  ee.Details,
		}
	}
	return &Error{Category: core.ErrCategoryNone.String(), Message: err.Error()}
}

// atomicWriteJSON writes v to a temp file next to path and renames it.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
