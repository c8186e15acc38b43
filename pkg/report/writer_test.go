package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/executor"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

func testMacro() *macro.Macro {
	m := macro.New("sample",
		macro.Step{Action: macro.KeyPressAction{Key: 'A'}, Label: "Loop"},
		macro.Step{Action: macro.WaitAction{Milliseconds: 10}},
		macro.Step{Action: macro.RepeatAction{StartLabel: "Loop", Condition: macro.Repetitions(2)}},
		macro.Step{Action: macro.KeyPressAction{Key: 'Z'}},
	)
	m.SourcePath = "/macros/sample.yaml"
	return m
}

func TestNewWriter_Skeleton(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	_, err := NewWriter(path, testMacro(), Config{RunnerVersion: "dev", Backend: "mock", Variables: map[string]string{"USER": "bob"}})
	require.NoError(t, err)

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Version, r.Version)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "sample", r.Macro.Name)
	assert.Equal(t, "/macros/sample.yaml", r.Macro.SourceFile)
	assert.Equal(t, "bob", r.Macro.Variables["USER"])
	assert.Equal(t, "mock", r.Runner.Backend)
	require.Len(t, r.Steps, 4)
	assert.Equal(t, "keyPress", r.Steps[0].Type)
	assert.Equal(t, "Loop", r.Steps[0].Label)
	assert.Equal(t, "Press a", r.Steps[0].Description)
	assert.Equal(t, Summary{Total: 4, Pending: 4}, r.Summary)
}

func TestWriter_CompletedRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w, err := NewWriter(path, testMacro(), Config{})
	require.NoError(t, err)

	w.Start()
	for _, i := range []int{0, 1, 2, 0, 1, 2} {
		w.StepStarted(i)
	}
	mid := w.Report()
	assert.Equal(t, StatusRunning, mid.Steps[2].Status)
	assert.Equal(t, StatusPassed, mid.Steps[1].Status)

	require.NoError(t, w.Finish(executor.RunResult{RunID: "run-1", Status: core.RunCompleted, StepsExecuted: 6, Started: time.Now(), Duration: 1500 * time.Millisecond}))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, StatusPassed, r.Status)
	require.NotNil(t, r.Duration)
	assert.Equal(t, int64(1500), *r.Duration)
	require.NotNil(t, r.EndTime)
	assert.Equal(t, 1500*time.Millisecond, r.EndTime.Sub(r.StartTime))
	assert.Nil(t, r.Error)

	assert.Equal(t, 2, r.Steps[0].Visits)
	assert.Equal(t, StatusPassed, r.Steps[2].Status)
	assert.Equal(t, StatusSkipped, r.Steps[3].Status)
	assert.Equal(t, 0, r.Steps[3].Visits)
	assert.Equal(t, Summary{Total: 4, Passed: 3, Skipped: 1, Visits: 6, Executed: 6}, r.Summary)
}

func TestWriter_FailedRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w, err := NewWriter(path, testMacro(), Config{})
	require.NoError(t, err)

	w.Start()
	w.StepStarted(0)
	w.StepStarted(1)
	failure := core.ErrUnresolvedLabel.WithMessage(`label "x" not found`).WithDetails(map[string]interface{}{"step": 1})
	require.NoError(t, w.Finish(executor.RunResult{RunID: "run-2", Status: core.RunFailed, Err: failure, StepsExecuted: 2}))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-2", r.RunID)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, StatusPassed, r.Steps[0].Status)
	assert.Equal(t, StatusFailed, r.Steps[1].Status)
	require.NotNil(t, r.Error)
	assert.Equal(t, "control_flow", r.Error.Category)
	assert.Equal(t, "unresolved_label", r.Error.Code)
	assert.Equal(t, float64(1), r.Error.Details["step"])
	assert.Equal(t, 1, r.Summary.Failed)
}

func TestWriter_PlainErrorAndCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w, err := NewWriter(path, testMacro(), Config{})
	require.NoError(t, err)
	w.StepStarted(3)
	require.NoError(t, w.Finish(executor.RunResult{Status: core.RunFailed, Err: errors.New("boom"), StepsExecuted: 1}))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "none", r.Error.Category)
	assert.Equal(t, "boom", r.Error.Message)

	w2, err := NewWriter(path, testMacro(), Config{})
	require.NoError(t, err)
	w2.StepStarted(0)
	require.NoError(t, w2.Finish(executor.RunResult{Status: core.RunCancelled, StepsExecuted: 1}))
	r, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Equal(t, StatusCancelled, r.Steps[0].Status)
}

func TestWriter_IgnoresOutOfRange(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "report.json"), testMacro(), Config{})
	require.NoError(t, err)
	w.StepStarted(-1)
	w.StepStarted(99)
	r := w.Report()
	for _, s := range r.Steps {
		assert.Zero(t, s.Visits)
	}
}

func TestAtomicWriteJSON_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.json")
	require.NoError(t, atomicWriteJSON(path, map[string]int{"a": 1}))
	require.NoError(t, atomicWriteJSON(path, map[string]int{"a": 2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 2}`, string(data))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	for _, s := range []Status{StatusPassed, StatusFailed, StatusSkipped, StatusCancelled} {
		assert.True(t, s.IsTerminal(), s)
	}
}
