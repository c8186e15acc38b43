package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/config"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/report"
)

// testApp returns the app writing to a buffer, and a config file keeping
// logs quiet.
func testApp(t *testing.T) (*cli.App, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "player:\n  findPollMs: 5\n  pixelPollMs: 5\n  changePollMs: 5\nlog:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app, &out, cfgPath
}

func writeMacro(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const threeKeys = `
name: Keys
---
- keyPress: {key: a}
  label: First
- keyPress: {key: b}
- keyPress: {key: c}
  label: Last
`

func TestGlobalFlags(t *testing.T) {
	flagNames := make(map[string]bool)
	for _, f := range GlobalFlags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{"config", "verbose", "v", "log-file", "no-ansi"} {
		if !flagNames[name] {
			t.Errorf("expected flag %q to be defined", name)
		}
	}
}

func TestPlayCommand_NoArgs(t *testing.T) {
	app, _, _ := testApp(t)
	if err := app.Run([]string{"macrotool", "play"}); err == nil {
		t.Error("expected error when no macro file provided")
	}
}

func TestPlayCommand_ExclusiveFlags(t *testing.T) {
	app, _, cfg := testApp(t)
	file := writeMacro(t, "keys.yaml", threeKeys)

	err := app.Run([]string{"macrotool", "--config", cfg, "play", "--from", "2", "--select", "1", file})
	if err == nil || !strings.Contains(err.Error(), "--select") {
		t.Errorf("expected --select conflict, got %v", err)
	}
	err = app.Run([]string{"macrotool", "--config", cfg, "play", "--from", "2", "--until", "3", file})
	if err == nil || !strings.Contains(err.Error(), "exclusive") {
		t.Errorf("expected --from/--until conflict, got %v", err)
	}
}

func TestPlayCommand_DryRun(t *testing.T) {
	app, out, cfg := testApp(t)
	file := writeMacro(t, "keys.yaml", threeKeys)

	if err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "play", "--dry-run", file}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Keys", "First", "keyDown a", "keyUp c", "Completed", "3 steps"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlayCommand_DryRunFrom(t *testing.T) {
	app, out, cfg := testApp(t)
	file := writeMacro(t, "keys.yaml", threeKeys)

	if err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "play", "--dry-run", "--from", "3", file}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "keyDown a") || !strings.Contains(got, "keyDown c") {
		t.Errorf("expected only step 3 to run:\n%s", got)
	}
}

func TestPlayCommand_DryRunSelect(t *testing.T) {
	app, out, cfg := testApp(t)
	file := writeMacro(t, "keys.yaml", threeKeys)

	if err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "play", "--dry-run", "--select", "3,1", file}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "keyDown b") {
		t.Errorf("step 2 should be skipped:\n%s", got)
	}
	if strings.Index(got, "keyDown a") > strings.Index(got, "keyDown c") {
		t.Errorf("selected steps should run in macro order:\n%s", got)
	}
}

func TestPlayCommand_Report(t *testing.T) {
	app, out, cfg := testApp(t)
	file := writeMacro(t, "keys.yaml", threeKeys)
	reportPath := filepath.Join(t.TempDir(), "run.json")

	args := []string{"macrotool", "--no-ansi", "--config", cfg, "play", "--dry-run", "--until", "2", "--report", reportPath, file}
	if err := app.Run(args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Report: "+reportPath) {
		t.Errorf("expected report path in output:\n%s", out.String())
	}

	r, err := report.Load(reportPath)
	if err != nil {
		t.Fatalf("failed to load report: %v", err)
	}
	if r.Status != report.StatusPassed || r.Runner.Backend != "mock" || r.RunID == "" {
		t.Errorf("unexpected report header: %+v", r)
	}
	want := []report.Status{report.StatusPassed, report.StatusPassed, report.StatusSkipped}
	for i, s := range r.Steps {
		if s.Status != want[i] {
			t.Errorf("step %d status = %s, want %s", i, s.Status, want[i])
		}
	}
}

func TestPlayCommand_StepOutOfRange(t *testing.T) {
	app, _, cfg := testApp(t)
	file := writeMacro(t, "keys.yaml", threeKeys)

	err := app.Run([]string{"macrotool", "--config", cfg, "play", "--dry-run", "--until", "9", file})
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected out of range error, got %v", err)
	}
}

func TestPlayCommand_VariablesDriveBranches(t *testing.T) {
	app, out, cfg := testApp(t)
	file := writeMacro(t, "vars.yaml", `
- if: {variable: mode, value: fast, onFalse: Slow}
- keyPress: {key: f}
- goTo: Done
- keyPress: {key: s}
  label: Slow
- wait: 0
  label: Done
`)

	if err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "play", "--dry-run", "-e", "MODE=fast", file}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "keyDown f") || strings.Contains(got, "keyDown s") {
		t.Errorf("expected fast branch:\n%s", got)
	}
}

func TestPlayCommand_ValidationBlocksPlayback(t *testing.T) {
	app, out, cfg := testApp(t)
	file := writeMacro(t, "bad.yaml", `
- keyPress: {key: a}
- goTo: Missing
`)

	err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "play", "--dry-run", file})
	if err == nil || !strings.Contains(err.Error(), "1 problem") {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if strings.Contains(out.String(), "keyDown a") {
		t.Error("nothing should be played when validation fails")
	}
}

func TestPlayCommand_FailureReturnsError(t *testing.T) {
	app, out, cfg := testApp(t)
	file := writeMacro(t, "bad.yaml", `
- keyPress: {key: a}
- goTo: Missing
`)

	err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "play", "--dry-run", "--skip-validation", file})
	if !errors.Is(err, core.ErrUnresolvedLabel) {
		t.Fatalf("expected unresolved label error, got %v", err)
	}
	if !strings.Contains(out.String(), "Failed") {
		t.Errorf("expected failure summary:\n%s", out.String())
	}
}

func TestValidateCommand(t *testing.T) {
	app, out, cfg := testApp(t)
	good := writeMacro(t, "good.yaml", threeKeys)
	bad := writeMacro(t, "bad.yaml", `- repeat: {start: Nowhere, times: 2}`)

	if err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "validate", good}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := app.Run([]string{"macrotool", "--no-ansi", "--config", cfg, "validate", good, bad})
	if err == nil || !strings.Contains(err.Error(), "1 problem") {
		t.Errorf("expected one problem, got %v", err)
	}
	if !strings.Contains(out.String(), `unknown start label "Nowhere"`) {
		t.Errorf("expected problem in output:\n%s", out.String())
	}
}

func TestLabelsCommand(t *testing.T) {
	app, out, _ := testApp(t)
	file := writeMacro(t, "keys.yaml", threeKeys)

	if err := app.Run([]string{"macrotool", "--no-ansi", "labels", file}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "   1  First: Press a\n   3  Last: Press c\n"
	if out.String() != want {
		t.Errorf("labels output = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := app.Run([]string{"macrotool", "--no-ansi", "labels", "--all", file}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "   2  Press b\n") {
		t.Errorf("expected unlabeled step with --all:\n%s", out.String())
	}
}

func TestResolveMacroPath_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	config.ResetHome()
	t.Setenv("MACROTOOL_HOME", home)
	defer config.ResetHome()

	macros := filepath.Join(home, "macros")
	if err := os.MkdirAll(macros, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(macros, "saved.yaml"), []byte("- wait: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := resolveMacroPath("saved.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != filepath.Join(macros, "saved.yaml") {
		t.Errorf("got %s", got)
	}

	if _, err := resolveMacroPath("absent.yaml"); err == nil {
		t.Error("expected error for missing macro")
	}
}

func TestParseEnvVars(t *testing.T) {
	got := parseEnvVars([]string{"USER=bob", "EXPR=a=b", "invalid", "EMPTY="})
	want := map[string]string{"USER": "bob", "EXPR": "a=b", "EMPTY": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseEnvVars = %v, want %v", got, want)
	}
}

func TestParseStepList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"3", []int{3}, false},
		{"5,1,3", []int{1, 3, 5}, false},
		{"1,3-5, 4", []int{1, 3, 4, 5}, false},
		{"2,,2", []int{2}, false},
		{"x", nil, true},
		{"5-3", nil, true},
		{"1-y", nil, true},
	}

	for _, tc := range tests {
		got, err := parseStepList(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseStepList(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseStepList(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseStepList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms       int64
		expected string
	}{
		{0, "0ms"},
		{999, "999ms"},
		{1000, "1.0s"},
		{1500, "1.5s"},
		{59999, "60.0s"},
		{60000, "1m 0s"},
		{125000, "2m 5s"},
	}

	for _, tc := range tests {
		result := formatDuration(tc.ms)
		if result != tc.expected {
			t.Errorf("formatDuration(%d) = %q, expected %q", tc.ms, result, tc.expected)
		}
	}
}
