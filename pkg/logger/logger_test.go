package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestDiscardBeforeInit(t *testing.T) {
	Close()
	Info("dropped %d", 1)
	if GetWriter() != io.Discard {
		t.Error("GetWriter() should be io.Discard without a log file")
	}
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.log")
	if err := Init(Config{Level: "debug", Format: "json", Output: "file", FilePath: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Close()

	Debug("step %d started", 3)
	Warn("launch failed: %s", "notepad")
	L().Info("structured", zap.String("run", "abc"))
	if GetWriter() == io.Discard {
		t.Error("GetWriter() should return the log file")
	}
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	got := string(data)
	for _, want := range []string{"step 3 started", "launch failed: notepad", `"run":"abc"`, `"level":"debug"`} {
		if !strings.Contains(got, want) {
			t.Errorf("log missing %q:\n%s", want, got)
		}
	}
}

func TestInitLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.log")
	if err := Init(Config{Level: "warn", Output: "file", FilePath: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Info("hidden")
	Error("shown")
	Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("error message missing")
	}
}

func TestInitInvalid(t *testing.T) {
	tests := []Config{
		{Level: "loud"},
		{Format: "xml"},
		{Output: "file"},
		{Output: "printer"},
	}
	for _, cfg := range tests {
		if err := Init(cfg); err == nil {
			t.Errorf("Init(%+v) expected error", cfg)
		}
	}
}
