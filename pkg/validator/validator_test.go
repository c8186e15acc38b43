package validator

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func hasError(result *Result, substr string) bool {
	for _, err := range result.Errors {
		if strings.Contains(err.Error(), substr) {
			return true
		}
	}
	return false
}

func TestValidate_SingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "login.yaml")
	writeFile(t, file, `
name: Login
---
- mouseClick: {x: 10, y: 20}
  label: Begin
- keyPress: {key: a}
- repeat: {start: Begin, times: 3}
- goTo: end
`)

	result := New(5).Validate(file)

	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Files) != 1 {
		t.Errorf("expected 1 file, got %d", len(result.Files))
	}
}

func TestValidate_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.yaml"), `- wait: 10`)
	writeFile(t, filepath.Join(dir, "two.yml"), `- wait: 20`)
	writeFile(t, filepath.Join(dir, "notes.txt"), `not a macro`)

	result := New(5).Validate(dir)

	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(result.Files))
	}
}

func TestValidate_UnknownLabels(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")
	writeFile(t, file, `
- goTo: Nowhere
- if: {variable: x, condition: equals, value: "1", onTrue: Missing, onFalse: next}
- waitForPixelColor: {x: 1, y: 1, color: "#000000", onFalse: Gone}
- repeat: {start: Absent, times: 2, after: Lost}
`)

	result := New(5).Validate(file)

	for _, want := range []string{
		`step 1: goTo: unknown label "Nowhere"`,
		`step 2: onTrue: unknown label "Missing"`,
		`step 3: onFalse: unknown label "Gone"`,
		`step 4: repeat: unknown start label "Absent"`,
		`step 4: after: unknown label "Lost"`,
	} {
		if !hasError(result, want) {
			t.Errorf("expected error %q, got %v", want, result.Errors)
		}
	}
}

func TestValidate_LabelsAreCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "case.yaml")
	writeFile(t, file, `
- wait: 1
  label: Loop
- goTo: LOOP
`)

	result := New(5).Validate(file)
	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
}

func TestValidate_StepContents(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "contents.yaml")
	writeFile(t, file, `
- waitForTextInput: {timeout: 100}
- findTextOcr: {area: desktop, text: "  "}
- findImage: {area: desktop, template: missing.png}
- findImage:
    area: {kind: areaOfDesktop, x1: 10, y1: 10, x2: 10, y2: 50}
    template: button.png
- executeProgram: {args: [x]}
- if: {variable: x, condition: matches, value: "("}
- if: {condition: expression, value: "1 +"}
- repeat: {times: 1}
- embedMacroFile: ""
`)
	writeTemplate(t, filepath.Join(dir, "button.png"))

	result := New(5).Validate(file)

	for _, want := range []string{
		"step 1: waitForTextInput without text",
		"step 2: findTextOcr without text",
		"step 3: template: open template",
		"step 4: search area desktop(10,10)-(10,50) is empty",
		"step 5: executeProgram without path",
		"step 6: invalid pattern",
		"step 7: invalid expression",
		"step 8: repeat without start label",
		"step 9: embedMacroFile without path",
	} {
		if !hasError(result, want) {
			t.Errorf("expected error %q, got %v", want, result.Errors)
		}
	}
	if len(result.Errors) != 9 {
		t.Errorf("expected 9 errors, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestValidate_VariableReferencesDeferred(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "vars.yaml")
	writeFile(t, file, `
- if: {variable: x, condition: matches, value: "${pattern}"}
- findImage: {area: desktop, template: "${dir}/button.png"}
- embedMacroFile: "$sub"
`)

	result := New(5).Validate(file)
	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
}

func TestValidate_ExpressionWithBuiltinNamedVariable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "builtin.yaml")
	writeFile(t, file, `
- if: {condition: expression, value: 'count == "3"'}
- if: {condition: expression, value: "len(name) > 2"}
`)

	result := New(5).Validate(file)
	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
}

func TestValidate_EmbedResolution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.yaml"), `
- wait: 1
- embedMacroFile: parts/sub.yaml
`)
	writeFile(t, filepath.Join(dir, "parts", "sub.yaml"), `
- embedMacroFile: leaf.yaml
`)
	writeFile(t, filepath.Join(dir, "parts", "leaf.yaml"), `- wait: 2`)

	result := New(5).Validate(filepath.Join(dir, "main.yaml"))

	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Files) != 3 {
		t.Errorf("expected 3 files, got %d: %v", len(result.Files), result.Files)
	}
}

func TestValidate_CircularEmbedding(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), `- embedMacroFile: b.yaml`)
	writeFile(t, filepath.Join(dir, "b.yaml"), `- embedMacroFile: a.yaml`)

	result := New(0).Validate(filepath.Join(dir, "a.yaml"))

	if result.IsValid() {
		t.Fatal("expected circular embedding error")
	}
	if !hasError(result, "circular embedding") {
		t.Errorf("expected circular embedding error, got %v", result.Errors)
	}
}

func TestValidate_SelfEmbedding(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "self.yaml")
	writeFile(t, file, `- embedMacroFile: self.yaml`)

	result := New(0).Validate(file)
	if !hasError(result, "circular embedding") {
		t.Errorf("expected circular embedding error, got %v", result.Errors)
	}
}

func TestValidate_EmbeddingDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "l0.yaml"), `- embedMacroFile: l1.yaml`)
	writeFile(t, filepath.Join(dir, "l1.yaml"), `- embedMacroFile: l2.yaml`)
	writeFile(t, filepath.Join(dir, "l2.yaml"), `- wait: 1`)

	if result := New(2).Validate(filepath.Join(dir, "l0.yaml")); !result.IsValid() {
		t.Errorf("depth 2 should be allowed, got %v", result.Errors)
	}
	if result := New(1).Validate(filepath.Join(dir, "l0.yaml")); !hasError(result, "embedding depth exceeds 1") {
		t.Errorf("expected depth error, got %v", result.Errors)
	}
}

func TestValidate_MissingEmbeddedFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.yaml")
	writeFile(t, file, `- embedMacroFile: gone.yaml`)

	result := New(5).Validate(file)
	if !hasError(result, "parse error") {
		t.Errorf("expected parse error for missing file, got %v", result.Errors)
	}
}

func TestValidate_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "broken.yaml")
	writeFile(t, file, `- mouseClick: [unclosed`)

	result := New(5).Validate(file)
	if result.IsValid() {
		t.Error("expected parse error")
	}
}

func TestValidate_NonExistentPath(t *testing.T) {
	result := New(5).Validate(filepath.Join(t.TempDir(), "nope.yaml"))
	if !hasError(result, "cannot access") {
		t.Errorf("expected access error, got %v", result.Errors)
	}
}

func TestValidate_SharedDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), `- embedMacroFile: common.yaml`)
	writeFile(t, filepath.Join(dir, "b.yaml"), `- embedMacroFile: common.yaml`)
	writeFile(t, filepath.Join(dir, "common.yaml"), `- wait: 1`)

	result := New(5).Validate(dir)
	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Files) != 3 {
		t.Errorf("expected each file once, got %v", result.Files)
	}
}

func TestValidateMacro(t *testing.T) {
	m := macro.New("inline",
		macro.Step{Action: macro.WaitAction{Milliseconds: 1}, Label: "top"},
		macro.Step{Action: macro.GoToAction{Target: macro.Label("top")}},
		macro.Step{Action: macro.GoToAction{Target: macro.Label("bottom")}},
	)

	result := New(5).ValidateMacro(m)
	if len(result.Errors) != 1 || !hasError(result, `inline: step 3: goTo: unknown label "bottom"`) {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func writeTemplate(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}
