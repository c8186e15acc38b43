// Package validator checks macro files before playback.
// It parses every file upfront, follows EmbedMacroFile references, and
// reports every problem it finds instead of stopping at the first.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/builtin"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// ValidationError is one problem with its location. Step is -1 for
// file-level problems.
type ValidationError struct {
	File    string
	Step    int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: step %d: %s", e.File, e.Step+1, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Files lists validated macro paths, embedded macros included.
	Files []string
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator validates macro files.
type Validator struct {
	// MaxDepth limits embedding chains; 0 means no limit.
	MaxDepth int
}

// New creates a validator that allows maxDepth levels of embedding.
func New(maxDepth int) *Validator {
	return &Validator{MaxDepth: maxDepth}
}

// Validate validates a macro file or every .yaml/.yml file in a directory.
func (v *Validator) Validate(path string) *Result {
	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		result.add(path, -1, "cannot access: %v", err)
		return result
	}

	var files []string
	if info.IsDir() {
		files, err = collectMacroFiles(path)
		if err != nil {
			result.add(path, -1, "failed to scan directory: %v", err)
			return result
		}
	} else {
		files = []string{path}
	}

	validated := make(map[string]bool)
	for _, file := range files {
		v.validateFile(filepath.Clean(file), result, validated, nil)
	}
	return result
}

// ValidateMacro checks an already loaded macro. Embedded files are
// resolved against the macro's directory.
func (v *Validator) ValidateMacro(m *macro.Macro) *Result {
	result := &Result{}
	name := m.Name
	if m.SourcePath != "" {
		name = filepath.Clean(m.SourcePath)
	}
	v.validateSteps(m, name, result, make(map[string]bool), []string{name})
	return result
}

func (r *Result) add(file string, step int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, &ValidationError{File: file, Step: step, Message: fmt.Sprintf(format, args...)})
}

// collectMacroFiles finds all .yaml/.yml files in a directory.
func collectMacroFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// validateFile validates one file and the files it embeds.
func (v *Validator) validateFile(filePath string, result *Result, validated map[string]bool, chain []string) {
	for _, ancestor := range chain {
		if ancestor == filePath {
			cycle := append(append([]string{}, chain...), filePath)
			result.add(filePath, -1, "circular embedding: %s", strings.Join(cycle, " -> "))
			return
		}
	}
	if v.MaxDepth > 0 && len(chain) > v.MaxDepth {
		result.add(filePath, -1, "embedding depth exceeds %d: %s", v.MaxDepth, strings.Join(chain, " -> "))
		return
	}
	if validated[filePath] {
		return
	}

	m, err := macro.ParseFile(filePath)
	if err != nil {
		result.add(filePath, -1, "parse error: %v", err)
		return
	}

	validated[filePath] = true
	result.Files = append(result.Files, filePath)
	v.validateSteps(m, filePath, result, validated, append(chain, filePath))
}

func (v *Validator) validateSteps(m *macro.Macro, file string, result *Result, validated map[string]bool, chain []string) {
	labels := m.LabelIndex()
	checkTarget := func(i int, what string, t macro.GoToTarget) {
		if t.Kind != macro.TargetLabel {
			return
		}
		if _, ok := labels[strings.ToLower(strings.TrimSpace(t.Label))]; !ok {
			result.add(file, i, "%s: unknown label %q", what, t.Label)
		}
	}
	checkArea := func(i int, area macro.SearchArea) {
		if !area.HasRectangle() {
			return
		}
		if core.RectFromCorners(area.X1, area.Y1, area.X2, area.Y2).Empty() {
			result.add(file, i, "search area %s is empty", area)
		}
	}

	for i, s := range m.Steps() {
		if b, ok := s.Action.(macro.Brancher); ok {
			onTrue, onFalse := b.Branches()
			checkTarget(i, "onTrue", onTrue)
			checkTarget(i, "onFalse", onFalse)
		}

		switch a := s.Action.(type) {
		case nil:
			result.add(file, i, "step has no action")

		case macro.GoToAction:
			checkTarget(i, "goTo", a.Target)

		case macro.RepeatAction:
			checkTarget(i, "after", a.AfterRepeatGoTo)
			v.validateRepeat(a, i, file, labels, result)

		case macro.IfAction:
			if strings.TrimSpace(a.VariableName) == "" && a.Condition != macro.CondExpression {
				result.add(file, i, "if without variable")
			}
			validateCondition(a, i, file, result)

		case macro.WaitForTextInputAction:
			if a.Text == "" {
				result.add(file, i, "waitForTextInput without text")
			}

		case macro.WaitForScreenChangeAction:
			checkArea(i, a.Area)

		case macro.FindImageAction:
			checkArea(i, a.Area)
			if a.Template.IsEmpty() {
				result.add(file, i, "findImage without template")
			} else if !strings.Contains(a.Template.FilePath, "$") {
				if _, err := a.Template.Decode(m.Dir()); err != nil {
					result.add(file, i, "template: %v", err)
				}
			}

		case macro.FindTextOcrAction:
			checkArea(i, a.Area)
			if strings.TrimSpace(a.Text) == "" {
				result.add(file, i, "findTextOcr without text")
			}

		case macro.ExecuteProgramAction:
			if strings.TrimSpace(a.Path) == "" {
				result.add(file, i, "executeProgram without path")
			}

		case macro.EmbedMacroFileAction:
			path := strings.TrimSpace(a.Path)
			switch {
			case path == "":
				result.add(file, i, "embedMacroFile without path")
			case strings.Contains(path, "$"):
				// Resolved at run time.
			default:
				if !filepath.IsAbs(path) && m.Dir() != "" {
					path = filepath.Join(m.Dir(), path)
				}
				v.validateFile(filepath.Clean(path), result, validated, chain)
			}
		}
	}
}

func (v *Validator) validateRepeat(a macro.RepeatAction, i int, file string, labels map[string]int, result *Result) {
	start := strings.TrimSpace(a.StartLabel)
	if start == "" {
		result.add(file, i, "repeat without start label")
	} else if _, ok := labels[strings.ToLower(start)]; !ok {
		result.add(file, i, "repeat: unknown start label %q", a.StartLabel)
	}

	c := a.Condition
	switch c.Kind {
	case macro.RepeatRepetitions:
		if c.Repetitions < 0 {
			result.add(file, i, "repeat count must be >= 0, got %d", c.Repetitions)
		}
	case macro.RepeatSeconds:
		if c.Seconds < 0 {
			result.add(file, i, "repeat seconds must be >= 0, got %d", c.Seconds)
		}
	case macro.RepeatUntil:
		if _, err := c.UntilToday(time.Time{}); err != nil {
			result.add(file, i, "repeat: %v", err)
		}
	}
}

// validateCondition compiles static patterns and expressions. Values that
// reference variables are only known at run time.
func validateCondition(a macro.IfAction, i int, file string, result *Result) {
	if strings.Contains(a.Value, "$") {
		return
	}
	switch a.Condition {
	case macro.CondMatches:
		if _, err := regexp.Compile(a.Value); err != nil {
			result.add(file, i, "invalid pattern %q: %v", a.Value, err)
		}
	case macro.CondExpression:
		if err := compileExpression(a.Value); err != nil {
			result.add(file, i, "invalid expression %q: %v", a.Value, err)
		}
	}
}

// compileExpression accepts src if it compiles with the expr builtins, or
// with all of them hidden by variables of the same name.
func compileExpression(src string) error {
	opts := []expr.Option{expr.Env(map[string]any{}), expr.AllowUndefinedVariables(), expr.AsBool()}
	_, err := expr.Compile(src, opts...)
	if err == nil {
		return nil
	}
	for _, name := range builtin.Names {
		opts = append(opts, expr.DisableBuiltin(name))
	}
	if _, shadowedErr := expr.Compile(src, opts...); shadowedErr == nil {
		return nil
	}
	return err
}
