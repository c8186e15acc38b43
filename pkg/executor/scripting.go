package executor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/jsengine"
)

// ScriptEngine expands variables in macro text and resolves paths relative
// to the macro being run.
type ScriptEngine struct {
	js       *jsengine.Engine
	vars     *Variables
	macroDir string // Directory of the running macro (for relative paths)
}

// NewScriptEngine creates a script engine over vars.
func NewScriptEngine(vars *Variables) *ScriptEngine {
	return &ScriptEngine{
		js:   jsengine.New(),
		vars: vars,
	}
}

// SetTimeout bounds a single ${...} evaluation.
func (se *ScriptEngine) SetTimeout(d time.Duration) {
	se.js.SetTimeout(d)
}

// SetMacroDir sets the directory relative paths are resolved against.
func (se *ScriptEngine) SetMacroDir(dir string) {
	se.macroDir = dir
}

// MacroDir returns the current macro directory.
func (se *ScriptEngine) MacroDir() string {
	return se.macroDir
}

// enterDir switches the macro directory and returns a restore function.
func (se *ScriptEngine) enterDir(dir string) func() {
	old := se.macroDir
	se.macroDir = dir
	return func() {
		se.macroDir = old
	}
}

// ExpandVariables expands ${NAME}, ${expression} and $NAME in text.
// ${NAME} naming a variable is substituted directly; any other ${...} is
// evaluated as JavaScript with every variable bound as a global, and left
// as-is when evaluation fails. $NAME is replaced only when the whole
// identifier names a variable. Only cancellation of ctx is an error.
func (se *ScriptEngine) ExpandVariables(ctx context.Context, text string) (string, error) {
	if !strings.Contains(text, "$") {
		return text, nil
	}

	// First pass: ${NAME} lookups and ${expression} via the JS engine
	text = se.expandBracedNames(text)
	if strings.Contains(text, "${") {
		se.js.SetVariables(se.vars.Bindings())
		result, err := se.js.ExpandVariablesContext(ctx, text)
		if err != nil {
			return text, err
		}
		text = result
	}

	// Second pass: $NAME without braces
	return se.expandDollarVars(text), nil
}

// expandBracedNames replaces ${NAME} where NAME is a known variable.
func (se *ScriptEngine) expandBracedNames(text string) string {
	var b strings.Builder
	idx := 0
	for {
		pos := strings.Index(text[idx:], "${")
		if pos == -1 {
			break
		}
		pos += idx
		end := strings.IndexByte(text[pos:], '}')
		if end == -1 {
			break
		}
		end += pos

		name := strings.TrimSpace(text[pos+2 : end])
		value, ok := "", false
		if isIdentifier(name) {
			value, ok = se.vars.Lookup(name)
		}
		b.WriteString(text[idx:pos])
		if ok {
			b.WriteString(value)
		} else {
			b.WriteString(text[pos : end+1])
		}
		idx = end + 1
	}
	b.WriteString(text[idx:])
	return b.String()
}

// expandDollarVars replaces $NAME, checking identifier boundaries so $AB
// never expands a variable named A.
func (se *ScriptEngine) expandDollarVars(text string) string {
	var b strings.Builder
	idx := 0
	for {
		pos := strings.IndexByte(text[idx:], '$')
		if pos == -1 {
			break
		}
		pos += idx

		end := pos + 1
		for end < len(text) && isIdentByte(text[end], end == pos+1) {
			end++
		}

		b.WriteString(text[idx:pos])
		if value, ok := se.vars.Lookup(text[pos+1 : end]); ok && end > pos+1 {
			b.WriteString(value)
		} else {
			b.WriteString(text[pos:end])
		}
		idx = end
	}
	b.WriteString(text[idx:])
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte, first bool) bool {
	if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
		return true
	}
	return !first && c >= '0' && c <= '9'
}

// ResolvePath resolves a relative path against the macro directory.
func (se *ScriptEngine) ResolvePath(path string) string {
	if filepath.IsAbs(path) || se.macroDir == "" {
		return path
	}
	return filepath.Join(se.macroDir, path)
}
