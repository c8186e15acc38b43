package executor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/vm"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// ConditionEvaluator decides If steps. Compiled expressions and regular
// expressions are cached and reused across runs.
type ConditionEvaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	patterns map[string]*regexp.Regexp
}

// NewConditionEvaluator creates an evaluator with empty caches.
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{
		programs: make(map[string]*vm.Program),
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Evaluate applies cond to actual (the variable's value) and expected.
// String comparisons are ordinal and case-sensitive. Numeric comparisons
// are false when either side is not a number. For Expression, expected is
// a boolean expr-lang expression over vars.
func (ce *ConditionEvaluator) Evaluate(cond macro.IfCondition, actual, expected string, vars map[string]string) (bool, error) {
	switch cond {
	case macro.CondEquals:
		return actual == expected, nil
	case macro.CondNotEquals:
		return actual != expected, nil
	case macro.CondContains:
		return strings.Contains(actual, expected), nil
	case macro.CondNotContains:
		return !strings.Contains(actual, expected), nil
	case macro.CondStartsWith:
		return strings.HasPrefix(actual, expected), nil
	case macro.CondEndsWith:
		return strings.HasSuffix(actual, expected), nil
	case macro.CondIsEmpty:
		return actual == "", nil
	case macro.CondIsNotEmpty:
		return actual != "", nil
	case macro.CondGreaterThan, macro.CondGreaterOrEqual, macro.CondLessThan, macro.CondLessOrEqual:
		return compareNumbers(cond, actual, expected), nil
	case macro.CondMatches:
		re, err := ce.pattern(expected)
		if err != nil {
			return false, err
		}
		return re.MatchString(actual), nil
	case macro.CondExpression:
		return ce.expression(expected, vars)
	}
	return false, fmt.Errorf("unknown if condition %q", cond)
}

func compareNumbers(cond macro.IfCondition, actual, expected string) bool {
	a, err := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if err != nil {
		return false
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	if err != nil {
		return false
	}
	switch cond {
	case macro.CondGreaterThan:
		return a > b
	case macro.CondGreaterOrEqual:
		return a >= b
	case macro.CondLessThan:
		return a < b
	default:
		return a <= b
	}
}

func (ce *ConditionEvaluator) pattern(src string) (*regexp.Regexp, error) {
	ce.mu.RLock()
	re, ok := ce.patterns[src]
	ce.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
	}
	ce.mu.Lock()
	ce.patterns[src] = re
	ce.mu.Unlock()
	return re, nil
}

// expression evaluates src with every variable bound as a string. Unknown
// names evaluate to nil. A variable named like an expr builtin (count, len,
// max...) hides that builtin.
func (ce *ConditionEvaluator) expression(src string, vars map[string]string) (bool, error) {
	if strings.TrimSpace(src) == "" {
		return false, fmt.Errorf("empty expression")
	}

	shadowed := ShadowedBuiltins(vars)
	key := src
	if len(shadowed) > 0 {
		key = src + "\x00" + strings.Join(shadowed, ",")
	}

	ce.mu.RLock()
	prg, ok := ce.programs[key]
	ce.mu.RUnlock()
	if !ok {
		var err error
		prg, err = CompileExpression(src, shadowed)
		if err != nil {
			return false, fmt.Errorf("expression compile error in %q: %w", src, err)
		}
		ce.mu.Lock()
		ce.programs[key] = prg
		ce.mu.Unlock()
	}

	env := make(map[string]any, len(vars))
	for k, v := range vars {
		env[k] = v
	}
	out, err := vm.Run(prg, env)
	if err != nil {
		return false, fmt.Errorf("expression %q failed: %w", src, err)
	}
	b, _ := out.(bool)
	return b, nil
}

// CompileExpression compiles a boolean If expression. Builtins named in
// disabled are turned off so variables of the same name resolve instead.
func CompileExpression(src string, disabled []string) (*vm.Program, error) {
	opts := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	}
	for _, name := range disabled {
		opts = append(opts, expr.DisableBuiltin(name))
	}
	return expr.Compile(src, opts...)
}

// ShadowedBuiltins returns the sorted names in vars that collide with expr
// builtins.
func ShadowedBuiltins(vars map[string]string) []string {
	var names []string
	for name := range vars {
		if _, ok := builtin.Index[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
