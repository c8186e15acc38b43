package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

func TestConditionEvaluator_Evaluate(t *testing.T) {
	ce := NewConditionEvaluator()

	tests := []struct {
		cond     macro.IfCondition
		actual   string
		expected string
		want     bool
	}{
		{macro.CondEquals, "abc", "abc", true},
		{macro.CondEquals, "abc", "ABC", false},
		{macro.CondNotEquals, "abc", "abd", true},
		{macro.CondContains, "hello world", "lo w", true},
		{macro.CondNotContains, "hello", "x", true},
		{macro.CondStartsWith, "hello", "he", true},
		{macro.CondEndsWith, "hello", "lo", true},
		{macro.CondIsEmpty, "", "", true},
		{macro.CondIsEmpty, " ", "", false},
		{macro.CondIsNotEmpty, "x", "", true},
		{macro.CondGreaterThan, "10", "9", true},
		{macro.CondGreaterThan, "10", "abc", false},
		{macro.CondGreaterOrEqual, "2.5", "2.5", true},
		{macro.CondLessThan, "-1", "0", true},
		{macro.CondLessOrEqual, " 3 ", "3", true},
		{macro.CondMatches, "order-1234", `^order-\d+$`, true},
		{macro.CondMatches, "order-x", `^order-\d+$`, false},
	}

	for _, tt := range tests {
		got, err := ce.Evaluate(tt.cond, tt.actual, tt.expected, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s(%q, %q)", tt.cond, tt.actual, tt.expected)
	}
}

func TestConditionEvaluator_Expression(t *testing.T) {
	ce := NewConditionEvaluator()
	vars := map[string]string{"status": "ready", "count": "4"}

	ok, err := ce.Evaluate(macro.CondExpression, "", `status == "ready" && int(count) > 3`, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ce.Evaluate(macro.CondExpression, "", `missing == nil`, vars)
	require.NoError(t, err)
	assert.True(t, ok)

	// Cached program, new environment.
	ok, err = ce.Evaluate(macro.CondExpression, "", `status == "ready" && int(count) > 3`, map[string]string{"status": "busy", "count": "4"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConditionEvaluator_ExpressionIgnoresNameCase(t *testing.T) {
	ce := NewConditionEvaluator()
	vars := NewVariables(nil)
	vars.Set("Total", "3")

	for _, src := range []string{`total == "3"`, `Total == "3"`} {
		ok, err := ce.Evaluate(macro.CondExpression, "", src, vars.Bindings())
		require.NoError(t, err, src)
		assert.True(t, ok, src)
	}
}

func TestConditionEvaluator_ExpressionVariableHidesBuiltin(t *testing.T) {
	ce := NewConditionEvaluator()
	vars := NewVariables(map[string]string{"count": "3", "max": "9", "name": "abc"})

	ok, err := ce.Evaluate(macro.CondExpression, "", `count == "3" && max == "9"`, vars.Bindings())
	require.NoError(t, err)
	assert.True(t, ok)

	// Builtins that no variable shadows keep working.
	ok, err = ce.Evaluate(macro.CondExpression, "", `len(name) == 3`, vars.Bindings())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShadowedBuiltins(t *testing.T) {
	got := ShadowedBuiltins(map[string]string{"sum": "1", "count": "2", "total": "3"})
	assert.Equal(t, []string{"count", "sum"}, got)
	assert.Empty(t, ShadowedBuiltins(nil))
}

func TestConditionEvaluator_Errors(t *testing.T) {
	ce := NewConditionEvaluator()

	_, err := ce.Evaluate(macro.CondMatches, "x", "(", nil)
	assert.Error(t, err)

	_, err = ce.Evaluate(macro.CondExpression, "", "", nil)
	assert.Error(t, err)

	_, err = ce.Evaluate(macro.CondExpression, "", "1 +", nil)
	assert.Error(t, err)

	_, err = ce.Evaluate(macro.IfCondition("bogus"), "", "", nil)
	assert.Error(t, err)
}

func TestEvaluateRepeat(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, EvaluateRepeat(macro.Repetitions(3), LoopState{CompletedIterations: 2}, start))
	assert.False(t, EvaluateRepeat(macro.Repetitions(3), LoopState{CompletedIterations: 3}, start))

	state := LoopState{StartedAt: start, CompletedIterations: 7}
	assert.True(t, EvaluateRepeat(macro.ForSeconds(5), state, start.Add(4*time.Second)))
	assert.False(t, EvaluateRepeat(macro.ForSeconds(5), state, start.Add(5*time.Second)))

	assert.True(t, EvaluateRepeat(macro.Until("10:30:00"), state, start))
	assert.False(t, EvaluateRepeat(macro.Until("09:59:59"), state, start))
	assert.False(t, EvaluateRepeat(macro.Until("not a time"), state, start))

	assert.True(t, EvaluateRepeat(macro.Forever(), LoopState{CompletedIterations: 1 << 20}, start))
}

func TestEvaluateRepeatRepetitionsLoopsExactlyN(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(t, "n")
		state := LoopState{}
		visits := 0
		for {
			visits++
			state.CompletedIterations++
			if !EvaluateRepeat(macro.Repetitions(n), state, time.Time{}) {
				break
			}
		}
		if visits != n {
			t.Fatalf("loop ended after %d visits, want %d", visits, n)
		}
	})
}
