package executor

import (
	"time"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// EvaluateRepeat reports whether a Repeat step loops again, given its state
// after the current visit was counted.
//
// Until compares now against the given time of day on now's date; once that
// moment has passed the loop ends at the next visit.
func EvaluateRepeat(cond macro.RepeatCondition, state LoopState, now time.Time) bool {
	switch cond.Kind {
	case macro.RepeatRepetitions:
		return state.CompletedIterations < cond.Repetitions
	case macro.RepeatSeconds:
		return now.Sub(state.StartedAt) < time.Duration(cond.Seconds)*time.Second
	case macro.RepeatUntil:
		until, err := cond.UntilToday(now)
		if err != nil {
			logger.Warn("repeat: %v, ending loop", err)
			return false
		}
		return now.Before(until)
	case macro.RepeatInfinite:
		return true
	}
	return false
}
