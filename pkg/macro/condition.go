package macro

import (
	"fmt"
	"strings"
	"time"
)

// RepeatKind selects how a Repeat decides to loop again.
type RepeatKind int

// RepeatKind values
const (
	RepeatRepetitions RepeatKind = iota
	RepeatSeconds
	RepeatUntil
	RepeatInfinite
)

// UntilLayout is the time-of-day layout of RepeatCondition.UntilTime.
const UntilLayout = "15:04:05"

// RepeatCondition is the continuation rule of a Repeat step.
type RepeatCondition struct {
	Kind        RepeatKind
	Seconds     int
	Repetitions int
	UntilTime   string // HH:mm:ss
}

// Repetitions returns a condition that loops n times.
func Repetitions(n int) RepeatCondition {
	return RepeatCondition{Kind: RepeatRepetitions, Repetitions: n}
}

// ForSeconds returns a condition that loops while fewer than s seconds passed.
func ForSeconds(s int) RepeatCondition {
	return RepeatCondition{Kind: RepeatSeconds, Seconds: s}
}

// Until returns a condition that loops until a time of day (HH:mm:ss).
func Until(hhmmss string) RepeatCondition {
	return RepeatCondition{Kind: RepeatUntil, UntilTime: hhmmss}
}

// Forever returns a condition that never ends the loop.
func Forever() RepeatCondition {
	return RepeatCondition{Kind: RepeatInfinite}
}

// UntilToday returns the UntilTime on the date of now, in now's location.
func (c RepeatCondition) UntilToday(now time.Time) (time.Time, error) {
	t, err := time.Parse(UntilLayout, strings.TrimSpace(c.UntilTime))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid until time %q: %w", c.UntilTime, err)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, now.Location()), nil
}

func (c RepeatCondition) String() string {
	switch c.Kind {
	case RepeatRepetitions:
		return fmt.Sprintf("%d times", c.Repetitions)
	case RepeatSeconds:
		return fmt.Sprintf("for %d s", c.Seconds)
	case RepeatUntil:
		return "until " + c.UntilTime
	case RepeatInfinite:
		return "forever"
	default:
		return "unknown"
	}
}

// IfCondition is the comparison an If step applies to its variable.
type IfCondition string

// IfCondition values
const (
	CondEquals         IfCondition = "equals"
	CondNotEquals      IfCondition = "notEquals"
	CondContains       IfCondition = "contains"
	CondNotContains    IfCondition = "notContains"
	CondStartsWith     IfCondition = "startsWith"
	CondEndsWith       IfCondition = "endsWith"
	CondIsEmpty        IfCondition = "isEmpty"
	CondIsNotEmpty     IfCondition = "isNotEmpty"
	CondGreaterThan    IfCondition = "greaterThan"
	CondGreaterOrEqual IfCondition = "greaterOrEqual"
	CondLessThan       IfCondition = "lessThan"
	CondLessOrEqual    IfCondition = "lessOrEqual"
	CondMatches        IfCondition = "matches"
	CondExpression     IfCondition = "expression"
)

var ifConditions = []IfCondition{
	CondEquals, CondNotEquals, CondContains, CondNotContains, CondStartsWith,
	CondEndsWith, CondIsEmpty, CondIsNotEmpty, CondGreaterThan, CondGreaterOrEqual,
	CondLessThan, CondLessOrEqual, CondMatches, CondExpression,
}

// ParseIfCondition maps a name (case-insensitive) to an IfCondition.
// An empty name is Equals.
func ParseIfCondition(s string) (IfCondition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CondEquals, nil
	}
	for _, c := range ifConditions {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown if condition %q", s)
}
