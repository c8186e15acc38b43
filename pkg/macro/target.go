package macro

import "strings"

// TargetKind is where a GoToTarget points.
type TargetKind int

// TargetKind values
const (
	TargetNext TargetKind = iota
	TargetStart
	TargetEnd
	TargetLabel
)

// GoToTarget is a jump destination. Label is only meaningful for TargetLabel.
type GoToTarget struct {
	Kind  TargetKind
	Label string
}

// Next returns the fall-through target.
func Next() GoToTarget { return GoToTarget{Kind: TargetNext} }

// Start returns the first-step target.
func Start() GoToTarget { return GoToTarget{Kind: TargetStart} }

// End returns the last-step target.
func End() GoToTarget { return GoToTarget{Kind: TargetEnd} }

// Label returns a target that jumps to the step carrying label.
func Label(label string) GoToTarget { return GoToTarget{Kind: TargetLabel, Label: label} }

func (t GoToTarget) String() string {
	switch t.Kind {
	case TargetStart:
		return "Start"
	case TargetEnd:
		return "End"
	case TargetLabel:
		return "Label(" + t.Label + ")"
	default:
		return "Next"
	}
}

// ParseTarget maps a keyword (start, next, end) to its target; any other
// non-empty text is a label. Empty text is Next.
func ParseTarget(s string) GoToTarget {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "next":
		return Next()
	case "start":
		return Start()
	case "end":
		return End()
	}
	return Label(s)
}
