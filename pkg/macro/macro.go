package macro

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Step is one entry of a macro: an action plus optional label and comment.
type Step struct {
	Action  Action
	Label   string
	Comment string
}

// Describe returns a human-readable description.
func (s Step) Describe() string {
	if s.Action == nil {
		return "<empty>"
	}
	return s.Action.Describe()
}

// TrimmedLabel returns the label without surrounding whitespace.
func (s Step) TrimmedLabel() string {
	return strings.TrimSpace(s.Label)
}

// Macro is an ordered list of steps whose non-empty trimmed labels are
// unique (case-insensitive).
type Macro struct {
	Name       string
	SourcePath string            // Path the macro was loaded from, if any
	Env        map[string]string // Variables defined by the macro document
	steps      []Step
}

// New creates a macro from steps, renaming colliding labels in order.
func New(name string, steps ...Step) *Macro {
	m := &Macro{Name: name}
	for _, s := range steps {
		m.Append(s)
	}
	return m
}

// Dir returns the directory of the macro's source file, or "".
func (m *Macro) Dir() string {
	if m == nil || m.SourcePath == "" {
		return ""
	}
	return filepath.Dir(m.SourcePath)
}

// Len returns the number of steps.
func (m *Macro) Len() int {
	if m == nil {
		return 0
	}
	return len(m.steps)
}

// Step returns the step at index i.
func (m *Macro) Step(i int) Step {
	return m.steps[i]
}

// Steps returns a copy of the step list.
func (m *Macro) Steps() []Step {
	out := make([]Step, len(m.steps))
	copy(out, m.steps)
	return out
}

// Append adds a step at the end.
func (m *Macro) Append(s Step) {
	m.Insert(len(m.steps), s)
}

// Insert places s at index i (0 <= i <= Len), renaming its label if it
// collides with another step's label.
func (m *Macro) Insert(i int, s Step) {
	if i < 0 || i > len(m.steps) {
		panic(fmt.Sprintf("macro: insert index %d out of range [0,%d]", i, len(m.steps)))
	}
	s.Label = m.UniqueLabel(s.Label, -1)
	m.steps = append(m.steps, Step{})
	copy(m.steps[i+1:], m.steps[i:])
	m.steps[i] = s
}

// Replace swaps the step at index i, renaming its label if it collides
// with any other step's label.
func (m *Macro) Replace(i int, s Step) {
	s.Label = m.UniqueLabel(s.Label, i)
	m.steps[i] = s
}

// Remove deletes the step at index i.
func (m *Macro) Remove(i int) {
	m.steps = append(m.steps[:i], m.steps[i+1:]...)
}

// Move relocates the step at from to index to.
func (m *Macro) Move(from, to int) {
	if from == to {
		return
	}
	s := m.steps[from]
	m.Remove(from)
	m.steps = append(m.steps, Step{})
	copy(m.steps[to+1:], m.steps[to:])
	m.steps[to] = s
}

// UniqueLabel returns label trimmed and, when it collides with the label of
// any step other than except, renamed by incrementing its trailing integer
// (Target -> Target1 -> Target2). Empty labels are returned as "".
func (m *Macro) UniqueLabel(label string, except int) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	taken := make(map[string]bool, len(m.steps))
	for j, s := range m.steps {
		if j == except {
			continue
		}
		if l := s.TrimmedLabel(); l != "" {
			taken[strings.ToLower(l)] = true
		}
	}
	if !taken[strings.ToLower(label)] {
		return label
	}

	base, n := splitTrailingNumber(label)
	for {
		n++
		candidate := base + strconv.Itoa(n)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// splitTrailingNumber splits "Target12" into ("Target", 12); a label
// without a trailing number yields 0.
func splitTrailingNumber(label string) (string, int) {
	end := len(label)
	for end > 0 && label[end-1] >= '0' && label[end-1] <= '9' {
		end--
	}
	if end == len(label) {
		return label, 0
	}
	n, err := strconv.Atoi(label[end:])
	if err != nil {
		return label, 0
	}
	return label[:end], n
}

// LabelIndex maps every non-empty trimmed label (lower-cased) to its step
// index. A later duplicate overwrites an earlier one.
func (m *Macro) LabelIndex() map[string]int {
	labels := make(map[string]int)
	for i, s := range m.steps {
		if l := s.TrimmedLabel(); l != "" {
			labels[strings.ToLower(l)] = i
		}
	}
	return labels
}

// IndexOfLabel returns the index of the step carrying label, or -1.
func (m *Macro) IndexOfLabel(label string) int {
	if i, ok := m.LabelIndex()[strings.ToLower(strings.TrimSpace(label))]; ok {
		return i
	}
	return -1
}

// Labels returns all labels in step order.
func (m *Macro) Labels() []string {
	var out []string
	for _, s := range m.steps {
		if l := s.TrimmedLabel(); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Identity returns a macro with every step and an identity index map.
func (m *Macro) Identity() (*Macro, []int) {
	indices := make([]int, m.Len())
	for i := range indices {
		indices[i] = i
	}
	return m.Select(indices)
}

// From returns the steps from index i to the end.
func (m *Macro) From(i int) (*Macro, []int) {
	var indices []int
	for j := max(i, 0); j < m.Len(); j++ {
		indices = append(indices, j)
	}
	return m.Select(indices)
}

// Until returns the steps from the start up to and including index i.
func (m *Macro) Until(i int) (*Macro, []int) {
	var indices []int
	for j := 0; j <= i && j < m.Len(); j++ {
		indices = append(indices, j)
	}
	return m.Select(indices)
}

// Select returns a sub-macro holding the chosen steps in original order,
// plus the map from sub-macro position back to original index.
// Out-of-range and duplicate indices are dropped.
func (m *Macro) Select(indices []int) (*Macro, []int) {
	picked := make([]int, 0, len(indices))
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= m.Len() || seen[i] {
			continue
		}
		seen[i] = true
		picked = append(picked, i)
	}
	sort.Ints(picked)

	sub := &Macro{Name: m.Name, SourcePath: m.SourcePath, Env: m.Env}
	sub.steps = make([]Step, len(picked))
	for j, i := range picked {
		sub.steps[j] = m.steps[i]
	}
	return sub, picked
}
