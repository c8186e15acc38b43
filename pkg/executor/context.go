package executor

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// Variables is a string table with case-insensitive names. Reading a
// missing name yields "".
type Variables struct {
	mu     sync.RWMutex
	values map[string]variable
}

type variable struct {
	name  string // as last set
	value string
}

// NewVariables creates a table holding initial.
func NewVariables(initial map[string]string) *Variables {
	v := &Variables{values: make(map[string]variable, len(initial))}
	for name, value := range initial {
		v.Set(name, value)
	}
	return v
}

// Get returns the value of name, or "".
func (v *Variables) Get(name string) string {
	val, _ := v.Lookup(name)
	return val
}

// Lookup returns the value of name and whether it is set.
func (v *Variables) Lookup(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[strings.ToLower(strings.TrimSpace(name))]
	return val.value, ok
}

// Set assigns name. Blank names are ignored.
func (v *Variables) Set(name, value string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[strings.ToLower(name)] = variable{name: name, value: value}
}

// Delete removes name.
func (v *Variables) Delete(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.values, strings.ToLower(strings.TrimSpace(name)))
}

// withEnv applies env and returns a function restoring the previous values.
func (v *Variables) withEnv(env map[string]string) func() {
	type saved struct {
		value string
		set   bool
	}
	old := make(map[string]saved, len(env))
	for k, val := range env {
		prev, ok := v.Lookup(k)
		old[k] = saved{value: prev, set: ok}
		v.Set(k, val)
	}
	return func() {
		for k, s := range old {
			if s.set {
				v.Set(k, s.value)
			} else {
				v.Delete(k)
			}
		}
	}
}

// Snapshot returns a copy keyed by the names as last set.
func (v *Variables) Snapshot() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.values))
	for _, val := range v.values {
		out[val.name] = val.value
	}
	return out
}

// Bindings returns the table for expression environments: every variable
// under its name as last set and under its lower-cased name.
func (v *Variables) Bindings() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, 2*len(v.values))
	for key, val := range v.values {
		out[key] = val.value
		out[val.name] = val.value
	}
	return out
}

// Names returns the names as last set, sorted.
func (v *Variables) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.values))
	for _, val := range v.values {
		names = append(names, val.name)
	}
	sort.Strings(names)
	return names
}

// LoopKey identifies one Repeat step inside one running macro body.
type LoopKey struct {
	Frame uint64
	Index int
}

// LoopState tracks a Repeat step between visits.
type LoopState struct {
	StartedAt           time.Time
	CompletedIterations int
}

// ExecutionContext is the mutable state of one playback run. It is shared
// with embedded macros; each Run gets its own frame so loop state of
// different macro bodies never collides.
type ExecutionContext struct {
	Vars   *Variables
	Script *ScriptEngine

	// Now is the clock used by Repeat conditions.
	Now func() time.Time

	// OnStep is called before each step at any depth.
	OnStep func(depth, index int, step macro.Step)

	loops     map[LoopKey]*LoopState
	nextFrame uint64
	steps     int
}

// NewExecutionContext creates a fresh context holding initial variables.
func NewExecutionContext(initial map[string]string) *ExecutionContext {
	vars := NewVariables(initial)
	return &ExecutionContext{
		Vars:   vars,
		Script: NewScriptEngine(vars),
		Now:    time.Now,
		loops:  make(map[LoopKey]*LoopState),
	}
}

// StepsExecuted returns how many steps were dispatched so far.
func (ec *ExecutionContext) StepsExecuted() int {
	return ec.steps
}

func (ec *ExecutionContext) newFrame() uint64 {
	ec.nextFrame++
	return ec.nextFrame
}

// dropFrame forgets loop state left behind by a finished macro body.
func (ec *ExecutionContext) dropFrame(frame uint64) {
	for k := range ec.loops {
		if k.Frame == frame {
			delete(ec.loops, k)
		}
	}
}

// Loop returns the state of key, creating it started at now.
func (ec *ExecutionContext) Loop(key LoopKey, now time.Time) *LoopState {
	if s, ok := ec.loops[key]; ok {
		return s
	}
	s := &LoopState{StartedAt: now}
	ec.loops[key] = s
	return s
}

// LoopState returns the state of key, if any.
func (ec *ExecutionContext) LoopState(key LoopKey) (*LoopState, bool) {
	s, ok := ec.loops[key]
	return s, ok
}

// ClearLoop removes the state of key.
func (ec *ExecutionContext) ClearLoop(key LoopKey) {
	delete(ec.loops, key)
}

func (ec *ExecutionContext) now() time.Time {
	if ec.Now != nil {
		return ec.Now()
	}
	return time.Now()
}
