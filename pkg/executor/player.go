package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// PlayerConfig configures a Player.
type PlayerConfig struct {
	Runner RunnerConfig

	// Env holds initial variables of every run. They override the
	// macro document's own env.
	Env map[string]string

	// Live callbacks. They run on the playback goroutine, except
	// OnStateChanged for transitions made by the caller.
	OnStepStarted  func(index int, step macro.Step) // index in the full macro
	OnError        func(err error)
	OnStateChanged func(state core.PlayerState)
	OnFinished     func(result RunResult)
}

// RunResult contains the outcome of one playback.
type RunResult struct {
	RunID         string
	Status        core.RunStatus
	Err           error
	StepsExecuted int
	Started       time.Time
	Duration      time.Duration
}

// Player owns a macro and the Stopped/Recording/Playing state machine.
// At most one playback is in flight.
type Player struct {
	mu     sync.Mutex
	runner *MacroRunner
	config PlayerConfig
	macro  *macro.Macro
	state  core.PlayerState
	cancel context.CancelFunc
	done   chan struct{}
	last   RunResult

	// State changes waiting for OnStateChanged, in the order they happened.
	pending    []core.PlayerState
	delivering bool
}

// NewPlayer creates a stopped player for m.
func NewPlayer(m *macro.Macro, deps Deps, cfg PlayerConfig) *Player {
	if m == nil {
		m = macro.New("")
	}
	return &Player{
		runner: NewMacroRunner(deps, cfg.Runner),
		config: cfg,
		macro:  m,
	}
}

// Macro returns the macro. Callers must not mutate it directly; use Edit.
func (p *Player) Macro() *macro.Macro {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.macro
}

// State returns the current state.
func (p *Player) State() core.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Edit applies fn to the macro. It fails with ErrBusy unless stopped.
func (p *Player) Edit(fn func(m *macro.Macro) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.IsBusy() {
		return core.ErrBusy.WithDetails(map[string]interface{}{"state": p.state.String()})
	}
	return fn(p.macro)
}

// StartRecording moves Stopped to Recording.
func (p *Player) StartRecording() bool {
	return p.transition(core.StateStopped, core.StateRecording)
}

// StopRecording moves Recording to Stopped.
func (p *Player) StopRecording() bool {
	return p.transition(core.StateRecording, core.StateStopped)
}

func (p *Player) transition(from, to core.PlayerState) bool {
	p.mu.Lock()
	if p.state != from {
		p.mu.Unlock()
		return false
	}
	p.setStateLocked(to)
	p.mu.Unlock()
	p.deliverStates()
	return true
}

// Play runs the whole macro.
func (p *Player) Play(ctx context.Context) bool {
	return p.start(ctx, (*macro.Macro).Identity)
}

// PlayFrom runs the steps from index i to the end.
func (p *Player) PlayFrom(ctx context.Context, i int) bool {
	return p.start(ctx, func(m *macro.Macro) (*macro.Macro, []int) { return m.From(i) })
}

// PlayUntil runs the steps from the start up to and including index i.
func (p *Player) PlayUntil(ctx context.Context, i int) bool {
	return p.start(ctx, func(m *macro.Macro) (*macro.Macro, []int) { return m.Until(i) })
}

// PlaySelected runs only the given steps, in their original order.
func (p *Player) PlaySelected(ctx context.Context, indices []int) bool {
	return p.start(ctx, func(m *macro.Macro) (*macro.Macro, []int) { return m.Select(indices) })
}

// Stop cancels the current playback. It does not wait for it to end.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until the current playback ends and returns the result of
// the most recent one.
func (p *Player) Wait() RunResult {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// start launches a background playback of the slice picked by sel. It is a
// no-op returning false unless the player is stopped.
func (p *Player) start(parent context.Context, sel func(*macro.Macro) (*macro.Macro, []int)) bool {
	p.mu.Lock()
	if p.state != core.StateStopped {
		p.mu.Unlock()
		return false
	}
	sub, indexMap := sel(p.macro)
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	p.setStateLocked(core.StatePlaying)
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.deliverStates()
	go p.run(ctx, cancel, done, sub, indexMap)
	return true
}

func (p *Player) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, sub *macro.Macro, indexMap []int) {
	defer close(done)
	defer cancel()

	result := RunResult{RunID: uuid.NewString(), Started: time.Now()}
	log := logger.L().With(zap.String("run", result.RunID), zap.String("macro", sub.Name))
	log.Info("playback started", zap.Int("steps", sub.Len()))

	ec := NewExecutionContext(sub.Env)
	for k, v := range p.config.Env {
		ec.Vars.Set(k, v)
	}
	ec.Script.SetTimeout(p.runner.Config().ExpressionTimeout)
	ec.OnStep = func(depth, i int, step macro.Step) {
		log.Debug("step", zap.Int("depth", depth), zap.Int("index", i), zap.String("action", step.Describe()))
		if depth == 0 && p.config.OnStepStarted != nil && i < len(indexMap) {
			p.config.OnStepStarted(indexMap[i], step)
		}
	}

	err := p.runner.Run(ctx, sub, ec, 0)

	result.Duration = time.Since(result.Started)
	result.StepsExecuted = ec.StepsExecuted()
	result.Err = err
	switch {
	case err != nil:
		result.Status = core.RunFailed
		log.Error("playback failed",
			zap.Error(err),
			zap.String("category", core.CategoryOf(err).String()),
			zap.Int("steps", result.StepsExecuted))
		if p.config.OnError != nil {
			p.config.OnError(err)
		}
	case ctx.Err() != nil:
		result.Status = core.RunCancelled
		log.Info("playback cancelled", zap.Int("steps", result.StepsExecuted), zap.Duration("duration", result.Duration))
	default:
		result.Status = core.RunCompleted
		log.Info("playback completed", zap.Int("steps", result.StepsExecuted), zap.Duration("duration", result.Duration))
	}

	p.mu.Lock()
	p.setStateLocked(core.StateStopped)
	p.cancel = nil
	p.last = result
	p.mu.Unlock()

	p.deliverStates()
	if p.config.OnFinished != nil {
		p.config.OnFinished(result)
	}
}

// setStateLocked changes the state and queues the notification. p.mu must
// be held.
func (p *Player) setStateLocked(state core.PlayerState) {
	p.state = state
	if p.config.OnStateChanged != nil {
		p.pending = append(p.pending, state)
	}
}

// deliverStates sends queued state changes in order. Only one goroutine
// delivers at a time; a callback may start or stop playback itself.
func (p *Player) deliverStates() {
	p.mu.Lock()
	if p.delivering {
		p.mu.Unlock()
		return
	}
	p.delivering = true
	for len(p.pending) > 0 {
		state := p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()
		p.config.OnStateChanged(state)
		p.mu.Lock()
	}
	p.delivering = false
	p.mu.Unlock()
}
