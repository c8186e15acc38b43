// Package executor interprets macros: it walks the step list, dispatches
// each action to its effect and computes the next cursor position.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/config"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/coords"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/detect"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// Deps are the collaborators a runner drives. Screen is required; the
// others are only needed by the actions that use them.
type Deps struct {
	Input      core.Injector
	Screen     core.Screen
	Windows    core.WindowLocator
	OCR        core.OCR
	Repository core.Repository
	Launcher   core.Launcher
	TextInput  core.TextInputWatcher
}

// RunnerConfig configures the interpreter.
type RunnerConfig struct {
	MaxDepth          int           // Deepest EmbedMacroFile nesting; 0 = config.DefaultMaxDepth, NoEmbedding disables it
	FindPoll          time.Duration // Re-attempt interval of FindImage/FindTextOcr
	PixelPoll         time.Duration // WaitForPixelColor poll interval
	ChangePoll        time.Duration // WaitForScreenChange poll interval
	OCRLanguage       string        // Used when FindTextOcr names no language
	OCRScale          float64       // Capture upscale factor before OCR
	ExpressionTimeout time.Duration // Limit of one ${...} evaluation
}

// NoEmbedding as RunnerConfig.MaxDepth rejects every EmbedMacroFile.
const NoEmbedding = -1

// DefaultRunnerConfig returns the built-in timings.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfigFrom(config.Default().Player)
}

// RunnerConfigFrom maps the player section of the configuration file.
// A maxDepth of 0 in the file disables embedding.
func RunnerConfigFrom(p config.PlayerConfig) RunnerConfig {
	maxDepth := p.MaxDepth
	if maxDepth == 0 {
		maxDepth = NoEmbedding
	}
	return RunnerConfig{
		MaxDepth:          maxDepth,
		FindPoll:          p.FindPoll(),
		PixelPoll:         p.PixelPoll(),
		ChangePoll:        p.ChangePoll(),
		OCRLanguage:       p.OCRLanguage,
		OCRScale:          p.OCRScale,
		ExpressionTimeout: p.ExpressionTimeout(),
	}
}

// handler executes one action and returns the next cursor position.
type handler func(f *frame, i int, a macro.Action) (int, error)

// MacroRunner runs macros against a set of collaborators.
type MacroRunner struct {
	deps       Deps
	config     RunnerConfig
	resolver   *coords.Resolver
	conditions *ConditionEvaluator
	handlers   map[macro.ActionKind]handler
}

// NewMacroRunner creates a runner.
func NewMacroRunner(deps Deps, cfg RunnerConfig) *MacroRunner {
	switch {
	case cfg.MaxDepth == 0:
		cfg.MaxDepth = config.DefaultMaxDepth
	case cfg.MaxDepth < 0:
		cfg.MaxDepth = NoEmbedding
	}
	if cfg.FindPoll <= 0 {
		cfg.FindPoll = detect.FindPollInterval
	}
	if cfg.PixelPoll <= 0 {
		cfg.PixelPoll = detect.PixelPollInterval
	}
	if cfg.ChangePoll <= 0 {
		cfg.ChangePoll = detect.ChangePollInterval
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = config.DefaultOCRLanguage
	}

	r := &MacroRunner{
		deps:       deps,
		config:     cfg,
		resolver:   coords.NewResolver(deps.Screen, deps.Windows),
		conditions: NewConditionEvaluator(),
	}
	r.handlers = map[macro.ActionKind]handler{
		macro.KindMouseClick:          r.mouseClick,
		macro.KindMouseMove:           r.mouseMove,
		macro.KindMouseWheel:          r.mouseWheel,
		macro.KindKeyPress:            r.keyPress,
		macro.KindWait:                r.wait,
		macro.KindWaitForPixelColor:   r.waitForPixelColor,
		macro.KindWaitForScreenChange: r.waitForScreenChange,
		macro.KindWaitForTextInput:    r.waitForTextInput,
		macro.KindFindImage:           r.findImage,
		macro.KindFindTextOcr:         r.findTextOcr,
		macro.KindGoTo:                r.goTo,
		macro.KindIf:                  r.ifStep,
		macro.KindRepeat:              r.repeat,
		macro.KindEmbedMacroFile:      r.embedMacroFile,
		macro.KindExecuteProgram:      r.executeProgram,
	}
	return r
}

// Config returns the effective configuration.
func (r *MacroRunner) Config() RunnerConfig {
	return r.config
}

// frame is one running macro body.
type frame struct {
	ctx    context.Context
	macro  *macro.Macro
	labels map[string]int
	ec     *ExecutionContext
	depth  int
	id     uint64
}

// Run executes m until the cursor leaves the step range. depth is 0 for a
// top-level playback and grows by one per EmbedMacroFile. A cancelled ctx
// ends the run with a nil error. ec may be nil for a standalone run.
func (r *MacroRunner) Run(ctx context.Context, m *macro.Macro, ec *ExecutionContext, depth int) error {
	if limit := max(r.config.MaxDepth, 0); depth > limit {
		return core.ErrDepthExceeded.WithDetails(map[string]interface{}{
			"macro":    m.Name,
			"depth":    depth,
			"maxDepth": limit,
		})
	}
	if ec == nil {
		ec = NewExecutionContext(m.Env)
		ec.Script.SetTimeout(r.config.ExpressionTimeout)
	}

	f := &frame{
		ctx:    ctx,
		macro:  m,
		labels: m.LabelIndex(),
		ec:     ec,
		depth:  depth,
		id:     ec.newFrame(),
	}
	defer ec.dropFrame(f.id)
	defer ec.Script.enterDir(m.Dir())()

	n := m.Len()
	for i := 0; i >= 0 && i < n; {
		if ctx.Err() != nil {
			return nil
		}

		step := m.Step(i)
		ec.steps++
		if ec.OnStep != nil {
			ec.OnStep(depth, i, step)
		}

		next, err := r.execute(f, i, step)
		if err != nil {
			if isCancellation(ctx, err) {
				return nil
			}
			return annotate(err, f, i, step)
		}
		i = next
	}
	return nil
}

func (r *MacroRunner) execute(f *frame, i int, step macro.Step) (int, error) {
	if step.Action == nil {
		return i + 1, nil
	}
	h, ok := r.handlers[step.Action.Kind()]
	if !ok {
		return 0, core.ErrInvalidConfig.WithMessagef("unsupported action %q", step.Action.Kind())
	}
	return h(f, i, step.Action)
}

// resolveTarget maps a jump target to a cursor position.
func (f *frame) resolveTarget(t macro.GoToTarget, i int) (int, error) {
	switch t.Kind {
	case macro.TargetStart:
		return 0, nil
	case macro.TargetEnd:
		return max(0, f.macro.Len()-1), nil
	case macro.TargetLabel:
		if idx, ok := f.labels[strings.ToLower(strings.TrimSpace(t.Label))]; ok {
			return idx, nil
		}
		return 0, core.ErrUnresolvedLabel.
			WithMessagef("label %q not found", t.Label).
			WithDetails(map[string]interface{}{"label": t.Label})
	default:
		return i + 1, nil
	}
}

// branch resolves the true or false target of a branching action. A
// cancelled wait never resolves a branch.
func (f *frame) branch(b macro.Brancher, ok bool, i int) (int, error) {
	if err := f.ctx.Err(); err != nil {
		return 0, err
	}
	onTrue, onFalse := b.Branches()
	if ok {
		return f.resolveTarget(onTrue, i)
	}
	return f.resolveTarget(onFalse, i)
}

// expand applies variable expansion to text.
func (f *frame) expand(text string) (string, error) {
	return f.ec.Script.ExpandVariables(f.ctx, text)
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// annotate attaches the failing step to err unless a nested run already did.
func annotate(err error, f *frame, i int, step macro.Step) error {
	var ee *core.ExecutionError
	if !errors.As(err, &ee) {
		return fmt.Errorf("step %d (%s): %w", i, step.Describe(), err)
	}
	if _, ok := ee.Details["step"]; ok {
		return err
	}
	return ee.WithDetails(map[string]interface{}{
		"step":   i,
		"action": string(step.Action.Kind()),
		"macro":  f.macro.Name,
		"depth":  f.depth,
	})
}
