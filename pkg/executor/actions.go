package executor

import (
	"strings"
	"time"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/detect"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// ============================================
// Input
// ============================================

func (r *MacroRunner) mouseClick(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.MouseClickAction)
	if err := r.click(s.X, s.Y, s.Button, s.Click); err != nil {
		return 0, err
	}
	return i + 1, nil
}

func (r *MacroRunner) mouseMove(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.MouseMoveAction)
	if err := r.inject(func(in core.Injector) error { return in.MoveCursor(s.X, s.Y) }); err != nil {
		return 0, err
	}
	return i + 1, nil
}

func (r *MacroRunner) mouseWheel(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.MouseWheelAction)
	if err := r.inject(func(in core.Injector) error { return in.Scroll(s.Orientation, s.Amount) }); err != nil {
		return 0, err
	}
	return i + 1, nil
}

func (r *MacroRunner) keyPress(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.KeyPressAction)
	err := r.inject(func(in core.Injector) error {
		switch s.Press {
		case macro.KeyDown:
			return in.KeyDown(s.Key)
		case macro.KeyUp:
			return in.KeyUp(s.Key)
		default:
			if err := in.KeyDown(s.Key); err != nil {
				return err
			}
			return in.KeyUp(s.Key)
		}
	})
	if err != nil {
		return 0, err
	}
	return i + 1, nil
}

// click moves to (x, y) and performs kind with button.
func (r *MacroRunner) click(x, y int, button macro.MouseButton, kind macro.ClickKind) error {
	return r.inject(func(in core.Injector) error {
		if err := in.MoveCursor(x, y); err != nil {
			return err
		}
		switch kind {
		case macro.ButtonDown:
			return in.ButtonDown(button)
		case macro.ButtonUp:
			return in.ButtonUp(button)
		}
		presses := 1
		if kind == macro.DoubleClick {
			presses = 2
		}
		for n := 0; n < presses; n++ {
			if err := in.ButtonDown(button); err != nil {
				return err
			}
			if err := in.ButtonUp(button); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *MacroRunner) inject(fn func(core.Injector) error) error {
	if r.deps.Input == nil {
		return core.ErrInputFailed.WithMessage("no input injector configured")
	}
	if err := fn(r.deps.Input); err != nil {
		return core.ErrInputFailed.WithCause(err)
	}
	return nil
}

// ============================================
// Waits
// ============================================

func (r *MacroRunner) wait(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.WaitAction)
	// A cancelled sleep is picked up by the step loop.
	detect.Sleep(f.ctx, millis(s.Milliseconds))
	return i + 1, nil
}

// ============================================
// Control flow
// ============================================

func (r *MacroRunner) goTo(f *frame, i int, a macro.Action) (int, error) {
	return f.resolveTarget(a.(macro.GoToAction).Target, i)
}

func (r *MacroRunner) ifStep(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.IfAction)
	actual := f.ec.Vars.Get(s.VariableName)
	expected, err := f.expand(s.Value)
	if err != nil {
		return 0, err
	}

	ok, err := r.conditions.Evaluate(s.Condition, actual, expected, f.ec.Vars.Bindings())
	if err != nil {
		return 0, core.ErrInvalidConfig.WithCause(err).WithMessagef("if %s %s", s.VariableName, s.Condition)
	}
	logger.Debug("if %s (%q) %s %q: %v", s.VariableName, actual, s.Condition, expected, ok)
	return f.branch(s, ok, i)
}

func (r *MacroRunner) repeat(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.RepeatAction)
	if strings.TrimSpace(s.StartLabel) == "" {
		return 0, core.ErrMissingStartLabel
	}
	start, err := f.resolveTarget(macro.Label(s.StartLabel), i)
	if err != nil {
		return 0, err
	}

	key := LoopKey{Frame: f.id, Index: i}
	now := f.ec.now()
	state := f.ec.Loop(key, now)
	state.CompletedIterations++
	if EvaluateRepeat(s.Condition, *state, now) {
		return start, nil
	}

	logger.Debug("repeat at step %d done after %d iteration(s)", i, state.CompletedIterations)
	f.ec.ClearLoop(key)
	return f.resolveTarget(s.AfterRepeatGoTo, i)
}

func (r *MacroRunner) embedMacroFile(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.EmbedMacroFileAction)
	path, err := f.expand(s.Path)
	if err != nil {
		return 0, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, core.ErrMissingPath.WithMessage("embedded macro path is empty")
	}
	if r.deps.Repository == nil {
		return 0, core.ErrLoadFailed.WithMessage("no macro repository configured")
	}

	resolved := f.ec.Script.ResolvePath(path)
	sub, err := r.deps.Repository.Load(resolved)
	if err != nil {
		return 0, core.ErrLoadFailed.WithCause(err).WithDetails(map[string]interface{}{"path": resolved})
	}

	logger.Info("embedding macro %s at depth %d", resolved, f.depth+1)
	restore := f.ec.Vars.withEnv(sub.Env)
	defer restore()
	if err := r.Run(f.ctx, sub, f.ec, f.depth+1); err != nil {
		return 0, err
	}
	return i + 1, nil
}

func (r *MacroRunner) executeProgram(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.ExecuteProgramAction)
	path, err := f.expand(s.Path)
	if err != nil {
		return 0, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, core.ErrMissingPath.WithMessage("program path is empty")
	}
	// Bare program names are looked up on PATH by the launcher.
	if strings.ContainsAny(path, `/\`) {
		path = f.ec.Script.ResolvePath(path)
	}

	args := make([]string, len(s.Arguments))
	for n, arg := range s.Arguments {
		if args[n], err = f.expand(arg); err != nil {
			return 0, err
		}
	}
	dir, err := f.expand(s.WorkingDir)
	if err != nil {
		return 0, err
	}
	if dir != "" {
		dir = f.ec.Script.ResolvePath(dir)
	}

	switch {
	case r.deps.Launcher == nil:
		logger.Warn("no program launcher configured, skipping %s", path)
	default:
		if err := r.deps.Launcher.Start(path, args, dir); err != nil {
			logger.Warn("failed to start %s: %v", path, err)
		}
	}
	return i + 1, nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
