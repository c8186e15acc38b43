package executor

import (
	"context"
	"image"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/coords"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/detect"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

func (r *MacroRunner) waitForPixelColor(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.WaitForPixelColorAction)
	if err := r.requireScreen(); err != nil {
		return 0, err
	}
	ok, err := detect.WaitForPixel(f.ctx, r.deps.Screen, s.X, s.Y, s.Color, s.Tolerance, millis(s.TimeoutMs), r.config.PixelPoll)
	if err != nil {
		return 0, core.ErrCaptureFailed.WithCause(err)
	}
	return f.branch(s, ok, i)
}

func (r *MacroRunner) waitForScreenChange(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.WaitForScreenChangeAction)
	rect, err := r.searchRect(s.Area)
	if err != nil {
		return 0, err
	}

	capture := func() (*image.RGBA, error) { return r.deps.Screen.Capture(rect) }
	p, ok, err := detect.WaitForChange(f.ctx, capture, millis(s.TimeoutMs), r.config.ChangePoll)
	if err != nil {
		return 0, core.ErrCaptureFailed.WithCause(err)
	}
	if ok && f.ctx.Err() == nil {
		changed := rect.TopLeft().Add(core.Point{X: p.X, Y: p.Y})
		if err := r.applyDetection(f, s.Detection, changed, core.Size{Width: 1, Height: 1}); err != nil {
			return 0, err
		}
	}
	return f.branch(s, ok, i)
}

func (r *MacroRunner) waitForTextInput(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.WaitForTextInputAction)
	text, err := f.expand(s.Text)
	if err != nil {
		return 0, err
	}
	want := []rune(strings.ToLower(text))
	if len(want) == 0 {
		return 0, core.ErrMissingText.WithMessage("text to wait for is empty")
	}
	if r.deps.TextInput == nil {
		return 0, core.ErrInputFailed.WithMessage("no text input watcher configured")
	}

	ctx := f.ctx
	if s.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, millis(s.TimeoutMs))
		defer cancel()
	}
	typed, stop, err := r.deps.TextInput.Watch(ctx)
	if err != nil {
		return 0, core.ErrInputFailed.WithCause(err)
	}
	defer stop()

	tail := make([]rune, 0, len(want))
	for {
		select {
		case <-ctx.Done():
			return f.branch(s, false, i)
		case c, open := <-typed:
			if !open {
				return f.branch(s, false, i)
			}
			if c == '\b' {
				if len(tail) > 0 {
					tail = tail[:len(tail)-1]
				}
				continue
			}
			tail = append(tail, unicode.ToLower(c))
			if len(tail) > len(want) {
				tail = tail[1:]
			}
			if string(tail) == string(want) {
				return f.branch(s, true, i)
			}
		}
	}
}

func (r *MacroRunner) findImage(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.FindImageAction)
	if s.Template.IsEmpty() {
		return 0, core.ErrMissingTemplate
	}
	needle, err := s.Template.Decode(f.ec.Script.MacroDir())
	if err != nil {
		return 0, core.ErrMissingTemplate.WithCause(err)
	}
	rect, err := r.searchRect(s.Area)
	if err != nil {
		return 0, err
	}

	var found core.Point
	ok, err := r.find(f.ctx, s.TimeoutMs, func() (bool, error) {
		img, err := r.deps.Screen.Capture(rect)
		if err != nil {
			return false, core.ErrCaptureFailed.WithCause(err)
		}
		p, ok := detect.MatchTemplate(img, needle, s.Tolerance)
		if ok {
			found = rect.TopLeft().Add(core.Point{X: p.X, Y: p.Y})
		}
		return ok, nil
	})
	if err != nil {
		return 0, err
	}
	if ok {
		b := needle.Bounds()
		logger.Debug("found %s at %d,%d", s.Template, found.X, found.Y)
		if err := r.applyDetection(f, s.Detection, found, core.Size{Width: b.Dx(), Height: b.Dy()}); err != nil {
			return 0, err
		}
	}
	return f.branch(s, ok, i)
}

func (r *MacroRunner) findTextOcr(f *frame, i int, a macro.Action) (int, error) {
	s := a.(macro.FindTextOcrAction)
	text, err := f.expand(s.Text)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, core.ErrMissingText
	}
	if r.deps.OCR == nil {
		return 0, core.ErrOCRFailed.WithMessage("no OCR provider configured")
	}
	rect, err := r.searchRect(s.Area)
	if err != nil {
		return 0, err
	}
	language := s.Language
	if language == "" {
		language = r.config.OCRLanguage
	}

	var box core.Rect
	ok, err := r.find(f.ctx, s.TimeoutMs, func() (bool, error) {
		img, err := r.deps.Screen.Capture(rect)
		if err != nil {
			return false, core.ErrCaptureFailed.WithCause(err)
		}
		b, ok, err := detect.FindText(f.ctx, r.deps.OCR, img, text, language, r.config.OCRScale)
		if err != nil {
			return false, core.ErrOCRFailed.WithCause(err)
		}
		if ok {
			box = core.RectFromImage(b).Offset(rect.TopLeft())
		}
		return ok, nil
	})
	if err != nil {
		return 0, err
	}
	if ok {
		logger.Debug("found text %q at %s", text, box)
		if err := r.applyDetection(f, s.Detection, box.TopLeft(), box.Size()); err != nil {
			return 0, err
		}
	}
	return f.branch(s, ok, i)
}

// find makes one attempt when timeoutMs <= 0, otherwise re-attempts every
// find-poll interval until found or the timeout passes.
func (r *MacroRunner) find(ctx context.Context, timeoutMs int, attempt func() (bool, error)) (bool, error) {
	if timeoutMs <= 0 {
		return attempt()
	}
	return detect.Poll(ctx, time.Duration(timeoutMs)*time.Millisecond, r.config.FindPoll, attempt)
}

// searchRect resolves area against the live desktop.
func (r *MacroRunner) searchRect(area macro.SearchArea) (core.Rect, error) {
	if err := r.requireScreen(); err != nil {
		return core.Rect{}, err
	}
	return r.resolver.ResolveRectangle(area)
}

func (r *MacroRunner) requireScreen() error {
	if r.deps.Screen == nil {
		return core.ErrCaptureFailed.WithMessage("no screen configured")
	}
	return nil
}

// applyDetection performs the side effects of a successful detection on
// the anchor point of the found box.
func (r *MacroRunner) applyDetection(f *frame, opts macro.DetectionOptions, topLeft core.Point, size core.Size) error {
	p := coords.ResolveAnchor(topLeft, size, opts.Position)
	if opts.SaveX != "" {
		f.ec.Vars.Set(opts.SaveX, strconv.Itoa(p.X))
	}
	if opts.SaveY != "" {
		f.ec.Vars.Set(opts.SaveY, strconv.Itoa(p.Y))
	}

	switch opts.MouseAction {
	case macro.MouseMoveOnly:
		return r.inject(func(in core.Injector) error { return in.MoveCursor(p.X, p.Y) })
	case macro.MouseLeftClick:
		return r.click(p.X, p.Y, macro.ButtonLeft, macro.Click)
	case macro.MouseRightClick:
		return r.click(p.X, p.Y, macro.ButtonRight, macro.Click)
	case macro.MouseMiddleClick:
		return r.click(p.X, p.Y, macro.ButtonMiddle, macro.Click)
	case macro.MouseDoubleClick:
		return r.click(p.X, p.Y, macro.ButtonLeft, macro.DoubleClick)
	}
	return nil
}
