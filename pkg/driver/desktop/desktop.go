// Package desktop drives the real desktop: robotgo for input injection,
// screen capture and window bounds, gohook for typed text, tesseract for OCR
// and os/exec for launching programs.
package desktop

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// injectGrace is how long after an injection hook events are still
// attributed to the player.
const injectGrace = 50 * time.Millisecond

// Desktop implements core.Injector, core.Screen and core.WindowLocator.
type Desktop struct {
	injecting    atomic.Int32
	lastInjected atomic.Int64 // unix nanos
}

// New creates a desktop driver.
func New() *Desktop {
	return &Desktop{}
}

// Injecting reports whether an injected event may currently be in flight.
// Recorders and the text watcher drop input while it is true.
func (d *Desktop) Injecting() bool {
	if d.injecting.Load() > 0 {
		return true
	}
	return time.Since(time.Unix(0, d.lastInjected.Load())) < injectGrace
}

func (d *Desktop) inject(fn func() error) error {
	d.injecting.Add(1)
	defer func() {
		d.lastInjected.Store(time.Now().UnixNano())
		d.injecting.Add(-1)
	}()
	return fn()
}

// MoveCursor moves the mouse cursor.
func (d *Desktop) MoveCursor(x, y int) error {
	return d.inject(func() error {
		robotgo.Move(x, y)
		return nil
	})
}

// ButtonDown presses a mouse button.
func (d *Desktop) ButtonDown(button macro.MouseButton) error {
	return d.inject(func() error { return robotgo.Toggle(buttonName(button)) })
}

// ButtonUp releases a mouse button.
func (d *Desktop) ButtonUp(button macro.MouseButton) error {
	return d.inject(func() error { return robotgo.Toggle(buttonName(button), "up") })
}

// KeyDown presses a key.
func (d *Desktop) KeyDown(vk int) error {
	name, err := KeyName(vk)
	if err != nil {
		return err
	}
	return d.inject(func() error { return robotgo.KeyToggle(name) })
}

// KeyUp releases a key.
func (d *Desktop) KeyUp(vk int) error {
	name, err := KeyName(vk)
	if err != nil {
		return err
	}
	return d.inject(func() error { return robotgo.KeyToggle(name, "up") })
}

// Scroll turns the wheel by amount notches.
func (d *Desktop) Scroll(orientation macro.Orientation, amount int) error {
	return d.inject(func() error {
		if orientation == macro.Horizontal {
			robotgo.Scroll(amount, 0)
		} else {
			robotgo.Scroll(0, amount)
		}
		return nil
	})
}

func buttonName(b macro.MouseButton) string {
	switch b {
	case macro.ButtonRight:
		return "right"
	case macro.ButtonMiddle:
		return "center"
	default:
		return "left"
	}
}

// VirtualScreen returns the union of all display bounds.
func (d *Desktop) VirtualScreen() core.Rect {
	n := robotgo.DisplaysNum()
	if n <= 0 {
		w, h := robotgo.GetScreenSize()
		return core.Rect{Width: w, Height: h}
	}
	var bounds image.Rectangle
	for i := 0; i < n; i++ {
		x, y, w, h := robotgo.GetDisplayBounds(i)
		bounds = bounds.Union(image.Rect(x, y, x+w, y+h))
	}
	return core.RectFromImage(bounds)
}

// Capture grabs rect from the screen.
func (d *Desktop) Capture(rect core.Rect) (*image.RGBA, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("capture of empty rectangle %s", rect)
	}
	return captured(robotgo.CaptureImg(rect.X, rect.Y, rect.Width, rect.Height), rect)
}

func captured(img image.Image, rect core.Rect) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("capture %s: no image", rect)
	}
	return macro.ToRGBA(img), nil
}

// Pixel reads one screen pixel.
func (d *Desktop) Pixel(x, y int) (color.RGBA, error) {
	hex := robotgo.GetPixelColor(x, y)
	c, err := macro.ParseColor("#" + strings.TrimPrefix(hex, "#"))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("pixel %d,%d: %w", x, y, err)
	}
	return c, nil
}

// ForegroundWindow returns the bounds of the window focused right now.
func (d *Desktop) ForegroundWindow() (core.Rect, bool) {
	return windowBounds(robotgo.GetHandle(), robotgo.GetBounds)
}

// byHandle tells GetBounds its first argument is a window handle, not a pid.
const byHandle = 1

func windowBounds(handle int, bounds func(pid int, args ...int) (int, int, int, int)) (core.Rect, bool) {
	if handle <= 0 {
		return core.Rect{}, false
	}
	x, y, w, h := bounds(handle, byHandle)
	rect := core.Rect{X: x, Y: y, Width: w, Height: h}
	return rect, !rect.Empty()
}

// Compile-time checks.
var (
	_ core.Injector      = (*Desktop)(nil)
	_ core.Screen        = (*Desktop)(nil)
	_ core.WindowLocator = (*Desktop)(nil)
)
