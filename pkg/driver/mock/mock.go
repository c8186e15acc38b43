// Package mock provides an in-memory desktop for running macros without
// touching the real screen, keyboard or mouse.
package mock

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"sync"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// EventKind identifies an injected event.
type EventKind string

// Event kinds.
const (
	EventMove    EventKind = "move"
	EventDown    EventKind = "down"
	EventUp      EventKind = "up"
	EventKeyDown EventKind = "keyDown"
	EventKeyUp   EventKind = "keyUp"
	EventScroll  EventKind = "scroll"
)

// Event is one injected input event.
type Event struct {
	Kind        EventKind
	X, Y        int
	Button      macro.MouseButton
	Key         int
	Orientation macro.Orientation
	Amount      int
}

func (e Event) String() string {
	switch e.Kind {
	case EventMove:
		return fmt.Sprintf("move %d,%d", e.X, e.Y)
	case EventDown, EventUp:
		return fmt.Sprintf("%s %s", e.Kind, e.Button)
	case EventKeyDown, EventKeyUp:
		return fmt.Sprintf("%s %s", e.Kind, macro.KeyName(e.Key))
	case EventScroll:
		return fmt.Sprintf("scroll %d", e.Amount)
	}
	return string(e.Kind)
}

// Launch is one recorded program start.
type Launch struct {
	Path string
	Args []string
	Dir  string
}

// Config configures mock desktop behavior.
type Config struct {
	// Virtual screen size. Defaults to 1920x1080.
	Width, Height int
	// Background fills the initial screen.
	Background color.RGBA
	// Window is the foreground window, nil when none has focus.
	Window *core.Rect

	// Injected failures.
	InputErr   error
	CaptureErr error
	OCRErr     error
	LaunchErr  error

	// Repository serves macros not registered with AddMacro.
	Repository core.Repository
	// Verbose logs every injected event.
	Verbose bool
}

// Desktop is an in-memory implementation of every player collaborator.
type Desktop struct {
	mu       sync.Mutex
	config   Config
	screen   *image.RGBA
	frames   []*image.RGBA // queued screens, one consumed per capture
	events   []Event
	lines    []core.TextLine
	language string
	macros   map[string]*macro.Macro
	loads    []string
	launches []Launch
	input    chan rune
}

// New creates a mock desktop.
func New(cfg Config) *Desktop {
	if cfg.Width <= 0 {
		cfg.Width = 1920
	}
	if cfg.Height <= 0 {
		cfg.Height = 1080
	}
	screen := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(screen, screen.Bounds(), &image.Uniform{C: cfg.Background}, image.Point{}, draw.Src)
	return &Desktop{
		config: cfg,
		screen: screen,
		macros: make(map[string]*macro.Macro),
		input:  make(chan rune, 1024),
	}
}

// ============================================
// Input
// ============================================

func (d *Desktop) record(e Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.config.InputErr != nil {
		return d.config.InputErr
	}
	d.events = append(d.events, e)
	if d.config.Verbose {
		logger.Info("mock: %s", e)
	}
	return nil
}

// MoveCursor records a cursor move.
func (d *Desktop) MoveCursor(x, y int) error {
	return d.record(Event{Kind: EventMove, X: x, Y: y})
}

// ButtonDown records a button press.
func (d *Desktop) ButtonDown(button macro.MouseButton) error {
	return d.record(Event{Kind: EventDown, Button: button})
}

// ButtonUp records a button release.
func (d *Desktop) ButtonUp(button macro.MouseButton) error {
	return d.record(Event{Kind: EventUp, Button: button})
}

// KeyDown records a key press.
func (d *Desktop) KeyDown(vk int) error {
	return d.record(Event{Kind: EventKeyDown, Key: vk})
}

// KeyUp records a key release.
func (d *Desktop) KeyUp(vk int) error {
	return d.record(Event{Kind: EventKeyUp, Key: vk})
}

// Scroll records a wheel scroll.
func (d *Desktop) Scroll(orientation macro.Orientation, amount int) error {
	return d.record(Event{Kind: EventScroll, Orientation: orientation, Amount: amount})
}

// Events returns a copy of the recorded events.
func (d *Desktop) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// ============================================
// Screen
// ============================================

// VirtualScreen returns the configured screen bounds.
func (d *Desktop) VirtualScreen() core.Rect {
	return core.Rect{Width: d.config.Width, Height: d.config.Height}
}

// ForegroundWindow returns the configured window.
func (d *Desktop) ForegroundWindow() (core.Rect, bool) {
	if d.config.Window == nil {
		return core.Rect{}, false
	}
	return *d.config.Window, true
}

// SetScreen replaces the current screen and drops queued frames.
func (d *Desktop) SetScreen(img *image.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screen = macro.ToRGBA(img)
	d.frames = nil
}

// PushFrames queues screens; each capture or pixel read makes the next
// queued frame current. The last frame stays current.
func (d *Desktop) PushFrames(frames ...*image.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, frames...)
}

// Paint draws img onto the current screen at (x, y).
func (d *Desktop) Paint(x, y int, img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := img.Bounds()
	draw.Draw(d.screen, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
}

// advance makes the next queued frame current. Callers hold d.mu.
func (d *Desktop) advance() *image.RGBA {
	if len(d.frames) > 0 {
		d.screen = macro.ToRGBA(d.frames[0])
		d.frames = d.frames[1:]
	}
	return d.screen
}

// Capture returns a copy of rect from the current screen.
func (d *Desktop) Capture(rect core.Rect) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.config.CaptureErr != nil {
		return nil, d.config.CaptureErr
	}
	screen := d.advance()
	out := image.NewRGBA(image.Rect(0, 0, rect.Width, rect.Height))
	draw.Draw(out, out.Bounds(), screen, image.Point{X: rect.X, Y: rect.Y}, draw.Src)
	return out, nil
}

// Pixel returns one pixel of the current screen.
func (d *Desktop) Pixel(x, y int) (color.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.config.CaptureErr != nil {
		return color.RGBA{}, d.config.CaptureErr
	}
	return d.advance().RGBAAt(x, y), nil
}

// ============================================
// OCR
// ============================================

// SetText sets the lines every recognition returns. Word bounds are in
// the coordinates of the recognized image.
func (d *Desktop) SetText(lines ...core.TextLine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = lines
}

// Line builds a text line starting at (x, y) with 10x20 pixel glyphs.
func Line(x, y int, words ...string) core.TextLine {
	line := core.TextLine{}
	for _, w := range words {
		width := 10 * len([]rune(w))
		line.Words = append(line.Words, core.Word{Text: w, Bounds: image.Rect(x, y, x+width, y+20)})
		x += width + 10
	}
	return line
}

// Recognize returns the configured lines.
func (d *Desktop) Recognize(ctx context.Context, img image.Image, language string) ([]core.TextLine, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.language = language
	if d.config.OCRErr != nil {
		return nil, d.config.OCRErr
	}
	return d.lines, nil
}

// LastLanguage returns the language of the latest recognition.
func (d *Desktop) LastLanguage() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.language
}

// ============================================
// Text input
// ============================================

// Type queues characters as if the user typed them.
func (d *Desktop) Type(s string) {
	for _, r := range s {
		d.input <- r
	}
}

// Watch streams queued characters until ctx is done or stop is called.
func (d *Desktop) Watch(ctx context.Context) (<-chan rune, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan rune)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-d.input:
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

// ============================================
// Repository and launcher
// ============================================

// AddMacro registers m under path.
func (d *Desktop) AddMacro(path string, m *macro.Macro) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.macros[filepath.Clean(path)] = m
}

// Load returns a registered macro, falling back to the configured
// repository.
func (d *Desktop) Load(path string) (*macro.Macro, error) {
	d.mu.Lock()
	d.loads = append(d.loads, path)
	m, ok := d.macros[filepath.Clean(path)]
	d.mu.Unlock()
	if ok {
		return m, nil
	}
	if d.config.Repository != nil {
		return d.config.Repository.Load(path)
	}
	return nil, fmt.Errorf("macro not found: %s", path)
}

// Loads returns the paths passed to Load.
func (d *Desktop) Loads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.loads...)
}

// Start records a program launch.
func (d *Desktop) Start(path string, args []string, dir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.launches = append(d.launches, Launch{Path: path, Args: args, Dir: dir})
	if d.config.Verbose {
		logger.Info("mock: start %s %v", path, args)
	}
	return d.config.LaunchErr
}

// Launches returns the recorded program starts.
func (d *Desktop) Launches() []Launch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Launch(nil), d.launches...)
}

// Compile-time checks.
var (
	_ core.Injector         = (*Desktop)(nil)
	_ core.Screen           = (*Desktop)(nil)
	_ core.WindowLocator    = (*Desktop)(nil)
	_ core.OCR              = (*Desktop)(nil)
	_ core.Repository       = (*Desktop)(nil)
	_ core.Launcher         = (*Desktop)(nil)
	_ core.TextInputWatcher = (*Desktop)(nil)
)
