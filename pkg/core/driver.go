// Package core defines the collaborator interfaces, geometry and error model
// shared by the macro player.
package core

import (
	"context"
	"image"
	"image/color"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// The interfaces below are the collaborators the player drives.
// Implementations: robotgo desktop, in-memory mock.
// The MacroRunner handles control flow; collaborators only perform effects.

// Injector synthesizes input events. Implementations must tag injected
// events so a recorder running in the same process can tell them apart
// from genuine input.
type Injector interface {
	MoveCursor(x, y int) error
	ButtonDown(button macro.MouseButton) error
	ButtonUp(button macro.MouseButton) error
	KeyDown(vk int) error
	KeyUp(vk int) error
	Scroll(orientation macro.Orientation, amount int) error
}

// ScreenInfo reports the geometry of the attached displays.
type ScreenInfo interface {
	// VirtualScreen returns the bounds spanning all monitors.
	VirtualScreen() Rect
}

// Screen captures pixels from the desktop.
type Screen interface {
	ScreenInfo

	// Capture returns the pixels of rect with a top-left origin.
	Capture(rect Rect) (*image.RGBA, error)

	// Pixel returns the color of a single screen pixel.
	Pixel(x, y int) (color.RGBA, error)
}

// WindowLocator answers which window currently has focus.
type WindowLocator interface {
	// ForegroundWindow returns the bounds of the focused window, or false
	// when no window has focus.
	ForegroundWindow() (Rect, bool)
}

// Word is one recognized word with its bounds inside the recognized image.
type Word struct {
	Text   string
	Bounds image.Rectangle
}

// TextLine is one recognized line of words.
type TextLine struct {
	Words []Word
}

// OCR recognizes text lines in an image.
type OCR interface {
	Recognize(ctx context.Context, img image.Image, language string) ([]TextLine, error)
}

// Repository loads macros referenced by EmbedMacroFile.
type Repository interface {
	Load(path string) (*macro.Macro, error)
}

// Launcher starts external programs.
type Launcher interface {
	Start(path string, args []string, dir string) error
}

// TextInputWatcher streams characters typed by the user.
// The returned stop function releases the underlying hook.
type TextInputWatcher interface {
	Watch(ctx context.Context) (<-chan rune, func(), error)
}
