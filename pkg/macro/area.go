package macro

import (
	"fmt"
	"strings"
)

// AreaKind selects which part of the screen a detection inspects.
type AreaKind int

// AreaKind values
const (
	EntireDesktop AreaKind = iota
	AreaOfDesktop
	FocusedWindow
	AreaOfFocusedWindow
)

// SearchArea describes a screen region. For AreaOfDesktop the coordinates
// are absolute; for AreaOfFocusedWindow they are offsets from the focused
// window's top-left corner. Either way they are min/max-normalized before use.
type SearchArea struct {
	Kind           AreaKind
	X1, Y1, X2, Y2 int
}

func (a SearchArea) String() string {
	switch a.Kind {
	case EntireDesktop:
		return "desktop"
	case AreaOfDesktop:
		return fmt.Sprintf("desktop(%d,%d)-(%d,%d)", a.X1, a.Y1, a.X2, a.Y2)
	case FocusedWindow:
		return "window"
	case AreaOfFocusedWindow:
		return fmt.Sprintf("window(%d,%d)-(%d,%d)", a.X1, a.Y1, a.X2, a.Y2)
	default:
		return "unknown"
	}
}

// HasRectangle reports whether the coordinates are used.
func (a SearchArea) HasRectangle() bool {
	return a.Kind == AreaOfDesktop || a.Kind == AreaOfFocusedWindow
}

// ParseAreaKind maps a name to an AreaKind.
func ParseAreaKind(s string) (AreaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desktop", "entiredesktop":
		return EntireDesktop, nil
	case "areaofdesktop", "desktoparea":
		return AreaOfDesktop, nil
	case "window", "focusedwindow":
		return FocusedWindow, nil
	case "areaoffocusedwindow", "windowarea":
		return AreaOfFocusedWindow, nil
	}
	return EntireDesktop, fmt.Errorf("unknown search area %q", s)
}

// MousePosition picks the anchor point inside a found region.
type MousePosition int

// MousePosition values
const (
	PositionCenter MousePosition = iota
	PositionTopLeft
	PositionTopRight
	PositionBottomLeft
	PositionBottomRight
)

func (p MousePosition) String() string {
	switch p {
	case PositionCenter:
		return "center"
	case PositionTopLeft:
		return "topLeft"
	case PositionTopRight:
		return "topRight"
	case PositionBottomLeft:
		return "bottomLeft"
	case PositionBottomRight:
		return "bottomRight"
	default:
		return "unknown"
	}
}

// ParseMousePosition maps a name to a MousePosition.
func ParseMousePosition(s string) (MousePosition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "center":
		return PositionCenter, nil
	case "topleft":
		return PositionTopLeft, nil
	case "topright":
		return PositionTopRight, nil
	case "bottomleft":
		return PositionBottomLeft, nil
	case "bottomright":
		return PositionBottomRight, nil
	}
	return PositionCenter, fmt.Errorf("unknown mouse position %q", s)
}
