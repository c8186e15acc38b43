// Package coords turns abstract search areas into screen rectangles and
// found regions into a single anchor point.
package coords

import (
	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// Resolver resolves search areas against the live desktop. The focused
// window is queried on every call.
type Resolver struct {
	Screen  core.ScreenInfo
	Windows core.WindowLocator
}

// NewResolver creates a resolver.
func NewResolver(screen core.ScreenInfo, windows core.WindowLocator) *Resolver {
	return &Resolver{Screen: screen, Windows: windows}
}

// ResolveRectangle returns the screen rectangle covered by area. Rectangles
// built from stored coordinates are min/max-normalized; an empty result is
// a configuration error.
func (r *Resolver) ResolveRectangle(area macro.SearchArea) (core.Rect, error) {
	var rect core.Rect
	switch area.Kind {
	case macro.EntireDesktop:
		rect = r.Screen.VirtualScreen()
	case macro.AreaOfDesktop:
		rect = core.RectFromCorners(area.X1, area.Y1, area.X2, area.Y2)
	case macro.FocusedWindow:
		rect = r.focusedWindow()
	case macro.AreaOfFocusedWindow:
		rect = core.RectFromCorners(area.X1, area.Y1, area.X2, area.Y2).
			Offset(r.focusedWindow().TopLeft())
	default:
		return core.Rect{}, core.ErrInvalidSearchArea.WithMessagef("unknown search area kind %d", area.Kind)
	}

	if rect.Empty() {
		return core.Rect{}, core.ErrInvalidSearchArea.WithDetails(map[string]interface{}{
			"area": area.String(),
			"rect": rect.String(),
		})
	}
	return rect, nil
}

func (r *Resolver) focusedWindow() core.Rect {
	if r.Windows != nil {
		if rect, ok := r.Windows.ForegroundWindow(); ok && !rect.Empty() {
			return rect
		}
	}
	return r.Screen.VirtualScreen()
}

// ResolveAnchor picks the point of a found box named by pos. Right and
// bottom corners use size-1 so the point stays inside the box.
func ResolveAnchor(topLeft core.Point, size core.Size, pos macro.MousePosition) core.Point {
	right := max(size.Width-1, 0)
	bottom := max(size.Height-1, 0)

	switch pos {
	case macro.PositionTopLeft:
		return topLeft
	case macro.PositionTopRight:
		return topLeft.Add(core.Point{X: right})
	case macro.PositionBottomLeft:
		return topLeft.Add(core.Point{Y: bottom})
	case macro.PositionBottomRight:
		return topLeft.Add(core.Point{X: right, Y: bottom})
	default:
		return topLeft.Add(core.Point{X: size.Width / 2, Y: size.Height / 2})
	}
}
