package detect

import (
	"context"
	"image"
	"time"
)

// ChangeThreshold is the per-channel difference a pixel must exceed to
// count as changed.
const ChangeThreshold = 16

// CaptureFunc grabs the current pixels of a fixed region.
type CaptureFunc func() (*image.RGBA, error)

// Diff scans row-major for the first pixel where any of R, G or B differs
// by more than threshold. Captures of different sizes differ at (0,0).
func Diff(baseline, current *image.RGBA, threshold int) (image.Point, bool) {
	bb, cb := baseline.Bounds(), current.Bounds()
	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		return image.Point{}, true
	}
	for y := 0; y < bb.Dy(); y++ {
		bRow := baseline.PixOffset(bb.Min.X, bb.Min.Y+y)
		cRow := current.PixOffset(cb.Min.X, cb.Min.Y+y)
		for x := 0; x < bb.Dx(); x++ {
			bp := baseline.Pix[bRow+x*4:]
			cp := current.Pix[cRow+x*4:]
			if absDiff(bp[0], cp[0]) > threshold ||
				absDiff(bp[1], cp[1]) > threshold ||
				absDiff(bp[2], cp[2]) > threshold {
				return image.Point{X: x, Y: y}, true
			}
		}
	}
	return image.Point{}, false
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// WaitForChange captures a baseline once, then re-captures every interval
// until Diff finds a changed pixel. It returns the first changed point
// relative to the capture origin. A timeout <= 0 waits until ctx is
// cancelled; an interval <= 0 uses ChangePollInterval.
func WaitForChange(ctx context.Context, capture CaptureFunc, timeout, interval time.Duration) (image.Point, bool, error) {
	if interval <= 0 {
		interval = ChangePollInterval
	}
	baseline, err := capture()
	if err != nil {
		return image.Point{}, false, err
	}

	var changedAt image.Point
	first := true
	found, err := Poll(ctx, timeout, interval, func() (bool, error) {
		// The baseline itself is not compared against.
		if first {
			first = false
			return false, nil
		}
		current, err := capture()
		if err != nil {
			return false, err
		}
		p, ok := Diff(baseline, current, ChangeThreshold)
		if ok {
			changedAt = p
		}
		return ok, nil
	})
	return changedAt, found, err
}
