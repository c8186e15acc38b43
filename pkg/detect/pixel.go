package detect

import (
	"context"
	"image/color"
	"time"
)

// PixelSource samples single screen pixels.
type PixelSource interface {
	Pixel(x, y int) (color.RGBA, error)
}

// WaitForPixel polls the pixel at (x, y) until it matches want within
// tolerance t. A timeout <= 0 waits until ctx is cancelled; an interval <= 0
// uses PixelPollInterval. Read errors abort the wait.
func WaitForPixel(ctx context.Context, src PixelSource, x, y int, want color.RGBA, t int, timeout, interval time.Duration) (bool, error) {
	if interval <= 0 {
		interval = PixelPollInterval
	}
	return Poll(ctx, timeout, interval, func() (bool, error) {
		got, err := src.Pixel(x, y)
		if err != nil {
			return false, err
		}
		return ColorMatches(got, want, t), nil
	})
}
