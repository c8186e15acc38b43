// Package detect implements the screen-detection primitives: template
// matching, OCR text search, pixel-color polling and screen-change diffing.
//
// The matching functions are pure and operate on captured *image.RGBA
// buffers; the Wait* functions poll a collaborator until a condition holds,
// the timeout elapses or the context is cancelled.
package detect

import "image/color"

// MaxColorDistance is the Euclidean distance between black and white.
const MaxColorDistance = 441.673

// ToleranceThreshold maps a tolerance percentage to the squared RGB distance
// two colors may differ by and still match. t is clamped to [0,100].
func ToleranceThreshold(t int) float64 {
	if t <= 0 {
		return 0
	}
	if t > 100 {
		t = 100
	}
	d := MaxColorDistance * float64(t) / 100
	return d * d
}

// distanceSq is the squared Euclidean distance over R, G and B.
func distanceSq(r1, g1, b1, r2, g2, b2 uint8) float64 {
	dr := float64(r1) - float64(r2)
	dg := float64(g1) - float64(g2)
	db := float64(b1) - float64(b2)
	return dr*dr + dg*dg + db*db
}

// ColorMatches reports whether a and b are within tolerance t. Alpha is
// ignored; t == 0 requires identical RGB.
func ColorMatches(a, b color.RGBA, t int) bool {
	if t <= 0 {
		return a.R == b.R && a.G == b.G && a.B == b.B
	}
	return distanceSq(a.R, a.G, a.B, b.R, b.G, b.B) <= ToleranceThreshold(t)
}
