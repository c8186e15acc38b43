package detect

import "image"

// SampleArea is the needle area above which only every second pixel in
// both dimensions is compared.
const SampleArea = 4000

// MatchTemplate scans every top-left offset of haystack in row-major order
// and returns the first one where needle matches within tolerance t.
// Coordinates are relative to the haystack origin.
func MatchTemplate(haystack, needle *image.RGBA, t int) (image.Point, bool) {
	hb, nb := haystack.Bounds(), needle.Bounds()
	w, h := nb.Dx(), nb.Dy()
	if w == 0 || h == 0 || w > hb.Dx() || h > hb.Dy() {
		return image.Point{}, false
	}

	step := 1
	if w*h > SampleArea {
		step = 2
	}
	threshold := ToleranceThreshold(t)
	exact := t <= 0

	for y := 0; y <= hb.Dy()-h; y++ {
		for x := 0; x <= hb.Dx()-w; x++ {
			if matchAt(haystack, needle, x, y, step, threshold, exact) {
				return image.Point{X: x, Y: y}, true
			}
		}
	}
	return image.Point{}, false
}

func matchAt(haystack, needle *image.RGBA, ox, oy, step int, threshold float64, exact bool) bool {
	hb, nb := haystack.Bounds(), needle.Bounds()
	for y := 0; y < nb.Dy(); y += step {
		hRow := haystack.PixOffset(hb.Min.X+ox, hb.Min.Y+oy+y)
		nRow := needle.PixOffset(nb.Min.X, nb.Min.Y+y)
		for x := 0; x < nb.Dx(); x += step {
			hp := haystack.Pix[hRow+x*4 : hRow+x*4+3 : hRow+x*4+3]
			np := needle.Pix[nRow+x*4 : nRow+x*4+3 : nRow+x*4+3]
			if exact {
				if hp[0] != np[0] || hp[1] != np[1] || hp[2] != np[2] {
					return false
				}
				continue
			}
			if distanceSq(hp[0], hp[1], hp[2], np[0], np[1], np[2]) > threshold {
				return false
			}
		}
	}
	return true
}
