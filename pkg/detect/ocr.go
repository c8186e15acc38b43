package detect

import (
	"context"
	"image"
	"strings"

	"github.com/nfnt/resize"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
)

// FindText recognizes img with ocr and returns the bounding box of the
// first line whose space-joined words contain text (case-insensitive).
// The box is the union of all word boxes of that line, in img coordinates.
// A scale > 1 upscales the capture before recognition, which helps small
// UI fonts; boxes are mapped back to the original size.
func FindText(ctx context.Context, ocr core.OCR, img *image.RGBA, text, language string, scale float64) (image.Rectangle, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return image.Rectangle{}, false, nil
	}

	src := image.Image(img)
	if scale > 1 {
		b := img.Bounds()
		src = resize.Resize(uint(float64(b.Dx())*scale), uint(float64(b.Dy())*scale), img, resize.Lanczos3)
	} else {
		scale = 1
	}

	lines, err := ocr.Recognize(ctx, src, language)
	if err != nil {
		return image.Rectangle{}, false, err
	}

	for _, line := range lines {
		words := make([]string, 0, len(line.Words))
		for _, w := range line.Words {
			words = append(words, w.Text)
		}
		if !strings.Contains(strings.ToLower(strings.Join(words, " ")), needle) {
			continue
		}

		var box image.Rectangle
		for _, w := range line.Words {
			box = box.Union(w.Bounds)
		}
		if scale != 1 {
			box = image.Rect(
				int(float64(box.Min.X)/scale), int(float64(box.Min.Y)/scale),
				int(float64(box.Max.X)/scale+0.5), int(float64(box.Max.Y)/scale+0.5),
			)
		}
		return box, true, nil
	}
	return image.Rectangle{}, false, nil
}
