package macro

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // decoder registration for file templates
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp" // decoder registration for file templates
)

// TemplateKind says where an ImageTemplate keeps its pixels.
type TemplateKind int

// TemplateKind values
const (
	TemplateFile TemplateKind = iota
	TemplateEmbeddedPNG
)

// ImageTemplate is the needle of a FindImage action. Exactly one payload is
// meaningful per Kind.
type ImageTemplate struct {
	Kind     TemplateKind
	FilePath string
	PNG      []byte
}

// FileTemplate returns a template read from path at playback time.
func FileTemplate(path string) ImageTemplate {
	return ImageTemplate{Kind: TemplateFile, FilePath: path}
}

// EmbeddedTemplate returns a template carrying its own PNG bytes.
func EmbeddedTemplate(png []byte) ImageTemplate {
	return ImageTemplate{Kind: TemplateEmbeddedPNG, PNG: png}
}

func (t ImageTemplate) String() string {
	if t.Kind == TemplateEmbeddedPNG {
		return fmt.Sprintf("<embedded %d bytes>", len(t.PNG))
	}
	return filepath.Base(t.FilePath)
}

// IsEmpty reports whether the template has no payload.
func (t ImageTemplate) IsEmpty() bool {
	if t.Kind == TemplateEmbeddedPNG {
		return len(t.PNG) == 0
	}
	return t.FilePath == ""
}

// Decode loads the template pixels. Relative file paths are resolved
// against baseDir.
func (t ImageTemplate) Decode(baseDir string) (*image.RGBA, error) {
	var img image.Image
	switch t.Kind {
	case TemplateEmbeddedPNG:
		decoded, err := png.Decode(bytes.NewReader(t.PNG))
		if err != nil {
			return nil, fmt.Errorf("decode embedded template: %w", err)
		}
		img = decoded
	default:
		path := t.FilePath
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		f, err := os.Open(path) //#nosec G304 -- template path comes from the macro
		if err != nil {
			return nil, fmt.Errorf("open template: %w", err)
		}
		defer f.Close()
		decoded, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode template %s: %w", path, err)
		}
		img = decoded
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as an *image.RGBA with a zero origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
