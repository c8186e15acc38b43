package desktop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sort"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
)

// Tesseract recognizes text with the tesseract engine. One client is
// reused across calls.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a tesseract client. Close releases it.
func NewTesseract() *Tesseract {
	return &Tesseract{client: gosseract.NewClient()}
}

// Close releases the tesseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

// Recognize returns the words of img grouped into lines.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, language string) ([]core.TextLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if language != "" {
		if err := t.client.SetLanguage(strings.Split(language, "+")...); err != nil {
			return nil, fmt.Errorf("ocr language %q: %w", language, err)
		}
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("ocr image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return groupLines(boxes), nil
}

type lineKey struct {
	block, par, line int
}

// groupLines groups word boxes by block, paragraph and line number, in
// reading order.
func groupLines(boxes []gosseract.BoundingBox) []core.TextLine {
	var keys []lineKey
	lines := make(map[lineKey][]gosseract.BoundingBox)
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		k := lineKey{b.BlockNum, b.ParNum, b.LineNum}
		if _, ok := lines[k]; !ok {
			keys = append(keys, k)
		}
		lines[k] = append(lines[k], b)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.block != b.block {
			return a.block < b.block
		}
		if a.par != b.par {
			return a.par < b.par
		}
		return a.line < b.line
	})

	out := make([]core.TextLine, 0, len(keys))
	for _, k := range keys {
		words := lines[k]
		sort.SliceStable(words, func(i, j int) bool { return words[i].WordNum < words[j].WordNum })
		line := core.TextLine{Words: make([]core.Word, 0, len(words))}
		for _, w := range words {
			line.Words = append(line.Words, core.Word{Text: strings.TrimSpace(w.Word), Bounds: w.Box})
		}
		out = append(out, line)
	}
	return out
}

var _ core.OCR = (*Tesseract)(nil)
