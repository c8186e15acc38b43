package macro

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func TestParseSteps(t *testing.T) {
	src := `
name: Login
env:
  USER: bob
---
- mouseClick: {x: 10, y: 20, button: right, click: double}
  label: Begin
  comment: open menu
- mouseMove: {x: 1, y: 2}
- mouseWheel: -3
- keyDown: shift
- keyPress: {key: a}
- wait: 250
- waitForPixelColor: {x: 5, y: 6, color: "#FF8000", tolerance: 10, timeout: 2000, onTrue: Begin, onFalse: end}
- waitForScreenChange:
    area: {kind: areaOfDesktop, x1: 0, y1: 0, x2: 100, y2: 50}
    timeout: 0
    mouseAction: left
    position: topLeft
- waitForTextInput: hello
- findImage:
    area: window
    template: button.png
    tolerance: 5
    saveX: BX
    saveY: BY
    onFalse: Begin
- findTextOcr: {area: desktop, text: OK, language: eng}
- goTo: start
- if: {variable: USER, condition: contains, value: bo, onTrue: Begin}
- repeat: {start: Begin, times: 3, after: next}
- embedMacroFile: sub.yaml
- executeProgram: {path: notepad.exe, args: [a.txt], workingDir: C:\tmp}
`
	m, err := Parse([]byte(src), "/m/login.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Login", m.Name)
	assert.Equal(t, map[string]string{"USER": "bob"}, m.Env)
	require.Equal(t, 16, m.Len())

	first := m.Step(0)
	assert.Equal(t, "Begin", first.Label)
	assert.Equal(t, "open menu", first.Comment)
	assert.Equal(t, MouseClickAction{X: 10, Y: 20, Button: ButtonRight, Click: DoubleClick}, first.Action)

	assert.Equal(t, MouseWheelAction{Amount: -3}, m.Step(2).Action)
	assert.Equal(t, KeyPressAction{Key: VKShift, Press: KeyDown}, m.Step(3).Action)
	assert.Equal(t, KeyPressAction{Key: 'A', Press: KeyPress}, m.Step(4).Action)
	assert.Equal(t, WaitAction{Milliseconds: 250}, m.Step(5).Action)

	pixel := m.Step(6).Action.(WaitForPixelColorAction)
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0x80, B: 0x00, A: 0xFF}, pixel.Color)
	assert.Equal(t, Label("Begin"), pixel.TrueGoTo)
	assert.Equal(t, End(), pixel.FalseGoTo)

	change := m.Step(7).Action.(WaitForScreenChangeAction)
	assert.Equal(t, SearchArea{Kind: AreaOfDesktop, X2: 100, Y2: 50}, change.Area)
	assert.Equal(t, MouseLeftClick, change.Detection.MouseAction)
	assert.Equal(t, PositionTopLeft, change.Detection.Position)

	assert.Equal(t, "hello", m.Step(8).Action.(WaitForTextInputAction).Text)

	find := m.Step(9).Action.(FindImageAction)
	assert.Equal(t, FocusedWindow, find.Area.Kind)
	assert.Equal(t, FileTemplate("button.png"), find.Template)
	assert.Equal(t, "BX", find.Detection.SaveX)
	assert.Equal(t, Next(), find.TrueGoTo)

	assert.Equal(t, GoToAction{Target: Start()}, m.Step(11).Action)
	assert.Equal(t, CondContains, m.Step(12).Action.(IfAction).Condition)

	rep := m.Step(13).Action.(RepeatAction)
	assert.Equal(t, "Begin", rep.StartLabel)
	assert.Equal(t, Repetitions(3), rep.Condition)

	assert.Equal(t, EmbedMacroFileAction{Path: "sub.yaml"}, m.Step(14).Action)
	assert.Equal(t, []string{"a.txt"}, m.Step(15).Action.(ExecuteProgramAction).Arguments)
}

func TestParseStepsOnlyDocument(t *testing.T) {
	m, err := Parse([]byte("- wait: 1\n"), "/x/quick.yaml")
	require.NoError(t, err)
	assert.Equal(t, "quick", m.Name)
	assert.Equal(t, 1, m.Len())
}

func TestParseRenamesDuplicateLabels(t *testing.T) {
	m, err := Parse([]byte("- wait: 1\n  label: L\n- wait: 2\n  label: L\n"), "d.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"L", "L1"}, m.Labels())
}

func TestParseRepeatConditions(t *testing.T) {
	tests := []struct {
		src  string
		want RepeatCondition
	}{
		{"- repeat: {start: A, seconds: 5}", ForSeconds(5)},
		{"- repeat: {start: A, until: '18:00:00'}", Until("18:00:00")},
		{"- repeat: {start: A, forever: true}", Forever()},
		{"- repeat: {start: A}", Forever()},
	}
	for _, tt := range tests {
		m, err := Parse([]byte(tt.src), "r.yaml")
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, m.Step(0).Action.(RepeatAction).Condition, tt.src)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"scalar step", "- wait"},
		{"unknown key", "- teleport: {x: 1}"},
		{"two actions", "- wait: 1\n  goTo: end"},
		{"bad key", "- keyPress: nosuchkey"},
		{"bad color", "- waitForPixelColor: {color: red}"},
		{"bad area", "- findImage: {area: moon, template: a.png}"},
		{"bad until", "- repeat: {start: A, until: noon}"},
		{"two repeat conditions", "- repeat: {start: A, times: 2, seconds: 3}"},
		{"goTo mapping", "- goTo: {label: x}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.yaml")
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestParseEmbeddedTemplate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{R: 9, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	src := "- findImage: {png: " + base64.StdEncoding.EncodeToString(buf.Bytes()) + "}"
	m, err := Parse([]byte(src), "e.yaml")
	require.NoError(t, err)

	tmpl := m.Step(0).Action.(FindImageAction).Template
	assert.Equal(t, TemplateEmbeddedPNG, tmpl.Kind)

	decoded, err := tmpl.Decode("")
	require.NoError(t, err)
	assert.Equal(t, uint8(9), decoded.RGBAAt(1, 1).R)
}

func TestFileTemplateResolvesAgainstBaseDir(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	f, err := os.Create(filepath.Join(dir, "t.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	decoded, err := FileTemplate("t.png").Decode(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Bounds().Dx())

	_, err = FileTemplate("missing.png").Decode(dir)
	assert.Error(t, err)
}

func TestFileRepositoryLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- goTo: end\n"), 0o600))

	m, err := FileRepository{}.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.SourcePath)
	assert.Equal(t, dir, m.Dir())

	_, err = FileRepository{}.Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}
