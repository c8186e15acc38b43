package macro

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Header is the optional first document of a macro file.
type Header struct {
	Name string            `yaml:"name"`
	Env  map[string]string `yaml:"env"`
}

// ParseFile parses a single macro YAML file.
func ParseFile(path string) (*Macro, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided macro file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses macro YAML content: an optional header document, then a
// document holding the step list.
func Parse(data []byte, sourcePath string) (*Macro, error) {
	parts := splitYAMLDocuments(string(data))
	if len(parts) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty macro file"}
	}

	m := &Macro{SourcePath: sourcePath}
	stepsDoc := parts[0]
	if len(parts) > 1 {
		var h Header
		if err := yaml.Unmarshal([]byte(parts[0]), &h); err != nil {
			return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid header: %v", err)}
		}
		m.Name = h.Name
		m.Env = h.Env
		stepsDoc = parts[1]
	}
	if m.Name == "" && sourcePath != "" {
		m.Name = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	}

	var rawSteps []yaml.Node
	if err := yaml.Unmarshal([]byte(stepsDoc), &rawSteps); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid steps: %v", err)}
	}
	for i := range rawSteps {
		step, err := parseStep(&rawSteps[i], sourcePath)
		if err != nil {
			return nil, err
		}
		m.Append(step)
	}
	return m, nil
}

func splitYAMLDocuments(content string) []string {
	var parts []string
	var current strings.Builder
	inMultiline := false
	multilineIndent := 0

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inMultiline {
			if strings.HasSuffix(trimmed, "|") || strings.HasSuffix(trimmed, ">") ||
				strings.HasSuffix(trimmed, "|-") || strings.HasSuffix(trimmed, ">-") {
				inMultiline = true
				if i+1 < len(lines) {
					next := lines[i+1]
					multilineIndent = len(next) - len(strings.TrimLeft(next, " \t"))
				}
			}
		} else {
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if trimmed != "" && indent < multilineIndent {
				inMultiline = false
			}
		}

		if !inMultiline && trimmed == "---" && strings.TrimLeft(line, " \t") == "---" {
			if strings.TrimSpace(current.String()) != "" {
				parts = append(parts, current.String())
			}
			current.Reset()
		} else {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		parts = append(parts, current.String())
	}
	return parts
}

// stepKeys are the action keys a step mapping may carry. keyDown and keyUp
// are shortcuts for keyPress.
var stepKeys = map[string]bool{
	"keyDown": true, "keyUp": true,
}

func init() {
	for _, k := range Kinds {
		stepKeys[string(k)] = true
	}
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	if node.Kind != yaml.MappingNode {
		return Step{}, &ParseError{Path: sourcePath, Line: node.Line, Message: "step must be a mapping"}
	}

	var step Step
	var key string
	var value *yaml.Node
	for i := 0; i < len(node.Content)-1; i += 2 {
		k, v := node.Content[i].Value, node.Content[i+1]
		switch {
		case k == "label":
			step.Label = v.Value
		case k == "comment":
			step.Comment = v.Value
		case stepKeys[k]:
			if key != "" {
				return Step{}, &ParseError{Path: sourcePath, Line: node.Content[i].Line,
					Message: fmt.Sprintf("step has two actions: %s and %s", key, k)}
			}
			key, value = k, v
		default:
			return Step{}, &ParseError{Path: sourcePath, Line: node.Content[i].Line,
				Message: fmt.Sprintf("unknown step key: %s", k)}
		}
	}
	if key == "" {
		return Step{}, &ParseError{Path: sourcePath, Line: node.Line, Message: "unknown step type"}
	}

	action, err := decodeAction(key, value)
	if err != nil {
		return Step{}, wrapParseError(sourcePath, value.Line, err)
	}
	step.Action = action
	return step, nil
}

type branchDTO struct {
	OnTrue  string `yaml:"onTrue"`
	OnFalse string `yaml:"onFalse"`
}

func (b branchDTO) targets() (GoToTarget, GoToTarget) {
	return ParseTarget(b.OnTrue), ParseTarget(b.OnFalse)
}

type detectionDTO struct {
	Position    string `yaml:"position"`
	MouseAction string `yaml:"mouseAction"`
	SaveX       string `yaml:"saveX"`
	SaveY       string `yaml:"saveY"`
}

func (d detectionDTO) options() (DetectionOptions, error) {
	pos, err := ParseMousePosition(d.Position)
	if err != nil {
		return DetectionOptions{}, err
	}
	act, err := parseMouseAction(d.MouseAction)
	if err != nil {
		return DetectionOptions{}, err
	}
	return DetectionOptions{Position: pos, MouseAction: act, SaveX: d.SaveX, SaveY: d.SaveY}, nil
}

// areaDTO accepts either a kind name or a mapping with coordinates.
type areaDTO struct {
	Kind string `yaml:"kind"`
	X1   int    `yaml:"x1"`
	Y1   int    `yaml:"y1"`
	X2   int    `yaml:"x2"`
	Y2   int    `yaml:"y2"`
}

func (a *areaDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Kind = node.Value
		return nil
	}
	type plain areaDTO
	return node.Decode((*plain)(a))
}

func (a areaDTO) area() (SearchArea, error) {
	kind, err := ParseAreaKind(a.Kind)
	if err != nil {
		return SearchArea{}, err
	}
	return SearchArea{Kind: kind, X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}, nil
}

//nolint:gocyclo
func decodeAction(key string, node *yaml.Node) (Action, error) {
	scalar := node.Kind == yaml.ScalarNode

	switch key {
	case "mouseClick":
		var raw struct {
			X      int    `yaml:"x"`
			Y      int    `yaml:"y"`
			Button string `yaml:"button"`
			Click  string `yaml:"click"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		button, err := parseButton(raw.Button)
		if err != nil {
			return nil, err
		}
		click, err := parseClickKind(raw.Click)
		if err != nil {
			return nil, err
		}
		return MouseClickAction{X: raw.X, Y: raw.Y, Button: button, Click: click}, nil

	case "mouseMove":
		var raw struct {
			X int `yaml:"x"`
			Y int `yaml:"y"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return MouseMoveAction{X: raw.X, Y: raw.Y}, nil

	case "mouseWheel":
		var raw struct {
			Orientation string `yaml:"orientation"`
			Amount      int    `yaml:"amount"`
		}
		if scalar {
			if err := node.Decode(&raw.Amount); err != nil {
				return nil, err
			}
		} else if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		a := MouseWheelAction{Amount: raw.Amount}
		switch strings.ToLower(raw.Orientation) {
		case "", "vertical":
		case "horizontal":
			a.Orientation = Horizontal
		default:
			return nil, fmt.Errorf("unknown orientation %q", raw.Orientation)
		}
		return a, nil

	case "keyPress", "keyDown", "keyUp":
		var raw struct {
			Key   string `yaml:"key"`
			Press string `yaml:"press"`
		}
		if scalar {
			raw.Key = node.Value
		} else if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		vk, err := ParseKey(raw.Key)
		if err != nil {
			return nil, err
		}
		press := raw.Press
		if key != "keyPress" {
			press = strings.TrimPrefix(key, "key")
		}
		kind, err := parsePressKind(press)
		if err != nil {
			return nil, err
		}
		return KeyPressAction{Key: vk, Press: kind}, nil

	case "wait":
		var raw struct {
			Milliseconds int `yaml:"ms"`
		}
		if scalar {
			if err := node.Decode(&raw.Milliseconds); err != nil {
				return nil, err
			}
		} else if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return WaitAction{Milliseconds: raw.Milliseconds}, nil

	case "waitForPixelColor":
		var raw struct {
			X         int    `yaml:"x"`
			Y         int    `yaml:"y"`
			Color     string `yaml:"color"`
			Tolerance int    `yaml:"tolerance"`
			Timeout   int    `yaml:"timeout"`
			branchDTO `yaml:",inline"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		c, err := ParseColor(raw.Color)
		if err != nil {
			return nil, err
		}
		a := WaitForPixelColorAction{X: raw.X, Y: raw.Y, Color: c, Tolerance: raw.Tolerance, TimeoutMs: raw.Timeout}
		a.TrueGoTo, a.FalseGoTo = raw.targets()
		return a, nil

	case "waitForScreenChange":
		var raw struct {
			Area         areaDTO `yaml:"area"`
			Timeout      int     `yaml:"timeout"`
			detectionDTO `yaml:",inline"`
			branchDTO    `yaml:",inline"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		area, err := raw.Area.area()
		if err != nil {
			return nil, err
		}
		opts, err := raw.options()
		if err != nil {
			return nil, err
		}
		a := WaitForScreenChangeAction{Area: area, TimeoutMs: raw.Timeout, Detection: opts}
		a.TrueGoTo, a.FalseGoTo = raw.targets()
		return a, nil

	case "waitForTextInput":
		var raw struct {
			Text      string `yaml:"text"`
			Timeout   int    `yaml:"timeout"`
			branchDTO `yaml:",inline"`
		}
		if scalar {
			raw.Text = node.Value
		} else if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		a := WaitForTextInputAction{Text: raw.Text, TimeoutMs: raw.Timeout}
		a.TrueGoTo, a.FalseGoTo = raw.targets()
		return a, nil

	case "findImage":
		var raw struct {
			Area         areaDTO `yaml:"area"`
			Template     string  `yaml:"template"`
			PNG          string  `yaml:"png"`
			Tolerance    int     `yaml:"tolerance"`
			Timeout      int     `yaml:"timeout"`
			detectionDTO `yaml:",inline"`
			branchDTO    `yaml:",inline"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		area, err := raw.Area.area()
		if err != nil {
			return nil, err
		}
		opts, err := raw.options()
		if err != nil {
			return nil, err
		}
		tmpl := FileTemplate(raw.Template)
		if raw.PNG != "" {
			data, err := base64.StdEncoding.DecodeString(raw.PNG)
			if err != nil {
				return nil, fmt.Errorf("invalid embedded png: %w", err)
			}
			tmpl = EmbeddedTemplate(data)
		}
		a := FindImageAction{Area: area, Template: tmpl, Tolerance: raw.Tolerance, TimeoutMs: raw.Timeout, Detection: opts}
		a.TrueGoTo, a.FalseGoTo = raw.targets()
		return a, nil

	case "findTextOcr":
		var raw struct {
			Area         areaDTO `yaml:"area"`
			Text         string  `yaml:"text"`
			Language     string  `yaml:"language"`
			Timeout      int     `yaml:"timeout"`
			detectionDTO `yaml:",inline"`
			branchDTO    `yaml:",inline"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		area, err := raw.Area.area()
		if err != nil {
			return nil, err
		}
		opts, err := raw.options()
		if err != nil {
			return nil, err
		}
		a := FindTextOcrAction{Area: area, Text: raw.Text, Language: raw.Language, TimeoutMs: raw.Timeout, Detection: opts}
		a.TrueGoTo, a.FalseGoTo = raw.targets()
		return a, nil

	case "goTo":
		if !scalar {
			return nil, fmt.Errorf("goTo expects a target name")
		}
		return GoToAction{Target: ParseTarget(node.Value)}, nil

	case "if":
		var raw struct {
			Variable  string `yaml:"variable"`
			Condition string `yaml:"condition"`
			Value     string `yaml:"value"`
			branchDTO `yaml:",inline"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		cond, err := ParseIfCondition(raw.Condition)
		if err != nil {
			return nil, err
		}
		a := IfAction{VariableName: raw.Variable, Condition: cond, Value: raw.Value}
		a.TrueGoTo, a.FalseGoTo = raw.targets()
		return a, nil

	case "repeat":
		return decodeRepeat(node)

	case "embedMacroFile":
		var raw struct {
			Path string `yaml:"path"`
		}
		if scalar {
			raw.Path = node.Value
		} else if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return EmbedMacroFileAction{Path: raw.Path}, nil

	case "executeProgram":
		var raw struct {
			Path       string   `yaml:"path"`
			Args       []string `yaml:"args"`
			WorkingDir string   `yaml:"workingDir"`
		}
		if scalar {
			raw.Path = node.Value
		} else if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return ExecuteProgramAction{Path: raw.Path, Arguments: raw.Args, WorkingDir: raw.WorkingDir}, nil
	}
	return nil, fmt.Errorf("unknown step type: %s", key)
}

// decodeRepeat handles repeat, where exactly one of times, seconds, until
// or forever selects the condition. No condition means forever.
func decodeRepeat(node *yaml.Node) (Action, error) {
	var raw struct {
		Start   string `yaml:"start"`
		Times   *int   `yaml:"times"`
		Seconds *int   `yaml:"seconds"`
		Until   string `yaml:"until"`
		Forever bool   `yaml:"forever"`
		After   string `yaml:"after"`
	}
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}

	a := RepeatAction{StartLabel: strings.TrimSpace(raw.Start), AfterRepeatGoTo: ParseTarget(raw.After)}
	set := 0
	if raw.Times != nil {
		a.Condition = Repetitions(*raw.Times)
		set++
	}
	if raw.Seconds != nil {
		a.Condition = ForSeconds(*raw.Seconds)
		set++
	}
	if raw.Until != "" {
		if _, err := time.Parse(UntilLayout, strings.TrimSpace(raw.Until)); err != nil {
			return nil, fmt.Errorf("invalid until time %q", raw.Until)
		}
		a.Condition = Until(strings.TrimSpace(raw.Until))
		set++
	}
	if raw.Forever || set == 0 {
		a.Condition = Forever()
		if raw.Forever {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("repeat takes only one of times, seconds, until, forever")
	}
	return a, nil
}

// ParseColor parses "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

func parseButton(s string) (MouseButton, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "middle":
		return ButtonMiddle, nil
	}
	return ButtonLeft, fmt.Errorf("unknown mouse button %q", s)
}

func parseClickKind(s string) (ClickKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "click":
		return Click, nil
	case "double", "doubleclick":
		return DoubleClick, nil
	case "down":
		return ButtonDown, nil
	case "up":
		return ButtonUp, nil
	}
	return Click, fmt.Errorf("unknown click kind %q", s)
}

func parsePressKind(s string) (KeyPressKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "press":
		return KeyPress, nil
	case "down":
		return KeyDown, nil
	case "up":
		return KeyUp, nil
	}
	return KeyPress, fmt.Errorf("unknown key press kind %q", s)
}

func parseMouseAction(s string) (MouseAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MouseNone, nil
	case "move":
		return MouseMoveOnly, nil
	case "left", "leftclick":
		return MouseLeftClick, nil
	case "right", "rightclick":
		return MouseRightClick, nil
	case "middle", "middleclick":
		return MouseMiddleClick, nil
	case "double", "doubleclick":
		return MouseDoubleClick, nil
	}
	return MouseNone, fmt.Errorf("unknown mouse action %q", s)
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{
		Path:    path,
		Line:    line,
		Message: err.Error(),
	}
}

// FileRepository loads macros from YAML files on disk.
type FileRepository struct{}

// Load parses the macro file at path.
func (FileRepository) Load(path string) (*Macro, error) {
	return ParseFile(path)
}
