// Package macro holds the macro data model: the closed set of actions,
// their value types, and the ordered step container.
package macro

import (
	"fmt"
	"image/color"
)

// ActionKind identifies an action variant.
type ActionKind string

// Action kinds.
const (
	// Input
	KindMouseClick ActionKind = "mouseClick"
	KindMouseMove  ActionKind = "mouseMove"
	KindMouseWheel ActionKind = "mouseWheel"
	KindKeyPress   ActionKind = "keyPress"

	// Waits
	KindWait                ActionKind = "wait"
	KindWaitForPixelColor   ActionKind = "waitForPixelColor"
	KindWaitForScreenChange ActionKind = "waitForScreenChange"
	KindWaitForTextInput    ActionKind = "waitForTextInput"

	// Detection
	KindFindImage   ActionKind = "findImage"
	KindFindTextOcr ActionKind = "findTextOcr"

	// Control flow
	KindGoTo           ActionKind = "goTo"
	KindIf             ActionKind = "if"
	KindRepeat         ActionKind = "repeat"
	KindEmbedMacroFile ActionKind = "embedMacroFile"
	KindExecuteProgram ActionKind = "executeProgram"
)

// Kinds lists every action kind.
var Kinds = []ActionKind{
	KindMouseClick, KindMouseMove, KindMouseWheel, KindKeyPress,
	KindWait, KindWaitForPixelColor, KindWaitForScreenChange, KindWaitForTextInput,
	KindFindImage, KindFindTextOcr,
	KindGoTo, KindIf, KindRepeat, KindEmbedMacroFile, KindExecuteProgram,
}

// Action is one recordable/playable operation. Values are immutable;
// editing a step means replacing its action.
type Action interface {
	Kind() ActionKind
	Describe() string
}

// Brancher is implemented by actions that choose between two targets.
type Brancher interface {
	Action
	Branches() (onTrue, onFalse GoToTarget)
}

// MouseButton identifies a mouse button.
type MouseButton int

// MouseButton values
const (
	ButtonLeft MouseButton = iota
	ButtonRight
	ButtonMiddle
)

// String returns the string representation of MouseButton
func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "unknown"
	}
}

// ClickKind is what a MouseClick does with its button.
type ClickKind int

// ClickKind values
const (
	Click ClickKind = iota
	DoubleClick
	ButtonDown
	ButtonUp
)

// Orientation is the direction of a wheel scroll.
type Orientation int

// Orientation values
const (
	Vertical Orientation = iota
	Horizontal
)

// KeyPressKind is what a KeyPress does with its key.
type KeyPressKind int

// KeyPressKind values
const (
	KeyPress KeyPressKind = iota
	KeyDown
	KeyUp
)

// MouseAction is performed at the anchor point after a successful detection.
type MouseAction int

// MouseAction values
const (
	MouseNone MouseAction = iota
	MouseMoveOnly
	MouseLeftClick
	MouseRightClick
	MouseMiddleClick
	MouseDoubleClick
)

// DetectionOptions are the side effects of a successful detection.
type DetectionOptions struct {
	Position    MousePosition
	MouseAction MouseAction
	SaveX       string // variable receiving the anchor X, optional
	SaveY       string // variable receiving the anchor Y, optional
}

// ============================================
// Input
// ============================================

// MouseClickAction presses a mouse button at a screen position.
type MouseClickAction struct {
	X, Y   int
	Button MouseButton
	Click  ClickKind
}

// MouseMoveAction moves the cursor.
type MouseMoveAction struct {
	X, Y int
}

// MouseWheelAction scrolls the wheel.
type MouseWheelAction struct {
	Orientation Orientation
	Amount      int
}

// KeyPressAction presses or releases a virtual key.
type KeyPressAction struct {
	Key   int // virtual-key code
	Press KeyPressKind
}

// ============================================
// Waits
// ============================================

// WaitAction sleeps for a fixed duration.
type WaitAction struct {
	Milliseconds int
}

// WaitForPixelColorAction polls one pixel until it matches Color.
type WaitForPixelColorAction struct {
	X, Y      int
	Color     color.RGBA
	Tolerance int
	TimeoutMs int
	TrueGoTo  GoToTarget
	FalseGoTo GoToTarget
}

// WaitForScreenChangeAction waits until the area differs from its first capture.
type WaitForScreenChangeAction struct {
	Area      SearchArea
	TimeoutMs int
	Detection DetectionOptions
	TrueGoTo  GoToTarget
	FalseGoTo GoToTarget
}

// WaitForTextInputAction waits until the user types Text.
type WaitForTextInputAction struct {
	Text      string
	TimeoutMs int
	TrueGoTo  GoToTarget
	FalseGoTo GoToTarget
}

// ============================================
// Detection
// ============================================

// FindImageAction searches the area for an image template.
type FindImageAction struct {
	Area      SearchArea
	Template  ImageTemplate
	Tolerance int
	TimeoutMs int
	Detection DetectionOptions
	TrueGoTo  GoToTarget
	FalseGoTo GoToTarget
}

// FindTextOcrAction searches the area for recognized text.
type FindTextOcrAction struct {
	Area      SearchArea
	Text      string
	Language  string
	TimeoutMs int
	Detection DetectionOptions
	TrueGoTo  GoToTarget
	FalseGoTo GoToTarget
}

// ============================================
// Control flow
// ============================================

// GoToAction jumps unconditionally.
type GoToAction struct {
	Target GoToTarget
}

// IfAction branches on a variable.
type IfAction struct {
	VariableName string
	Condition    IfCondition
	Value        string
	TrueGoTo     GoToTarget
	FalseGoTo    GoToTarget
}

// RepeatAction closes a loop whose body starts at StartLabel.
type RepeatAction struct {
	StartLabel      string
	Condition       RepeatCondition
	AfterRepeatGoTo GoToTarget
}

// EmbedMacroFileAction runs another macro in place.
type EmbedMacroFileAction struct {
	Path string
}

// ExecuteProgramAction launches an external program.
type ExecuteProgramAction struct {
	Path       string
	Arguments  []string
	WorkingDir string
}

// Kind implementations.

func (MouseClickAction) Kind() ActionKind          { return KindMouseClick }
func (MouseMoveAction) Kind() ActionKind           { return KindMouseMove }
func (MouseWheelAction) Kind() ActionKind          { return KindMouseWheel }
func (KeyPressAction) Kind() ActionKind            { return KindKeyPress }
func (WaitAction) Kind() ActionKind                { return KindWait }
func (WaitForPixelColorAction) Kind() ActionKind   { return KindWaitForPixelColor }
func (WaitForScreenChangeAction) Kind() ActionKind { return KindWaitForScreenChange }
func (WaitForTextInputAction) Kind() ActionKind    { return KindWaitForTextInput }
func (FindImageAction) Kind() ActionKind           { return KindFindImage }
func (FindTextOcrAction) Kind() ActionKind         { return KindFindTextOcr }
func (GoToAction) Kind() ActionKind                { return KindGoTo }
func (IfAction) Kind() ActionKind                  { return KindIf }
func (RepeatAction) Kind() ActionKind              { return KindRepeat }
func (EmbedMacroFileAction) Kind() ActionKind      { return KindEmbedMacroFile }
func (ExecuteProgramAction) Kind() ActionKind      { return KindExecuteProgram }

// Branches implementations.

func (a WaitForPixelColorAction) Branches() (GoToTarget, GoToTarget) {
	return a.TrueGoTo, a.FalseGoTo
}
func (a WaitForScreenChangeAction) Branches() (GoToTarget, GoToTarget) {
	return a.TrueGoTo, a.FalseGoTo
}
func (a WaitForTextInputAction) Branches() (GoToTarget, GoToTarget) {
	return a.TrueGoTo, a.FalseGoTo
}
func (a FindImageAction) Branches() (GoToTarget, GoToTarget)   { return a.TrueGoTo, a.FalseGoTo }
func (a FindTextOcrAction) Branches() (GoToTarget, GoToTarget) { return a.TrueGoTo, a.FalseGoTo }
func (a IfAction) Branches() (GoToTarget, GoToTarget)          { return a.TrueGoTo, a.FalseGoTo }

// Describe implementations.

func (a MouseClickAction) Describe() string {
	verb := [...]string{"Click", "Double click", "Button down", "Button up"}
	if int(a.Click) < len(verb) {
		return fmt.Sprintf("%s %s at (%d, %d)", verb[a.Click], a.Button, a.X, a.Y)
	}
	return fmt.Sprintf("Mouse %s at (%d, %d)", a.Button, a.X, a.Y)
}

func (a MouseMoveAction) Describe() string {
	return fmt.Sprintf("Move to (%d, %d)", a.X, a.Y)
}

func (a MouseWheelAction) Describe() string {
	if a.Orientation == Horizontal {
		return fmt.Sprintf("Scroll horizontally %d", a.Amount)
	}
	return fmt.Sprintf("Scroll %d", a.Amount)
}

func (a KeyPressAction) Describe() string {
	verb := [...]string{"Press", "Key down", "Key up"}
	v := "Key"
	if int(a.Press) < len(verb) {
		v = verb[a.Press]
	}
	return fmt.Sprintf("%s %s", v, KeyName(a.Key))
}

func (a WaitAction) Describe() string {
	return fmt.Sprintf("Wait %d ms", a.Milliseconds)
}

func (a WaitForPixelColorAction) Describe() string {
	return fmt.Sprintf("Wait for #%02X%02X%02X at (%d, %d)", a.Color.R, a.Color.G, a.Color.B, a.X, a.Y)
}

func (a WaitForScreenChangeAction) Describe() string {
	return fmt.Sprintf("Wait for screen change in %s", a.Area)
}

func (a WaitForTextInputAction) Describe() string {
	return fmt.Sprintf("Wait for text input %q", a.Text)
}

func (a FindImageAction) Describe() string {
	return fmt.Sprintf("Find image %s in %s", a.Template, a.Area)
}

func (a FindTextOcrAction) Describe() string {
	return fmt.Sprintf("Find text %q in %s", a.Text, a.Area)
}

func (a GoToAction) Describe() string {
	return "Go to " + a.Target.String()
}

func (a IfAction) Describe() string {
	return fmt.Sprintf("If %s %s %q", a.VariableName, a.Condition, a.Value)
}

func (a RepeatAction) Describe() string {
	return fmt.Sprintf("Repeat from %s %s", a.StartLabel, a.Condition)
}

func (a EmbedMacroFileAction) Describe() string {
	return "Embed macro " + a.Path
}

func (a ExecuteProgramAction) Describe() string {
	return "Execute " + a.Path
}
