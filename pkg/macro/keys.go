package macro

import (
	"fmt"
	"strconv"
	"strings"
)

// Windows virtual-key codes for the keys a macro can press.
const (
	VKBack     = 0x08
	VKTab      = 0x09
	VKReturn   = 0x0D
	VKShift    = 0x10
	VKControl  = 0x11
	VKMenu     = 0x12 // Alt
	VKPause    = 0x13
	VKCapital  = 0x14
	VKEscape   = 0x1B
	VKSpace    = 0x20
	VKPrior    = 0x21 // Page up
	VKNext     = 0x22 // Page down
	VKEnd      = 0x23
	VKHome     = 0x24
	VKLeft     = 0x25
	VKUp       = 0x26
	VKRight    = 0x27
	VKDown     = 0x28
	VKSnapshot = 0x2C
	VKInsert   = 0x2D
	VKDelete   = 0x2E
	VKLWin     = 0x5B
	VKF1       = 0x70
	VKF24      = 0x87
)

var keyNames = map[int]string{
	VKBack: "backspace", VKTab: "tab", VKReturn: "enter", VKShift: "shift",
	VKControl: "ctrl", VKMenu: "alt", VKPause: "pause", VKCapital: "capslock",
	VKEscape: "escape", VKSpace: "space", VKPrior: "pageup", VKNext: "pagedown",
	VKEnd: "end", VKHome: "home", VKLeft: "left", VKUp: "up", VKRight: "right",
	VKDown: "down", VKSnapshot: "printscreen", VKInsert: "insert",
	VKDelete: "delete", VKLWin: "win",
}

var keyAliases = map[string]int{
	"return": VKReturn, "esc": VKEscape, "control": VKControl, "menu": VKMenu,
	"del": VKDelete, "ins": VKInsert, "cmd": VKLWin, "command": VKLWin,
	"super": VKLWin, "page_up": VKPrior, "page_down": VKNext,
}

// KeyName returns the canonical lower-case name of a virtual-key code.
func KeyName(vk int) string {
	switch {
	case vk >= '0' && vk <= '9', vk >= 'A' && vk <= 'Z':
		return strings.ToLower(string(rune(vk)))
	case vk >= VKF1 && vk <= VKF24:
		return "f" + strconv.Itoa(vk-VKF1+1)
	}
	if name, ok := keyNames[vk]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", vk)
}

// ParseKey maps a key name, a single character or a numeric code
// ("0x41", "65") to a virtual-key code.
func ParseKey(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty key")
	}
	if len(s) == 1 {
		c := strings.ToUpper(s)[0]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return int(c), nil
		}
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") {
		v, err := strconv.ParseInt(lower[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid key code %q", s)
		}
		return int(v), nil
	}
	if v, err := strconv.Atoi(lower); err == nil {
		return v, nil
	}
	if len(lower) >= 2 && lower[0] == 'f' {
		if n, err := strconv.Atoi(lower[1:]); err == nil && n >= 1 && n <= 24 {
			return VKF1 + n - 1, nil
		}
	}
	for vk, name := range keyNames {
		if name == lower {
			return vk, nil
		}
	}
	if vk, ok := keyAliases[lower]; ok {
		return vk, nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}
