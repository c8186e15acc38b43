package desktop

import (
	"fmt"
	"strings"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// robotgoNames maps macro key names that robotgo spells differently.
var robotgoNames = map[string]string{
	"escape": "esc",
	"win":    "cmd",
}

// KeyName returns the robotgo name of a virtual-key code.
func KeyName(vk int) (string, error) {
	name := macro.KeyName(vk)
	if strings.HasPrefix(name, "0x") {
		return "", fmt.Errorf("key code %s has no desktop equivalent", name)
	}
	if alias, ok := robotgoNames[name]; ok {
		return alias, nil
	}
	return name, nil
}
