package computer

import (
	"fmt"
	"strings"
)

// keyTable maps the decision engine's key vocabulary to canonical device
// key names. Lookups are case-insensitive on the input side.
var keyTable = buildKeyTable()

func buildKeyTable() map[string]string {
	t := map[string]string{
		"/":          "Divide",
		"\\":         "Backslash",
		"alt":        "Alt",
		"arrowdown":  "ArrowDown",
		"arrowleft":  "ArrowLeft",
		"arrowright": "ArrowRight",
		"arrowup":    "ArrowUp",
		"backspace":  "Backspace",
		"capslock":   "CapsLock",
		"cmd":        "Meta",
		"ctrl":       "Control",
		"delete":     "Delete",
		"end":        "End",
		"enter":      "Enter",
		"esc":        "Escape",
		"home":       "Home",
		"insert":     "Insert",
		"option":     "Alt",
		"pagedown":   "PageDown",
		"pageup":     "PageUp",
		"shift":      "Shift",
		"space":      " ",
		"super":      "Meta",
		"tab":        "Tab",
		"win":        "Meta",
	}
	for i := 1; i <= 12; i++ {
		t[fmt.Sprintf("f%d", i)] = fmt.Sprintf("F%d", i)
	}
	for c := '0'; c <= '9'; c++ {
		t[string(c)] = string(c)
	}
	for c := 'a'; c <= 'z'; c++ {
		t[string(c)] = string(c)
	}
	return t
}

// NormalizeKey resolves a key name to its canonical device key. Unmapped
// names pass through unchanged; this leniency is deliberate so the model's
// vocabulary never hard-fails a keypress.
func NormalizeKey(name string) string {
	if k, ok := keyTable[strings.ToLower(name)]; ok {
		return k
	}
	return name
}

// NormalizeKeys normalizes every key, preserving order.
func NormalizeKeys(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeKey(n)
	}
	return out
}

// Button is a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonMiddle Button = "middle"
	ButtonRight  Button = "right"
)

// NormalizeButton accepts any value and coerces unrecognized buttons to left.
func NormalizeButton(b string) Button {
	switch Button(b) {
	case ButtonLeft, ButtonMiddle, ButtonRight:
		return Button(b)
	default:
		return ButtonLeft
	}
}
