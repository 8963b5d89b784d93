package browser

import "strings"

// keyAliases maps host-facing key names to the canonical names transports
// understand. Single characters pass through untouched.
var keyAliases = map[string]string{
	"backspace":  "Backspace",
	"tab":        "Tab",
	"enter":      "Enter",
	"return":     "Enter",
	"esc":        "Escape",
	"escape":     "Escape",
	"space":      "Space",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
	"end":        "End",
	"home":       "Home",
	"left":       "ArrowLeft",
	"arrowleft":  "ArrowLeft",
	"up":         "ArrowUp",
	"arrowup":    "ArrowUp",
	"right":      "ArrowRight",
	"arrowright": "ArrowRight",
	"down":       "ArrowDown",
	"arrowdown":  "ArrowDown",
	"insert":     "Insert",
	"delete":     "Delete",
	"cmd":        "Meta",
	"command":    "Meta",
	"meta":       "Meta",
	"ctrl":       "Control",
	"control":    "Control",
	"alt":        "Alt",
	"option":     "Alt",
	"shift":      "Shift",
	"f1":         "F1",
	"f2":         "F2",
	"f3":         "F3",
	"f4":         "F4",
	"f5":         "F5",
	"f6":         "F6",
	"f7":         "F7",
	"f8":         "F8",
	"f9":         "F9",
	"f10":        "F10",
	"f11":        "F11",
	"f12":        "F12",
}

// NormalizeKeyToken canonicalizes a single key name. Unknown multi-character
// tokens pass through unchanged so transports can reject them with a useful
// error.
func NormalizeKeyToken(token string) string {
	cleaned := strings.TrimSpace(token)
	if len(cleaned) <= 1 {
		return cleaned
	}
	if mapped, ok := keyAliases[strings.ToLower(cleaned)]; ok {
		return mapped
	}
	return cleaned
}

// NormalizeKeyCombo canonicalizes a whitespace-separated key sequence where
// each token may be a chord like "ctrl+a". "ctrl+shift+t enter" becomes
// ["Control+Shift+t", "Enter"].
func NormalizeKeyCombo(combo string) []string {
	var out []string
	for _, token := range strings.Fields(combo) {
		if !strings.Contains(token, "+") {
			out = append(out, NormalizeKeyToken(token))
			continue
		}
		parts := strings.Split(token, "+")
		normalized := make([]string, 0, len(parts))
		for _, part := range parts {
			if part == "" {
				continue
			}
			normalized = append(normalized, NormalizeKeyToken(part))
		}
		if len(normalized) == 0 {
			continue
		}
		out = append(out, strings.Join(normalized, "+"))
	}
	return out
}
