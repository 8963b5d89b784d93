package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// formatAttrs is the minimal attribute subset shown in the textual
// enumeration, in display order.
var formatAttrs = []string{"type", "placeholder", "name", "href", "aria-label", "role", "value"}

// FormatSnapshot renders the snapshot as the compact textual enumeration the
// host consumes, one line per visible element:
//
//	[1] <input type="text" placeholder="Search" />
//	[2] <button>Submit</button>
//	[3] <a href="/about">About Us</a>
//
// Line indices match ElementRecord.Index exactly; hidden elements are
// skipped, not renumbered.
func FormatSnapshot(snap *ExtractionSnapshot) string {
	if snap == nil || len(snap.Elements) == 0 {
		return "(no interactive elements)"
	}

	var b strings.Builder
	for _, el := range snap.Elements {
		if !el.IsVisible {
			continue
		}
		b.WriteString(formatElement(el))
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "(no visible interactive elements)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatElement(el ElementRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] <%s", el.Index, el.TagName)
	for _, key := range formatAttrs {
		if value, ok := el.Attributes[key]; ok {
			fmt.Fprintf(&b, " %s=%q", key, truncate(value, 60))
		}
	}

	text := truncate(el.TextContent, 100)
	if text == "" {
		b.WriteString(" />")
		return b.String()
	}
	fmt.Fprintf(&b, ">%s</%s>", text, el.TagName)
	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
