// Package content converts raw page HTML into readable text for host agents
// that reason about page content rather than structure.
package content

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultMaxTextLength bounds extracted page text.
const DefaultMaxTextLength = 10000

// skippedElements are noise elements whose subtree carries no readable text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"svg":      true,
	"iframe":   true,
	"template": true,
	"head":     true,
}

// blockElements get a newline boundary so text from adjacent blocks does not
// run together.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"header": true, "footer": true, "main": true, "aside": true, "nav": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "blockquote": true, "pre": true,
	"table": true, "ul": true, "ol": true, "form": true,
}

// ExtractText parses HTML and returns its readable text, whitespace
// collapsed, truncated to maxLength (DefaultMaxTextLength when <= 0).
func ExtractText(rawHTML string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	collectText(doc, &b)

	text := collapseWhitespace(b.String())
	if len(text) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text, nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.ElementNode:
		name := strings.ToLower(n.Data)
		if skippedElements[name] {
			return
		}
		if blockElements[name] {
			b.WriteByte('\n')
		}
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			b.WriteString(text)
			b.WriteByte(' ')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}

	if n.Type == html.ElementNode && blockElements[strings.ToLower(n.Data)] {
		b.WriteByte('\n')
	}
}

// collapseWhitespace trims trailing spaces per line and squeezes blank-line
// runs down to one.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
