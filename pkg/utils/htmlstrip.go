package utils

import (
	"strings"
)

// block-level tags that become a space when stripped, so words from
// adjacent paragraphs don't run together in previews.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "blockquote": true,
	"tr": true, "table": true,
}

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
)

// StripHTML renders rich-text HTML down to plain text for list previews
// and LLM input. Tags are removed (block tags become a space), the common
// entities are decoded, and runs of whitespace collapse to single spaces.
// Input is treated as untrusted text, never parsed as a document.
func StripHTML(html string) string {
	var b strings.Builder
	b.Grow(len(html))

	inTag := false
	tagStart := 0
	for i := 0; i < len(html); i++ {
		c := html[i]
		switch {
		case c == '<':
			inTag = true
			tagStart = i + 1
		case c == '>' && inTag:
			inTag = false
			if blockTags[tagName(html[tagStart:i])] {
				b.WriteByte(' ')
			}
		case !inTag:
			b.WriteByte(c)
		}
	}

	text := entityReplacer.Replace(b.String())
	return strings.Join(strings.Fields(text), " ")
}

// Preview returns the plain-text rendering of html truncated to max runes,
// with an ellipsis when truncated.
func Preview(html string, max int) string {
	text := StripHTML(html)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// tagName extracts the lowercase element name from raw tag contents,
// e.g. "/p" → "p", `div class="x"` → "div".
func tagName(raw string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "/"))
	end := len(raw)
	for i := 0; i < len(raw); i++ {
		if raw[i] == ' ' || raw[i] == '\t' || raw[i] == '\n' || raw[i] == '/' {
			end = i
			break
		}
	}
	return strings.ToLower(raw[:end])
}
