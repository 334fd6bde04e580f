package services

import (
	"strings"
)

// SegmentKind labels a piece of streamed LLM output.
type SegmentKind string

const (
	SegmentContent  SegmentKind = "content"
	SegmentThinking SegmentKind = "thinking"
	SegmentMeta     SegmentKind = "meta"
)

// StreamSegment is a run of streamed text of a single kind.
type StreamSegment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
}

const (
	tagThinkingOpen  = "<thinking>"
	tagThinkingClose = "</thinking>"
	tagMetaOpen      = "<meta>"
	tagMetaClose     = "</meta>"
)

// tagTransitions lists which tags are recognized in each state and the
// state each one switches to. Tags that are not valid in the current
// state pass through as literal text.
var tagTransitions = map[SegmentKind]map[string]SegmentKind{
	SegmentContent: {
		tagThinkingOpen: SegmentThinking,
		tagMetaOpen:     SegmentMeta,
	},
	SegmentThinking: {
		tagThinkingClose: SegmentContent,
	},
	SegmentMeta: {
		tagMetaClose: SegmentContent,
	},
}

// TagStreamParser incrementally splits an LLM's streamed reply into
// content, thinking and meta segments. The model wraps its reasoning in
// <thinking>...</thinking> and structured metadata in <meta>...</meta>;
// everything else is user-visible content. Chunks may split a tag at any
// byte, so a possible tag prefix at the end of a chunk is held back
// until the next Feed (or Flush) resolves it.
//
// Not safe for concurrent use; one parser per stream.
type TagStreamParser struct {
	state   SegmentKind
	pending string
}

// NewTagStreamParser returns a parser starting in the content state.
func NewTagStreamParser() *TagStreamParser {
	return &TagStreamParser{state: SegmentContent}
}

// Feed consumes the next chunk of streamed text and returns the fully
// resolved segments, in order. Adjacent text of the same kind is merged
// into one segment. Tag text itself is never emitted.
func (p *TagStreamParser) Feed(chunk string) []StreamSegment {
	buf := p.pending + chunk
	p.pending = ""

	var out []StreamSegment
	emit := func(text string) {
		if text == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Kind == p.state {
			out[n-1].Text += text
			return
		}
		out = append(out, StreamSegment{Kind: p.state, Text: text})
	}

	i := 0
	for i < len(buf) {
		lt := strings.IndexByte(buf[i:], '<')
		if lt < 0 {
			emit(buf[i:])
			break
		}
		lt += i
		emit(buf[i:lt])

		rest := buf[lt:]
		tags := tagTransitions[p.state]

		// Complete tag at this position?
		matched := false
		for tag, next := range tags {
			if strings.HasPrefix(rest, tag) {
				p.state = next
				i = lt + len(tag)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		// Possible tag split across the chunk boundary: hold it back.
		partial := false
		for tag := range tags {
			if len(rest) < len(tag) && strings.HasPrefix(tag, rest) {
				partial = true
				break
			}
		}
		if partial {
			p.pending = rest
			break
		}

		// Just a literal '<'.
		emit("<")
		i = lt + 1
	}

	return out
}

// Flush resolves any held-back text as literal output and returns it.
// Call once when the stream ends; an unterminated tag prefix at EOF is
// plain text, not a tag.
func (p *TagStreamParser) Flush() []StreamSegment {
	if p.pending == "" {
		return nil
	}
	seg := StreamSegment{Kind: p.state, Text: p.pending}
	p.pending = ""
	return []StreamSegment{seg}
}

// SplitTagged parses a complete (non-streamed) reply in one pass and
// returns the concatenated content, thinking and meta sections.
func SplitTagged(text string) (content, thinking, meta string) {
	p := NewTagStreamParser()
	segs := append(p.Feed(text), p.Flush()...)

	var c, t, m strings.Builder
	for _, s := range segs {
		switch s.Kind {
		case SegmentThinking:
			t.WriteString(s.Text)
		case SegmentMeta:
			m.WriteString(s.Text)
		default:
			c.WriteString(s.Text)
		}
	}
	return strings.TrimSpace(c.String()), strings.TrimSpace(t.String()), strings.TrimSpace(m.String())
}
