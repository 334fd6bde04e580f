package services

import (
	"reflect"
	"testing"
)

func feedAll(t *testing.T, chunks []string) []StreamSegment {
	t.Helper()
	p := NewTagStreamParser()
	var segs []StreamSegment
	for _, c := range chunks {
		segs = append(segs, p.Feed(c)...)
	}
	return append(segs, p.Flush()...)
}

// collapse merges adjacent same-kind segments so tests can assert on
// logical sections regardless of chunking.
func collapse(segs []StreamSegment) []StreamSegment {
	var out []StreamSegment
	for _, s := range segs {
		if n := len(out); n > 0 && out[n-1].Kind == s.Kind {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

func TestFeedPlainContent(t *testing.T) {
	segs := feedAll(t, []string{"hello ", "world"})
	want := []StreamSegment{{Kind: SegmentContent, Text: "hello world"}}
	if !reflect.DeepEqual(collapse(segs), want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestFeedThinkingAndMeta(t *testing.T) {
	segs := feedAll(t, []string{"<thinking>plan</thinking>Here's my advice.<meta>{\"mood\":\"calm\"}</meta>"})
	want := []StreamSegment{
		{Kind: SegmentThinking, Text: "plan"},
		{Kind: SegmentContent, Text: "Here's my advice."},
		{Kind: SegmentMeta, Text: "{\"mood\":\"calm\"}"},
	}
	if !reflect.DeepEqual(collapse(segs), want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestFeedTagSplitAcrossChunks(t *testing.T) {
	// The opening and closing tags are each split mid-tag.
	chunks := []string{"<thin", "king>deep ", "thought</think", "ing>visible"}
	segs := feedAll(t, chunks)
	want := []StreamSegment{
		{Kind: SegmentThinking, Text: "deep thought"},
		{Kind: SegmentContent, Text: "visible"},
	}
	if !reflect.DeepEqual(collapse(segs), want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestFeedTagSplitByteByByte(t *testing.T) {
	full := "a<thinking>b</thinking>c<meta>d</meta>e"
	var chunks []string
	for i := 0; i < len(full); i++ {
		chunks = append(chunks, full[i:i+1])
	}
	segs := feedAll(t, chunks)
	want := []StreamSegment{
		{Kind: SegmentContent, Text: "a"},
		{Kind: SegmentThinking, Text: "b"},
		{Kind: SegmentContent, Text: "c"},
		{Kind: SegmentMeta, Text: "d"},
		{Kind: SegmentContent, Text: "e"},
	}
	if !reflect.DeepEqual(collapse(segs), want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestFeedInvalidTagInStatePassesThrough(t *testing.T) {
	// </thinking> is not a recognized tag in the content state, and
	// <meta> is not recognized inside thinking; both are literal text.
	segs := feedAll(t, []string{"a</thinking>b<thinking>x<meta>y</thinking>c"})
	want := []StreamSegment{
		{Kind: SegmentContent, Text: "a</thinking>b"},
		{Kind: SegmentThinking, Text: "x<meta>y"},
		{Kind: SegmentContent, Text: "c"},
	}
	if !reflect.DeepEqual(collapse(segs), want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestFeedLiteralAngleBracket(t *testing.T) {
	segs := feedAll(t, []string{"1 < 2 and 3 <4"})
	want := []StreamSegment{{Kind: SegmentContent, Text: "1 < 2 and 3 <4"}}
	if !reflect.DeepEqual(collapse(segs), want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestFlushUnterminatedTagPrefix(t *testing.T) {
	p := NewTagStreamParser()
	segs := p.Feed("text<thi")
	if !reflect.DeepEqual(collapse(segs), []StreamSegment{{Kind: SegmentContent, Text: "text"}}) {
		t.Errorf("unexpected pre-flush segments: %+v", segs)
	}
	flushed := p.Flush()
	want := []StreamSegment{{Kind: SegmentContent, Text: "<thi"}}
	if !reflect.DeepEqual(flushed, want) {
		t.Errorf("got %+v, want %+v", flushed, want)
	}
	if again := p.Flush(); again != nil {
		t.Errorf("second Flush should be nil, got %+v", again)
	}
}

func TestFeedUnclosedThinkingStaysThinking(t *testing.T) {
	segs := feedAll(t, []string{"<thinking>never closed"})
	want := []StreamSegment{{Kind: SegmentThinking, Text: "never closed"}}
	if !reflect.DeepEqual(collapse(segs), want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestSplitTagged(t *testing.T) {
	content, thinking, meta := SplitTagged("<thinking> inner plan </thinking>So, about your week.<meta>{\"topics\":[\"focus\"]}</meta>")
	if content != "So, about your week." {
		t.Errorf("content = %q", content)
	}
	if thinking != "inner plan" {
		t.Errorf("thinking = %q", thinking)
	}
	if meta != "{\"topics\":[\"focus\"]}" {
		t.Errorf("meta = %q", meta)
	}
}

func TestSplitTaggedPlainText(t *testing.T) {
	content, thinking, meta := SplitTagged("just words")
	if content != "just words" || thinking != "" || meta != "" {
		t.Errorf("got (%q, %q, %q)", content, thinking, meta)
	}
}
