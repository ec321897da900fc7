package segment_test

import (
	"strings"
	"testing"

	"github.com/valpere/perepost/internal/segment"
)

func join(spans []segment.Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func TestSegment_Empty(t *testing.T) {
	spans := segment.Segment("")
	if len(spans) != 0 {
		t.Errorf("expected no spans for empty body, got %d", len(spans))
	}
}

func TestSegment_ProseOnly(t *testing.T) {
	body := "Just some plain text.\n\nTwo paragraphs."
	spans := segment.Segment(body)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Kind != segment.Prose {
		t.Error("expected a prose span")
	}
	if spans[0].Text != body {
		t.Errorf("expected %q, got %q", body, spans[0].Text)
	}
}

func TestSegment_CodeOnly(t *testing.T) {
	body := "```go\nfmt.Println(\"hi\")\n```"
	spans := segment.Segment(body)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Kind != segment.Code {
		t.Error("expected a code span")
	}
	if spans[0].Text != body {
		t.Errorf("code span must be verbatim, got %q", spans[0].Text)
	}
}

func TestSegment_FencedBlockBetweenProse(t *testing.T) {
	body := "Before.\n\n```js\nconsole.log(1)\n```\n\nAfter."
	spans := segment.Segment(body)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d: %#v", len(spans), spans)
	}
	if spans[0].Kind != segment.Prose || spans[1].Kind != segment.Code || spans[2].Kind != segment.Prose {
		t.Errorf("expected prose/code/prose, got %v/%v/%v", spans[0].Kind, spans[1].Kind, spans[2].Kind)
	}
	if spans[1].Text != "```js\nconsole.log(1)\n```" {
		t.Errorf("unexpected code span: %q", spans[1].Text)
	}
}

func TestSegment_InlineCode(t *testing.T) {
	body := "Use `fmt.Println` to print."
	spans := segment.Segment(body)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[1].Kind != segment.Code || spans[1].Text != "`fmt.Println`" {
		t.Errorf("expected inline code span, got %v %q", spans[1].Kind, spans[1].Text)
	}
}

func TestSegment_LoneBacktickIsProse(t *testing.T) {
	body := "A stray ` backtick."
	spans := segment.Segment(body)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Kind != segment.Prose {
		t.Error("a backtick with no closer must stay prose")
	}
}

func TestSegment_EmptyInlinePairIsProse(t *testing.T) {
	// `` has no content; neither backtick opens a code span on its own.
	body := "Empty `` pair."
	spans := segment.Segment(body)
	for _, s := range spans {
		if s.Kind == segment.Code {
			t.Errorf("did not expect a code span, got %q", s.Text)
		}
	}
	if join(spans) != body {
		t.Errorf("round trip failed: %q", join(spans))
	}
}

func TestSegment_UnterminatedFence(t *testing.T) {
	body := "Intro.\n\n```python\nwhile True:\n    pass\n"
	spans := segment.Segment(body)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	last := spans[len(spans)-1]
	if last.Kind != segment.Code {
		t.Fatal("unterminated fence must become a code span")
	}
	if last.Text != "```python\nwhile True:\n    pass\n" {
		t.Errorf("code span must run to end of document, got %q", last.Text)
	}
}

func TestSegment_FenceWinsOverInline(t *testing.T) {
	// The single backtick before the fence must not swallow the fence opener.
	body := "a `x ```f``` b"
	spans := segment.Segment(body)
	var fenced string
	for _, s := range spans {
		if s.Kind == segment.Code && strings.HasPrefix(s.Text, "```") {
			fenced = s.Text
		}
	}
	if fenced != "```f```" {
		t.Errorf("expected fenced span ```f```, got %q", fenced)
	}
	if join(spans) != body {
		t.Errorf("round trip failed: %q", join(spans))
	}
}

func TestSegment_ImageMarkupIsCode(t *testing.T) {
	body := "Intro text.\n\n![a chart](images/abc123.png)\n\nOutro text."
	spans := segment.Segment(body)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d: %#v", len(spans), spans)
	}
	if spans[1].Kind != segment.Code || spans[1].Text != "![a chart](images/abc123.png)" {
		t.Errorf("expected verbatim image span, got %v %q", spans[1].Kind, spans[1].Text)
	}
	if join(spans) != body {
		t.Errorf("round trip failed: %q", join(spans))
	}
}

func TestSegment_BrokenImageMarkupIsProse(t *testing.T) {
	bodies := []string{
		"a ![x] b",            // no URL part
		"see ![x](unclosed",   // no closing paren
		"![a\nchart](u.png)",  // newline inside the alt text
		"plain ! exclamation", // bare bang
	}
	for _, body := range bodies {
		spans := segment.Segment(body)
		for _, s := range spans {
			if s.Kind == segment.Code {
				t.Errorf("%q: did not expect a code span, got %q", body, s.Text)
			}
		}
		if join(spans) != body {
			t.Errorf("round trip failed for %q: %q", body, join(spans))
		}
	}
}

func TestSegment_RoundTrip(t *testing.T) {
	bodies := []string{
		"",
		"plain prose",
		"   \n\t  ",
		"```\ncode\n```",
		"`a``b`",
		"Hello **world**.\n\n```js\nconsole.log(\"hi\")\n```\n\nBye.",
		"mixed `inline` and\n\n```sh\nls -la\n```\nand an unterminated ```tail",
		"\n\nleading blank prose\n```x```trailing",
		"text ![alt](u.png) more `code` ![x](y)",
	}
	for _, body := range bodies {
		if got := join(segment.Segment(body)); got != body {
			t.Errorf("round trip failed for %q: got %q", body, got)
		}
	}
}

func TestSpan_Whitespace(t *testing.T) {
	body := "  Hello world.\n\n"
	spans := segment.Segment(body)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Leading != "  " {
		t.Errorf("expected leading %q, got %q", "  ", s.Leading)
	}
	if s.Trailing != "\n\n" {
		t.Errorf("expected trailing %q, got %q", "\n\n", s.Trailing)
	}
	if s.Inner() != "Hello world." {
		t.Errorf("expected inner %q, got %q", "Hello world.", s.Inner())
	}
}

func TestSpan_Blank(t *testing.T) {
	spans := segment.Segment("```a```\n\n```b```")
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	mid := spans[1]
	if !mid.Blank() {
		t.Error("whitespace-only prose span must be blank")
	}
	if mid.Text != "\n\n" {
		t.Errorf("blank span must keep its text, got %q", mid.Text)
	}
	code := spans[0]
	if code.Blank() {
		t.Error("code spans are never blank")
	}
}
