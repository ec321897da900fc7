// Package segment splits a markdown document body into an ordered sequence
// of typed spans: code (fenced blocks, inline spans, and image references,
// preserved verbatim) and prose (eligible for translation). Concatenating the spans' original
// text in order reproduces the input byte for byte, so a document can be
// taken apart, have only its prose replaced, and be put back together with
// an identical whitespace and code skeleton.
package segment

import (
	"strings"
	"unicode"
)

// Kind discriminates span variants.
type Kind int

const (
	// Prose is translatable text between code regions.
	Prose Kind = iota
	// Code is verbatim content, delimiters included. It is never translated.
	Code
)

const fence = "```"

// Span is one typed slice of a document body.
//
// Text always holds the original bytes, so the concatenation of all spans'
// Text equals the segmented document. For prose spans, Leading and Trailing
// hold the span's own surrounding whitespace; translation services tend to
// trim their input, so the whitespace is reattached mechanically after
// translation rather than trusted to the service.
type Span struct {
	Kind     Kind
	Text     string
	Leading  string
	Trailing string
}

// Inner returns the span text with Leading and Trailing stripped. For code
// spans it is simply Text.
func (s Span) Inner() string {
	if s.Kind == Code {
		return s.Text
	}
	return s.Text[len(s.Leading) : len(s.Text)-len(s.Trailing)]
}

// Blank reports whether the span is prose consisting only of whitespace.
// Blank spans are kept in the sequence for round-trip fidelity but must not
// be sent to a translation service.
func (s Span) Blank() bool {
	return s.Kind == Prose && s.Inner() == ""
}

// Segment scans body and returns its spans in document order. An empty body
// yields no spans. An opening fence with no matching closer swallows the
// rest of the document as a single code span, so an unclosed code region can
// never leak into translation.
func Segment(body string) []Span {
	if body == "" {
		return nil
	}

	var spans []Span
	rest := body
	for rest != "" {
		open := strings.Index(rest, fence)
		if open < 0 {
			spans = appendInline(spans, rest)
			break
		}

		spans = appendInline(spans, rest[:open])

		end := strings.Index(rest[open+len(fence):], fence)
		if end < 0 {
			// Unterminated fence: fail safe, keep everything verbatim.
			spans = append(spans, Span{Kind: Code, Text: rest[open:]})
			break
		}
		stop := open + len(fence) + end + len(fence)
		spans = append(spans, Span{Kind: Code, Text: rest[open:stop]})
		rest = rest[stop:]
	}
	return spans
}

// appendInline splits text around inline code spans (`...`, at least one
// non-backtick character between the delimiters) and image references
// (![alt](url), single line), and appends the resulting prose and code
// spans. Image markup is treated as code so its alt text and URL are never
// handed to a translation service.
func appendInline(spans []Span, text string) []Span {
	start := 0
	i := 0
	for i < len(text) {
		switch text[i] {
		case '`':
			j := strings.IndexByte(text[i+1:], '`')
			if j < 1 {
				// No closer, or an empty pair: the backtick is ordinary prose.
				i++
				continue
			}
			spans = appendProse(spans, text[start:i])
			spans = append(spans, Span{Kind: Code, Text: text[i : i+1+j+1]})
			i += 1 + j + 1
			start = i
		case '!':
			n := imageLen(text[i:])
			if n < 0 {
				i++
				continue
			}
			spans = appendProse(spans, text[start:i])
			spans = append(spans, Span{Kind: Code, Text: text[i : i+n]})
			i += n
			start = i
		default:
			i++
		}
	}
	return appendProse(spans, text[start:])
}

// imageLen returns the byte length of the image reference ![alt](url)
// starting at text, or -1 when text does not start one. Both parts must
// stay on one line; anything else is ordinary prose.
func imageLen(text string) int {
	if !strings.HasPrefix(text, "![") {
		return -1
	}
	alt := strings.IndexByte(text[2:], ']')
	if alt < 0 {
		return -1
	}
	rest := 2 + alt + 1
	if rest >= len(text) || text[rest] != '(' {
		return -1
	}
	url := strings.IndexByte(text[rest+1:], ')')
	if url < 0 {
		return -1
	}
	end := rest + 1 + url + 1
	if strings.ContainsRune(text[:end], '\n') {
		return -1
	}
	return end
}

// appendProse appends text as a prose span with its surrounding whitespace
// split out. Empty text appends nothing.
func appendProse(spans []Span, text string) []Span {
	if text == "" {
		return spans
	}
	inner := strings.TrimLeftFunc(text, unicode.IsSpace)
	leading := text[:len(text)-len(inner)]
	inner = strings.TrimRightFunc(inner, unicode.IsSpace)
	trailing := text[len(leading)+len(inner):]
	return append(spans, Span{
		Kind:     Prose,
		Text:     text,
		Leading:  leading,
		Trailing: trailing,
	})
}
