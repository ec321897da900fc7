// Package chunker splits oversized prose fragments into pieces a translation
// service will accept, preferring paragraph and sentence boundaries so no
// piece starts or ends mid-thought. It also extracts a sliding-window
// context snippet (the last N words of the previous translated piece) for
// LLM backends to keep continuity across chunk boundaries.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultContextWords is the default window size for ExtractContext.
const DefaultContextWords = 25

// Chunk splits text into pieces of at most maxChars runes each. Split points
// are chosen, in order of preference, at paragraph breaks, after
// sentence-ending punctuation, at whitespace, or as a hard cut when nothing
// better exists. Pieces are trimmed; empty pieces are dropped. maxChars ≤ 0
// means unlimited.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len([]rune(remaining)) > maxChars {
		split := findSplit(remaining, maxChars)
		if piece := strings.TrimSpace(remaining[:split]); piece != "" {
			chunks = append(chunks, piece)
		}
		remaining = strings.TrimSpace(remaining[split:])
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// findSplit returns the byte offset at which to split text so the first
// piece holds at most maxChars runes.
func findSplit(text string, maxChars int) int {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return len(text)
	}
	candidate := string(runes[:maxChars])

	// Paragraph break, searched from the end of the candidate.
	if idx := strings.LastIndex(candidate, "\r\n\r\n"); idx > 0 {
		return idx + 4
	}
	if idx := strings.LastIndex(candidate, "\n\n"); idx > 0 {
		return idx + 2
	}

	// Sentence end followed by a space, then any whitespace.
	cr := runes[:maxChars]
	sentence, word := -1, -1
	offset := 0
	for i, r := range cr {
		w := len(string(r))
		if i+1 < len(cr) {
			next := cr[i+1]
			if (r == '.' || r == '!' || r == '?') && unicode.IsSpace(next) {
				sentence = offset + w
			}
		}
		if unicode.IsSpace(r) && i > 0 {
			word = offset
		}
		offset += w
	}
	if sentence > 0 {
		return sentence
	}
	if word > 0 {
		return word
	}

	// Hard cut.
	return len(candidate)
}

// ExtractContext returns the last wordCount words of text joined by single
// spaces, for use as a continuity hint on the next chunk. Shorter texts are
// returned whole (trimmed). wordCount ≤ 0 uses DefaultContextWords.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
