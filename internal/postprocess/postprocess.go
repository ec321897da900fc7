// Package postprocess strips common LLM artifacts from raw translation
// output before the text is stitched back into a document: leaked reasoning
// blocks, echoed instructions, and answer quoting.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean normalizes raw service output and returns the trimmed result.
// Thinking blocks are removed first (they may contain anything, including
// quotes), then echoed prompt preambles, then a single layer of wrapping
// quotes.
func Clean(text string) string {
	text = stripThinking(text)
	text = stripEchoes(text)
	text = stripWrappingQuotes(text)
	return strings.TrimSpace(text)
}

// Reasoning-style blocks some models emit despite instructions. RE2 has no
// backreferences, so each tag variant is spelled out.
var thinkingRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opened reasoning tag with no closer means the model was truncated
// mid-thought; everything from the opener on is noise.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func stripThinking(text string) string {
	text = thinkingRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// echoRes match preambles such as "Here is the translation:" that models
// prepend even when told not to. Anchored to the start and requiring a
// colon to avoid eating legitimate content.
var echoRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:translated )?(?:translation|text)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:translation|translated text)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:translated )?(?:translation|text)\s*:`),
}

func stripEchoes(text string) string {
	for _, re := range echoRes {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// stripWrappingQuotes removes one layer of outer quotes when the whole text
// is wrapped in a matching pair. It only fires when the first and last runes
// form a pair and the text has at least two runes, so interior quoting is
// never touched.
func stripWrappingQuotes(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	switch {
	case first == '"' && last == '"',
		first == '\'' && last == '\'',
		first == '«' && last == '»',
		first == '“' && last == '”', // " "
		first == '‘' && last == '’': // ' '
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
