// Package pipeline implements code-preserving document translation: a body
// is segmented into code and prose spans, each non-blank prose span is
// translated as an independent fragment, and the results are stitched back
// in original order around byte-identical code spans.
//
// Translation failure is bounded to one fragment: a failed call degrades to
// the original text, is logged once, and never aborts the document.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/valpere/perepost/internal/chunker"
	"github.com/valpere/perepost/internal/segment"
	"github.com/valpere/perepost/internal/translator"
)

// DefaultMaxChars is the fragment size above which prose is chunked before
// translation.
const DefaultMaxChars = 4000

// Memory is a fragment-level translation cache consulted before a service
// call. Implementations must be safe for sequential reuse; the pipeline
// never calls them concurrently.
type Memory interface {
	Lookup(ctx context.Context, text, sourceLang, targetLang string) (string, bool, error)
	Save(ctx context.Context, text, sourceLang, targetLang, translated string) error
}

// LanguageChecker verifies that translated text is in the target language.
// A failed check is treated exactly like a failed service call.
type LanguageChecker interface {
	IsValid(text, targetLang string) (bool, error)
}

// Config assembles the collaborators of a Pipeline. Service credentials stay
// in ServiceConfig so the same pipeline works against stubs in tests.
type Config struct {
	SourceLang string
	TargetLang string
	Service    translator.ServiceConfig

	// Memory is optional; nil disables caching.
	Memory Memory

	// Checker is optional; nil disables language validation.
	Checker LanguageChecker

	// MaxChars bounds fragment size before chunking; ≤ 0 uses DefaultMaxChars.
	MaxChars int

	// ContextWords sizes the continuity window passed to LLM backends;
	// ≤ 0 uses the chunker default.
	ContextWords int

	// Log receives degradation notices; nil means stderr.
	Log io.Writer
}

// Result is the outcome of translating one fragment or title.
type Result struct {
	// Text is the translated text, or the original input when Degraded.
	Text string
	// Degraded is set when the translation call failed and the original
	// text was returned instead.
	Degraded bool
	// Cached is set when the text came from translation memory.
	Cached bool
	// Err holds the failure cause when Degraded.
	Err string
}

// BodyStats summarises one body translation.
type BodyStats struct {
	Fragments int // non-blank prose spans sent for translation
	Cached    int
	Degraded  int
	Skipped   int // blank prose spans never sent
}

// Pipeline translates document bodies and titles through one service.
type Pipeline struct {
	svc translator.Service
	cfg Config
}

// New creates a Pipeline around svc.
func New(svc translator.Service, cfg Config) *Pipeline {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	return &Pipeline{svc: svc, cfg: cfg}
}

// TranslateBody segments body, translates every non-blank prose span in
// document order, and reassembles the result. Code spans come back byte for
// byte; fragments whose translation failed come back as their original
// text. TranslateBody itself never fails.
func (p *Pipeline) TranslateBody(ctx context.Context, body string) (string, BodyStats) {
	spans := segment.Segment(body)
	translated := make(map[int]string)
	var stats BodyStats
	var prev string

	for i, s := range spans {
		if s.Kind == segment.Code {
			continue
		}
		if s.Blank() {
			stats.Skipped++
			continue
		}
		stats.Fragments++

		res := p.translate(ctx, s.Inner(), prev)
		switch {
		case res.Degraded:
			stats.Degraded++
			// Leave the span out of the map: the reassembler emits the
			// original text, whitespace and all.
			continue
		case res.Cached:
			stats.Cached++
		}
		translated[i] = res.Text
		prev = res.Text
	}

	return Reassemble(spans, translated), stats
}

// TranslateTitle translates a short title as a single unsegmented fragment.
// Titles are assumed code-free. On failure the original title comes back
// and publication proceeds.
func (p *Pipeline) TranslateTitle(ctx context.Context, title string) Result {
	if strings.TrimSpace(title) == "" {
		return Result{Text: title}
	}
	return p.translate(ctx, title, "")
}

// TranslateFragment translates one prose fragment. On any failure the
// original fragment is returned unchanged as a degraded success.
func (p *Pipeline) TranslateFragment(ctx context.Context, fragment string) Result {
	if strings.TrimSpace(fragment) == "" {
		return Result{Text: fragment}
	}
	return p.translate(ctx, fragment, "")
}

func (p *Pipeline) translate(ctx context.Context, fragment, prev string) Result {
	trimmed := strings.TrimSpace(fragment)

	if p.cfg.Memory != nil {
		if hit, found, err := p.cfg.Memory.Lookup(ctx, trimmed, p.cfg.SourceLang, p.cfg.TargetLang); err == nil && found {
			return Result{Text: hit, Cached: true}
		}
	}

	parts := chunker.Chunk(trimmed, p.cfg.MaxChars)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		req := translator.Request{
			Text:       part,
			SourceLang: p.cfg.SourceLang,
			TargetLang: p.cfg.TargetLang,
		}
		if prev != "" {
			req.Context = chunker.ExtractContext(prev, p.cfg.ContextWords)
		}

		res, err := p.svc.Translate(ctx, p.cfg.Service, req)
		if err != nil {
			return p.degrade(fragment, err.Error())
		}
		out = append(out, res.Text)
		prev = res.Text
	}
	text := strings.Join(out, "\n\n")

	if p.cfg.Checker != nil {
		if ok, err := p.cfg.Checker.IsValid(text, p.cfg.TargetLang); !ok {
			return p.degrade(fragment, fmt.Sprintf("language validation failed: %v", err))
		}
	}

	if p.cfg.Memory != nil {
		if err := p.cfg.Memory.Save(ctx, trimmed, p.cfg.SourceLang, p.cfg.TargetLang, text); err != nil {
			fmt.Fprintf(p.cfg.Log, "Warning: failed to save translation memory: %v\n", err)
		}
	}

	return Result{Text: text}
}

// degrade logs the failure with the offending fragment and returns the
// original text as a degraded success.
func (p *Pipeline) degrade(fragment, cause string) Result {
	snippet := fragment
	if len([]rune(snippet)) > 60 {
		snippet = string([]rune(snippet)[:57]) + "..."
	}
	fmt.Fprintf(p.cfg.Log, "Warning: translation degraded (%s): %q\n", cause, snippet)
	return Result{Text: fragment, Degraded: true, Err: cause}
}

// Reassemble walks spans in original order and emits code spans verbatim and
// prose spans as original leading whitespace + translated text + original
// trailing whitespace. Prose spans missing from translated are emitted
// unchanged. Concatenation uses no separator, so the output keeps the exact
// whitespace skeleton of the input.
func Reassemble(spans []segment.Span, translated map[int]string) string {
	var sb strings.Builder
	for i, s := range spans {
		if s.Kind == segment.Code {
			sb.WriteString(s.Text)
			continue
		}
		if t, ok := translated[i]; ok {
			sb.WriteString(s.Leading)
			sb.WriteString(t)
			sb.WriteString(s.Trailing)
			continue
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}
