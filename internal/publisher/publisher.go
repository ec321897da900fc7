// Package publisher drives the per-document pipeline: fetch ready records
// from the content store, render markdown, write the source-language
// artifact, translate title and body, write the target-language artifact,
// and finally flip the record's status to published.
//
// Exactly one error boundary exists per document: any failure inside one
// document's pipeline is logged with the document's title and the run moves
// on to the next record. Files already written for a failed document stay
// in place for inspection.
package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/valpere/perepost/internal/markdown"
	"github.com/valpere/perepost/internal/pipeline"
	"github.com/valpere/perepost/internal/source"
)

// ContentSource is the slice of the content store client the publisher
// needs; tests substitute a fixture implementation.
type ContentSource interface {
	QueryReady(ctx context.Context) ([]source.Record, error)
	PageBlocks(ctx context.Context, pageID string) ([]source.Block, error)
	MarkPublished(ctx context.Context, pageID string) error
}

// PublishLog records written artifacts; nil disables logging to the store.
type PublishLog interface {
	RecordPublish(ctx context.Context, slug, lang string) error
}

// Config assembles a Publisher.
type Config struct {
	Source     ContentSource
	Pipeline   *pipeline.Pipeline
	OutDir     string
	SourceLang string
	TargetLang string

	// Images optionally rewrites image URLs to local references.
	Images markdown.ImageRewriter

	// PublishLog is optional.
	PublishLog PublishLog

	// Log receives progress and warnings; nil means stderr.
	Log io.Writer
}

// RunStats summarises one publish run.
type RunStats struct {
	Selected  int // ready records returned by the query
	Published int
	Skipped   int // records missing title or slug
	Failed    int // records aborted by their error boundary
	Degraded  int // fragments that fell back to the original text
}

// Publisher publishes ready documents one at a time, in store order.
type Publisher struct {
	cfg Config
}

// New creates a Publisher.
func New(cfg Config) *Publisher {
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	return &Publisher{cfg: cfg}
}

// Run processes every ready record sequentially. Only a failure of the
// initial query is fatal; per-document failures are contained.
func (p *Publisher) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	records, err := p.cfg.Source.QueryReady(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to query ready records: %w", err)
	}
	stats.Selected = len(records)

	for _, rec := range records {
		if rec.Title == "" || rec.Slug == "" {
			fmt.Fprintf(p.cfg.Log, "Warning: skipping record %s: missing title or slug\n", rec.ID)
			stats.Skipped++
			continue
		}

		degraded, err := p.publishOne(ctx, rec)
		stats.Degraded += degraded
		if err != nil {
			fmt.Fprintf(p.cfg.Log, "Error publishing %q: %v\n", rec.Title, err)
			stats.Failed++
			continue
		}
		stats.Published++
	}
	return stats, nil
}

// publishOne runs the full pipeline for one record and returns the number
// of degraded fragments. The source artifact is written before translation
// begins; the status update happens only after both artifacts are on disk.
func (p *Publisher) publishOne(ctx context.Context, rec source.Record) (int, error) {
	blocks, err := p.cfg.Source.PageBlocks(ctx, rec.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch blocks: %w", err)
	}

	body := markdown.FromBlocks(blocks, p.cfg.Images)
	fm := markdown.FrontMatter{
		Title:   rec.Title,
		Date:    rec.Date,
		Tags:    rec.Tags,
		Summary: markdown.Summary(body),
	}

	artifact, err := markdown.Render(fm, body)
	if err != nil {
		return 0, err
	}
	if err := p.writeArtifact(p.cfg.SourceLang, rec.Slug, artifact); err != nil {
		return 0, err
	}
	p.recordPublish(ctx, rec.Slug, p.cfg.SourceLang)

	titleRes := p.cfg.Pipeline.TranslateTitle(ctx, rec.Title)
	translatedBody, bodyStats := p.cfg.Pipeline.TranslateBody(ctx, body)

	degraded := bodyStats.Degraded
	if titleRes.Degraded {
		degraded++
	}

	tfm := fm
	tfm.Title = titleRes.Text
	tfm.Summary = markdown.Summary(translatedBody)

	translated, err := markdown.Render(tfm, translatedBody)
	if err != nil {
		return degraded, err
	}
	if err := p.writeArtifact(p.cfg.TargetLang, rec.Slug, translated); err != nil {
		return degraded, err
	}
	p.recordPublish(ctx, rec.Slug, p.cfg.TargetLang)

	// Both artifacts are on disk: the record may leave the ready state. A
	// failed status update is only logged; the record stays eligible for
	// the next run (at-least-once semantics).
	if err := p.cfg.Source.MarkPublished(ctx, rec.ID); err != nil {
		fmt.Fprintf(p.cfg.Log, "Warning: failed to mark %q published: %v\n", rec.Title, err)
	}

	fmt.Fprintf(p.cfg.Log, "Published %q as %s (%d fragments, %d degraded)\n",
		rec.Title, rec.Slug, bodyStats.Fragments, bodyStats.Degraded)
	return degraded, nil
}

func (p *Publisher) writeArtifact(lang, slug, content string) error {
	dir := filepath.Join(p.cfg.OutDir, lang)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, slug+".md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

func (p *Publisher) recordPublish(ctx context.Context, slug, lang string) {
	if p.cfg.PublishLog == nil {
		return
	}
	if err := p.cfg.PublishLog.RecordPublish(ctx, slug, lang); err != nil {
		fmt.Fprintf(p.cfg.Log, "Warning: failed to record publish of %s/%s: %v\n", lang, slug, err)
	}
}
