// Package store is the SQLite-backed translation memory. Fragments already
// translated in earlier runs are reused instead of re-calling the service,
// and every published artifact is recorded so a run can be audited after
// the fact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fragments (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		usage_count INTEGER DEFAULT 1,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, source_lang, target_lang)
	);

	-- publishes records every artifact written by a publish run
	CREATE TABLE IF NOT EXISTS publishes (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		lang TEXT NOT NULL,
		published_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(slug, lang)
	);

	CREATE INDEX IF NOT EXISTS idx_fragments_lookup ON fragments(source_text, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_publishes_slug ON publishes(slug);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Lookup returns the remembered translation for a fragment, bumping its
// usage counter on a hit.
func (s *Store) Lookup(ctx context.Context, text, sourceLang, targetLang string) (string, bool, error) {
	var translated string
	err := s.db.QueryRowContext(ctx,
		`SELECT translated_text FROM fragments WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		normalizeText(text), sourceLang, targetLang).Scan(&translated)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE fragments SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), normalizeText(text), sourceLang, targetLang)
	return translated, true, err
}

// Save remembers one fragment translation, replacing any earlier entry for
// the same fragment and language pair.
func (s *Store) Save(ctx context.Context, text, sourceLang, targetLang, translated string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO fragments (id, source_text, source_lang, target_lang, translated_text, usage_count, last_used, created_at) VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		uuid.New().String(), normalizeText(text), sourceLang, targetLang, translated, time.Now(), time.Now())
	return err
}

// RecordPublish logs one written artifact. Re-publishing the same slug and
// language updates the timestamp instead of failing.
func (s *Store) RecordPublish(ctx context.Context, slug, lang string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO publishes (id, slug, lang, published_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(slug, lang) DO UPDATE SET published_at = excluded.published_at`,
		uuid.New().String(), slug, lang, time.Now())
	return err
}

// Fragment is one row of the translation memory.
type Fragment struct {
	ID             string
	SourceText     string
	SourceLang     string
	TargetLang     string
	TranslatedText string
	UsageCount     int
	LastUsed       time.Time
}

// ListFragments returns all memory entries, most recently used first.
func (s *Store) ListFragments(ctx context.Context) ([]Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, source_lang, target_lang, translated_text, usage_count, last_used FROM fragments ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Fragment
	for rows.Next() {
		var f Fragment
		if err := rows.Scan(&f.ID, &f.SourceText, &f.SourceLang, &f.TargetLang, &f.TranslatedText, &f.UsageCount, &f.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// ClearFragments removes all memory entries and returns how many were
// deleted.
func (s *Store) ClearFragments(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fragments`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats summarises memory usage.
type Stats struct {
	Fragments  int
	TotalUsage int
	Publishes  int
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count), 0) FROM fragments`).Scan(&stats.Fragments, &stats.TotalUsage)
	if err != nil {
		return nil, err
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM publishes`).Scan(&stats.Publishes)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization for
// consistent memory key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
