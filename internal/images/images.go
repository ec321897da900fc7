// Package images downloads embedded images once and rewrites their markup
// to local relative paths. File names derive from a content hash of the
// source URL, so repeated runs and repeated references resolve to the same
// file without re-downloading.
package images

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Downloader fetches images into dir. It is not safe for concurrent use;
// the pipeline processes documents sequentially.
type Downloader struct {
	dir    string
	client *http.Client
	seen   map[string]string
}

// New creates a Downloader writing into dir (created on first download).
func New(dir string) *Downloader {
	return &Downloader{
		dir:    dir,
		client: &http.Client{Timeout: 60 * time.Second},
		seen:   map[string]string{},
	}
}

// Rewrite fetches rawURL once and returns the relative reference to the
// local copy. A URL already fetched in this run returns the cached
// reference without touching the network; a file already on disk from an
// earlier run is reused as well.
func (d *Downloader) Rewrite(rawURL string) (string, error) {
	if ref, ok := d.seen[rawURL]; ok {
		return ref, nil
	}

	name := fileName(rawURL)
	dest := filepath.Join(d.dir, name)
	ref := path.Join(filepath.Base(d.dir), name)

	if _, err := os.Stat(dest); err == nil {
		d.seen[rawURL] = ref
		return ref, nil
	}

	if err := d.fetch(rawURL, dest); err != nil {
		return "", err
	}
	d.seen[rawURL] = ref
	return ref, nil
}

func (d *Downloader) fetch(rawURL, dest string) error {
	resp, err := d.client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// fileName derives a stable name from the URL: a short blake3 hash plus the
// original extension when it looks like one.
func fileName(rawURL string) string {
	sum := blake3.Sum256([]byte(rawURL))
	name := fmt.Sprintf("%x", sum[:8])

	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return name + ext
	}
	return name + ".png"
}
