package images_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/perepost/internal/images"
)

func TestRewrite_DownloadsOnce(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte("imagebytes"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "images")
	d := images.New(dir)

	ref1, err := d.Rewrite(server.URL + "/pic.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref2, err := d.Rewrite(server.URL + "/pic.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fetches != 1 {
		t.Errorf("expected 1 fetch, got %d", fetches)
	}
	if ref1 != ref2 {
		t.Errorf("same URL must map to the same reference: %q vs %q", ref1, ref2)
	}
	if !strings.HasPrefix(ref1, "images/") {
		t.Errorf("reference must be relative to the artifact tree: %q", ref1)
	}
	if !strings.HasSuffix(ref1, ".png") {
		t.Errorf("extension must be preserved: %q", ref1)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(ref1)))
	if err != nil {
		t.Fatalf("image file missing: %v", err)
	}
	if string(data) != "imagebytes" {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestRewrite_StableNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	url := server.URL + "/a/b/photo.jpeg"

	ref1, err := images.New(filepath.Join(t.TempDir(), "images")).Rewrite(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref2, err := images.New(filepath.Join(t.TempDir(), "images")).Rewrite(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("name must be stable across runs: %q vs %q", ref1, ref2)
	}
}

func TestRewrite_ExistingFileSkipsFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first run"))
	}))

	dir := filepath.Join(t.TempDir(), "images")
	url := server.URL + "/pic.png"

	if _, err := images.New(dir).Rewrite(url); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	server.Close()

	// Server is gone; the second downloader must find the file on disk.
	if _, err := images.New(dir).Rewrite(url); err != nil {
		t.Fatalf("expected on-disk reuse, got %v", err)
	}
}

func TestRewrite_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := images.New(filepath.Join(t.TempDir(), "images"))
	if _, err := d.Rewrite(server.URL + "/gone.png"); err == nil {
		t.Error("expected error for missing image")
	}
}
