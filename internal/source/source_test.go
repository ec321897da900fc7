package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func pageJSON(id, title, slug, status string, tags ...string) map[string]interface{} {
	tagList := make([]map[string]string, 0, len(tags))
	for _, t := range tags {
		tagList = append(tagList, map[string]string{"name": t})
	}
	return map[string]interface{}{
		"id": id,
		"properties": map[string]interface{}{
			"Name": map[string]interface{}{
				"type":  "title",
				"title": []map[string]interface{}{{"plain_text": title}},
			},
			"Slug": map[string]interface{}{
				"type":      "rich_text",
				"rich_text": []map[string]interface{}{{"plain_text": slug}},
			},
			"Tags": map[string]interface{}{
				"type":         "multi_select",
				"multi_select": tagList,
			},
			"Date": map[string]interface{}{
				"type": "date",
				"date": map[string]string{"start": "2026-01-15"},
			},
			"Status": map[string]interface{}{
				"type":   "select",
				"select": map[string]string{"name": status},
			},
		},
	}
}

func TestQueryReady_FiltersAndMaps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/databases/db1/query" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got == "" {
			t.Error("missing API version header")
		}

		var req struct {
			Filter struct {
				Property string `json:"property"`
				Select   struct {
					Equals string `json:"equals"`
				} `json:"select"`
			} `json:"filter"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Filter.Property != "Status" || req.Filter.Select.Equals != "Ready" {
			t.Errorf("unexpected filter: %+v", req.Filter)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []interface{}{
				pageJSON("p1", "First Post", "first-post", "Ready", "go", "testing"),
			},
			"has_more": false,
		})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, Token: "secret", DatabaseID: "db1"})
	records, err := c.QueryReady(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID != "p1" || rec.Title != "First Post" || rec.Slug != "first-post" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if len(rec.Tags) != 2 || rec.Tags[0] != "go" {
		t.Errorf("unexpected tags: %v", rec.Tags)
	}
	if rec.Date != "2026-01-15" {
		t.Errorf("unexpected date: %q", rec.Date)
	}
}

func TestQueryReady_PublishedNeverSelected(t *testing.T) {
	// The store is simulated as ignoring the filter entirely; the client's
	// defensive re-check must still drop everything not in the ready state.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []interface{}{
				pageJSON("p1", "Ready One", "ready-one", "Ready"),
				pageJSON("p2", "Already Out", "already-out", "Published"),
				pageJSON("p3", "Still Draft", "still-draft", "Draft"),
				pageJSON("p4", "Ready Two", "ready-two", "Ready"),
			},
			"has_more": false,
		})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, DatabaseID: "db1"})
	records, err := c.QueryReady(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 ready records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Status != "Ready" {
			t.Errorf("record %s selected with status %q", rec.ID, rec.Status)
		}
	}
}

func TestQueryReady_Pagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)

		if calls == 1 {
			if _, ok := req["start_cursor"]; ok {
				t.Error("first page must not carry a cursor")
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results":     []interface{}{pageJSON("p1", "One", "one", "Ready")},
				"has_more":    true,
				"next_cursor": "cur2",
			})
			return
		}
		if req["start_cursor"] != "cur2" {
			t.Errorf("expected cursor cur2, got %v", req["start_cursor"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results":  []interface{}{pageJSON("p2", "Two", "two", "Ready")},
			"has_more": false,
		})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, DatabaseID: "db1"})
	records, err := c.QueryReady(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 requests, got %d", calls)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestQueryReady_FetchErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid token"})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, DatabaseID: "db1"})
	_, err := c.QueryReady(context.Background())
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
}

func TestPageBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks/p1/children" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{
					"type": "heading_1",
					"heading_1": map[string]interface{}{
						"rich_text": []map[string]interface{}{{"plain_text": "Intro"}},
					},
				},
				map[string]interface{}{
					"type": "paragraph",
					"paragraph": map[string]interface{}{
						"rich_text": []map[string]interface{}{
							{"plain_text": "Bold run", "annotations": map[string]bool{"bold": true}},
						},
					},
				},
				map[string]interface{}{
					"type": "code",
					"code": map[string]interface{}{
						"rich_text": []map[string]interface{}{{"plain_text": "fmt.Println(1)"}},
						"language":  "go",
					},
				},
				map[string]interface{}{
					"type": "image",
					"image": map[string]interface{}{
						"type":     "external",
						"external": map[string]string{"url": "https://img.example/a.png"},
					},
				},
			},
			"has_more": false,
		})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	blocks, err := c.PageBlocks(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
	if blocks[0].Type != "heading_1" || blocks[0].Text[0].PlainText != "Intro" {
		t.Errorf("unexpected heading block: %+v", blocks[0])
	}
	if !blocks[1].Text[0].Bold {
		t.Error("bold annotation lost")
	}
	if blocks[2].Language != "go" {
		t.Errorf("code language lost: %+v", blocks[2])
	}
	if blocks[3].URL != "https://img.example/a.png" {
		t.Errorf("image URL lost: %+v", blocks[3])
	}
}

func TestMarkPublished(t *testing.T) {
	var patched bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PATCH" || r.URL.Path != "/pages/p1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			Properties map[string]struct {
				Select struct {
					Name string `json:"name"`
				} `json:"select"`
			} `json:"properties"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Properties["Status"].Select.Name != "Published" {
			t.Errorf("unexpected status payload: %+v", req.Properties)
		}
		patched = true
		fmt.Fprint(w, "{}")
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	if err := c.MarkPublished(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !patched {
		t.Error("expected a PATCH request")
	}
}

func TestMarkPublished_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	if err := c.MarkPublished(context.Background(), "p1"); err == nil {
		t.Error("expected error for conflict status")
	}
}
