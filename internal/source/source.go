// Package source is the client for the hosted content database the
// publishing pipeline reads from. It queries a database for records whose
// status property equals the configured ready value, retrieves a page's
// block children (paginated), and flips a record's status to published once
// both language artifacts are on disk.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const apiVersion = "2022-06-28"

// Config carries the connection parameters for the content store.
type Config struct {
	BaseURL    string `mapstructure:"base_url" json:"base_url"`
	Token      string `mapstructure:"token" json:"token"`
	DatabaseID string `mapstructure:"database_id" json:"database_id"`

	// StatusProperty is the select property gating publication.
	StatusProperty string `mapstructure:"status_property" json:"status_property"`
	ReadyValue     string `mapstructure:"ready_value" json:"ready_value"`
	PublishedValue string `mapstructure:"published_value" json:"published_value"`
}

// Client talks to the content store API.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a content store client. Empty config fields fall back to
// the public API endpoint and the Status/Ready/Published property scheme.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.notion.com/v1"
	}
	if cfg.StatusProperty == "" {
		cfg.StatusProperty = "Status"
	}
	if cfg.ReadyValue == "" {
		cfg.ReadyValue = "Ready"
	}
	if cfg.PublishedValue == "" {
		cfg.PublishedValue = "Published"
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Record is one database row mapped to the fields the pipeline needs.
// Title and Slug are required downstream; Tags and Date default to empty.
type Record struct {
	ID     string
	Title  string
	Slug   string
	Tags   []string
	Date   string
	Status string
}

// RichText is one styled run of text inside a block.
type RichText struct {
	PlainText     string `json:"plain_text"`
	Href          string `json:"href"`
	Bold          bool
	Italic        bool
	Strikethrough bool
	Code          bool
}

// Block is one content block of a page body.
type Block struct {
	Type     string
	Text     []RichText
	Language string // code blocks
	URL      string // image blocks
	Caption  []RichText
}

// QueryReady returns all records whose status equals the ready value, in
// store order, following pagination. The status filter is applied by the
// store; records are re-checked client-side so a record can never be
// published twice even if the store ignores the filter.
func (c *Client) QueryReady(ctx context.Context) ([]Record, error) {
	var records []Record
	cursor := ""
	for {
		body := map[string]interface{}{
			"filter": map[string]interface{}{
				"property": c.cfg.StatusProperty,
				"select":   map[string]string{"equals": c.cfg.ReadyValue},
			},
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var page struct {
			Results    []pageObject `json:"results"`
			HasMore    bool         `json:"has_more"`
			NextCursor string       `json:"next_cursor"`
		}
		url := fmt.Sprintf("%s/databases/%s/query", c.cfg.BaseURL, c.cfg.DatabaseID)
		if err := c.do(ctx, "POST", url, body, &page); err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}

		for _, p := range page.Results {
			rec := p.record(c.cfg.StatusProperty)
			if rec.Status != c.cfg.ReadyValue {
				continue
			}
			records = append(records, rec)
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return records, nil
}

// PageBlocks returns the block children of a page, following pagination.
func (c *Client) PageBlocks(ctx context.Context, pageID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		url := fmt.Sprintf("%s/blocks/%s/children?page_size=100", c.cfg.BaseURL, pageID)
		if cursor != "" {
			url += "&start_cursor=" + cursor
		}

		var page struct {
			Results    []blockObject `json:"results"`
			HasMore    bool          `json:"has_more"`
			NextCursor string        `json:"next_cursor"`
		}
		if err := c.do(ctx, "GET", url, nil, &page); err != nil {
			return nil, fmt.Errorf("fetch blocks: %w", err)
		}

		for _, b := range page.Results {
			blocks = append(blocks, b.block())
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return blocks, nil
}

// MarkPublished sets the record's status property to the published value.
// This is the terminal transition of a document run; it is not retried, and
// a failure leaves the record eligible for the next run.
func (c *Client) MarkPublished(ctx context.Context, pageID string) error {
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			c.cfg.StatusProperty: map[string]interface{}{
				"select": map[string]string{"name": c.cfg.PublishedValue},
			},
		},
	}
	url := fmt.Sprintf("%s/pages/%s", c.cfg.BaseURL, pageID)
	if err := c.do(ctx, "PATCH", url, body, &struct{}{}); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Message != "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// --- wire format ---

type richTextObject struct {
	PlainText   string `json:"plain_text"`
	Href        string `json:"href"`
	Annotations struct {
		Bold          bool `json:"bold"`
		Italic        bool `json:"italic"`
		Strikethrough bool `json:"strikethrough"`
		Code          bool `json:"code"`
	} `json:"annotations"`
}

func (r richTextObject) richText() RichText {
	return RichText{
		PlainText:     r.PlainText,
		Href:          r.Href,
		Bold:          r.Annotations.Bold,
		Italic:        r.Annotations.Italic,
		Strikethrough: r.Annotations.Strikethrough,
		Code:          r.Annotations.Code,
	}
}

type propertyObject struct {
	Type     string           `json:"type"`
	Title    []richTextObject `json:"title"`
	RichText []richTextObject `json:"rich_text"`
	Select   *struct {
		Name string `json:"name"`
	} `json:"select"`
	Status *struct {
		Name string `json:"name"`
	} `json:"status"`
	MultiSelect []struct {
		Name string `json:"name"`
	} `json:"multi_select"`
	Date *struct {
		Start string `json:"start"`
	} `json:"date"`
}

func (p propertyObject) plain() string {
	var sb strings.Builder
	for _, rt := range append(p.Title, p.RichText...) {
		sb.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

type pageObject struct {
	ID         string                    `json:"id"`
	Properties map[string]propertyObject `json:"properties"`
}

// record maps the page's properties onto a Record. Property names follow the
// conventional blog database layout: Name (title), Slug, Tags, Date, plus
// the configured status property.
func (p pageObject) record(statusProperty string) Record {
	rec := Record{ID: p.ID}
	for name, prop := range p.Properties {
		switch {
		case prop.Type == "title":
			rec.Title = prop.plain()
		case name == "Slug":
			rec.Slug = prop.plain()
		case name == "Tags":
			for _, t := range prop.MultiSelect {
				rec.Tags = append(rec.Tags, t.Name)
			}
		case name == "Date":
			if prop.Date != nil {
				rec.Date = prop.Date.Start
			}
		case name == statusProperty:
			if prop.Select != nil {
				rec.Status = prop.Select.Name
			} else if prop.Status != nil {
				rec.Status = prop.Status.Name
			}
		}
	}
	return rec
}

type blockObject struct {
	Type string `json:"type"`

	Paragraph        *blockContents `json:"paragraph"`
	Heading1         *blockContents `json:"heading_1"`
	Heading2         *blockContents `json:"heading_2"`
	Heading3         *blockContents `json:"heading_3"`
	BulletedListItem *blockContents `json:"bulleted_list_item"`
	NumberedListItem *blockContents `json:"numbered_list_item"`
	Quote            *blockContents `json:"quote"`
	Code             *blockContents `json:"code"`
	Image            *imageContents `json:"image"`
}

type blockContents struct {
	RichText []richTextObject `json:"rich_text"`
	Language string           `json:"language"`
}

type imageContents struct {
	Type     string `json:"type"`
	External struct {
		URL string `json:"url"`
	} `json:"external"`
	File struct {
		URL string `json:"url"`
	} `json:"file"`
	Caption []richTextObject `json:"caption"`
}

func (b blockObject) block() Block {
	blk := Block{Type: b.Type}

	var contents *blockContents
	switch b.Type {
	case "paragraph":
		contents = b.Paragraph
	case "heading_1":
		contents = b.Heading1
	case "heading_2":
		contents = b.Heading2
	case "heading_3":
		contents = b.Heading3
	case "bulleted_list_item":
		contents = b.BulletedListItem
	case "numbered_list_item":
		contents = b.NumberedListItem
	case "quote":
		contents = b.Quote
	case "code":
		contents = b.Code
	case "image":
		if b.Image != nil {
			if b.Image.Type == "external" {
				blk.URL = b.Image.External.URL
			} else {
				blk.URL = b.Image.File.URL
			}
			for _, rt := range b.Image.Caption {
				blk.Caption = append(blk.Caption, rt.richText())
			}
		}
		return blk
	}

	if contents != nil {
		for _, rt := range contents.RichText {
			blk.Text = append(blk.Text, rt.richText())
		}
		blk.Language = contents.Language
	}
	return blk
}
