package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/perepost/internal/postprocess"
)

// DefaultOllamaModel is used when neither the service nor the call config
// names a model.
const DefaultOllamaModel = "llama3.2"

// OllamaService translates fragments with a self-hosted Ollama model.
type OllamaService struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaService creates an Ollama-backed service. Empty arguments fall
// back to http://localhost:11434 and DefaultOllamaModel.
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaService{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *OllamaService) Name() string {
	return "ollama"
}

func (s *OllamaService) Translate(ctx context.Context, cfg ServiceConfig, req Request) (*Result, error) {
	result := &Result{Service: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	model := cfg.Model
	if model == "" {
		model = s.model
	}

	ollamaReq := map[string]interface{}{
		"model":  model,
		"prompt": buildFragmentPrompt(req),
		"stream": false,
	}

	jsonData, err := json.Marshal(ollamaReq)
	if err != nil {
		result.Err = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		result.Err = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient(cfg).Do(httpReq)
	if err != nil {
		result.Err = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Sprintf("API returned status %d", resp.StatusCode)
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		result.Err = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}

	result.Text = postprocess.Clean(ollamaResp.Response)
	if result.Text == "" {
		result.Err = "empty translation"
		return result, fmt.Errorf("empty translation")
	}
	return result, nil
}

// httpClient honors a per-call timeout override; zero keeps the service's
// default client.
func (s *OllamaService) httpClient(cfg ServiceConfig) *http.Client {
	if cfg.Timeout > 0 {
		return &http.Client{Timeout: cfg.Timeout}
	}
	return s.client
}

// buildFragmentPrompt asks for the bare translation: no commentary and no
// quoting, so the result can be spliced back between preserved code spans.
func buildFragmentPrompt(req Request) string {
	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the source language"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate the following text from %s to %s.\n", sourceLang, req.TargetLang)
	sb.WriteString("Respond with the translation only. No commentary, no explanations, no quotation marks around the answer.\n")
	sb.WriteString("Keep markdown formatting such as **bold**, _italics_ and [links](url) intact.\n")

	if req.Context != "" {
		fmt.Fprintf(&sb, "\nPrevious passage, already translated, for continuity only (do NOT retranslate it):\n...%s\n", req.Context)
	}

	fmt.Fprintf(&sb, "\nText:\n%s\n\nTranslation:", req.Text)
	return sb.String()
}
