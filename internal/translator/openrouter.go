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

// DefaultOpenRouterModel is used when no model is configured.
const DefaultOpenRouterModel = "google/gemini-2.0-flash-exp:free"

// OpenRouterService translates fragments with a hosted model behind the
// OpenRouter chat completions API.
type OpenRouterService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenRouterService creates an OpenRouter-backed service. An empty
// baseURL falls back to the public endpoint, an empty model to
// DefaultOpenRouterModel.
func NewOpenRouterService(apiKey, baseURL, model string) *OpenRouterService {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouterService{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg ServiceConfig, req Request) (*Result, error) {
	result := &Result{Service: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Err = "OpenRouter API key required"
		return result, fmt.Errorf("OpenRouter API key required")
	}

	model := cfg.Model
	if model == "" {
		model = s.model
	}

	openrouterReq := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": buildSystemPrompt(req)},
			{"role": "user", "content": req.Text},
		},
		"max_tokens": 4096,
	}

	jsonData, err := json.Marshal(openrouterReq)
	if err != nil {
		result.Err = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		result.Err = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	httpReq.Header.Set("HTTP-Referer", "https://perepost.local")
	httpReq.Header.Set("X-Title", "PerePost")

	resp, err := s.httpClient(cfg).Do(httpReq)
	if err != nil {
		result.Err = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		result.Err = fmt.Sprintf("API returned status %d: %v", resp.StatusCode, errResp)
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var openrouterResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&openrouterResp); err != nil {
		result.Err = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}
	if len(openrouterResp.Choices) == 0 {
		result.Err = "empty response from API"
		return result, fmt.Errorf("empty response from API")
	}

	result.Text = postprocess.Clean(openrouterResp.Choices[0].Message.Content)
	if result.Text == "" {
		result.Err = "empty translation"
		return result, fmt.Errorf("empty translation")
	}
	return result, nil
}

// httpClient honors a per-call timeout override; zero keeps the service's
// default client.
func (s *OpenRouterService) httpClient(cfg ServiceConfig) *http.Client {
	if cfg.Timeout > 0 {
		return &http.Client{Timeout: cfg.Timeout}
	}
	return s.client
}

func buildSystemPrompt(req Request) string {
	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the detected language"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional translator. Translate the user's text from %s to %s.\n", sourceLang, req.TargetLang)
	sb.WriteString("Respond with the translation only: no explanations, no commentary, no quotation marks around the answer. ")
	sb.WriteString("Preserve markdown formatting exactly.")

	if req.Context != "" {
		fmt.Fprintf(&sb, "\n\nCONTEXT (previous passage, already translated, for continuity only; do NOT retranslate it):\n...%s", req.Context)
	}
	return sb.String()
}
