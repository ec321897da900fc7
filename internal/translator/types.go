// Package translator defines the translation service abstraction and its
// concrete backends: Google Cloud Translation, self-hosted Ollama models,
// and hosted models behind OpenRouter. Services are stateless; credentials
// and model selection travel in an explicit ServiceConfig so tests can
// substitute stub implementations.
package translator

import (
	"context"
	"time"
)

// ServiceConfig carries credentials and model selection for a service call.
type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

// Request is one fragment translation call.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`

	// Context optionally carries the tail of the previously translated
	// passage so LLM backends can keep terminology and tone consistent
	// across fragment boundaries. Non-LLM backends ignore it.
	Context string `json:"context,omitempty"`
}

// Result is the outcome of one service call. Err mirrors the returned error
// so callers that log results do not need to keep the error alongside.
type Result struct {
	Service string        `json:"service"`
	Text    string        `json:"text"`
	Latency time.Duration `json:"latency"`
	Err     string        `json:"err,omitempty"`
}

// Service translates single text fragments.
type Service interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req Request) (*Result, error)
}
