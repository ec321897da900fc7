/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/perepost/internal/pipeline"
	"github.com/valpere/perepost/internal/translator"
	"github.com/valpere/perepost/internal/validator"
)

var (
	trInput       string
	trOutput      string
	trSourceLang  string
	trTargetLang  string
	trService     string
	trModel       string
	trOllamaURL   string
	trORKey       string
	trCredentials string
	trProject     string
	trDBPath      string
	trNoMemory    bool
	trNoValidate  bool
	trMaxChars    int
	trTimeout     time.Duration
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a single markdown file",
	Long: `Translate runs the code-preserving pipeline over one local markdown file,
without touching the content database. Fenced code blocks and inline code
come through byte for byte; a failed fragment falls back to its original
text.`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&trInput, "input", "i", "", "Input markdown file (required)")
	translateCmd.Flags().StringVarP(&trOutput, "output", "o", "", "Output file (required)")
	translateCmd.Flags().StringVarP(&trSourceLang, "source", "s", "en", "Source language code")
	translateCmd.Flags().StringVarP(&trTargetLang, "target", "t", "", "Target language code (required)")
	translateCmd.Flags().StringVar(&trService, "service", "google", "Translation service (google, ollama, openrouter)")
	translateCmd.Flags().StringVarP(&trModel, "model", "m", "", "Model name for LLM services")
	translateCmd.Flags().StringVar(&trOllamaURL, "ollama-url", "", "Ollama server URL (default http://localhost:11434)")
	translateCmd.Flags().StringVar(&trORKey, "openrouter-key", "", "OpenRouter API key (or PEREPOST_OPENROUTER_KEY)")
	translateCmd.Flags().StringVarP(&trCredentials, "credentials", "c", "", "Google Cloud credentials file (or PEREPOST_GOOGLE_CREDENTIALS)")
	translateCmd.Flags().StringVarP(&trProject, "project", "p", "", "Google Cloud project ID")
	translateCmd.Flags().StringVar(&trDBPath, "db", "./data/perepost.db", "Translation memory database path")
	translateCmd.Flags().BoolVar(&trNoMemory, "no-memory", false, "Disable the translation memory")
	translateCmd.Flags().BoolVar(&trNoValidate, "no-validate", false, "Disable target-language validation of translations")
	translateCmd.Flags().IntVar(&trMaxChars, "max-chars", pipeline.DefaultMaxChars, "Maximum fragment size before chunking")
	translateCmd.Flags().DurationVar(&trTimeout, "timeout", 0, "Per-call translation timeout (0 uses the service default)")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
	translateCmd.MarkFlagRequired("target")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if trInput == trOutput {
		return fmt.Errorf("input and output must be different files")
	}

	svc, err := buildService(trService,
		trOllamaURL, trModel,
		configString(trORKey, "openrouter.key"), trModel)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(trInput)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	cfg := pipeline.Config{
		SourceLang: trSourceLang,
		TargetLang: trTargetLang,
		Service: translator.ServiceConfig{
			Credentials: configString(trCredentials, "google.credentials"),
			APIKey:      configString(trORKey, "openrouter.key"),
			Model:       trModel,
			BaseURL:     trOllamaURL,
			Timeout:     trTimeout,
			ProjectID:   trProject,
		},
		MaxChars: trMaxChars,
	}

	if !trNoMemory {
		mem, err := openStore(trDBPath)
		if err != nil {
			return err
		}
		defer mem.Close()
		cfg.Memory = mem
	}
	if !trNoValidate {
		cfg.Checker = validator.New()
	}

	text, stats := pipeline.New(svc, cfg).TranslateBody(cmd.Context(), string(body))

	if err := os.WriteFile(trOutput, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Printf("Translated %s -> %s: %d fragments (%d cached, %d degraded, %d blank)\n",
		trInput, trOutput, stats.Fragments, stats.Cached, stats.Degraded, stats.Skipped)
	return nil
}
