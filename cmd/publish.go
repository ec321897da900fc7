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
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/perepost/internal/images"
	"github.com/valpere/perepost/internal/markdown"
	"github.com/valpere/perepost/internal/pipeline"
	"github.com/valpere/perepost/internal/publisher"
	"github.com/valpere/perepost/internal/source"
	"github.com/valpere/perepost/internal/translator"
	"github.com/valpere/perepost/internal/validator"
)

var (
	pubDatabase    string
	pubToken       string
	pubBaseURL     string
	pubOut         string
	pubSourceLang  string
	pubTargetLang  string
	pubService     string
	pubModel       string
	pubOllamaURL   string
	pubORKey       string
	pubCredentials string
	pubProject     string
	pubDBPath      string
	pubNoMemory    bool
	pubNoValidate  bool
	pubImages      bool
	pubMaxChars    int
	pubTimeout     time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish ready documents in two languages",
	Long: `Publish queries the content database for records whose status is Ready,
renders each one to markdown, writes the source-language artifact, translates
the title and body, writes the target-language artifact, and marks the record
Published.

A failure inside one document never aborts the run; a failed fragment
translation falls back to the original text so publication always completes.`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&pubDatabase, "database", "d", "", "Content database ID (or PEREPOST_SOURCE_DATABASE)")
	publishCmd.Flags().StringVar(&pubToken, "token", "", "Content store API token (or PEREPOST_SOURCE_TOKEN)")
	publishCmd.Flags().StringVar(&pubBaseURL, "base-url", "", "Content store base URL (default the hosted API)")
	publishCmd.Flags().StringVarP(&pubOut, "out", "o", "content", "Output directory; one subdirectory per language")
	publishCmd.Flags().StringVarP(&pubSourceLang, "source", "s", "en", "Source language code")
	publishCmd.Flags().StringVarP(&pubTargetLang, "target", "t", "", "Target language code (required)")
	publishCmd.Flags().StringVar(&pubService, "service", "google", "Translation service (google, ollama, openrouter)")
	publishCmd.Flags().StringVarP(&pubModel, "model", "m", "", "Model name for LLM services")
	publishCmd.Flags().StringVar(&pubOllamaURL, "ollama-url", "", "Ollama server URL (default http://localhost:11434)")
	publishCmd.Flags().StringVar(&pubORKey, "openrouter-key", "", "OpenRouter API key (or PEREPOST_OPENROUTER_KEY)")
	publishCmd.Flags().StringVarP(&pubCredentials, "credentials", "c", "", "Google Cloud credentials file (or PEREPOST_GOOGLE_CREDENTIALS)")
	publishCmd.Flags().StringVarP(&pubProject, "project", "p", "", "Google Cloud project ID")
	publishCmd.Flags().StringVar(&pubDBPath, "db", "./data/perepost.db", "Translation memory database path")
	publishCmd.Flags().BoolVar(&pubNoMemory, "no-memory", false, "Disable the translation memory")
	publishCmd.Flags().BoolVar(&pubNoValidate, "no-validate", false, "Disable target-language validation of translations")
	publishCmd.Flags().BoolVar(&pubImages, "download-images", false, "Download images and rewrite their URLs to local paths")
	publishCmd.Flags().IntVar(&pubMaxChars, "max-chars", pipeline.DefaultMaxChars, "Maximum fragment size before chunking")
	publishCmd.Flags().DurationVar(&pubTimeout, "timeout", 0, "Per-call translation timeout (0 uses the service default)")

	publishCmd.MarkFlagRequired("target")
}

func runPublish(cmd *cobra.Command, args []string) error {
	token := configString(pubToken, "source.token")
	database := configString(pubDatabase, "source.database")
	if token == "" {
		return fmt.Errorf("content store token is required (--token, PEREPOST_SOURCE_TOKEN, or source.token in the config file)")
	}
	if database == "" {
		return fmt.Errorf("content database ID is required (--database, PEREPOST_SOURCE_DATABASE, or source.database in the config file)")
	}

	svc, err := buildService(pubService,
		pubOllamaURL, pubModel,
		configString(pubORKey, "openrouter.key"), pubModel)
	if err != nil {
		return err
	}

	src := source.NewClient(source.Config{
		BaseURL:    pubBaseURL,
		Token:      token,
		DatabaseID: database,
	})

	pipeCfg := pipeline.Config{
		SourceLang: pubSourceLang,
		TargetLang: pubTargetLang,
		Service: translator.ServiceConfig{
			Credentials: configString(pubCredentials, "google.credentials"),
			APIKey:      configString(pubORKey, "openrouter.key"),
			Model:       pubModel,
			BaseURL:     pubOllamaURL,
			Timeout:     pubTimeout,
			ProjectID:   pubProject,
		},
		MaxChars: pubMaxChars,
	}

	pubCfg := publisher.Config{
		Source:     src,
		OutDir:     pubOut,
		SourceLang: pubSourceLang,
		TargetLang: pubTargetLang,
	}

	if !pubNoMemory {
		mem, err := openStore(pubDBPath)
		if err != nil {
			return err
		}
		defer mem.Close()
		pipeCfg.Memory = mem
		pubCfg.PublishLog = mem
	}

	if !pubNoValidate {
		pipeCfg.Checker = validator.New()
	}

	if pubImages {
		dl := images.New(filepath.Join(pubOut, "images"))
		pubCfg.Images = markdown.ImageRewriter(dl.Rewrite)
	}

	pubCfg.Pipeline = pipeline.New(svc, pipeCfg)

	stats, err := publisher.New(pubCfg).Run(cmd.Context())
	if err != nil {
		return err
	}
	return reportRun(cmd.OutOrStdout(), stats)
}

// reportRun prints the run summary. Per-document failures are already
// logged by the publisher and do not fail the run; only a failed record
// fetch produces a non-zero exit.
func reportRun(w io.Writer, stats publisher.RunStats) error {
	fmt.Fprintf(w, "Done: %d ready, %d published, %d skipped, %d failed, %d degraded fragments\n",
		stats.Selected, stats.Published, stats.Skipped, stats.Failed, stats.Degraded)
	return nil
}
