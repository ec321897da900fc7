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
	"path/filepath"

	"github.com/valpere/perepost/internal/store"
	"github.com/valpere/perepost/internal/translator"
)

// buildService constructs the translation service named by the CLI.
func buildService(name, ollamaURL, ollamaModel, openrouterKey, openrouterModel string) (translator.Service, error) {
	switch name {
	case "google":
		return translator.NewGoogleService(), nil
	case "ollama":
		return translator.NewOllamaService(ollamaURL, ollamaModel), nil
	case "openrouter":
		return translator.NewOpenRouterService(openrouterKey, "", openrouterModel), nil
	default:
		return nil, fmt.Errorf("unknown service: %s (expected google, ollama, or openrouter)", name)
	}
}

// openStore opens the translation memory database, creating its directory
// on first use.
func openStore(dbPath string) (*store.Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open translation memory: %w", err)
	}
	return s, nil
}
