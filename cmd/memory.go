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
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var memDBPath string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage the translation memory",
	Long: `Memory works with the SQLite translation memory that publish and translate
consult before calling a translation service. Entries are keyed by the
normalized fragment text and the language pair.`,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered fragment translations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(memDBPath)
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.ListFragments(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list fragments: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("Translation memory is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LANGS\tUSES\tLAST USED\tSOURCE\tTRANSLATION")
		for _, f := range entries {
			fmt.Fprintf(w, "%s->%s\t%d\t%s\t%s\t%s\n",
				f.SourceLang, f.TargetLang, f.UsageCount,
				f.LastUsed.Format("2006-01-02 15:04"),
				truncate(f.SourceText, 40), truncate(f.TranslatedText, 40))
		}
		return w.Flush()
	},
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(memDBPath)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}

		fmt.Printf("Fragments:         %d\n", stats.Fragments)
		fmt.Printf("Total lookups:     %d\n", stats.TotalUsage)
		fmt.Printf("Recorded publishes: %d\n", stats.Publishes)
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all remembered fragment translations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(memDBPath)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.ClearFragments(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear memory: %w", err)
		}
		fmt.Printf("Deleted %d fragment(s).\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryListCmd, memoryStatsCmd, memoryClearCmd)

	memoryCmd.PersistentFlags().StringVar(&memDBPath, "db", "./data/perepost.db", "Translation memory database path")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
