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
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/subtran/internal/config"
	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/glossary"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the terminology glossary",
	Long: `Add, list, import and delete glossary terms stored in the glossary database,
and check glossary files.

Database terms are merged with the glossary file whenever the server loads it;
on duplicate keys the file wins. A glossary file holds one "key，value" pair per
line (full-width or ASCII comma); blank lines and lines starting with # are ignored.`,
}

func glossaryDBPath() string {
	if appCfg.Glossary.DB != "" {
		return appCfg.Glossary.DB
	}
	return config.DefaultGlossaryDB
}

func parseLangFlag(name, value string) (detector.Lang, error) {
	if value == "" {
		return "", nil
	}
	l, ok := detector.Parse(value)
	if !ok {
		return "", fmt.Errorf("--%s: unsupported language code %q", name, value)
	}
	return l, nil
}

var (
	glossaryListSource string
	glossaryListTarget string
)

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all glossary database entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(glossaryDBPath())
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListGlossaryTerms(context.Background(), glossaryListSource, glossaryListTarget)
		if err != nil {
			return fmt.Errorf("failed to list glossary: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("Glossary is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE LANG\tTARGET LANG\tSOURCE TERM\tTARGET TERM")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.ID, orAny(e.SourceLang), orAny(e.TargetLang), e.SourceTerm, e.TargetTerm)
		}
		return w.Flush()
	},
}

func orAny(lang string) string {
	if lang == "" {
		return "*"
	}
	return lang
}

var (
	glossaryAddSource string
	glossaryAddTarget string
)

var glossaryAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or update a glossary entry",
	Long: `Add a glossary entry mapping a term to its pinned translation. Without
--source/--target the entry applies in both directions.

Example:
  subtran glossary add "Leader Star" "引领者之星" --source en --target cn`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := parseLangFlag("source", glossaryAddSource)
		if err != nil {
			return err
		}
		tgt, err := parseLangFlag("target", glossaryAddTarget)
		if err != nil {
			return err
		}

		db, err := openStore(glossaryDBPath())
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.AddGlossaryTerm(context.Background(), string(src), string(tgt), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to add glossary entry: %w", err)
		}
		fmt.Printf("Added %s: [%s→%s] %q → %q\n", id, orAny(string(src)), orAny(string(tgt)), args[0], args[1])
		return nil
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary entry by ID",
	Long: `Delete a glossary entry by its ID (shown in "subtran glossary list").

Example:
  subtran glossary delete gl_1234567890123456789`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(glossaryDBPath())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteGlossaryTerm(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete glossary entry: %w", err)
		}
		fmt.Printf("Deleted glossary entry: %s\n", args[0])
		return nil
	},
}

// parseGlossaryFile reads a glossary file, annotating entries with the
// configured language pair.
func parseGlossaryFile(path string) ([]*glossary.Entry, []glossary.LineError, error) {
	det, err := buildDetector(appCfg)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open glossary file: %w", err)
	}
	defer f.Close()
	return glossary.Parse(f, det.PairLang)
}

func printSkipped(skipped []glossary.LineError) {
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "  skipped %s\n", s.Error())
	}
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a glossary file into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, skipped, err := parseGlossaryFile(args[0])
		if err != nil {
			return err
		}

		terms := make([]glossary.Term, 0, len(entries))
		for _, e := range entries {
			terms = append(terms, glossary.Term{
				Pattern:     e.Pattern,
				Replacement: e.Replacement,
				SourceLang:  e.SourceLang,
				TargetLang:  e.TargetLang,
			})
		}

		db, err := openStore(glossaryDBPath())
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ImportGlossaryTerms(context.Background(), terms)
		if err != nil {
			return fmt.Errorf("failed to import glossary: %w", err)
		}
		fmt.Printf("Imported %d entries from %s (%d lines skipped)\n", n, args[0], len(skipped))
		printSkipped(skipped)
		return nil
	},
}

var glossaryCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Parse a glossary file and report its entries and skipped lines",
	Long: `Parse a glossary file without loading it into a server. Without an argument
the configured glossary path is resolved the same way the server resolves it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			p, ok := glossary.ResolvePath(appCfg.Glossary.Path, appCfg.Glossary.SearchPaths)
			if !ok {
				return fmt.Errorf("glossary file %q not found in %v", appCfg.Glossary.Path, appCfg.Glossary.SearchPaths)
			}
			path = p
		}

		entries, skipped, err := parseGlossaryFile(path)
		if err != nil {
			return err
		}
		ix := glossary.NewIndex(entries)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PATTERN\tREPLACEMENT\tSOURCE LANG\tTARGET LANG")
		for _, e := range ix.Entries() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Pattern, e.Replacement, orAny(string(e.SourceLang)), orAny(string(e.TargetLang)))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\n%s: %d entries (%d duplicates collapsed), %d lines skipped\n",
			path, ix.Len(), len(entries)-ix.Len(), len(skipped))
		printSkipped(skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryCmd.PersistentFlags().String("db", "", "Glossary database path (overrides glossary.db, default "+config.DefaultGlossaryDB+")")

	glossaryListCmd.Flags().StringVarP(&glossaryListSource, "source", "s", "", "Filter by source language code (e.g. en)")
	glossaryListCmd.Flags().StringVarP(&glossaryListTarget, "target", "t", "", "Filter by target language code (e.g. cn)")

	glossaryAddCmd.Flags().StringVarP(&glossaryAddSource, "source", "s", "", "Source language code (e.g. en)")
	glossaryAddCmd.Flags().StringVarP(&glossaryAddTarget, "target", "t", "", "Target language code (e.g. cn)")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
	glossaryCmd.AddCommand(glossaryImportCmd)
	glossaryCmd.AddCommand(glossaryCheckCmd)
}
