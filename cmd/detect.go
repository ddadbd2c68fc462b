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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/subtran/internal/detector"
)

var detectCmd = &cobra.Command{
	Use:   "detect <text>",
	Short: "Show the detected language and translation direction of a text",
	Long: `Classify a text by character script and print the translation direction the
server would use for it, followed by the per-language character composition.

Example:
  subtran detect "引领者之星 roadmap"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		det, err := buildDetector(appCfg)
		if err != nil {
			return err
		}
		dir := det.ResolveDirection(text)

		fmt.Printf("Detected:  %s (%s)\n", dir.Detected, dir.Detected.Name())
		fmt.Printf("Direction: %s -> %s (source %s, translation %s)\n", dir.From, dir.To, dir.Source, dir.Target)

		shares := detector.Composition(text)
		if len(shares) == 0 {
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\nLANG\tNAME\tCHARS\tRATIO")
		for _, s := range shares {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", s.Lang, s.Lang.Name(), s.Count, s.Ratio)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
