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
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/subtran/internal/coordinator"
	"github.com/valpere/subtran/internal/translator"
)

var translateVerbose bool

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate one fragment the way the server would",
	Long: `Run the full pipeline once and print the result: glossary full-text shortcut,
inline glossary substitution, remote translation, glossary enforcement, and the
fallback text when the remote call fails.

Example:
  subtran translate "Leader Star roadmap"
  subtran translate --service mymemory "你好世界"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		ctx := context.Background()

		det, err := buildDetector(appCfg)
		if err != nil {
			return err
		}

		matcher, closeDB, err := buildMatcher(ctx, appCfg, det)
		if err != nil {
			return err
		}
		defer closeDB()

		disp, err := buildDispatcher(appCfg)
		if err != nil {
			return err
		}

		out := coordinator.Translate(ctx, det, matcher, disp, text)

		if translateVerbose {
			fmt.Fprintf(os.Stderr, "Direction: %s -> %s\n", out.Direction.From, out.Direction.To)
			switch {
			case out.Shortcut:
				fmt.Fprintln(os.Stderr, "Source: glossary (no remote call)")
			case out.Service != "":
				fmt.Fprintf(os.Stderr, "Source: %s, glossary terms applied: %d\n", out.Service, len(out.Applied))
			}
		}
		if out.Err != nil {
			fmt.Fprintf(os.Stderr, "Translation failed (%s), showing fallback: %v\n", translator.Class(out.Err), out.Err)
		}

		fmt.Println(out.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().BoolVarP(&translateVerbose, "verbose", "v", false, "Print direction and result source to stderr")
	translateCmd.Flags().String("service", "", "Translation service: xfyun, google, mymemory")
}
