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
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/subtran/internal/coordinator"
	"github.com/valpere/subtran/internal/display"
	"github.com/valpere/subtran/internal/glossary"
	"github.com/valpere/subtran/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the subtitle intake server",
	Long: `Run the WebSocket/HTTP intake server together with the display coordinator.

Endpoints:
  /ws, /                 WebSocket subtitle updates
  POST /update_subtitle  HTTP subtitle update
  GET  /display          WebSocket feed of display frames for overlay clients
  GET  /status           current display state
  POST /glossary/reload  re-read the glossary
  GET  /healthz          liveness

SIGHUP reloads the glossary; SIGINT/SIGTERM shut down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		hub := display.NewHub(logger)
		sink := display.Multi{display.NewLogSink(logger), hub}
		coord := coordinator.New(det, matcher, disp, sink, appCfg.DisplayDefaults(), logger)
		srv := server.New(coord, matcher, hub, logger, server.WithTranslator(disp))

		logger.Infow("starting subtran",
			"version", version,
			"service", disp.ServiceName(),
			"primary", appCfg.Translation.PrimaryLang,
			"secondary", appCfg.Translation.SecondaryLang,
			"glossary", matcher.Path(),
			"glossary_entries", matcher.Len(),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := coord.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return srv.ListenAndServe(gctx, appCfg.Addr())
		})
		g.Go(func() error {
			reloadOnHangup(gctx, matcher)
			return nil
		})
		if appCfg.Glossary.Watch {
			g.Go(func() error {
				if err := matcher.Watch(gctx, glossary.DefaultDebounce); err != nil {
					logger.Warnw("glossary watch disabled", "error", err)
				}
				return nil
			})
		}

		err = g.Wait()
		disp.Wait()
		logger.Infow("subtran stopped")
		return err
	},
}

func reloadOnHangup(ctx context.Context, matcher *glossary.Matcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if _, err := matcher.Load(ctx); err != nil {
				logger.Errorw("glossary reload failed, keeping previous entries", "error", err)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "Listen host (overrides network.host)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides network.port)")
	serveCmd.Flags().String("service", "", "Translation service: xfyun, google, mymemory")
	serveCmd.Flags().String("glossary", "", "Glossary file (overrides glossary.path)")
}
