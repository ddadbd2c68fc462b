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
	"path/filepath"

	"github.com/valpere/subtran/internal/config"
	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/dispatcher"
	"github.com/valpere/subtran/internal/glossary"
	"github.com/valpere/subtran/internal/store"
	"github.com/valpere/subtran/internal/translator"
	"github.com/valpere/subtran/internal/validator"
)

// buildService constructs the configured translation service.
func buildService(cfg config.Config) (translator.TranslationService, error) {
	timeout := cfg.Translation.Timeout
	switch cfg.Translation.Service {
	case "xfyun":
		xc := cfg.Xfyun
		xc.Timeout = timeout
		return translator.NewXfyunService(xc), nil
	case "google":
		gc := cfg.Google
		gc.Timeout = timeout
		return translator.NewGoogleService(gc), nil
	case "mymemory":
		return translator.NewMyMemoryService(cfg.MyMemory.Email, timeout), nil
	default:
		return nil, fmt.Errorf("unknown service: %s", cfg.Translation.Service)
	}
}

func buildDetector(cfg config.Config) (*detector.Detector, error) {
	dc, err := cfg.DetectorConfig()
	if err != nil {
		return nil, err
	}
	return detector.New(dc)
}

// buildDispatcher wires the service into a dispatcher, adding result
// validation when enabled.
func buildDispatcher(cfg config.Config) (*dispatcher.Dispatcher, error) {
	svc, err := buildService(cfg)
	if err != nil {
		return nil, err
	}
	if err := svc.IsAvailable(context.Background()); err != nil {
		logger.Warnw("translation service not ready, failures will fall back to source text",
			"service", svc.Name(), "error", err)
	}

	var opts []dispatcher.Option
	if cfg.Translation.ValidateResults {
		opts = append(opts, dispatcher.WithChecker(validator.New()))
	}
	return dispatcher.New(svc, cfg.DispatcherConfig(), logger, opts...), nil
}

// openStore opens the glossary database, creating its directory.
func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// buildMatcher loads the glossary file, merged with the glossary database when
// one is configured. The returned close func releases the database.
func buildMatcher(ctx context.Context, cfg config.Config, det *detector.Detector) (*glossary.Matcher, func(), error) {
	lc := glossary.LoaderConfig{
		Path:       cfg.Glossary.Path,
		SearchDirs: cfg.Glossary.SearchPaths,
		Annotate:   det.PairLang,
	}
	closeFn := func() {}
	if cfg.Glossary.DB != "" {
		db, err := openStore(cfg.Glossary.DB)
		if err != nil {
			return nil, nil, err
		}
		lc.Terms = db
		closeFn = func() { db.Close() }
	}

	m := glossary.NewMatcher(lc, logger)
	if _, err := m.Load(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to load glossary: %w", err)
	}
	return m, closeFn, nil
}
