package glossary

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor produces on save.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the glossary whenever its file is written, created, renamed
// or removed, until ctx is done. The containing directory is watched so that
// editors which replace the file on save are followed. Watch blocks.
func (m *Matcher) Watch(ctx context.Context, debounce time.Duration) error {
	path := m.Path()
	if path == "" {
		if p, ok := ResolvePath(m.cfg.Path, m.cfg.SearchDirs); ok {
			path = p
		} else {
			path = m.cfg.Path
		}
	}
	if path == "" {
		return fmt.Errorf("no glossary path to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve glossary path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	m.logger.Infow("watching glossary file", "path", abs)

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			if _, err := m.Load(ctx); err != nil {
				m.logger.Errorw("glossary reload failed, keeping previous entries", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Warnw("glossary watcher error", "error", err)
		}
	}
}
