package glossary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/valpere/subtran/internal/detector"
)

// Term is a glossary pair that comes from somewhere other than the glossary
// file, such as the terminology database.
type Term struct {
	Pattern     string
	Replacement string
	SourceLang  detector.Lang
	TargetLang  detector.Lang
}

// TermSource supplies additional terms merged into every load.
type TermSource interface {
	GlossaryTerms(ctx context.Context) ([]Term, error)
}

// LoaderConfig tells a Matcher where its entries come from.
type LoaderConfig struct {
	// Path is the glossary file name or path. Relative paths are tried as
	// given and then inside each of SearchDirs.
	Path       string
	SearchDirs []string
	Terms      TermSource
	Annotate   Annotator
}

// Matcher owns the active Index.
type Matcher struct {
	cfg     LoaderConfig
	logger  *zap.SugaredLogger
	current atomic.Pointer[Index]

	mu   sync.Mutex
	path string
}

// NewMatcher returns a Matcher with an empty index. Call Load to populate it.
func NewMatcher(cfg LoaderConfig, logger *zap.SugaredLogger) *Matcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &Matcher{cfg: cfg, logger: logger}
	m.current.Store(NewIndex(nil))
	return m
}

// Index returns the active index. The returned value never changes; a reload
// publishes a new one.
func (m *Matcher) Index() *Index {
	return m.current.Load()
}

// swap publishes ix and returns the index it replaced.
func (m *Matcher) swap(ix *Index) *Index {
	if ix == nil {
		ix = NewIndex(nil)
	}
	return m.current.Swap(ix)
}

func (m *Matcher) Len() int { return m.Index().Len() }

// Lookup runs the full-text shortcut against the active index.
func (m *Matcher) Lookup(text string) (*Entry, bool) {
	return m.Index().Lookup(text)
}

// Contains reports whether text, trimmed and ignoring case, is a glossary key.
func (m *Matcher) Contains(text string) bool {
	_, ok := m.Lookup(text)
	return ok
}

// FindMatches runs Index.FindMatches against the active index.
func (m *Matcher) FindMatches(text string, from, to detector.Lang) []Match {
	return m.Index().FindMatches(text, from, to)
}

// Path returns the glossary file used by the last successful load, or "".
func (m *Matcher) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Load reads the glossary file and term source and swaps in the result. A
// missing file yields an index built from the term source alone. On a read
// or term source error the active index is left untouched.
func (m *Matcher) Load(ctx context.Context) (LoadReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		report  LoadReport
		entries []*Entry
	)

	if m.cfg.Terms != nil {
		terms, err := m.cfg.Terms.GlossaryTerms(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to load glossary terms: %w", err)
		}
		for _, t := range terms {
			src, tgt := t.SourceLang, t.TargetLang
			if src == "" {
				src = annotation(m.cfg.Annotate, t.Pattern)
			}
			if tgt == "" {
				tgt = annotation(m.cfg.Annotate, t.Replacement)
			}
			e, err := NewEntry(t.Pattern, t.Replacement, src, tgt)
			if err != nil {
				m.logger.Warnw("skipping glossary term", "pattern", t.Pattern, "error", err)
				continue
			}
			entries = append(entries, e)
		}
		report.Terms = len(entries)
	}

	path, found := ResolvePath(m.cfg.Path, m.cfg.SearchDirs)
	if found {
		f, err := os.Open(path)
		if err != nil {
			return report, fmt.Errorf("failed to open glossary file: %w", err)
		}
		fileEntries, skipped, err := Parse(f, m.cfg.Annotate)
		f.Close()
		if err != nil {
			return report, err
		}
		for _, s := range skipped {
			m.logger.Warnw("skipping malformed glossary line", "path", path, "line", s.Line, "reason", s.Reason)
		}
		report.Path = path
		report.Skipped = skipped
		entries = append(entries, fileEntries...)
	} else if m.cfg.Path != "" {
		m.logger.Warnw("glossary file not found, remote translation only",
			"path", m.cfg.Path, "search_dirs", m.cfg.SearchDirs)
	}

	ix := NewIndex(entries)
	report.Entries = ix.Len()
	prev := m.swap(ix)
	m.path = report.Path

	m.logger.Infow("glossary loaded",
		"path", report.Path, "entries", report.Entries, "previous", prev.Len(),
		"terms", report.Terms, "skipped", len(report.Skipped))
	return report, nil
}

// ResolvePath returns the first existing candidate for path: as given, then
// joined with each directory in dirs.
func ResolvePath(path string, dirs []string) (string, bool) {
	if path == "" {
		return "", false
	}
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		for _, d := range dirs {
			if d != "" {
				candidates = append(candidates, filepath.Join(d, path))
			}
		}
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, true
		}
	}
	return "", false
}
