// Package glossary holds the literal phrase overrides consulted before, and
// instead of, the remote translator.
//
// An Index is immutable once built. The Matcher publishes the active Index
// through an atomic pointer, so a reload swaps the whole set in one step and
// readers keep whichever version they started with.
package glossary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/valpere/subtran/internal/detector"
)

// Entry maps a literal pattern to its replacement. An empty SourceLang or
// TargetLang means the entry applies in either direction.
type Entry struct {
	Pattern     string
	Replacement string
	SourceLang  detector.Lang
	TargetLang  detector.Lang

	match   *regexp.Regexp
	enforce *regexp.Regexp
}

// NewEntry compiles the case-insensitive matchers for an entry.
func NewEntry(pattern, replacement string, sourceLang, targetLang detector.Lang) (*Entry, error) {
	pattern = norm.NFC.String(strings.TrimSpace(pattern))
	replacement = norm.NFC.String(strings.TrimSpace(replacement))
	if pattern == "" || replacement == "" {
		return nil, fmt.Errorf("glossary entry needs both pattern and replacement")
	}
	return &Entry{
		Pattern:     pattern,
		Replacement: replacement,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		match:       regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern)),
		enforce:     regexp.MustCompile("(?i)" + regexp.QuoteMeta(replacement)),
	}, nil
}

// Key returns the lookup key of a text: trimmed, NFC-normalised, lower-cased.
func Key(text string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(text)))
}

func (e *Entry) appliesTo(from, to detector.Lang) bool {
	if from != "" && e.SourceLang != "" && e.SourceLang != from {
		return false
	}
	if to != "" && e.TargetLang != "" && e.TargetLang != to {
		return false
	}
	return true
}

// Index is a read-only set of entries keyed by Key(pattern).
type Index struct {
	byKey   map[string]*Entry
	ordered []*Entry
}

// NewIndex builds an index; on duplicate keys the later entry wins.
func NewIndex(entries []*Entry) *Index {
	byKey := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		byKey[Key(e.Pattern)] = e
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]*Entry, len(keys))
	for i, k := range keys {
		ordered[i] = byKey[k]
	}
	return &Index{byKey: byKey, ordered: ordered}
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ordered)
}

// Entries returns the entries ordered by key.
func (ix *Index) Entries() []*Entry {
	if ix == nil {
		return nil
	}
	return append([]*Entry(nil), ix.ordered...)
}

// Lookup is the full-text shortcut: it reports the entry whose pattern equals
// the whole of text, ignoring case and surrounding whitespace.
func (ix *Index) Lookup(text string) (*Entry, bool) {
	if ix == nil {
		return nil, false
	}
	key := Key(text)
	if key == "" {
		return nil, false
	}
	e, ok := ix.byKey[key]
	return e, ok
}

// Match is one occurrence of an entry's pattern in a text, as byte offsets.
type Match struct {
	Start int
	End   int
	Entry *Entry
}

// FindMatches returns every occurrence of every entry applicable to the
// from/to direction, ordered by start offset with longer matches first on
// equal starts. Empty from or to disables that side of the filter. Offsets
// index the NFC form of text.
func (ix *Index) FindMatches(text string, from, to detector.Lang) []Match {
	if ix.Len() == 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	text = norm.NFC.String(text)

	var matches []Match
	for _, e := range ix.ordered {
		if !e.appliesTo(from, to) {
			continue
		}
		for _, loc := range e.match.FindAllStringIndex(text, -1) {
			matches = append(matches, Match{Start: loc[0], End: loc[1], Entry: e})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End-matches[i].Start > matches[j].End-matches[j].Start
	})
	return matches
}

// ApplyInline splices replacements into text for the leftmost-longest,
// non-overlapping subset of matches, which must be ordered as FindMatches
// returns them for the same text. It returns the new text, in NFC form, and
// the entries actually applied.
func ApplyInline(text string, matches []Match) (string, []*Entry) {
	if len(matches) == 0 {
		return text, nil
	}
	text = norm.NFC.String(text)

	var (
		b       strings.Builder
		applied []*Entry
		last    int
	)
	for _, m := range matches {
		if m.Start < last {
			continue
		}
		b.WriteString(text[last:m.Start])
		b.WriteString(m.Entry.Replacement)
		last = m.End
		applied = append(applied, m.Entry)
	}
	b.WriteString(text[last:])
	return b.String(), applied
}

// EnforceInResult rewrites every case variant of an applied entry's
// replacement in a remote translation to its canonical spelling.
func EnforceInResult(result string, applied []*Entry) string {
	if result == "" || len(applied) == 0 {
		return result
	}
	result = norm.NFC.String(result)
	for _, e := range applied {
		if e == nil || e.enforce == nil {
			continue
		}
		result = e.enforce.ReplaceAllLiteralString(result, e.Replacement)
	}
	return result
}
