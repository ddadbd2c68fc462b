package glossary

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/valpere/subtran/internal/detector"
)

const (
	fullWidthComma = "，"
	asciiComma     = ","
)

// Annotator infers the language of a glossary key or value. It reports false
// when the text should be left unannotated.
type Annotator func(text string) (detector.Lang, bool)

// LineError describes a glossary line that was skipped.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// LoadReport summarises one glossary load.
type LoadReport struct {
	Path    string
	Entries int
	Terms   int
	Skipped []LineError
}

// Parse reads "key，value" lines. Blank lines and lines starting with '#' are
// ignored; a full-width comma takes precedence over an ASCII one. Malformed
// lines are reported and skipped.
func Parse(r io.Reader, annotate Annotator) ([]*Entry, []LineError, error) {
	var (
		entries []*Entry
		skipped []LineError
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := splitLine(line)
		if !ok {
			skipped = append(skipped, LineError{Line: lineNo, Text: line, Reason: "missing separator"})
			continue
		}
		if key == "" || value == "" {
			skipped = append(skipped, LineError{Line: lineNo, Text: line, Reason: "empty key or value"})
			continue
		}

		entry, err := NewEntry(key, value, annotation(annotate, key), annotation(annotate, value))
		if err != nil {
			skipped = append(skipped, LineError{Line: lineNo, Text: line, Reason: err.Error()})
			continue
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read glossary: %w", err)
	}
	return entries, skipped, nil
}

func splitLine(line string) (string, string, bool) {
	sep := ""
	switch {
	case strings.Contains(line, fullWidthComma):
		sep = fullWidthComma
	case strings.Contains(line, asciiComma):
		sep = asciiComma
	default:
		return "", "", false
	}
	key, value, _ := strings.Cut(line, sep)
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

func annotation(annotate Annotator, text string) detector.Lang {
	if annotate == nil {
		return ""
	}
	if l, ok := annotate(text); ok {
		return l
	}
	return ""
}
