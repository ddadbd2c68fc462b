package coordinator

import (
	"context"
	"strings"

	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/dispatcher"
	"github.com/valpere/subtran/internal/glossary"
)

// Executor runs a task synchronously.
type Executor interface {
	Execute(ctx context.Context, task dispatcher.Task) dispatcher.Completion
}

// Outcome is the result of a one-shot translation.
type Outcome struct {
	Text      string
	Direction detector.Direction
	Applied   []*glossary.Entry
	Shortcut  bool
	Fallback  bool
	Service   string
	Err       error
}

// Translate runs the same pipeline as an update without a display: full-text
// glossary shortcut, inline substitution, remote call, enforcement, and the
// fallback text when the call fails. Err is informational. Blank input is
// returned unchanged.
func Translate(ctx context.Context, det *detector.Detector, gloss Glossary, exec Executor, text string) Outcome {
	out := Outcome{Direction: det.ResolveDirection(text)}
	if strings.TrimSpace(text) == "" {
		out.Text = text
		return out
	}

	if e, ok := gloss.Lookup(text); ok {
		out.Text = e.Replacement
		out.Shortcut = true
		return out
	}

	inline, applied := glossary.ApplyInline(text, gloss.FindMatches(text, out.Direction.From, out.Direction.To))
	out.Applied = applied

	comp := exec.Execute(ctx, dispatcher.Task{
		Text:    inline,
		From:    out.Direction.From,
		To:      out.Direction.To,
		Applied: applied,
	})
	out.Service = comp.Service
	if comp.Err != nil {
		out.Err = comp.Err
		out.Fallback = true
		out.Text = text
		if len(applied) > 0 {
			out.Text = inline
		}
		return out
	}

	out.Text = glossary.EnforceInResult(comp.Text, applied)
	return out
}
