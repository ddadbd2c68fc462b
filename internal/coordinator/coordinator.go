// Package coordinator owns the display state. A single goroutine (Run)
// applies update requests, translation completions and hide-timer expiries in
// arrival order; the sequence id decides which completions still matter.
package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/dispatcher"
	"github.com/valpere/subtran/internal/glossary"
	"github.com/valpere/subtran/internal/translator"
)

// ErrStopped is returned by Submit and Snapshot once Run has exited.
var ErrStopped = errors.New("coordinator stopped")

// Sink is the rendering surface.
type Sink interface {
	SetTopText(s string)
	SetBottomText(s string)
	SetPosition(y int)
	SetColors(top, bottom string)
	SetHeight(h int)
	Show()
	Hide()
}

// Glossary is the read side of glossary.Matcher.
type Glossary interface {
	Lookup(text string) (*glossary.Entry, bool)
	FindMatches(text string, from, to detector.Lang) []glossary.Match
}

// Dispatcher is the asynchronous side of dispatcher.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, task dispatcher.Task)
	Results() <-chan dispatcher.Completion
}

type State string

const (
	Idle    State = "idle"
	Showing State = "showing"
)

// Display holds the initial visual properties and the default visibility.
type Display struct {
	YPosition   int
	Height      int
	TopColor    string
	BottomColor string
	Timeout     time.Duration
}

// Snapshot is a copy of the display state.
type Snapshot struct {
	SequenceID   uint64        `json:"sequence_id"`
	State        State         `json:"state"`
	TopText      string        `json:"top_text"`
	BottomText   string        `json:"bottom_text"`
	YPosition    int           `json:"y_position"`
	Height       int           `json:"height"`
	TopColor     string        `json:"top_color"`
	BottomColor  string        `json:"bottom_color"`
	HideDeadline time.Time     `json:"hide_deadline,omitempty"`
	From         detector.Lang `json:"from,omitempty"`
	To           detector.Lang `json:"to,omitempty"`
	Pending      bool          `json:"pending"`
	Stale        uint64        `json:"stale_discarded"`
	Failures     uint64        `json:"translation_failures"`
}

// pending describes the translation the current sequence is waiting for.
type pending struct {
	seq      uint64
	applied  []*glossary.Entry
	target   detector.Slot
	fallback string
}

type update struct {
	req   internal.UpdateRequest
	reply chan uint64
}

type Coordinator struct {
	det        *detector.Detector
	gloss      Glossary
	dispatcher Dispatcher
	sink       Sink
	display    Display
	logger     *zap.SugaredLogger

	updates chan update
	hides   chan uint64
	queries chan chan Snapshot
	done    chan struct{}

	// owned by Run
	snap    Snapshot
	current *pending
	timer   *time.Timer
	hideGen uint64
}

func New(det *detector.Detector, gloss Glossary, d Dispatcher, sink Sink, display Display, logger *zap.SugaredLogger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if display.Timeout <= 0 {
		display.Timeout = 6 * time.Second
	}
	return &Coordinator{
		det:        det,
		gloss:      gloss,
		dispatcher: d,
		sink:       sink,
		display:    display,
		logger:     logger,
		updates:    make(chan update),
		hides:      make(chan uint64),
		queries:    make(chan chan Snapshot),
		done:       make(chan struct{}),
		snap: Snapshot{
			State:       Idle,
			YPosition:   display.YPosition,
			Height:      display.Height,
			TopColor:    display.TopColor,
			BottomColor: display.BottomColor,
		},
	}
}

// Run processes events until ctx ends. It must be called exactly once.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	defer func() {
		if c.timer != nil {
			c.timer.Stop()
		}
	}()

	c.sink.SetPosition(c.snap.YPosition)
	c.sink.SetHeight(c.snap.Height)
	c.sink.SetColors(c.snap.TopColor, c.snap.BottomColor)

	results := c.dispatcher.Results()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-c.updates:
			u.reply <- c.onUpdate(ctx, u.req)
		case comp := <-results:
			c.onComplete(comp)
		case gen := <-c.hides:
			c.onHide(gen)
		case q := <-c.queries:
			q <- c.snapshot()
		}
	}
}

// Submit hands req to the loop and returns the sequence id assigned to it.
func (c *Coordinator) Submit(ctx context.Context, req internal.UpdateRequest) (uint64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	u := update{req: req, reply: make(chan uint64, 1)}
	select {
	case c.updates <- u:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-c.done:
		return 0, ErrStopped
	}
	return <-u.reply, nil
}

func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	q := make(chan Snapshot, 1)
	select {
	case c.queries <- q:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.done:
		return Snapshot{}, ErrStopped
	}
	return <-q, nil
}

func (c *Coordinator) snapshot() Snapshot {
	s := c.snap
	s.Pending = c.current != nil
	return s
}

func (c *Coordinator) onUpdate(ctx context.Context, req internal.UpdateRequest) uint64 {
	c.snap.SequenceID++
	seq := c.snap.SequenceID
	c.current = nil

	c.applyVisuals(req)

	text := req.SourceText()
	dir := c.det.ResolveDirection(text)
	c.snap.From, c.snap.To = dir.From, dir.To
	c.setSlot(dir.Source, text)

	defer c.show(req.ShowFor(c.display.Timeout))

	if req.TargetText != nil && *req.TargetText != "" {
		c.setSlot(dir.Target, *req.TargetText)
		return seq
	}
	c.setSlot(dir.Target, "")

	if strings.TrimSpace(text) == "" {
		return seq
	}

	if e, ok := c.gloss.Lookup(text); ok {
		c.logger.Infow("glossary full match", "seq", seq, "pattern", e.Pattern)
		c.setSlot(dir.Target, e.Replacement)
		return seq
	}

	inline, applied := glossary.ApplyInline(text, c.gloss.FindMatches(text, dir.From, dir.To))
	p := &pending{
		seq:      seq,
		applied:  applied,
		target:   dir.Target,
		fallback: text,
	}
	if len(applied) > 0 {
		p.fallback = inline
		c.setSlot(dir.Target, inline)
		c.logger.Debugw("glossary inline", "seq", seq, "applied", len(applied))
	}
	c.current = p

	c.logger.Debugw("direction resolved", "seq", seq, "detected", dir.Detected, "from", dir.From, "to", dir.To)
	c.dispatcher.Dispatch(ctx, dispatcher.Task{
		SequenceID: seq,
		Text:       inline,
		From:       dir.From,
		To:         dir.To,
		Applied:    applied,
	})
	return seq
}

func (c *Coordinator) onComplete(comp dispatcher.Completion) {
	seq := comp.Task.SequenceID
	if c.current == nil || seq != c.current.seq || seq != c.snap.SequenceID {
		c.snap.Stale++
		c.logger.Debugw("stale translation discarded", "seq", seq, "current", c.snap.SequenceID)
		return
	}
	p := c.current
	c.current = nil

	if comp.Err != nil {
		c.snap.Failures++
		c.logger.Warnw("translation failed, showing fallback", "seq", seq, "service", comp.Service,
			"class", translator.Class(comp.Err), "error", comp.Err)
		var apiErr *translator.APIError
		if errors.As(comp.Err, &apiErr) && apiErr.IsAuth() {
			c.logger.Errorw("translation service rejected credentials", "code", apiErr.Code, "hint", apiErr.Hint())
		}
		c.setSlot(p.target, p.fallback)
		return
	}

	c.logger.Debugw("translation complete", "seq", seq, "service", comp.Service, "latency", comp.Latency)
	c.setSlot(p.target, glossary.EnforceInResult(comp.Text, p.applied))
}

func (c *Coordinator) onHide(gen uint64) {
	if gen != c.hideGen {
		return
	}
	c.timer = nil
	c.current = nil
	c.setSlot(detector.Top, "")
	c.setSlot(detector.Bottom, "")
	c.sink.Hide()
	c.snap.State = Idle
	c.snap.HideDeadline = time.Time{}
	c.logger.Debugw("display hidden", "seq", c.snap.SequenceID)
}

func (c *Coordinator) applyVisuals(req internal.UpdateRequest) {
	if req.YPosition != nil {
		c.snap.YPosition = *req.YPosition
		c.sink.SetPosition(c.snap.YPosition)
	}
	if req.Height != nil {
		c.snap.Height = *req.Height
		c.sink.SetHeight(c.snap.Height)
	}

	colors := false
	if req.TopColor != nil && *req.TopColor != "" {
		c.snap.TopColor = *req.TopColor
		colors = true
	}
	if req.BottomColor != nil && *req.BottomColor != "" {
		c.snap.BottomColor = *req.BottomColor
		colors = true
	}
	if colors {
		c.sink.SetColors(c.snap.TopColor, c.snap.BottomColor)
	}
}

func (c *Coordinator) setSlot(slot detector.Slot, text string) {
	if slot == detector.Top {
		c.snap.TopText = text
		c.sink.SetTopText(text)
		return
	}
	c.snap.BottomText = text
	c.sink.SetBottomText(text)
}

// show makes the display visible and re-arms the hide timer. The generation
// counter invalidates a timer that already fired but was not yet handled.
func (c *Coordinator) show(d time.Duration) {
	c.sink.Show()
	c.snap.State = Showing
	c.snap.HideDeadline = time.Now().Add(d)

	if c.timer != nil {
		c.timer.Stop()
	}
	c.hideGen++
	gen := c.hideGen
	c.timer = time.AfterFunc(d, func() {
		select {
		case c.hides <- gen:
		case <-c.done:
		}
	})
}
