// Package dispatcher runs remote translation calls off the caller's goroutine
// and reports each outcome, tagged with the sequence id it was issued for.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/glossary"
	"github.com/valpere/subtran/internal/translator"
)

type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	MaxInFlight int64
}

// Task is one remote translation request. Text is what gets sent to the
// service; Applied are the glossary entries already spliced into it.
type Task struct {
	SequenceID uint64
	Text       string
	From       detector.Lang
	To         detector.Lang
	Applied    []*glossary.Entry
}

// Completion is the outcome of a Task. Exactly one of Text and Err is set.
type Completion struct {
	Task    Task
	Text    string
	Service string
	Latency time.Duration
	Err     error
}

// Checker reports whether text is in the expected language.
type Checker interface {
	IsValid(text string, target detector.Lang) (bool, error)
}

type Option func(*Dispatcher)

// WithChecker validates successful results. A failed check is logged and the
// result is still delivered.
func WithChecker(c Checker) Option {
	return func(d *Dispatcher) { d.checker = c }
}

type Dispatcher struct {
	service  translator.TranslationService
	config   Config
	sem      *semaphore.Weighted
	results  chan Completion
	checker  Checker
	logger   *zap.SugaredLogger
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

func New(service translator.TranslationService, config Config, logger *zap.SugaredLogger, opts ...Option) *Dispatcher {
	if config.Timeout <= 0 {
		config.Timeout = translator.DefaultTimeout
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.MaxInFlight < 1 {
		config.MaxInFlight = 8
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	d := &Dispatcher{
		service: service,
		config:  config,
		sem:     semaphore.NewWeighted(config.MaxInFlight),
		results: make(chan Completion, config.MaxInFlight),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Results delivers completions in the order they finish, which need not be
// the order they were dispatched.
func (d *Dispatcher) Results() <-chan Completion {
	return d.results
}

// InFlight reports the number of dispatched tasks not yet delivered.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// ServiceName names the backing translation service.
func (d *Dispatcher) ServiceName() string {
	return d.service.Name()
}

// Dispatch starts task in its own goroutine and returns immediately. The
// completion is sent on Results unless ctx ends first.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task) {
	d.wg.Add(1)
	d.inFlight.Add(1)

	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)

		if err := d.sem.Acquire(ctx, 1); err != nil {
			return
		}
		c := d.Execute(ctx, task)
		d.sem.Release(1)

		select {
		case d.results <- c:
		case <-ctx.Done():
		}
	}()
}

// Wait blocks until every dispatched task has delivered or given up.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Execute runs task synchronously, retrying transient failures up to
// MaxAttempts. It never panics and never returns an empty Text without Err.
func (d *Dispatcher) Execute(ctx context.Context, task Task) Completion {
	c := Completion{Task: task, Service: d.service.Name()}
	start := time.Now()
	defer func() { c.Latency = time.Since(start) }()

	d.logger.Debugw("dispatch", "seq", task.SequenceID, "service", c.Service,
		"from", task.From, "to", task.To, "glossary_applied", len(task.Applied))

	var err error
	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		var text string
		text, err = d.attempt(ctx, task)
		if err == nil {
			c.Text = text
			d.check(task, text)
			return c
		}

		d.logger.Warnw("translation attempt failed", "seq", task.SequenceID, "service", c.Service,
			"attempt", attempt, "class", translator.Class(err), "error", err)

		if translator.IsAuth(err) || attempt == d.config.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			c.Err = ctx.Err()
			return c
		case <-time.After(d.config.RetryDelay):
		}
	}

	c.Err = err
	return c
}

func (d *Dispatcher) attempt(ctx context.Context, task Task) (text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = &translator.TransportError{Service: d.service.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	res, err := d.service.Translate(ctx, translator.TranslateRequest{
		Text:       task.Text,
		SourceLang: task.From,
		TargetLang: task.To,
	})
	if err != nil {
		return "", err
	}
	if res == nil || strings.TrimSpace(res.TranslatedText) == "" {
		return "", fmt.Errorf("%s: %w", d.service.Name(), translator.ErrEmptyResult)
	}
	if res.Error != "" {
		return "", &translator.TransportError{Service: res.ServiceName, Err: errors.New(res.Error)}
	}
	return res.TranslatedText, nil
}

func (d *Dispatcher) check(task Task, text string) {
	if d.checker == nil {
		return
	}
	if ok, err := d.checker.IsValid(text, task.To); !ok {
		d.logger.Warnw("translation language mismatch", "seq", task.SequenceID, "to", task.To, "error", err)
	}
}
