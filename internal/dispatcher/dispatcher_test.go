package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/translator"
)

type mockService struct {
	nameVal       string
	translateFunc func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error)
	callCount     atomic.Int32
}

func (m *mockService) Name() string { return m.nameVal }

func (m *mockService) Translate(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	m.callCount.Add(1)
	if m.translateFunc != nil {
		return m.translateFunc(ctx, req)
	}
	return &translator.ServiceResult{ServiceName: m.nameVal, TranslatedText: "mock result"}, nil
}

func (m *mockService) IsAvailable(ctx context.Context) error { return nil }

type mockChecker struct {
	calls atomic.Int32
}

func (c *mockChecker) IsValid(text string, target detector.Lang) (bool, error) {
	c.calls.Add(1)
	return false, errors.New("mismatch")
}

func task(seq uint64) Task {
	return Task{SequenceID: seq, Text: "你好", From: detector.Chinese, To: detector.English}
}

func receive(t *testing.T, d *Dispatcher) Completion {
	t.Helper()
	select {
	case c := <-d.Results():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
		return Completion{}
	}
}

func TestDispatcher_Execute_Success(t *testing.T) {
	svc := &mockService{nameVal: "mock"}
	d := New(svc, Config{Timeout: time.Second}, nil)

	c := d.Execute(context.Background(), task(1))
	if c.Err != nil {
		t.Fatalf("unexpected error: %v", c.Err)
	}
	if c.Text != "mock result" || c.Service != "mock" || c.Task.SequenceID != 1 {
		t.Errorf("unexpected completion %+v", c)
	}
}

func TestDispatcher_Execute_Failures(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error)
		class string
	}{
		{
			name: "transport",
			fn: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
				return &translator.ServiceResult{}, &translator.TransportError{Service: "mock", Err: errors.New("reset")}
			},
			class: "transport",
		},
		{
			name: "empty result",
			fn: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
				return &translator.ServiceResult{TranslatedText: " "}, nil
			},
			class: "empty",
		},
		{
			name: "nil result",
			fn: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
				return nil, nil
			},
			class: "empty",
		},
		{
			name: "panic",
			fn: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
				panic("boom")
			},
			class: "transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{nameVal: "mock", translateFunc: tt.fn}
			d := New(svc, Config{Timeout: time.Second}, nil)

			c := d.Execute(context.Background(), task(1))
			if c.Err == nil {
				t.Fatal("expected error")
			}
			if c.Text != "" {
				t.Errorf("expected no text on failure, got %q", c.Text)
			}
			if got := translator.Class(c.Err); got != tt.class {
				t.Errorf("expected class %q, got %q", tt.class, got)
			}
		})
	}
}

func TestDispatcher_Execute_Retries(t *testing.T) {
	svc := &mockService{nameVal: "mock"}
	svc.translateFunc = func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
		if svc.callCount.Load() < 3 {
			return nil, &translator.TransportError{Service: "mock", Err: errors.New("timeout")}
		}
		return &translator.ServiceResult{TranslatedText: "third time"}, nil
	}
	d := New(svc, Config{Timeout: time.Second, MaxAttempts: 3, RetryDelay: time.Millisecond}, nil)

	c := d.Execute(context.Background(), task(1))
	if c.Err != nil {
		t.Fatalf("unexpected error: %v", c.Err)
	}
	if c.Text != "third time" {
		t.Errorf("expected retry result, got %q", c.Text)
	}
	if svc.callCount.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", svc.callCount.Load())
	}
}

func TestDispatcher_Execute_AuthNotRetried(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return nil, &translator.APIError{Service: "mock", Code: 10014}
		},
	}
	d := New(svc, Config{Timeout: time.Second, MaxAttempts: 5, RetryDelay: time.Millisecond}, nil)

	c := d.Execute(context.Background(), task(1))
	if !translator.IsAuth(c.Err) {
		t.Errorf("expected auth error, got %v", c.Err)
	}
	if svc.callCount.Load() != 1 {
		t.Errorf("expected 1 call, got %d", svc.callCount.Load())
	}
}

func TestDispatcher_Execute_Timeout(t *testing.T) {
	svc := &mockService{
		nameVal: "slow",
		translateFunc: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			<-ctx.Done()
			return nil, &translator.TransportError{Service: "slow", Err: ctx.Err()}
		},
	}
	d := New(svc, Config{Timeout: 20 * time.Millisecond}, nil)

	c := d.Execute(context.Background(), task(1))
	if !errors.Is(c.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", c.Err)
	}
}

func TestDispatcher_Dispatch_DoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			<-release
			return &translator.ServiceResult{TranslatedText: req.Text + "!"}, nil
		},
	}
	d := New(svc, Config{Timeout: time.Second, MaxInFlight: 2}, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		for i := uint64(1); i <= 3; i++ {
			d.Dispatch(ctx, Task{SequenceID: i, Text: "t"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked the caller")
	}
	if d.InFlight() != 3 {
		t.Errorf("expected 3 in flight, got %d", d.InFlight())
	}

	close(release)
	seen := map[uint64]bool{}
	for i := 0; i < 3; i++ {
		c := receive(t, d)
		if c.Err != nil || c.Text != "t!" {
			t.Errorf("unexpected completion %+v", c)
		}
		seen[c.Task.SequenceID] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct sequence ids, got %v", seen)
	}

	d.Wait()
	if d.InFlight() != 0 {
		t.Errorf("expected 0 in flight, got %d", d.InFlight())
	}
}

func TestDispatcher_Dispatch_OutOfOrder(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			if req.Text == "slow" {
				time.Sleep(50 * time.Millisecond)
			}
			return &translator.ServiceResult{TranslatedText: req.Text}, nil
		},
	}
	d := New(svc, Config{Timeout: time.Second}, nil)
	ctx := context.Background()

	d.Dispatch(ctx, Task{SequenceID: 1, Text: "slow"})
	d.Dispatch(ctx, Task{SequenceID: 2, Text: "fast"})

	first := receive(t, d)
	second := receive(t, d)
	if first.Task.SequenceID != 2 || second.Task.SequenceID != 1 {
		t.Errorf("expected completions 2 then 1, got %d then %d", first.Task.SequenceID, second.Task.SequenceID)
	}
}

func TestDispatcher_Dispatch_ContextCancelled(t *testing.T) {
	svc := &mockService{nameVal: "mock"}
	d := New(svc, Config{Timeout: time.Second, MaxInFlight: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, task(1))
	d.Wait()

	if d.InFlight() != 0 {
		t.Errorf("expected 0 in flight, got %d", d.InFlight())
	}
}

func TestDispatcher_Checker(t *testing.T) {
	svc := &mockService{nameVal: "mock"}
	checker := &mockChecker{}
	d := New(svc, Config{Timeout: time.Second}, nil, WithChecker(checker))

	c := d.Execute(context.Background(), task(1))
	if c.Err != nil || c.Text != "mock result" {
		t.Errorf("mismatch must not drop the result, got %+v", c)
	}
	if checker.calls.Load() != 1 {
		t.Errorf("expected checker to run once, got %d", checker.calls.Load())
	}
}
