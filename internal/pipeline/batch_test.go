package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/patentcrawl/internal/model"
)

// mockStep is a Step whose behavior is supplied by the test.
type mockStep struct {
	name   string
	doFunc func(ctx context.Context, job *Job) error
}

func (m *mockStep) Name() string { return m.name }

func (m *mockStep) Do(ctx context.Context, job *Job) error {
	if m.doFunc == nil {
		return nil
	}
	return m.doFunc(ctx, job)
}

func patents(ids ...string) []*model.Patent {
	out := make([]*model.Patent, len(ids))
	for i, id := range ids {
		out[i] = model.NewPatent(model.Fields{ID: id}, nil, nil)
	}
	return out
}

// processAll runs the batch and returns the jobs in input order.
func processAll(ctx context.Context, bp *BatchProcessor, input []*model.Patent) ([]*Job, error) {
	jobs := make([]*Job, len(input))
	err := bp.ProcessBatchWithCallback(ctx, input, func(job *Job, index int) {
		jobs[index] = job
	})
	return jobs, err
}

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != DefaultBatchSize {
			t.Errorf("expected default concurrency %d, got %d", DefaultBatchSize, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(5))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))
		if bp.concurrency != DefaultBatchSize {
			t.Errorf("expected concurrency %d, got %d", DefaultBatchSize, bp.concurrency)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithBatchLogger(nil))
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

func TestBatchProcessorProcess(t *testing.T) {
	t.Parallel()

	t.Run("processes all patents in input order", func(t *testing.T) {
		t.Parallel()

		var processed atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "counter",
				doFunc: func(_ context.Context, _ *Job) error {
					processed.Add(1)
					return nil
				},
			})
			return p
		}, WithBatchLogger(discardLogger()))

		input := patents("1", "2", "3")
		jobs, err := processAll(context.Background(), bp, input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processed.Load())
		}
		for i, job := range jobs {
			if job.Patent != input[i] {
				t.Errorf("jobs[%d] holds patent %q, expected %q", i, job.Patent.ID, input[i].ID)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, maxSeen atomic.Int32
		var mu sync.Mutex

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "concurrent-counter",
				doFunc: func(_ context.Context, _ *Job) error {
					n := current.Add(1)
					mu.Lock()
					if n > maxSeen.Load() {
						maxSeen.Store(n)
					}
					mu.Unlock()

					time.Sleep(30 * time.Millisecond)
					current.Add(-1)
					return nil
				},
			})
			return p
		}, WithConcurrency(2), WithBatchLogger(discardLogger()))

		if _, err := processAll(context.Background(), bp, patents("1", "2", "3", "4", "5", "6", "7", "8")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxSeen.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", maxSeen.Load())
		}
	})

	t.Run("continues after a patent fails", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		var processed atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "sometimes-fails",
				doFunc: func(_ context.Context, job *Job) error {
					processed.Add(1)
					if job.Patent.ID == "2" {
						return errBoom
					}
					return nil
				},
			})
			return p
		}, WithBatchLogger(discardLogger()))

		jobs, err := processAll(context.Background(), bp, patents("1", "2", "3"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processed.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processed.Load())
		}
		if !errors.Is(jobs[1].Err, errBoom) {
			t.Errorf("expected errBoom on second job, got %v", jobs[1].Err)
		}
		if jobs[0].Failed() || jobs[2].Failed() {
			t.Error("unexpected failure on a healthy patent")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var started atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "slow-step",
				doFunc: func(ctx context.Context, _ *Job) error {
					started.Add(1)
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(time.Second):
						return nil
					}
				},
			})
			return p
		}, WithConcurrency(2), WithBatchLogger(discardLogger()))

		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		input := patents("1", "2", "3", "4", "5", "6", "7", "8", "9", "10")
		jobs, err := processAll(ctx, bp, input)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		//nolint:gosec // small slice
		if started.Load() >= int32(len(input)) {
			t.Error("expected some patents to be skipped after cancellation")
		}
		for i, job := range jobs {
			if job == nil {
				t.Errorf("jobs[%d] is nil, every index must be reported", i)
				continue
			}
			if !job.Failed() {
				t.Errorf("jobs[%d] reported success after cancellation", i)
			}
		}
	})
}

func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[int]string)

	bp := NewBatchProcessor(func() *Pipeline {
		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{name: "noop"})
		return p
	}, WithBatchLogger(discardLogger()))

	input := patents("a", "b", "c", "d")
	err := bp.ProcessBatchWithCallback(context.Background(), input, func(job *Job, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = job.Patent.ID
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != len(input) {
		t.Fatalf("callback called for %d indexes, expected %d", len(seen), len(input))
	}
	for i, p := range input {
		if seen[i] != p.ID {
			t.Errorf("index %d reported patent %q, expected %q", i, seen[i], p.ID)
		}
	}
}
