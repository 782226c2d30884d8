package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestProcess_Success(t *testing.T) {
	t.Parallel()

	var sum int64
	err := Process(context.Background(), 3, []int{1, 2, 3, 4, 5}, func(_ context.Context, v int) error {
		atomic.AddInt64(&sum, int64(v))
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if sum != 15 {
		t.Fatalf("expected sum 15, got %d", sum)
	}
}

func TestProcess_ErrorCancelsAndCallsOnCancel(t *testing.T) {
	t.Parallel()

	var canceled int32
	boom := errors.New("boom")
	err := Process(context.Background(), 2, []int{1, 2, 3, 4}, func(_ context.Context, v int) error {
		if v == 2 {
			return boom
		}
		return nil
	}, func() {
		atomic.AddInt32(&canceled, 1)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected onCancel once, got %d", canceled)
	}
}

func TestProcess_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Process(ctx, 2, []int{1, 2}, func(context.Context, int) error {
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProcess_EmptyItems(t *testing.T) {
	t.Parallel()

	err := Process(context.Background(), 4, nil, func(context.Context, int) error {
		return errors.New("must not run")
	}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
}
