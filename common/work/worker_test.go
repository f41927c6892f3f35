package work

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		name            string
		numWorkers      int
		taskChannelSize int
		expectError     bool
	}{
		{"valid pool", 5, 10, false},
		{"zero workers", 0, 10, true},
		{"negative workers", -1, 10, true},
		{"negative channel size", 5, -1, true},
		{"zero channel size", 5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewWorkerPool[string](tt.numWorkers, tt.taskChannelSize)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if pool == nil {
				t.Error("Expected pool but got nil")
			}
		})
	}
}

func TestWorkerPoolBasicOperation(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](2, 5)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "test-pool")
	defer pool.Stop()

	var executedCount int64
	task, err := NewTask[string](
		func(ctx context.Context) (string, error) {
			atomic.AddInt64(&executedCount, 1)
			return "test result", nil
		},
		WithTimeout[string](5*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-pool.Results():
		if !result.IsSuccess() {
			t.Errorf("Task failed: %v", result.Error)
		}
		if result.Result != "test result" {
			t.Errorf("Expected 'test result', got '%s'", result.Result)
		}
		if atomic.LoadInt64(&executedCount) != 1 {
			t.Errorf("Expected 1 execution, got %d", executedCount)
		}
	case <-time.After(3 * time.Second):
		t.Error("Timeout waiting for result")
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[int](3, 10)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "concurrency-test-pool")
	defer pool.Stop()

	const numTasks = 10
	var completedTasks int64

	for i := 0; i < numTasks; i++ {
		taskNum := i
		task, err := NewTask[int](
			func(ctx context.Context) (int, error) {
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt64(&completedTasks, 1)
				return taskNum * 2, nil
			},
			WithTimeout[int](5*time.Second),
		)
		if err != nil {
			t.Fatal(err)
		}
		if err := pool.AddTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	results := make([]int, 0, numTasks)
	for i := 0; i < numTasks; i++ {
		select {
		case result := <-pool.Results():
			if !result.IsSuccess() {
				t.Errorf("Task failed: %v", result.Error)
			} else {
				results = append(results, result.Result)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for results")
		}
	}

	if len(results) != numTasks {
		t.Errorf("Expected %d results, got %d", numTasks, len(results))
	}
	if atomic.LoadInt64(&completedTasks) != numTasks {
		t.Errorf("Expected %d completed tasks, got %d", numTasks, completedTasks)
	}
}

func TestWorkerPoolErrorHandling(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[struct{}](1, 2)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "error-test-pool")
	defer pool.Stop()

	wantErr := errors.New("boom")
	var handlerCalled int64
	task, err := NewTask[struct{}](
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, wantErr
		},
		WithErrorHandler[struct{}](func(err error) {
			atomic.AddInt64(&handlerCalled, 1)
		}),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-pool.Results():
		if result.IsSuccess() {
			t.Error("Expected failure result")
		}
		if !errors.Is(result.Error, wantErr) {
			t.Errorf("Expected %v, got %v", wantErr, result.Error)
		}
		if atomic.LoadInt64(&handlerCalled) != 1 {
			t.Errorf("Expected error handler to run once, ran %d times", handlerCalled)
		}
	case <-time.After(3 * time.Second):
		t.Error("Timeout waiting for result")
	}
}

func TestWorkerPoolAddAfterStop(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[int](1, 1)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "stopped-pool")
	pool.Stop()

	task := MustNewTask[int](func(ctx context.Context) (int, error) {
		return 1, nil
	})

	if err := pool.AddTask(ctx, task); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped, got %v", err)
	}
}

func TestWorkerPoolTaskTimeout(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPoolWithConfig[int](PoolConfig{
		NumWorkers:      1,
		TaskChannelSize: 1,
		TaskTimeout:     50 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "timeout-pool")
	defer pool.Stop()

	task := MustNewTask[int](func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 1, nil
		}
	})

	if err := pool.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-pool.Results():
		if !errors.Is(result.Error, ErrTaskTimeout) {
			t.Errorf("Expected ErrTaskTimeout, got %v", result.Error)
		}
	case <-time.After(3 * time.Second):
		t.Error("Timeout waiting for result")
	}
}

// A result buffer sized to the task count must retain every result even when
// the consumer stalls past the bounded-send window, otherwise a receive loop
// expecting one result per task blocks forever.
func TestWorkerPoolSizedBufferRetainsAllResults(t *testing.T) {
	ctx := context.Background()
	const numTasks = 8

	pool, err := NewWorkerPoolWithConfig[int](PoolConfig{
		NumWorkers:      4,
		TaskChannelSize: numTasks,
		ResultChanSize:  numTasks,
	})
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "sized-buffer-pool")
	defer pool.Stop()

	for i := 0; i < numTasks; i++ {
		taskNum := i
		task := MustNewTask[int](func(ctx context.Context) (int, error) {
			return taskNum, nil
		})
		if err := pool.AddTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	// Stall longer than the 1s bounded result send.
	time.Sleep(1500 * time.Millisecond)

	received := 0
	for received < numTasks {
		select {
		case result := <-pool.Results():
			if !result.IsSuccess() {
				t.Errorf("Task failed: %v", result.Error)
			}
			received++
		case <-time.After(3 * time.Second):
			t.Fatalf("Expected %d results, got %d before timing out", numTasks, received)
		}
	}
}
