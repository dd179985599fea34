package ai

import (
	"errors"
	"sync"
	"time"
)

// PollInterval is how often the document thread checks for a finished
// inference.
const PollInterval = 100 * time.Millisecond

// ErrBusy is returned when an inference is already in flight.
var ErrBusy = errors.New("inference already running")

// TaskResult carries one finished inference back to the document thread.
// Gen identifies which request produced it; results from superseded
// requests are dropped by the consumer, never applied.
type TaskResult struct {
	Gen    uint64
	Output *RawOutput
	Err    error
}

// Worker runs at most one inference at a time on a background goroutine.
// The document thread submits a snapshot-closure and polls TryResult at
// PollInterval; tasks are never cancelled mid-flight.
type Worker struct {
	mu      sync.Mutex
	busy    bool
	gen     uint64
	results chan TaskResult
}

// NewWorker creates an idle worker.
func NewWorker() *Worker {
	return &Worker{results: make(chan TaskResult, 1)}
}

// Submit starts a task on the worker goroutine. The task closure must
// capture immutable snapshots only; it must not touch live document
// state. Returns the generation assigned to this request, or ErrBusy if
// a task is still in flight.
func (w *Worker) Submit(task func() (*RawOutput, error)) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return 0, ErrBusy
	}
	w.busy = true
	w.gen++
	gen := w.gen

	go func() {
		out, err := task()
		w.results <- TaskResult{Gen: gen, Output: out, Err: err}
	}()
	return gen, nil
}

// TryResult returns a finished result without blocking. The in-flight
// flag clears only when the result is consumed, so the document stays
// locked against new submissions until it has seen the outcome.
func (w *Worker) TryResult() (TaskResult, bool) {
	select {
	case r := <-w.results:
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
		return r, true
	default:
		return TaskResult{}, false
	}
}

// Busy reports whether a task is in flight or unconsumed.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Generation returns the most recently assigned request generation.
// A TaskResult with an older generation is stale.
func (w *Worker) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen
}
