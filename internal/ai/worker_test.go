package ai

import (
	"errors"
	"testing"
	"time"
)

func waitResult(t *testing.T, w *Worker) TaskResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := w.TryResult(); ok {
			return r
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no worker result before deadline")
	return TaskResult{}
}

func TestWorkerSingleFlight(t *testing.T) {
	w := NewWorker()
	release := make(chan struct{})

	gen, err := w.Submit(func() (*RawOutput, error) {
		<-release
		return &RawOutput{Kind: KindDense}, nil
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := w.Submit(func() (*RawOutput, error) { return nil, nil }); !errors.Is(err, ErrBusy) {
		t.Errorf("second submit err = %v, want ErrBusy", err)
	}

	close(release)
	r := waitResult(t, w)
	if r.Gen != gen {
		t.Errorf("result gen = %d, want %d", r.Gen, gen)
	}
	if w.Busy() {
		t.Error("worker still busy after result consumed")
	}
}

func TestWorkerStaleGenerationDetectable(t *testing.T) {
	w := NewWorker()

	gen1, _ := w.Submit(func() (*RawOutput, error) { return nil, nil })
	r1 := waitResult(t, w)

	gen2, _ := w.Submit(func() (*RawOutput, error) { return nil, nil })
	if gen2 <= gen1 {
		t.Fatalf("generation did not advance: %d then %d", gen1, gen2)
	}
	// A consumer holding r1 can now tell it is stale.
	if r1.Gen >= w.Generation() {
		t.Error("first result not detectable as stale after resubmission")
	}
	waitResult(t, w)
}

func TestWorkerPropagatesError(t *testing.T) {
	w := NewWorker()
	boom := errors.New("model exploded")
	w.Submit(func() (*RawOutput, error) { return nil, boom })

	r := waitResult(t, w)
	if !errors.Is(r.Err, boom) {
		t.Errorf("result err = %v, want %v", r.Err, boom)
	}
}

func TestDiscoverModelsMissingDir(t *testing.T) {
	c := DiscoverModels("/nonexistent/path")
	if len(c.WholeImage) != 0 || len(c.Prompted) != 0 {
		t.Error("missing dir should yield empty catalog")
	}
}
