package mask

import "testing"

func TestUndoRestoresPreviousState(t *testing.T) {
	m := New(10, 10)
	h := NewHistory(m)

	m2 := m.Clone()
	m2.Set(3, 3, 255)
	h.Push(m2)

	restored, ok := h.Undo()
	if !ok {
		t.Fatal("undo reported no history")
	}
	if !restored.Equal(m) {
		t.Error("undo did not restore the original mask")
	}
}

func TestUndoAtOldestIsNoOp(t *testing.T) {
	h := NewHistory(New(4, 4))
	if _, ok := h.Undo(); ok {
		t.Error("undo succeeded with only the initial snapshot")
	}
	if h.CanUndo() {
		t.Error("CanUndo true with only the initial snapshot")
	}
}

func TestRedoRoundTrip(t *testing.T) {
	a := New(8, 8)
	b := a.Clone()
	b.Set(1, 1, 200)

	h := NewHistory(a)
	h.Push(b)

	if _, ok := h.Undo(); !ok {
		t.Fatal("undo failed")
	}
	redone, ok := h.Redo()
	if !ok {
		t.Fatal("redo failed after undo")
	}
	if !redone.Equal(b) {
		t.Error("redo did not restore the undone state")
	}
}

func TestPushClearsRedo(t *testing.T) {
	a := New(8, 8)
	h := NewHistory(a)

	b := a.Clone()
	b.Set(0, 0, 255)
	h.Push(b)
	h.Undo()

	c := a.Clone()
	c.Set(2, 2, 100)
	h.Push(c)

	if h.CanRedo() {
		t.Error("redo stack survived a new push")
	}
}

func TestHistoryDepthBounded(t *testing.T) {
	h := NewHistory(New(4, 4))
	for i := 0; i < HistoryDepth*2; i++ {
		m := New(4, 4)
		m.Set(0, 0, uint8(i+1))
		h.Push(m)
	}
	if h.Depth() != HistoryDepth {
		t.Errorf("depth = %d, want %d", h.Depth(), HistoryDepth)
	}

	// Walk back as far as allowed; must stop without error.
	steps := 0
	for {
		if _, ok := h.Undo(); !ok {
			break
		}
		steps++
	}
	if steps != HistoryDepth-1 {
		t.Errorf("undo steps = %d, want %d", steps, HistoryDepth-1)
	}
}
