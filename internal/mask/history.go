package mask

// HistoryDepth is the maximum number of undo snapshots retained.
const HistoryDepth = 20

// History is a bounded undo/redo stack of mask snapshots. The top of the
// undo stack always mirrors the current working mask.
type History struct {
	undo []*Mask
	redo []*Mask
}

// NewHistory creates a history seeded with the initial mask state.
func NewHistory(initial *Mask) *History {
	return &History{undo: []*Mask{initial.Clone()}}
}

// Push records a new snapshot after a semantic mutation and clears the
// redo stack. The oldest snapshot is dropped once the depth limit is hit.
func (h *History) Push(m *Mask) {
	h.undo = append(h.undo, m.Clone())
	if len(h.undo) > HistoryDepth {
		h.undo = h.undo[1:]
	}
	h.redo = h.redo[:0]
}

// Undo steps back one snapshot and returns a copy of the restored state.
// It reports false when already at the oldest retained snapshot.
func (h *History) Undo() (*Mask, bool) {
	if len(h.undo) < 2 {
		return nil, false
	}
	top := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, top)
	return h.undo[len(h.undo)-1].Clone(), true
}

// Redo reapplies the most recently undone snapshot, returning a copy.
func (h *History) Redo() (*Mask, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	top := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, top)
	return top.Clone(), true
}

// CanUndo reports whether an older snapshot is available.
func (h *History) CanUndo() bool { return len(h.undo) >= 2 }

// CanRedo reports whether an undone snapshot is available.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the number of retained undo snapshots.
func (h *History) Depth() int { return len(h.undo) }
