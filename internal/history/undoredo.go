package history

// UndoRedo coordinates two bounded action stacks. Recording a new action
// clears the redo side: once the timeline diverges, the abandoned branch is
// gone. The coordinator only moves actions around; applying their effects to
// the store is the caller's job.
type UndoRedo struct {
	undo *Stack[Action]
	redo *Stack[Action]
}

func NewUndoRedo(capacity int) *UndoRedo {
	return &UndoRedo{
		undo: NewStack[Action](capacity),
		redo: NewStack[Action](capacity),
	}
}

// Record registers a freshly executed action as undoable.
func (h *UndoRedo) Record(a Action) {
	h.undo.Push(a)
	h.redo.Clear()
}

// Undo moves the most recent action to the redo stack and returns it.
func (h *UndoRedo) Undo() (Action, bool) {
	a, ok := h.undo.Pop()
	if !ok {
		return Action{}, false
	}
	h.redo.Push(a)
	return a, true
}

// Redo moves the most recently undone action back to the undo stack and
// returns it.
func (h *UndoRedo) Redo() (Action, bool) {
	a, ok := h.redo.Pop()
	if !ok {
		return Action{}, false
	}
	h.undo.Push(a)
	return a, true
}

func (h *UndoRedo) CanUndo() bool { return h.undo.Len() > 0 }
func (h *UndoRedo) CanRedo() bool { return h.redo.Len() > 0 }

// UndoHistory returns up to n undoable actions, most recent first.
func (h *UndoRedo) UndoHistory(n int) []Action {
	items := h.undo.Items()
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}

// RedoHistory returns up to n redoable actions, most recent first.
func (h *UndoRedo) RedoHistory(n int) []Action {
	items := h.redo.Items()
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}

func (h *UndoRedo) Clear() {
	h.undo.Clear()
	h.redo.Clear()
}

type Depths struct {
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
	Capacity  int  `json:"capacity"`
	CanUndo   bool `json:"can_undo"`
	CanRedo   bool `json:"can_redo"`
}

func (h *UndoRedo) Summary() Depths {
	return Depths{
		UndoDepth: h.undo.Len(),
		RedoDepth: h.redo.Len(),
		Capacity:  h.undo.Cap(),
		CanUndo:   h.CanUndo(),
		CanRedo:   h.CanRedo(),
	}
}
