package vector

import "sync/atomic"

// Holder provides atomic replacement of the serving index. Queries read the
// current index via Get; a rebuild loads a fresh index and calls Swap, so no
// in-place mutation is ever visible mid-query.
type Holder struct {
	current atomic.Pointer[indexBox]
}

// VectorIndex is an interface, so it is wrapped in a struct for atomic.Pointer.
type indexBox struct {
	index VectorIndex
}

// NewHolder creates a holder serving idx.
func NewHolder(idx VectorIndex) *Holder {
	h := &Holder{}
	h.current.Store(&indexBox{index: idx})
	return h
}

// Get returns the current serving index.
func (h *Holder) Get() VectorIndex {
	return h.current.Load().index
}

// Swap replaces the serving index and returns the previous one so the caller
// can close it once in-flight queries drain.
func (h *Holder) Swap(idx VectorIndex) VectorIndex {
	old := h.current.Swap(&indexBox{index: idx})
	return old.index
}
