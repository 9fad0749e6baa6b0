package firing

import "container/heap"

// idHeap is a min-heap of handles, so worklists pop the lowest ready
// handle first and traversal order never depends on insertion order.
type idHeap struct{ ids []ID }

func (h *idHeap) Len() int           { return len(h.ids) }
func (h *idHeap) Less(i, j int) bool { return h.ids[i] < h.ids[j] }
func (h *idHeap) Swap(i, j int)      { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *idHeap) Push(x any)         { h.ids = append(h.ids, x.(ID)) }

func (h *idHeap) Pop() any {
	n := len(h.ids)
	x := h.ids[n-1]
	h.ids = h.ids[:n-1]
	return x
}

func (h *idHeap) push(id ID) { heap.Push(h, id) }
func (h *idHeap) pop() ID    { return heap.Pop(h).(ID) }
