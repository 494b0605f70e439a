package timer

import (
	"container/heap"
	"time"
)

// entry is one scheduled callback.
type entry struct {
	handle Handle
	due    time.Duration
	seq    uint64
	fn     func()
	index  int
}

// entryHeap implements a min-heap of callbacks ordered by due time, then by
// scheduling order so equal deadlines fire first-in first-out.
type entryHeap []*entry

func (h entryHeap) Len() int {
	return len(h)
}

func (h entryHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // Avoid memory leak
	e.index = -1
	*h = old[0 : n-1]
	return e
}

// Peek returns the entry with the earliest deadline without removing it.
func (h *entryHeap) Peek() *entry {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// popDue removes and returns the earliest entry if it is due at now.
func (h *entryHeap) popDue(now time.Duration) *entry {
	e := h.Peek()
	if e == nil || e.due > now {
		return nil
	}
	return heap.Pop(h).(*entry)
}
