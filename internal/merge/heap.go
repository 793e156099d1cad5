package merge

import "UniqSort/internal/analysis"

// entry is a heap element: the current token of cursor src.
type entry struct {
	tok analysis.Token
	src int
}

// entryHeap is a min-heap of entries ordered by token, then by cursor
// position so that equal tokens pop in chunk order.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].tok != h[j].tok {
		return h[i].tok < h[j].tok
	}
	return h[i].src < h[j].src
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
