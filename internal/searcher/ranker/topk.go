package ranker

import "container/heap"

// topK keeps the k best docs seen so far. The heap root is the worst kept
// doc, so each offer costs O(log k).
type topK struct {
	k int
	h scoredDocHeap
}

func newTopK(k int) *topK {
	return &topK{k: k, h: make(scoredDocHeap, 0, k+1)}
}

func (t *topK) Offer(d ScoredDoc) {
	if t.h.Len() < t.k {
		heap.Push(&t.h, d)
		return
	}
	if better(d, t.h[0]) {
		t.h[0] = d
		heap.Fix(&t.h, 0)
	}
}

// Sorted drains the heap best first.
func (t *topK) Sorted() []ScoredDoc {
	out := make([]ScoredDoc, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(ScoredDoc)
	}
	return out
}

type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
