// Package ranker selects the most frequent words from a frozen WordSet.
package ranker

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer/index"
)

const DefaultK = 10

// TopK returns the min(k, ws.Len()) entries with the highest counts, in
// descending count order. Equal counts are ordered by ascending word, so
// the result does not depend on map iteration order. A non-positive k
// selects DefaultK. k has no upper bound; memory is bounded by ws.Len().
func TopK(ws *index.WordSet, k int) []index.Entry {
	if k <= 0 {
		k = DefaultK
	}
	h := make(entryHeap, 0, min(k, ws.Len())+1)
	ws.Range(func(word string, count uint64) bool {
		e := index.Entry{Word: word, Count: count}
		if h.Len() < k {
			heap.Push(&h, e)
		} else if outranks(e, h[0]) {
			h[0] = e
			heap.Fix(&h, 0)
		}
		return true
	})
	result := make([]index.Entry, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(index.Entry)
	}
	return result
}

// Shortfall reports how many of the k requested places could not be filled
// from n distinct words.
func Shortfall(k, n int) int {
	if n >= k {
		return 0
	}
	return k - n
}

func outranks(a, b index.Entry) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Word < b.Word
}

// entryHeap is a min-heap on rank: the root is the weakest entry kept.
type entryHeap []index.Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool { return outranks(h[j], h[i]) }

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(index.Entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
