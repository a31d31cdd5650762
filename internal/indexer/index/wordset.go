// Package index holds the word-count mapping shared by the per-file indexer,
// the reducer and the ranker.
package index

import "strings"

// WordSet maps lower-cased words to their occurrence counts. It is not safe
// for concurrent mutation; the reducer serialises access to the global set.
type WordSet struct {
	counts map[string]uint64
}

func NewWordSet() *WordSet {
	return &WordSet{
		counts: make(map[string]uint64),
	}
}

// Increment case-folds word and adds amount to its count, inserting the word
// when it is new.
func (w *WordSet) Increment(word string, amount uint64) {
	w.counts[strings.ToLower(word)] += amount
}

// Get returns the count for word, case-folded the same way as Increment.
func (w *WordSet) Get(word string) uint64 {
	return w.counts[strings.ToLower(word)]
}

// Len returns the number of distinct words.
func (w *WordSet) Len() int {
	return len(w.counts)
}

// Total returns the sum of all counts.
func (w *WordSet) Total() uint64 {
	var total uint64
	for _, c := range w.counts {
		total += c
	}
	return total
}

// Range calls fn for every (word, count) pair in unspecified order until fn
// returns false.
func (w *WordSet) Range(fn func(word string, count uint64) bool) {
	for word, count := range w.counts {
		if !fn(word, count) {
			return
		}
	}
}
