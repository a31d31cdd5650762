// Package merger folds per-file word sets into the global word set of a run.
package merger

import (
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/metrics"
)

// Reducer owns the global WordSet and is its only mutator. Each Reduce call
// is applied as a unit: no other merge interleaves with it.
type Reducer struct {
	mu      sync.Mutex
	global  *index.WordSet
	frozen  bool
	merged  int
	metrics *metrics.Metrics
}

// New returns a Reducer over an empty global WordSet. m may be nil.
func New(m *metrics.Metrics) *Reducer {
	return &Reducer{global: index.NewWordSet(), metrics: m}
}

// Reduce adds every count in partial to the global set. Calls may come from
// any goroutine in any order. After Freeze it returns ErrFrozen and changes
// nothing.
func (r *Reducer) Reduce(partial *index.WordSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("reduce after freeze: %w", apperrors.ErrFrozen)
	}
	partial.Range(func(word string, count uint64) bool {
		r.global.Increment(word, count)
		return true
	})
	r.merged++
	if r.metrics != nil {
		r.metrics.ReductionsTotal.Inc()
	}
	return nil
}

// Freeze ends accumulation and returns the global set. The caller must not
// mutate it. Freeze is idempotent.
func (r *Reducer) Freeze() *index.WordSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frozen {
		r.frozen = true
		if r.metrics != nil {
			r.metrics.DistinctWords.Set(float64(r.global.Len()))
		}
	}
	return r.global
}

// Merged reports how many partial sets have been reduced.
func (r *Reducer) Merged() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merged
}
