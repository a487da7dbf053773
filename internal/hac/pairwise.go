// Package hac implements agglomerative clustering of annotation labels: a
// merge loop over a pluggable similarity model, optional merge constraints
// and a pluggable stopping criterion, with an incrementally maintained
// pairwise similarity index and a replayable merge history.
package hac

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chronolab/chronoclust/internal/annotation"
)

// ErrNoEntry is returned when looking up a label pair the index does not
// hold; there is no implicit default similarity.
var ErrNoEntry = errors.New("no entry for label pair")

// NeverMerge marks a pair that must never be proposed for merging.
var NeverMerge = math.Inf(-1)

// PairFunc computes the value stored for an ordered label pair.
type PairFunc func(a, b annotation.Label) float64

type labelPair struct {
	a, b annotation.Label
}

// PairwiseIndex is a labeled square table of per-pair values over the live
// label set. The similarity matrix and every constraint's auxiliary
// structure share this one implementation, so the "remove absorbed
// rows/columns, recompute the merged label's row/column" update routine
// exists exactly once.
//
// Diagonal entries are pinned to NeverMerge. For a symmetric PairFunc the
// value is computed once per unordered pair and mirrored.
type PairwiseIndex struct {
	fn        PairFunc
	symmetric bool
	labels    []annotation.Label // always sorted by Label.Less
	values    map[labelPair]float64
}

// NewPairwiseIndex creates an empty index over fn.
func NewPairwiseIndex(fn PairFunc, symmetric bool) *PairwiseIndex {
	return &PairwiseIndex{
		fn:        fn,
		symmetric: symmetric,
		values:    make(map[labelPair]float64),
	}
}

// Init fills the index over all pairs of the given labels. Previous content
// is discarded.
func (x *PairwiseIndex) Init(labels []annotation.Label) {
	x.labels = append(x.labels[:0], labels...)
	sort.Slice(x.labels, func(i, j int) bool { return x.labels[i].Less(x.labels[j]) })
	x.values = make(map[labelPair]float64, len(labels)*len(labels))
	for i, a := range x.labels {
		x.values[labelPair{a, a}] = NeverMerge
		for _, b := range x.labels[i+1:] {
			x.fill(a, b)
		}
	}
}

// fill computes and stores the value(s) for the unordered pair {a, b}.
func (x *PairwiseIndex) fill(a, b annotation.Label) {
	v := x.fn(a, b)
	x.values[labelPair{a, b}] = v
	if x.symmetric {
		x.values[labelPair{b, a}] = v
	} else {
		x.values[labelPair{b, a}] = x.fn(b, a)
	}
}

// Len returns the number of live labels.
func (x *PairwiseIndex) Len() int { return len(x.labels) }

// Labels returns the live labels in sorted order (shared slice; read-only).
func (x *PairwiseIndex) Labels() []annotation.Label { return x.labels }

// Get returns the value stored for (a, b), or ErrNoEntry.
func (x *PairwiseIndex) Get(a, b annotation.Label) (float64, error) {
	v, ok := x.values[labelPair{a, b}]
	if !ok {
		return 0, fmt.Errorf("%w: (%s, %s)", ErrNoEntry, a, b)
	}
	return v, nil
}

// Set overwrites the value stored for the ordered pair (a, b).
func (x *PairwiseIndex) Set(a, b annotation.Label, v float64) {
	x.values[labelPair{a, b}] = v
}

// Update applies a merge to the index: every label of merged except
// newLabel is dropped with its row and column, then newLabel's row and
// column are recomputed against all survivors. This must run in the same
// logical step as the caller's own bookkeeping so both stay in lock-step.
func (x *PairwiseIndex) Update(newLabel annotation.Label, merged []annotation.Label) {
	for _, l := range merged {
		if l == newLabel {
			continue
		}
		x.remove(l)
	}
	for _, l := range x.labels {
		if l == newLabel {
			continue
		}
		x.fill(newLabel, l)
	}
}

// remove drops a label with its row and column.
func (x *PairwiseIndex) remove(label annotation.Label) {
	i := sort.Search(len(x.labels), func(i int) bool { return !x.labels[i].Less(label) })
	if i < len(x.labels) && x.labels[i] == label {
		x.labels = append(x.labels[:i], x.labels[i+1:]...)
	}
	for p := range x.values {
		if p.a == label || p.b == label {
			delete(x.values, p)
		}
	}
}

// ArgMax returns the pair with the highest stored value. Ties break
// lexicographically on the (row, column) label pair, making the scan
// deterministic regardless of map iteration order. ok is false when the
// index holds fewer than two labels.
func (x *PairwiseIndex) ArgMax() (a, b annotation.Label, v float64, ok bool) {
	v = math.Inf(-1)
	for _, la := range x.labels {
		for _, lb := range x.labels {
			if la == lb {
				continue
			}
			cur, found := x.values[labelPair{la, lb}]
			if !found {
				continue
			}
			if cur > v || !ok {
				a, b, v, ok = la, lb, cur, true
			}
		}
	}
	return a, b, v, ok
}
