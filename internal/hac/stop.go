package hac

import (
	"github.com/chronolab/chronoclust/internal/annotation"
)

// StopCriterion decides when the merge loop halts and owns the final
// rewrite of the result. Exactly one criterion is active per engine.
//
// Stop is consulted with the candidate pair's similarity before the merge
// happens; Update runs after every completed merge.
type StopCriterion interface {
	Init()
	Update(it Iteration)
	Stop(similarity float64) bool
	Finalize(ann *annotation.Annotation, hist *History) *annotation.Annotation
}

// NegativeStop halts once the best available similarity drops below zero.
// This is the natural criterion for ΔBIC-style similarities, where a
// negative value means the merge worsens the criterion. The final
// annotation is the current state, smoothed.
type NegativeStop struct{}

// Init implements StopCriterion.
func (NegativeStop) Init() {}

// Update implements StopCriterion.
func (NegativeStop) Update(Iteration) {}

// Stop halts on a negative candidate similarity.
func (NegativeStop) Stop(similarity float64) bool { return similarity < 0 }

// Finalize returns the current annotation with adjacent same-label
// segments coalesced.
func (NegativeStop) Finalize(ann *annotation.Annotation, _ *History) *annotation.Annotation {
	return ann.Smooth()
}

// ThresholdStop halts once the best available similarity drops below a
// fixed threshold.
type ThresholdStop struct {
	Threshold float64
}

// Init implements StopCriterion.
func (ThresholdStop) Init() {}

// Update implements StopCriterion.
func (ThresholdStop) Update(Iteration) {}

// Stop halts below the threshold.
func (s ThresholdStop) Stop(similarity float64) bool { return similarity < s.Threshold }

// Finalize returns the current annotation, smoothed.
func (ThresholdStop) Finalize(ann *annotation.Annotation, _ *History) *annotation.Annotation {
	return ann.Smooth()
}

// PeakStop tracks a per-iteration statistic and lets clustering run to
// exhaustion, then rolls the result back to the iteration where the
// statistic peaked. The statistic defaults to the merge similarity itself.
//
// Ratio additionally allows early halting: once a candidate similarity
// falls below Ratio times the tracked maximum the loop stops. Ratio <= 0
// disables early halting.
type PeakStop struct {
	Ratio     float64
	Statistic func(it Iteration) float64

	values []float64
	max    float64
	seen   bool
}

// Init implements StopCriterion.
func (s *PeakStop) Init() {
	s.values = s.values[:0]
	s.max = 0
	s.seen = false
}

// Update records the statistic of the completed iteration.
func (s *PeakStop) Update(it Iteration) {
	v := it.Similarity
	if s.Statistic != nil {
		v = s.Statistic(it)
	}
	s.values = append(s.values, v)
	if !s.seen || v > s.max {
		s.max = v
		s.seen = true
	}
}

// Stop halts once the candidate similarity falls below Ratio·max.
func (s *PeakStop) Stop(similarity float64) bool {
	if s.Ratio <= 0 || !s.seen {
		return false
	}
	return similarity < s.Ratio*s.max
}

// Finalize replays history up to the iteration with the best statistic,
// discarding later merges, and smooths the result.
func (s *PeakStop) Finalize(ann *annotation.Annotation, hist *History) *annotation.Annotation {
	if !s.seen || hist == nil {
		return ann.Smooth()
	}
	best := 0
	for i, v := range s.values {
		if v > s.values[best] {
			best = i
		}
	}
	rolled, err := hist.AnnotationAt(best + 1)
	if err != nil {
		return ann.Smooth()
	}
	return rolled.Smooth()
}
