package hac

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chronolab/chronoclust/internal/annotation"
)

// Iteration records one completed merge: which labels merged, at what
// similarity, and which label survived.
type Iteration struct {
	Merged     []annotation.Label
	Similarity float64
	NewLabel   annotation.Label
}

func (it Iteration) String() string {
	return fmt.Sprintf("%v -> %s (s=%g)", it.Merged, it.NewLabel, it.Similarity)
}

// History is the append-only merge log of one clustering run, together with
// a snapshot of the initial annotation so any intermediate state can be
// reconstructed by replaying relabelings.
type History struct {
	runID      uuid.UUID
	initial    *annotation.Annotation
	iterations []Iteration
}

// NewHistory snapshots the initial annotation and assigns a run identity.
func NewHistory(initial *annotation.Annotation) *History {
	return &History{
		runID:   uuid.New(),
		initial: initial.Copy(),
	}
}

// RunID identifies this clustering run.
func (h *History) RunID() uuid.UUID { return h.runID }

// Len returns the number of recorded iterations.
func (h *History) Len() int { return len(h.iterations) }

// Iterations returns a copy of the merge log in chronological order.
func (h *History) Iterations() []Iteration {
	out := make([]Iteration, len(h.iterations))
	copy(out, h.iterations)
	return out
}

// Add appends a completed iteration. Iterations are immutable once
// appended.
func (h *History) Add(it Iteration) {
	merged := make([]annotation.Label, len(it.Merged))
	copy(merged, it.Merged)
	it.Merged = merged
	h.iterations = append(h.iterations, it)
}

// AnnotationAt reconstructs the annotation state after the first n
// iterations by replaying their relabelings on the initial snapshot.
func (h *History) AnnotationAt(n int) (*annotation.Annotation, error) {
	if n < 0 || n > len(h.iterations) {
		return nil, fmt.Errorf("history has %d iterations, requested %d", len(h.iterations), n)
	}
	ann := h.initial.Copy()
	for _, it := range h.iterations[:n] {
		translation := make(map[annotation.Label]annotation.Label, len(it.Merged))
		for _, l := range it.Merged {
			translation[l] = it.NewLabel
		}
		ann = ann.Relabel(translation)
	}
	return ann, nil
}
