package hac

import (
	"github.com/chronolab/chronoclust/internal/annotation"
	"github.com/chronolab/chronoclust/internal/timeline"
)

// Constraint decides whether a candidate pair of clusters may merge.
// Constraints compose by logical AND: the engine only merges a pair that
// every active constraint accepts. Rejection is normal control flow, never
// an error.
//
// Each constraint maintains its own pairwise structure and mirrors the
// similarity matrix's lifecycle: Init once over all starting labels, then
// one Update per merge.
type Constraint interface {
	Init(ann *annotation.Annotation)
	Update(newLabel annotation.Label, merged []annotation.Label, ann *annotation.Annotation)
	Mergeable(a, b annotation.Label) bool
}

// Contiguity allows a merge only when the two clusters' coverages, extended
// by half the tolerance on each side, intersect. With Tolerance 0 the
// clusters must touch.
type Contiguity struct {
	Tolerance float64

	ann *annotation.Annotation
	idx *PairwiseIndex
}

// NewContiguity returns a contiguity constraint with the given tolerance in
// seconds.
func NewContiguity(tolerance float64) *Contiguity {
	return &Contiguity{Tolerance: tolerance}
}

// extended returns the label's coverage grown by half the tolerance on both
// sides. The extra Precision makes exactly-touching coverages count as
// contiguous at tolerance 0.
func (c *Contiguity) extended(label annotation.Label) *timeline.Timeline {
	half := 0.5*c.Tolerance + timeline.Precision
	return c.ann.LabelCoverage(label).CopyWith(func(s timeline.Segment) timeline.Segment {
		return s.ExtendStart(half).ExtendEnd(half)
	})
}

func (c *Contiguity) contiguous(a, b annotation.Label) float64 {
	if c.extended(a).Intersects(c.extended(b)) {
		return 1
	}
	return 0
}

// Init builds the contiguity table over all starting labels.
func (c *Contiguity) Init(ann *annotation.Annotation) {
	c.ann = ann
	c.idx = NewPairwiseIndex(c.contiguous, true)
	c.idx.Init(ann.Labels())
}

// Update mirrors a merge into the contiguity table.
func (c *Contiguity) Update(newLabel annotation.Label, merged []annotation.Label, ann *annotation.Annotation) {
	c.ann = ann
	c.idx.Update(newLabel, merged)
}

// Mergeable reports whether the two clusters are contiguous. Unknown pairs
// are not mergeable.
func (c *Contiguity) Mergeable(a, b annotation.Label) bool {
	v, err := c.idx.Get(a, b)
	return err == nil && v > 0
}

// NoCooccurrence forbids merging clusters whose coverages overlap in time:
// two labels active simultaneously (e.g. two speakers talking over each
// other) cannot be the same cluster.
type NoCooccurrence struct {
	ann *annotation.Annotation
	idx *PairwiseIndex
}

// NewNoCooccurrence returns the structural non-cooccurrence constraint.
func NewNoCooccurrence() *NoCooccurrence {
	return &NoCooccurrence{}
}

func (c *NoCooccurrence) disjoint(a, b annotation.Label) float64 {
	if c.ann.LabelCoverage(a).Intersects(c.ann.LabelCoverage(b)) {
		return 0
	}
	return 1
}

// Init builds the cooccurrence table over all starting labels.
func (c *NoCooccurrence) Init(ann *annotation.Annotation) {
	c.ann = ann
	c.idx = NewPairwiseIndex(c.disjoint, true)
	c.idx.Init(ann.Labels())
}

// Update mirrors a merge into the cooccurrence table.
func (c *NoCooccurrence) Update(newLabel annotation.Label, merged []annotation.Label, ann *annotation.Annotation) {
	c.ann = ann
	c.idx.Update(newLabel, merged)
}

// Mergeable reports whether the two clusters never cooccur.
func (c *NoCooccurrence) Mergeable(a, b annotation.Label) bool {
	v, err := c.idx.Get(a, b)
	return err == nil && v > 0
}
