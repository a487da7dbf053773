package timeline

import (
	"fmt"
	"math"
)

// Precision is the temporal resolution below which a segment is considered
// empty. Only emptiness and duration use this tolerance; equality and
// ordering compare start/end times exactly.
const Precision = 1e-6

// Segment is a half-open time interval [Start, End), in seconds. It is a
// value type: every operator returns a new Segment and never mutates its
// receiver.
type Segment struct {
	Start float64
	End   float64
}

// NewSegment returns the segment [start, end).
func NewSegment(start, end float64) Segment {
	return Segment{Start: start, End: end}
}

// IsEmpty reports whether the segment covers no usable time span, i.e.
// End-Start <= Precision. Degenerate and reversed segments are both empty.
func (s Segment) IsEmpty() bool {
	return s.End-s.Start <= Precision
}

// Duration returns End-Start, or 0 for an empty segment.
func (s Segment) Duration() float64 {
	if s.IsEmpty() {
		return 0
	}
	return s.End - s.Start
}

// Middle returns the segment midpoint.
func (s Segment) Middle() float64 {
	return 0.5 * (s.Start + s.End)
}

// Contains reports whether other is fully included in s.
func (s Segment) Contains(other Segment) bool {
	return s.Start <= other.Start && s.End >= other.End
}

// Intersection returns the overlap of the two segments. The result is an
// empty segment when they are disjoint; this never fails.
func (s Segment) Intersection(other Segment) Segment {
	return Segment{
		Start: math.Max(s.Start, other.Start),
		End:   math.Min(s.End, other.End),
	}
}

// Intersects reports whether the two segments share a non-empty overlap.
func (s Segment) Intersects(other Segment) bool {
	return !s.Intersection(other).IsEmpty()
}

// Union returns the shortest segment containing both operands. If either
// operand is empty the other is returned unchanged.
func (s Segment) Union(other Segment) Segment {
	if s.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return s
	}
	return Segment{
		Start: math.Min(s.Start, other.Start),
		End:   math.Max(s.End, other.End),
	}
}

// Gap returns the segment separating the two operands. The gap is empty when
// the segments overlap or touch. Gap is undefined for empty operands.
func (s Segment) Gap(other Segment) (Segment, error) {
	if s.IsEmpty() || other.IsEmpty() {
		return Segment{}, fmt.Errorf("gap of empty segment %s ^ %s", s, other)
	}
	return Segment{
		Start: math.Min(s.End, other.End),
		End:   math.Max(s.Start, other.Start),
	}, nil
}

// Shift returns the segment translated by delta seconds.
func (s Segment) Shift(delta float64) Segment {
	return Segment{Start: s.Start + delta, End: s.End + delta}
}

// ExtendEnd grows the segment by delta seconds on the end side. A negative
// delta shrinks it.
func (s Segment) ExtendEnd(delta float64) Segment {
	return Segment{Start: s.Start, End: s.End + delta}
}

// ExtendStart grows the segment by delta seconds on the start side. A
// negative delta shrinks it.
func (s Segment) ExtendStart(delta float64) Segment {
	return Segment{Start: s.Start - delta, End: s.End}
}

// Less orders segments lexicographically by (Start, End). This is the order
// maintained by a Timeline's primary view.
func (s Segment) Less(other Segment) bool {
	if s.Start != other.Start {
		return s.Start < other.Start
	}
	return s.End < other.End
}

// lessByEnd orders segments by (End asc, Start desc). A Timeline keeps a
// secondary view in this order so that "ends after t" queries are a binary
// search away.
func lessByEnd(a, b Segment) bool {
	if a.End != b.End {
		return a.End < b.End
	}
	return a.Start > b.Start
}

func (s Segment) String() string {
	if s.IsEmpty() {
		return "[]"
	}
	return fmt.Sprintf("[%g --> %g]", s.Start, s.End)
}
