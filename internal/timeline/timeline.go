// Package timeline implements the interval algebra underpinning temporal
// annotations: segments (half-open intervals with a fixed precision) and
// timelines (deduplicated, always-sorted segment collections supporting
// coverage, partitioning, cropping and gap computation).
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSegmentNotFound is returned when deleting or indexing a segment that is
// not a member of the timeline.
var ErrSegmentNotFound = errors.New("segment not in timeline")

// ErrURIMismatch is returned when combining two timelines that annotate
// different documents.
var ErrURIMismatch = errors.New("conflicting timeline URIs")

// CropMode selects how Crop treats segments that straddle the query
// boundary.
type CropMode int

const (
	// CropStrict keeps only segments fully contained in the query.
	CropStrict CropMode = iota
	// CropLoose keeps any segment with a non-empty intersection, untrimmed.
	CropLoose
	// CropIntersection keeps intersecting segments trimmed to the query.
	CropIntersection
)

// CoverMode selects how Covers tests containment.
type CoverMode int

const (
	// CoverStrict tests against the raw segment set.
	CoverStrict CoverMode = iota
	// CoverLoose tests against the coverage instead.
	CoverLoose
)

// Timeline is an ordered collection of unique, non-empty segments. Two
// parallel views are maintained: byStart sorted by (start, end) and byEnd
// sorted by (end, -start). Both always contain exactly the same segments.
//
// A timeline may be tagged with the URI of the document it segments;
// combining timelines with conflicting URIs is an error.
type Timeline struct {
	uri     string
	byStart []Segment
	byEnd   []Segment
}

// New creates a timeline for the given document URI, populated with the
// given segments. Empty and duplicate segments are silently dropped, as
// with Add.
func New(uri string, segments ...Segment) *Timeline {
	t := &Timeline{uri: uri}
	for _, s := range segments {
		t.Add(s)
	}
	return t
}

// URI returns the annotated document identifier (may be empty).
func (t *Timeline) URI() string { return t.uri }

// Len returns the number of segments.
func (t *Timeline) Len() int { return len(t.byStart) }

// At returns the i-th segment in (start, end) order.
func (t *Timeline) At(i int) Segment { return t.byStart[i] }

// Segments returns a copy of the segments in (start, end) order.
func (t *Timeline) Segments() []Segment {
	out := make([]Segment, len(t.byStart))
	copy(out, t.byStart)
	return out
}

// searchStart returns the lower-bound insertion index of s in byStart.
func (t *Timeline) searchStart(s Segment) int {
	return sort.Search(len(t.byStart), func(i int) bool {
		return !t.byStart[i].Less(s)
	})
}

// searchEnd returns the lower-bound insertion index of s in byEnd.
func (t *Timeline) searchEnd(s Segment) int {
	return sort.Search(len(t.byEnd), func(i int) bool {
		return !lessByEnd(t.byEnd[i], s)
	})
}

// Add inserts a segment, keeping both views sorted. Adding an empty segment
// or an exact duplicate is a no-op.
func (t *Timeline) Add(s Segment) {
	if s.IsEmpty() {
		return
	}
	i := t.searchStart(s)
	if i < len(t.byStart) && t.byStart[i] == s {
		return
	}
	j := t.searchEnd(s)
	t.byStart = append(t.byStart, Segment{})
	copy(t.byStart[i+1:], t.byStart[i:])
	t.byStart[i] = s
	t.byEnd = append(t.byEnd, Segment{})
	copy(t.byEnd[j+1:], t.byEnd[j:])
	t.byEnd[j] = s
}

// AddTimeline adds every segment of other. The two timelines must annotate
// the same document; a timeline without a URI adopts the other's.
func (t *Timeline) AddTimeline(other *Timeline) error {
	if t.uri != "" && other.uri != "" && t.uri != other.uri {
		return fmt.Errorf("%w: %q vs %q", ErrURIMismatch, t.uri, other.uri)
	}
	if t.uri == "" {
		t.uri = other.uri
	}
	for _, s := range other.byStart {
		t.Add(s)
	}
	return nil
}

// Union returns a new timeline combining the segments of both operands.
func (t *Timeline) Union(other *Timeline) (*Timeline, error) {
	out := t.Copy()
	if err := out.AddTimeline(other); err != nil {
		return nil, err
	}
	return out, nil
}

// Index returns the position of s in (start, end) order, or
// ErrSegmentNotFound.
func (t *Timeline) Index(s Segment) (int, error) {
	i := t.searchStart(s)
	if i < len(t.byStart) && t.byStart[i] == s {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrSegmentNotFound, s)
}

// Contains reports whether s is a member of the timeline.
func (t *Timeline) Contains(s Segment) bool {
	_, err := t.Index(s)
	return err == nil
}

// RemoveAt deletes the i-th segment (in start order) from both views.
func (t *Timeline) RemoveAt(i int) {
	s := t.byStart[i]
	j := t.searchEnd(s)
	t.byStart = append(t.byStart[:i], t.byStart[i+1:]...)
	t.byEnd = append(t.byEnd[:j], t.byEnd[j+1:]...)
}

// Remove deletes the given segment, or returns ErrSegmentNotFound.
func (t *Timeline) Remove(s Segment) error {
	i, err := t.Index(s)
	if err != nil {
		return err
	}
	t.RemoveAt(i)
	return nil
}

// Clear removes every segment.
func (t *Timeline) Clear() {
	t.byStart = t.byStart[:0]
	t.byEnd = t.byEnd[:0]
}

// Copy returns an independent duplicate of the timeline.
func (t *Timeline) Copy() *Timeline {
	out := &Timeline{uri: t.uri}
	out.byStart = append(out.byStart, t.byStart...)
	out.byEnd = append(out.byEnd, t.byEnd...)
	return out
}

// CopyWith returns a new timeline built by applying fn to every segment.
// The results are re-sorted and re-deduplicated, so fn may shrink, grow or
// collapse segments.
func (t *Timeline) CopyWith(fn func(Segment) Segment) *Timeline {
	out := &Timeline{uri: t.uri}
	for _, s := range t.byStart {
		out.Add(fn(s))
	}
	return out
}

// Extent returns the minimal segment containing every segment of the
// timeline, or an empty segment if the timeline is empty.
func (t *Timeline) Extent() Segment {
	if len(t.byStart) == 0 {
		return Segment{}
	}
	return Segment{
		Start: t.byStart[0].Start,
		End:   t.byEnd[len(t.byEnd)-1].End,
	}
}

// Coverage merges overlapping and touching segments into the minimal set of
// disjoint segments spanning exactly the same time.
func (t *Timeline) Coverage() *Timeline {
	out := &Timeline{uri: t.uri}
	if len(t.byStart) == 0 {
		return out
	}
	running := t.byStart[0]
	for _, s := range t.byStart[1:] {
		// Timeline members are never empty, so Gap cannot fail.
		gap, _ := running.Gap(s)
		if gap.IsEmpty() {
			running = running.Union(s)
		} else {
			out.Add(running)
			running = s
		}
	}
	out.Add(running)
	return out
}

// Duration returns the total duration of the coverage.
func (t *Timeline) Duration() float64 {
	var d float64
	for _, s := range t.Coverage().byStart {
		d += s.Duration()
	}
	return d
}

// intersecting returns, in start order, the segments sharing a non-empty
// intersection with the query. Both sorted views bound the scan: byStart
// bounds segments starting before the query ends, byEnd rules the query out
// entirely when nothing ends after it starts.
func (t *Timeline) intersecting(query Segment) []Segment {
	if query.IsEmpty() {
		return nil
	}
	probe := Segment{Start: query.Start + Precision, End: query.Start + Precision}
	if t.searchEnd(probe) == len(t.byEnd) {
		return nil
	}
	hi := t.searchStart(Segment{Start: query.End - Precision, End: query.End - Precision})
	var out []Segment
	for _, s := range t.byStart[:hi] {
		if s.End-query.Start > Precision {
			out = append(out, s)
		}
	}
	return out
}

// Crop returns the sub-timeline of segments intersecting the query segment,
// under the given mode.
func (t *Timeline) Crop(query Segment, mode CropMode) *Timeline {
	out := &Timeline{uri: t.uri}
	for _, s := range t.intersecting(query) {
		switch mode {
		case CropStrict:
			if query.Contains(s) {
				out.Add(s)
			}
		case CropLoose:
			out.Add(s)
		case CropIntersection:
			out.Add(s.Intersection(query))
		default:
			panic(fmt.Sprintf("timeline: unknown crop mode %d", mode))
		}
	}
	return out
}

// CropTimeline crops against the coverage of the query timeline and unions
// the per-segment results.
func (t *Timeline) CropTimeline(query *Timeline, mode CropMode) *Timeline {
	out := &Timeline{uri: t.uri}
	for _, s := range query.Coverage().byStart {
		for _, r := range t.Crop(s, mode).byStart {
			out.Add(r)
		}
	}
	return out
}

// Intersects reports whether any segment of the timeline intersects any
// segment of other.
func (t *Timeline) Intersects(other *Timeline) bool {
	for _, s := range other.byStart {
		if len(t.intersecting(s)) > 0 {
			return true
		}
	}
	return false
}

// IsPartition reports whether the timeline is already non-overlapping, i.e.
// no segment starts strictly inside the span of an earlier one.
func (t *Timeline) IsPartition() bool {
	if len(t.byStart) == 0 {
		return true
	}
	end := t.byStart[0].End
	for _, s := range t.byStart[1:] {
		if !(Segment{Start: s.Start, End: end}).IsEmpty() {
			return false
		}
		if s.End > end {
			end = s.End
		}
	}
	return true
}

// Partition computes the maximal common refinement of the timeline: every
// segment is split at every boundary it touches, and only sub-segments
// covered by some original segment are kept.
//
// If the timeline is already a partition, a copy is returned.
//
//	input segments:
//	|------|    |------|     |----|
//	  |--|    |-----|     |----------|
//
//	partitioned:
//	|-|--|-|  |-|---|--|  |--|----|--|
func (t *Timeline) Partition() *Timeline {
	if t.IsPartition() {
		return t.Copy()
	}

	boundaries := make([]float64, 0, 2*len(t.byStart))
	for _, s := range t.byStart {
		boundaries = append(boundaries, s.Start, s.End)
	}
	sort.Float64s(boundaries)

	out := &Timeline{uri: t.uri}
	prev := boundaries[0]
	for _, b := range boundaries[1:] {
		if b == prev {
			continue
		}
		s := Segment{Start: prev, End: b}
		if t.Covers(s, CoverStrict) {
			out.Add(s)
		}
		prev = b
	}
	return out
}

// Covers reports whether the timeline covers the segment. In CoverStrict
// mode, some raw segment must contain it; in CoverLoose mode the coverage
// is used instead.
func (t *Timeline) Covers(s Segment, mode CoverMode) bool {
	if mode == CoverLoose {
		return t.Coverage().Covers(s, CoverStrict)
	}
	for _, c := range t.intersecting(s) {
		if c.Contains(s) {
			return true
		}
	}
	return false
}

// CoversTimeline reports whether every segment of other is covered.
func (t *Timeline) CoversTimeline(other *Timeline, mode CoverMode) bool {
	if mode == CoverLoose {
		return t.Coverage().CoversTimeline(other, CoverStrict)
	}
	for _, s := range other.byStart {
		if !t.Covers(s, CoverStrict) {
			return false
		}
	}
	return true
}

// Gaps returns the sub-segments of focus not covered by the timeline: the
// "not yet annotated" regions of the focus segment.
func (t *Timeline) Gaps(focus Segment) *Timeline {
	out := &Timeline{uri: t.uri}
	if focus.IsEmpty() {
		return out
	}
	end := focus.Start
	for _, s := range t.Crop(focus, CropIntersection).Coverage().byStart {
		out.Add(Segment{Start: end, End: s.Start})
		end = s.End
	}
	out.Add(Segment{Start: end, End: focus.End})
	return out
}

// GapsTimeline returns the regions of the focus timeline's coverage not
// covered by the timeline.
func (t *Timeline) GapsTimeline(focus *Timeline) *Timeline {
	out := &Timeline{uri: t.uri}
	for _, s := range focus.Coverage().byStart {
		for _, g := range t.Gaps(s).byStart {
			out.Add(g)
		}
	}
	return out
}

// Complement returns the gaps of the timeline within its own extent.
func (t *Timeline) Complement() *Timeline {
	return t.Gaps(t.Extent())
}

// Equal reports whether both timelines contain exactly the same segments.
// Iteration order is always sorted order, so element-wise comparison is set
// comparison.
func (t *Timeline) Equal(other *Timeline) bool {
	if len(t.byStart) != len(other.byStart) {
		return false
	}
	for i, s := range t.byStart {
		if s != other.byStart[i] {
			return false
		}
	}
	return true
}

func (t *Timeline) String() string {
	var b strings.Builder
	b.WriteString("[\n")
	for _, s := range t.byStart {
		fmt.Fprintf(&b, "   %s\n", s)
	}
	b.WriteString("]")
	return b.String()
}
