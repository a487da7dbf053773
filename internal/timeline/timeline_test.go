package timeline

import (
	"errors"
	"math/rand"
	"testing"
)

// checkViews verifies the core invariant: both sorted views hold exactly the
// same segment set.
func checkViews(t *testing.T, tl *Timeline) {
	t.Helper()
	if len(tl.byStart) != len(tl.byEnd) {
		t.Fatalf("view sizes differ: byStart=%d byEnd=%d", len(tl.byStart), len(tl.byEnd))
	}
	set := make(map[Segment]bool, len(tl.byStart))
	for _, s := range tl.byStart {
		if set[s] {
			t.Fatalf("duplicate segment %s in byStart", s)
		}
		set[s] = true
	}
	for _, s := range tl.byEnd {
		if !set[s] {
			t.Fatalf("segment %s in byEnd but not in byStart", s)
		}
	}
	for i := 1; i < len(tl.byStart); i++ {
		if tl.byStart[i].Less(tl.byStart[i-1]) {
			t.Fatalf("byStart not sorted at %d", i)
		}
		if lessByEnd(tl.byEnd[i], tl.byEnd[i-1]) {
			t.Fatalf("byEnd not sorted at %d", i)
		}
	}
}

func TestTimeline_AddDedup(t *testing.T) {
	tl := New("doc1")
	tl.Add(NewSegment(0, 1))
	tl.Add(NewSegment(0, 1)) // duplicate
	tl.Add(NewSegment(2, 2)) // empty
	tl.Add(NewSegment(0.5, 3))

	if tl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tl.Len())
	}
	checkViews(t, tl)
}

func TestTimeline_ViewsStayConsistent(t *testing.T) {
	// Random add/delete churn must keep both views in lock-step.
	rng := rand.New(rand.NewSource(42))
	tl := New("doc1")
	var live []Segment
	for i := 0; i < 300; i++ {
		if len(live) == 0 || rng.Intn(3) > 0 {
			s := NewSegment(rng.Float64()*100, rng.Float64()*100+rng.Float64()*10)
			before := tl.Len()
			tl.Add(s)
			if tl.Len() > before {
				live = append(live, s)
			}
		} else {
			k := rng.Intn(len(live))
			if err := tl.Remove(live[k]); err != nil {
				t.Fatalf("remove %s: %v", live[k], err)
			}
			live = append(live[:k], live[k+1:]...)
		}
		checkViews(t, tl)
	}
	if tl.Len() != len(live) {
		t.Fatalf("Len() = %d, want %d", tl.Len(), len(live))
	}
}

func TestTimeline_RemoveMissing(t *testing.T) {
	tl := New("doc1", NewSegment(0, 1))
	err := tl.Remove(NewSegment(5, 6))
	if !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestTimeline_IndexContains(t *testing.T) {
	tl := New("doc1", NewSegment(3, 4), NewSegment(0, 1), NewSegment(1, 5))
	i, err := tl.Index(NewSegment(1, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i != 1 {
		t.Errorf("Index = %d, want 1", i)
	}
	if tl.Contains(NewSegment(9, 10)) {
		t.Error("Contains reported a non-member")
	}
}

func TestTimeline_Extent(t *testing.T) {
	tl := New("doc1", NewSegment(3, 10), NewSegment(0, 1))
	if got := tl.Extent(); got != NewSegment(0, 10) {
		t.Errorf("Extent() = %s, want [0 --> 10]", got)
	}
	if got := New("doc1").Extent(); !got.IsEmpty() {
		t.Errorf("empty timeline extent = %s, want empty", got)
	}
}

func TestTimeline_CoverageOverlap(t *testing.T) {
	// Scenario: [0,5] and [3,8] merge into [0,8].
	tl := New("doc1", NewSegment(0, 5), NewSegment(3, 8))
	cov := tl.Coverage()
	if cov.Len() != 1 || cov.At(0) != NewSegment(0, 8) {
		t.Errorf("coverage = %s, want [[0 --> 8]]", cov)
	}
}

func TestTimeline_CoverageGap(t *testing.T) {
	// Scenario: [0,2] and [5,7] stay separate.
	tl := New("doc1", NewSegment(0, 2), NewSegment(5, 7))
	cov := tl.Coverage()
	if cov.Len() != 2 {
		t.Fatalf("coverage has %d segments, want 2", cov.Len())
	}
	if cov.At(0) != NewSegment(0, 2) || cov.At(1) != NewSegment(5, 7) {
		t.Errorf("coverage = %s", cov)
	}
}

func TestTimeline_CoverageTouching(t *testing.T) {
	tl := New("doc1", NewSegment(0, 2), NewSegment(2, 4))
	cov := tl.Coverage()
	if cov.Len() != 1 || cov.At(0) != NewSegment(0, 4) {
		t.Errorf("touching coverage = %s, want [[0 --> 4]]", cov)
	}
}

func TestTimeline_CoverageIdempotent(t *testing.T) {
	tl := New("doc1",
		NewSegment(0, 5), NewSegment(3, 8), NewSegment(10, 12),
		NewSegment(11, 11.5), NewSegment(20, 21))
	once := tl.Coverage()
	twice := once.Coverage()
	if !once.Equal(twice) {
		t.Errorf("coverage not idempotent: %s vs %s", once, twice)
	}
}

func TestTimeline_Duration(t *testing.T) {
	tl := New("doc1", NewSegment(0, 5), NewSegment(3, 8), NewSegment(10, 12))
	if got := tl.Duration(); got != 10 {
		t.Errorf("Duration() = %g, want 10", got)
	}
}

func TestTimeline_CropModes(t *testing.T) {
	tl := New("doc1",
		NewSegment(0, 4), NewSegment(3, 6), NewSegment(5, 9), NewSegment(8, 10))
	query := NewSegment(3, 8)

	strict := tl.Crop(query, CropStrict)
	if strict.Len() != 1 || strict.At(0) != NewSegment(3, 6) {
		t.Errorf("strict crop = %s, want [[3 --> 6]]", strict)
	}

	loose := tl.Crop(query, CropLoose)
	want := []Segment{NewSegment(0, 4), NewSegment(3, 6), NewSegment(5, 9)}
	if loose.Len() != len(want) {
		t.Fatalf("loose crop = %s", loose)
	}
	for i, s := range want {
		if loose.At(i) != s {
			t.Errorf("loose crop[%d] = %s, want %s", i, loose.At(i), s)
		}
	}

	inter := tl.Crop(query, CropIntersection)
	wantInter := []Segment{NewSegment(3, 4), NewSegment(3, 6), NewSegment(5, 8)}
	if inter.Len() != len(wantInter) {
		t.Fatalf("intersection crop = %s", inter)
	}
	for i, s := range wantInter {
		if inter.At(i) != s {
			t.Errorf("intersection crop[%d] = %s, want %s", i, inter.At(i), s)
		}
	}
}

func TestTimeline_CropTouchingQueryExcluded(t *testing.T) {
	// A segment merely touching the query does not intersect it.
	tl := New("doc1", NewSegment(0, 2))
	if got := tl.Crop(NewSegment(2, 4), CropLoose); got.Len() != 0 {
		t.Errorf("touching segment cropped in: %s", got)
	}
}

func TestTimeline_CropTimeline(t *testing.T) {
	tl := New("doc1", NewSegment(0, 4), NewSegment(5, 9))
	query := New("doc1", NewSegment(1, 2), NewSegment(6, 7), NewSegment(6.5, 8))
	got := tl.CropTimeline(query, CropIntersection)
	want := New("doc1", NewSegment(1, 2), NewSegment(6, 8))
	if !got.Equal(want) {
		t.Errorf("CropTimeline = %s, want %s", got, want)
	}
}

func TestTimeline_Partition(t *testing.T) {
	// |------|        overlapping pair splits at every boundary.
	//    |------|
	tl := New("doc1", NewSegment(0, 5), NewSegment(3, 8))
	got := tl.Partition()
	want := New("doc1", NewSegment(0, 3), NewSegment(3, 5), NewSegment(5, 8))
	if !got.Equal(want) {
		t.Errorf("Partition = %s, want %s", got, want)
	}
	if !got.IsPartition() {
		t.Error("partition result is not a partition")
	}
}

func TestTimeline_PartitionOfPartitionIsCopy(t *testing.T) {
	tl := New("doc1", NewSegment(0, 2), NewSegment(2, 4), NewSegment(7, 9))
	if !tl.IsPartition() {
		t.Fatal("fixture should be a partition")
	}
	got := tl.Partition()
	if !got.Equal(tl) {
		t.Errorf("Partition of a partition = %s, want %s", got, tl)
	}
	// Must be an independent copy.
	got.Add(NewSegment(100, 101))
	if tl.Contains(NewSegment(100, 101)) {
		t.Error("Partition returned an aliased timeline")
	}
}

func TestTimeline_PartitionDisjointGroups(t *testing.T) {
	tl := New("doc1",
		NewSegment(0, 6), NewSegment(2, 4), // split into 0-2, 2-4, 4-6
		NewSegment(10, 12)) // untouched
	got := tl.Partition()
	want := New("doc1",
		NewSegment(0, 2), NewSegment(2, 4), NewSegment(4, 6), NewSegment(10, 12))
	if !got.Equal(want) {
		t.Errorf("Partition = %s, want %s", got, want)
	}
}

func TestTimeline_Covers(t *testing.T) {
	tl := New("doc1", NewSegment(0, 3), NewSegment(3, 6))
	// [1,5] spans two raw segments: covered loosely, not strictly.
	if tl.Covers(NewSegment(1, 5), CoverStrict) {
		t.Error("strict covers should fail across segment boundary")
	}
	if !tl.Covers(NewSegment(1, 5), CoverLoose) {
		t.Error("loose covers should succeed via coverage")
	}
	if !tl.Covers(NewSegment(1, 2), CoverStrict) {
		t.Error("strict covers should succeed inside one segment")
	}
}

func TestTimeline_Gaps(t *testing.T) {
	tl := New("doc1", NewSegment(2, 4), NewSegment(6, 8))
	got := tl.Gaps(NewSegment(0, 10))
	want := New("doc1", NewSegment(0, 2), NewSegment(4, 6), NewSegment(8, 10))
	if !got.Equal(want) {
		t.Errorf("Gaps = %s, want %s", got, want)
	}
}

func TestTimeline_Complement(t *testing.T) {
	tl := New("doc1", NewSegment(0, 2), NewSegment(5, 7))
	got := tl.Complement()
	want := New("doc1", NewSegment(2, 5))
	if !got.Equal(want) {
		t.Errorf("Complement = %s, want %s", got, want)
	}
}

func TestTimeline_URIConflict(t *testing.T) {
	a := New("doc1", NewSegment(0, 1))
	b := New("doc2", NewSegment(2, 3))
	if err := a.AddTimeline(b); !errors.Is(err, ErrURIMismatch) {
		t.Errorf("expected ErrURIMismatch, got %v", err)
	}

	// A timeline without a URI adopts the other's.
	c := New("", NewSegment(4, 5))
	if err := c.AddTimeline(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.URI() != "doc1" {
		t.Errorf("URI = %q, want doc1", c.URI())
	}
}

func TestTimeline_CopyWith(t *testing.T) {
	tl := New("doc1", NewSegment(1, 2), NewSegment(5, 6))
	ext := tl.CopyWith(func(s Segment) Segment {
		return s.ExtendStart(0.5).ExtendEnd(0.5)
	})
	want := New("doc1", NewSegment(0.5, 2.5), NewSegment(4.5, 6.5))
	if !ext.Equal(want) {
		t.Errorf("CopyWith = %s, want %s", ext, want)
	}
	// Receiver untouched.
	if tl.At(0) != NewSegment(1, 2) {
		t.Error("CopyWith mutated receiver")
	}
}

func TestTimeline_Intersects(t *testing.T) {
	a := New("doc1", NewSegment(0, 2))
	b := New("doc1", NewSegment(1, 3))
	c := New("doc1", NewSegment(5, 6))
	if !a.Intersects(b) {
		t.Error("overlapping timelines should intersect")
	}
	if a.Intersects(c) {
		t.Error("disjoint timelines should not intersect")
	}
}

func TestTimeline_Equal(t *testing.T) {
	a := New("doc1", NewSegment(0, 1), NewSegment(2, 3))
	b := New("doc1", NewSegment(2, 3), NewSegment(0, 1)) // insertion order differs
	if !a.Equal(b) {
		t.Error("same segment sets should be equal")
	}
	b.Add(NewSegment(9, 10))
	if a.Equal(b) {
		t.Error("different segment sets should not be equal")
	}
}
