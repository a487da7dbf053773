package annotation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chronolab/chronoclust/internal/timeline"
)

func seg(start, end float64) timeline.Segment {
	return timeline.NewSegment(start, end)
}

func TestLabel_Ordering(t *testing.T) {
	alloc := NewAllocator()
	anon1 := alloc.Next()
	anon2 := alloc.Next()

	if !Known("alice").Less(Known("bob")) {
		t.Error("known labels should order by name")
	}
	if !Known("zoe").Less(anon1) {
		t.Error("known labels should order before anonymous ones")
	}
	if !anon1.Less(anon2) {
		t.Error("anonymous labels should order by identifier")
	}
	if anon1 == anon2 {
		t.Error("allocator returned duplicate labels")
	}
}

func TestAllocator_IndependentRuns(t *testing.T) {
	a := NewAllocator()
	b := NewAllocator()
	if a.Next() != b.Next() {
		t.Error("fresh allocators should produce the same first label")
	}
}

func TestAnnotation_PutAndLabels(t *testing.T) {
	a := New("doc1", "speaker")
	mustPut(t, a, seg(0, 4), "alice")
	mustPut(t, a, seg(4, 15), "bob")
	mustPut(t, a, seg(15, 17), "alice")

	got := a.Labels()
	want := []Label{Known("alice"), Known("bob")}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b Label) bool { return a == b })); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
	if a.NumTracks() != 3 {
		t.Errorf("NumTracks() = %d, want 3", a.NumTracks())
	}
}

func TestAnnotation_EmptySegmentRejected(t *testing.T) {
	a := New("doc1", "speaker")
	err := a.PutLabel(seg(2, 2), Known("alice"))
	if !errors.Is(err, ErrEmptySegment) {
		t.Errorf("expected ErrEmptySegment, got %v", err)
	}
}

func TestAnnotation_LabelCoverage(t *testing.T) {
	a := New("doc1", "speaker")
	mustPut(t, a, seg(0, 4), "alice")
	mustPut(t, a, seg(3, 8), "alice")
	mustPut(t, a, seg(10, 12), "alice")
	mustPut(t, a, seg(5, 6), "bob")

	cov := a.LabelCoverage(Known("alice"))
	want := timeline.New("doc1", seg(0, 8), seg(10, 12))
	if !cov.Equal(want) {
		t.Errorf("LabelCoverage = %s, want %s", cov, want)
	}
	if d := a.LabelDuration(Known("alice")); d != 10 {
		t.Errorf("LabelDuration = %g, want 10", d)
	}
}

func TestAnnotation_Relabel(t *testing.T) {
	a := New("doc1", "speaker")
	mustPut(t, a, seg(0, 4), "alice")
	mustPut(t, a, seg(4, 8), "bob")
	mustPut(t, a, seg(8, 12), "carol")

	b := a.Relabel(map[Label]Label{Known("bob"): Known("alice")})

	if len(b.Labels()) != 2 {
		t.Fatalf("Labels() = %v, want 2 labels", b.Labels())
	}
	cov := b.LabelCoverage(Known("alice"))
	want := timeline.New("doc1", seg(0, 8))
	if !cov.Equal(want) {
		t.Errorf("merged coverage = %s, want %s", cov, want)
	}
	// Labels absent from the translation keep their identity.
	if b.LabelTimeline(Known("carol")).Len() != 1 {
		t.Error("carol should be untouched by relabeling")
	}
	// Original untouched.
	if len(a.Labels()) != 3 {
		t.Error("Relabel mutated its receiver")
	}
}

func TestAnnotation_RelabelMergesTracksWithinSegment(t *testing.T) {
	a := New("doc1", "speaker")
	if err := a.Put(seg(0, 4), "t1", Known("alice")); err != nil {
		t.Fatal(err)
	}
	if err := a.Put(seg(0, 4), "t2", Known("bob")); err != nil {
		t.Fatal(err)
	}
	b := a.Relabel(map[Label]Label{Known("bob"): Known("alice")})

	// Both tracks survive, now identically labeled; the label timeline must
	// still carry the segment exactly once.
	if b.NumTracks() != 2 {
		t.Errorf("NumTracks = %d, want 2", b.NumTracks())
	}
	if tl := b.LabelTimeline(Known("alice")); tl.Len() != 1 {
		t.Errorf("label timeline = %s, want one segment", tl)
	}
}

func TestAnnotation_Timeline(t *testing.T) {
	a := New("doc1", "speaker")
	mustPut(t, a, seg(4, 8), "bob")
	mustPut(t, a, seg(0, 4), "alice")
	tl := a.Timeline()
	want := timeline.New("doc1", seg(0, 4), seg(4, 8))
	if !tl.Equal(want) {
		t.Errorf("Timeline = %s, want %s", tl, want)
	}
}

func TestAnnotation_Smooth(t *testing.T) {
	a := New("doc1", "speaker")
	mustPut(t, a, seg(0, 2), "alice")
	mustPut(t, a, seg(2, 5), "alice")
	mustPut(t, a, seg(7, 9), "alice")
	mustPut(t, a, seg(5, 6), "bob")

	s := a.Smooth()
	cov := s.LabelTimeline(Known("alice"))
	want := timeline.New("doc1", seg(0, 5), seg(7, 9))
	if !cov.Equal(want) {
		t.Errorf("smoothed alice = %s, want %s", cov, want)
	}
	if s.LabelTimeline(Known("bob")).Len() != 1 {
		t.Error("bob should survive smoothing")
	}
}

func TestAnnotation_CopyEqual(t *testing.T) {
	a := New("doc1", "speaker")
	mustPut(t, a, seg(0, 2), "alice")
	b := a.Copy()
	if !a.Equal(b) {
		t.Error("copy should equal original")
	}
	mustPut(t, b, seg(5, 6), "bob")
	if a.Equal(b) {
		t.Error("copies should be independent")
	}
}

func mustPut(t *testing.T, a *Annotation, s timeline.Segment, label string) {
	t.Helper()
	if err := a.PutLabel(s, Known(label)); err != nil {
		t.Fatalf("put %s: %v", s, err)
	}
}
