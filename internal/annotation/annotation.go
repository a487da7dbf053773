// Package annotation provides the label/track container consumed by the
// clustering engine: tracks attach a label to a (segment, track name) slot,
// and the container answers label-set, per-label coverage and bulk
// relabeling queries.
package annotation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chronolab/chronoclust/internal/timeline"
)

// DefaultTrack is the track name used when the caller does not care about
// multi-track annotations.
const DefaultTrack = "_"

// ErrEmptySegment is returned when attaching a track to an empty segment.
var ErrEmptySegment = errors.New("cannot annotate empty segment")

// Track is one annotated slot: a label carried by a named track on a
// segment.
type Track struct {
	Segment timeline.Segment
	Name    string
	Label   Label
}

// Annotation maps (segment, track name) slots to labels for one document
// and modality. The segment→track map is the single source of truth; the
// Timeline view is derived on demand and never mutated independently.
type Annotation struct {
	uri      string
	modality string
	tracks   map[timeline.Segment]map[string]Label
}

// New creates an empty annotation for the given document and modality.
func New(uri, modality string) *Annotation {
	return &Annotation{
		uri:      uri,
		modality: modality,
		tracks:   make(map[timeline.Segment]map[string]Label),
	}
}

// URI returns the annotated document identifier.
func (a *Annotation) URI() string { return a.uri }

// Modality returns the annotated modality (e.g. "speaker", "head").
func (a *Annotation) Modality() string { return a.modality }

// Put attaches a label to the named track of the segment, replacing any
// label previously carried by that track.
func (a *Annotation) Put(s timeline.Segment, track string, label Label) error {
	if s.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrEmptySegment, s)
	}
	m, ok := a.tracks[s]
	if !ok {
		m = make(map[string]Label, 1)
		a.tracks[s] = m
	}
	m[track] = label
	return nil
}

// PutLabel attaches a label to the default track of the segment.
func (a *Annotation) PutLabel(s timeline.Segment, label Label) error {
	return a.Put(s, DefaultTrack, label)
}

// NumTracks returns the total number of (segment, track) slots.
func (a *Annotation) NumTracks() int {
	n := 0
	for _, m := range a.tracks {
		n += len(m)
	}
	return n
}

// Tracks returns every track sorted by (segment, track name). The slice is
// freshly allocated on each call.
func (a *Annotation) Tracks() []Track {
	out := make([]Track, 0, a.NumTracks())
	for s, m := range a.tracks {
		for name, label := range m {
			out = append(out, Track{Segment: s, Name: name, Label: label})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Segment != out[j].Segment {
			return out[i].Segment.Less(out[j].Segment)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Labels returns the set of labels in use, sorted deterministically.
func (a *Annotation) Labels() []Label {
	seen := make(map[Label]bool)
	for _, m := range a.tracks {
		for _, l := range m {
			seen[l] = true
		}
	}
	out := make([]Label, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// LabelTimeline returns the timeline of segments carrying the label.
func (a *Annotation) LabelTimeline(label Label) *timeline.Timeline {
	tl := timeline.New(a.uri)
	for s, m := range a.tracks {
		for _, l := range m {
			if l == label {
				tl.Add(s)
				break
			}
		}
	}
	return tl
}

// LabelCoverage returns the coverage of the label's timeline.
func (a *Annotation) LabelCoverage(label Label) *timeline.Timeline {
	return a.LabelTimeline(label).Coverage()
}

// LabelDuration returns the total duration annotated with the label.
func (a *Annotation) LabelDuration(label Label) float64 {
	return a.LabelTimeline(label).Duration()
}

// Timeline returns the timeline of all annotated segments, derived from the
// track map.
func (a *Annotation) Timeline() *timeline.Timeline {
	tl := timeline.New(a.uri)
	for s := range a.tracks {
		tl.Add(s)
	}
	return tl
}

// Relabel returns a new annotation with every label translated through the
// mapping. Labels absent from the mapping keep their identity, so a partial
// translation is always safe.
func (a *Annotation) Relabel(translation map[Label]Label) *Annotation {
	out := New(a.uri, a.modality)
	for s, m := range a.tracks {
		for name, l := range m {
			if nl, ok := translation[l]; ok {
				l = nl
			}
			// Error impossible: s came from a valid annotation.
			_ = out.Put(s, name, l)
		}
	}
	return out
}

// Copy returns an independent duplicate.
func (a *Annotation) Copy() *Annotation {
	return a.Relabel(nil)
}

// Smooth coalesces temporally adjacent same-label segments: each label's
// coverage becomes its new segment set, one track per segment named after
// the label so cooccurring labels cannot collide. Original track names do
// not survive smoothing.
func (a *Annotation) Smooth() *Annotation {
	out := New(a.uri, a.modality)
	for _, label := range a.Labels() {
		for _, s := range a.LabelCoverage(label).Segments() {
			_ = out.Put(s, label.String(), label)
		}
	}
	return out
}

// Equal reports whether both annotations hold exactly the same tracks.
func (a *Annotation) Equal(other *Annotation) bool {
	if a.uri != other.uri || a.modality != other.modality {
		return false
	}
	if a.NumTracks() != other.NumTracks() {
		return false
	}
	for s, m := range a.tracks {
		om, ok := other.tracks[s]
		if !ok || len(om) != len(m) {
			return false
		}
		for name, l := range m {
			if om[name] != l {
				return false
			}
		}
	}
	return true
}

func (a *Annotation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s [\n", a.uri, a.modality)
	for _, tr := range a.Tracks() {
		fmt.Fprintf(&b, "   %s %s %s\n", tr.Segment, tr.Name, tr.Label)
	}
	b.WriteString("]")
	return b.String()
}
