// Package feature provides time-aligned feature matrices and the cropping
// contract the clustering engine relies on: given a timeline, return the
// feature vectors of every frame it covers, stacked into one matrix.
package feature

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chronolab/chronoclust/internal/timeline"
)

// ErrWindowMismatch is returned when feature data and window geometry
// disagree.
var ErrWindowMismatch = errors.New("feature data does not match window")

// Provider supplies feature vectors restricted to a timeline. The returned
// matrix stacks the rows of all covered frames across disjoint sub-timelines
// and is safe for the caller to retain; implementations must treat their
// underlying data as read-only.
type Provider interface {
	Crop(t *timeline.Timeline) *mat.Dense
}

// SlidingWindow describes the frame geometry of a feature matrix: frame i
// covers [Start + i*Step, Start + i*Step + Duration).
type SlidingWindow struct {
	Start    float64
	Step     float64
	Duration float64
}

// DefaultWindow returns the usual 10ms-step, 25ms-duration analysis window.
func DefaultWindow() SlidingWindow {
	return SlidingWindow{Start: 0, Step: 0.010, Duration: 0.025}
}

// FrameRange returns the half-open frame index range [lo, hi) of the frames
// whose center lies inside the segment, clamped to n frames.
func (w SlidingWindow) FrameRange(s timeline.Segment, n int) (lo, hi int) {
	if s.IsEmpty() {
		return 0, 0
	}
	center := w.Start + 0.5*w.Duration
	lo = int(math.Ceil((s.Start - center) / w.Step))
	hi = int(math.Ceil((s.End - center) / w.Step))
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	if hi > n {
		hi = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// SlidingWindowFeature is a frame-aligned feature matrix: one row per
// frame, one column per feature dimension.
type SlidingWindowFeature struct {
	Window SlidingWindow
	Data   *mat.Dense
}

// NewSlidingWindowFeature wraps data with its window geometry.
func NewSlidingWindowFeature(w SlidingWindow, data *mat.Dense) (*SlidingWindowFeature, error) {
	if w.Step <= 0 || w.Duration <= 0 {
		return nil, fmt.Errorf("%w: step=%g duration=%g", ErrWindowMismatch, w.Step, w.Duration)
	}
	return &SlidingWindowFeature{Window: w, Data: data}, nil
}

// NumFrames returns the number of frames.
func (f *SlidingWindowFeature) NumFrames() int {
	r, _ := f.Data.Dims()
	return r
}

// Dim returns the feature dimension.
func (f *SlidingWindowFeature) Dim() int {
	_, c := f.Data.Dims()
	return c
}

// Crop stacks the feature rows of every frame covered by the timeline's
// coverage. Disjoint sub-timelines contribute disjoint row blocks in
// temporal order. A timeline covering no frame yields nil (gonum has no
// zero-row matrices); downstream fitting treats that as a configuration
// error.
func (f *SlidingWindowFeature) Crop(t *timeline.Timeline) *mat.Dense {
	n := f.NumFrames()
	var rows []int
	for _, s := range t.Coverage().Segments() {
		lo, hi := f.Window.FrameRange(s, n)
		for i := lo; i < hi; i++ {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	out := mat.NewDense(len(rows), f.Dim(), nil)
	for k, i := range rows {
		out.SetRow(k, mat.Row(nil, i, f.Data))
	}
	return out
}
