package hac

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chronolab/chronoclust/internal/annotation"
	"github.com/chronolab/chronoclust/internal/feature"
)

// ErrNoModel is returned when constructing an engine without a similarity
// model.
var ErrNoModel = errors.New("exactly one similarity model is required")

// ErrStopAlreadySet is returned when configuring more than one stopping
// criterion.
var ErrStopAlreadySet = errors.New("exactly one stopping criterion is allowed")

// ErrNotInitialized is returned when stepping or finalizing an engine that
// has not been initialized.
var ErrNotInitialized = errors.New("engine not initialized")

type engineState int

const (
	stateUnstarted engineState = iota
	stateInitialized
	stateFinalized
)

// Option configures an Engine at construction time.
type Option func(*Engine) error

// WithConstraint adds a merge constraint. Constraints compose by AND.
func WithConstraint(c Constraint) Option {
	return func(e *Engine) error {
		e.constraints = append(e.constraints, c)
		return nil
	}
}

// WithStop sets the stopping criterion. Setting it twice is a
// configuration error.
func WithStop(s StopCriterion) Option {
	return func(e *Engine) error {
		if e.stopSet {
			return ErrStopAlreadySet
		}
		e.stop = s
		e.stopSet = true
		return nil
	}
}

// WithLogger sets the debug logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) error {
		e.log = log
		return nil
	}
}

// Engine drives agglomerative clustering: repeatedly merge the most
// similar admissible pair of clusters until no candidate remains, fewer
// than two clusters survive, or the stopping criterion fires.
//
// The engine is single-threaded and owns all of its working state for the
// duration of a run: the working annotation, the label→model map, the
// similarity matrix and every constraint's auxiliary structure. Feature
// data is shared by reference and treated as read-only.
type Engine struct {
	model       Model
	constraints []Constraint
	stop        StopCriterion
	stopSet     bool
	log         *zap.Logger

	state   engineState
	ann     *annotation.Annotation
	feats   feature.Provider
	models  map[annotation.Label]ClusterModel
	matrix  *PairwiseIndex
	history *History
}

// New constructs an engine around exactly one similarity model and exactly
// one stopping criterion (NegativeStop when none is configured).
func New(model Model, opts ...Option) (*Engine, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	e := &Engine{
		model: model,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.stop == nil {
		e.stop = NegativeStop{}
	}
	return e, nil
}

// Initialize snapshots the annotation, fits one model per starting label,
// fills the similarity matrix and primes constraints, stopping criterion
// and history. A previous run's state is discarded.
func (e *Engine) Initialize(ann *annotation.Annotation, feats feature.Provider) error {
	working := ann.Copy()
	labels := working.Labels()

	models := make(map[annotation.Label]ClusterModel, len(labels))
	for _, l := range labels {
		m, err := e.model.Fit(l, working, feats)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		models[l] = m
	}

	e.ann = working
	e.feats = feats
	e.models = models
	e.matrix = NewPairwiseIndex(func(a, b annotation.Label) float64 {
		return e.model.Compare(e.models[a], e.models[b])
	}, e.model.Symmetric())
	e.matrix.Init(labels)

	for _, c := range e.constraints {
		c.Init(working)
	}
	e.stop.Init()
	e.history = NewHistory(working)
	e.state = stateInitialized

	e.log.Debug("clustering initialized",
		zap.String("uri", ann.URI()),
		zap.Int("clusters", len(labels)),
		zap.Int("constraints", len(e.constraints)))
	return nil
}

// nextCandidate finds the best-similarity pair every constraint accepts.
// Rejected pairs are pinned to NeverMerge in the matrix so they are never
// proposed again for the rest of the run; on repeated rejection the search
// degenerates to exhaustion.
func (e *Engine) nextCandidate() (a, b annotation.Label, similarity float64, ok bool) {
	for {
		a, b, similarity, ok = e.matrix.ArgMax()
		if !ok || similarity == NeverMerge {
			return a, b, similarity, false
		}
		if e.admissible(a, b) {
			return a, b, similarity, true
		}
		e.log.Debug("constraint rejected pair",
			zap.Stringer("a", a), zap.Stringer("b", b),
			zap.Float64("similarity", similarity))
		e.matrix.Set(a, b, NeverMerge)
		e.matrix.Set(b, a, NeverMerge)
	}
}

func (e *Engine) admissible(a, b annotation.Label) bool {
	for _, c := range e.constraints {
		if !c.Mergeable(a, b) {
			return false
		}
	}
	return true
}

// Step performs one clustering iteration. It returns ok=false, without
// merging, when the loop is over: fewer than two clusters remain, no
// finite-similarity admissible pair exists, or the stopping criterion
// fires on the candidate.
func (e *Engine) Step() (Iteration, bool, error) {
	if e.state != stateInitialized {
		return Iteration{}, false, ErrNotInitialized
	}
	if len(e.models) < 2 {
		e.log.Debug("fewer than two clusters remain")
		return Iteration{}, false, nil
	}

	a, b, similarity, ok := e.nextCandidate()
	if !ok {
		e.log.Debug("no admissible pair left")
		return Iteration{}, false, nil
	}
	if e.stop.Stop(similarity) {
		e.log.Debug("stopping criterion reached",
			zap.Float64("similarity", similarity))
		return Iteration{}, false, nil
	}

	// The lower label survives the merge.
	newLabel, absorbed := a, b
	if absorbed.Less(newLabel) {
		newLabel, absorbed = absorbed, newLabel
	}
	merged := []annotation.Label{newLabel, absorbed}

	mergedModel, err := e.model.Merge([]ClusterModel{e.models[newLabel], e.models[absorbed]})
	if err != nil {
		return Iteration{}, false, fmt.Errorf("merge %s+%s: %w", newLabel, absorbed, err)
	}
	e.models[newLabel] = mergedModel
	delete(e.models, absorbed)

	e.ann = e.ann.Relabel(map[annotation.Label]annotation.Label{absorbed: newLabel})

	// Matrix and constraint tables stay in lock-step with e.models.
	e.matrix.Update(newLabel, merged)
	for _, c := range e.constraints {
		c.Update(newLabel, merged, e.ann)
	}

	it := Iteration{Merged: merged, Similarity: similarity, NewLabel: newLabel}
	e.history.Add(it)
	e.stop.Update(it)

	e.log.Debug("merged clusters",
		zap.Stringer("into", newLabel),
		zap.Stringer("absorbed", absorbed),
		zap.Float64("similarity", similarity),
		zap.Int("clusters", len(e.models)))
	return it, true, nil
}

// Finalize delegates the final rewrite to the stopping criterion and ends
// the run.
func (e *Engine) Finalize() (*annotation.Annotation, error) {
	if e.state != stateInitialized {
		return nil, ErrNotInitialized
	}
	e.state = stateFinalized
	return e.stop.Finalize(e.ann, e.history), nil
}

// Cluster runs a complete pass: Initialize, Step until done, Finalize.
func (e *Engine) Cluster(ann *annotation.Annotation, feats feature.Provider) (*annotation.Annotation, *History, error) {
	if err := e.Initialize(ann, feats); err != nil {
		return nil, nil, err
	}
	for {
		_, ok, err := e.Step()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
	}
	final, err := e.Finalize()
	if err != nil {
		return nil, nil, err
	}
	return final, e.history, nil
}

// NumClusters returns the number of live clusters.
func (e *Engine) NumClusters() int { return len(e.models) }

// History returns the current run's merge log.
func (e *Engine) History() *History { return e.history }
