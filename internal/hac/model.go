package hac

import (
	"fmt"

	"github.com/chronolab/chronoclust/internal/annotation"
	"github.com/chronolab/chronoclust/internal/feature"
	"github.com/chronolab/chronoclust/internal/gaussian"
)

// ClusterModel is whatever a similarity model fits per cluster; opaque to
// the engine beyond being passed back to its model.
type ClusterModel any

// Model is the similarity strategy injected into the engine: it fits one
// model per cluster label, compares two fitted models (higher is more
// similar, NeverMerge forbids the merge), and merges fitted models without
// revisiting raw features.
type Model interface {
	// Fit builds the model for one label from the features covered by the
	// label's timeline.
	Fit(label annotation.Label, ann *annotation.Annotation, feats feature.Provider) (ClusterModel, error)
	// Compare returns the similarity of two fitted models. Higher means
	// more mergeable; NeverMerge means never.
	Compare(a, b ClusterModel) float64
	// Merge combines fitted models into the model of the merged cluster.
	Merge(models []ClusterModel) (ClusterModel, error)
	// Symmetric reports whether Compare(a, b) == Compare(b, a) always
	// holds, allowing half the similarity matrix to be computed.
	Symmetric() bool
}

// BIC compares clusters by the Bayesian Information Criterion delta of
// their single-Gaussian models: similarity is −ΔBIC, so a merge that
// improves the criterion scores positive.
type BIC struct {
	CovType     gaussian.CovarianceType
	PenaltyCoef float64
}

// NewBIC returns a BIC model with the given covariance type and the
// default penalty coefficient.
func NewBIC(covType gaussian.CovarianceType) *BIC {
	return &BIC{CovType: covType, PenaltyCoef: gaussian.DefaultPenaltyCoef}
}

// Fit fits a single Gaussian to the label's feature coverage. A label with
// no covered frames is a configuration error.
func (m *BIC) Fit(label annotation.Label, ann *annotation.Annotation, feats feature.Provider) (ClusterModel, error) {
	data := feats.Crop(ann.LabelCoverage(label))
	g, err := gaussian.Fit(data, m.CovType)
	if err != nil {
		return nil, fmt.Errorf("fit label %s: %w", label, err)
	}
	return g, nil
}

// Compare returns −ΔBIC between the two Gaussians; incompatible models
// score NeverMerge.
func (m *BIC) Compare(a, b ClusterModel) float64 {
	ga := a.(*gaussian.Gaussian)
	gb := b.(*gaussian.Gaussian)
	delta, _, err := ga.DeltaBIC(gb, m.PenaltyCoef)
	if err != nil {
		return NeverMerge
	}
	return -delta
}

// Merge folds the Gaussians into one through their sufficient statistics.
func (m *BIC) Merge(models []ClusterModel) (ClusterModel, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("merge of zero models")
	}
	merged := models[0].(*gaussian.Gaussian)
	for _, cm := range models[1:] {
		var err error
		merged, err = merged.Merge(cm.(*gaussian.Gaussian))
		if err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Symmetric reports that ΔBIC is symmetric in its operands.
func (m *BIC) Symmetric() bool { return true }
