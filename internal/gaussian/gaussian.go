// Package gaussian implements single multivariate Gaussians with the
// closed-form merge and ΔBIC comparison used by agglomerative clustering:
// two fitted Gaussians combine through their sufficient statistics (sample
// count, mean, covariance) without revisiting raw data.
package gaussian

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CovarianceType selects the covariance parameterization.
type CovarianceType int

const (
	// Full estimates the complete covariance matrix.
	Full CovarianceType = iota
	// Diagonal keeps only per-dimension variances.
	Diagonal
)

func (c CovarianceType) String() string {
	switch c {
	case Full:
		return "full"
	case Diagonal:
		return "diag"
	default:
		return fmt.Sprintf("CovarianceType(%d)", int(c))
	}
}

// ErrNoSamples is returned when fitting on an empty sample matrix; a label
// with zero feature coverage is a configuration error surfaced here rather
// than masked downstream.
var ErrNoSamples = errors.New("cannot fit gaussian on zero samples")

// ErrDimMismatch is returned when merging or comparing Gaussians of
// different dimension or covariance type.
var ErrDimMismatch = errors.New("gaussian dimension or covariance type mismatch")

// DefaultPenaltyCoef is the usual BIC size-penalty coefficient.
const DefaultPenaltyCoef = 3.5

// Gaussian is a single multivariate normal fitted by maximum likelihood.
// The stored covariance is the population (1/n) estimate.
type Gaussian struct {
	covType CovarianceType
	n       int
	mean    *mat.VecDense
	cov     *mat.SymDense
}

// Fit estimates a Gaussian from the rows of x. Returns ErrNoSamples when x
// is nil or has no rows.
func Fit(x mat.Matrix, covType CovarianceType) (*Gaussian, error) {
	if x == nil {
		return nil, ErrNoSamples
	}
	n, d := x.Dims()
	if n == 0 || d == 0 {
		return nil, ErrNoSamples
	}

	mean := mat.NewVecDense(d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			mean.SetVec(j, mean.AtVec(j)+x.At(i, j))
		}
	}
	mean.ScaleVec(1/float64(n), mean)

	cov := mat.NewSymDense(d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			dj := x.At(i, j) - mean.AtVec(j)
			for k := j; k < d; k++ {
				dk := x.At(i, k) - mean.AtVec(k)
				cov.SetSym(j, k, cov.At(j, k)+dj*dk)
			}
		}
	}
	for j := 0; j < d; j++ {
		for k := j; k < d; k++ {
			cov.SetSym(j, k, cov.At(j, k)/float64(n))
		}
	}
	g := &Gaussian{covType: covType, n: n, mean: mean, cov: cov}
	if covType == Diagonal {
		g.dropOffDiagonal()
	}
	return g, nil
}

func (g *Gaussian) dropOffDiagonal() {
	d := g.Dim()
	for j := 0; j < d; j++ {
		for k := j + 1; k < d; k++ {
			g.cov.SetSym(j, k, 0)
		}
	}
}

// NSamples returns the number of samples the Gaussian was fitted on.
func (g *Gaussian) NSamples() int { return g.n }

// Dim returns the feature dimension.
func (g *Gaussian) Dim() int { return g.mean.Len() }

// CovType returns the covariance parameterization.
func (g *Gaussian) CovType() CovarianceType { return g.covType }

// Mean returns the mean vector (shared storage; treat as read-only).
func (g *Gaussian) Mean() *mat.VecDense { return g.mean }

// Cov returns the covariance matrix (shared storage; treat as read-only).
func (g *Gaussian) Cov() *mat.SymDense { return g.cov }

// NParameters returns the number of free parameters: d means plus either
// d(d+1)/2 (full) or d (diagonal) covariance terms.
func (g *Gaussian) NParameters() int {
	d := g.Dim()
	if g.covType == Diagonal {
		return 2 * d
	}
	return d + d*(d+1)/2
}

// LogDetCov returns log |Σ| using an LU decomposition.
func (g *Gaussian) LogDetCov() float64 {
	logDet, sign := mat.LogDet(g.cov)
	if sign <= 0 {
		// Degenerate covariance: treat as maximally peaked rather than
		// propagating NaN through BIC sums.
		return -1e9
	}
	return logDet
}

// Merge combines two fitted Gaussians in closed form from their sufficient
// statistics. The merged covariance is exactly the covariance that would
// result from refitting on the concatenated samples.
func (g *Gaussian) Merge(other *Gaussian) (*Gaussian, error) {
	if g.Dim() != other.Dim() || g.covType != other.covType {
		return nil, fmt.Errorf("%w: %dd/%s vs %dd/%s",
			ErrDimMismatch, g.Dim(), g.covType, other.Dim(), other.covType)
	}
	d := g.Dim()
	n1 := float64(g.n)
	n2 := float64(other.n)
	n := n1 + n2

	mean := mat.NewVecDense(d, nil)
	mean.AddScaledVec(mean, n1/n, g.mean)
	mean.AddScaledVec(mean, n2/n, other.mean)

	// Σ = (n1(Σ1 + μ1μ1ᵀ) + n2(Σ2 + μ2μ2ᵀ))/n − μμᵀ
	cov := mat.NewSymDense(d, nil)
	for j := 0; j < d; j++ {
		for k := j; k < d; k++ {
			v := (n1*(g.cov.At(j, k)+g.mean.AtVec(j)*g.mean.AtVec(k)) +
				n2*(other.cov.At(j, k)+other.mean.AtVec(j)*other.mean.AtVec(k))) / n
			v -= mean.AtVec(j) * mean.AtVec(k)
			cov.SetSym(j, k, v)
		}
	}

	m := &Gaussian{covType: g.covType, n: g.n + other.n, mean: mean, cov: cov}
	if m.covType == Diagonal {
		m.dropOffDiagonal()
	}
	return m, nil
}

// DeltaBIC returns the Bayesian-information-style merge criterion between
// the two Gaussians along with the merged model:
//
//	Δ = n·log|Σ| − n1·log|Σ1| − n2·log|Σ2| − (λ/2)·P·log n
//
// where P is the merged model's parameter count and λ the penalty
// coefficient. Lower (negative) Δ favors merging.
func (g *Gaussian) DeltaBIC(other *Gaussian, penaltyCoef float64) (float64, *Gaussian, error) {
	merged, err := g.Merge(other)
	if err != nil {
		return 0, nil, err
	}
	n := float64(merged.n)
	delta := n*merged.LogDetCov() -
		float64(g.n)*g.LogDetCov() -
		float64(other.n)*other.LogDetCov() -
		0.5*penaltyCoef*float64(merged.NParameters())*math.Log(n)
	return delta, merged, nil
}
