// Package model is the boundary to the difficulty classifier. The
// classifier itself is an external collaborator; this package assembles
// feature vectors, handles the degenerate-label fallback, and turns
// probabilities into the 0-100 Flight Difficulty Score with its severity
// buckets.
package model

import (
	"fmt"
	"math"

	"github.com/airside-data/difficulty.report/internal/flightops"
	"github.com/airside-data/difficulty.report/internal/monitoring"
)

// Classifier produces a positive-class probability per feature vector and
// exposes per-feature gain importances aligned with the training columns.
type Classifier interface {
	Proba(x []float64) float64
	Importances() []float64
}

// Trainer fits a Classifier. Implementations wrap whatever gradient-boosting
// stack the deployment uses; the pipeline only depends on this interface.
type Trainer interface {
	Fit(featureNames []string, X [][]float64, y []int) (Classifier, error)
}

// Model is a tagged variant: either a fitted classifier or a constant
// probability. The scorer dispatches on the variant rather than duck-typing.
type Model struct {
	clf   Classifier
	prob  float64
	names []string
}

// IsConstant reports whether the model is the constant-probability fallback.
func (m *Model) IsConstant() bool { return m.clf == nil }

// ConstantProb returns the fallback probability. Only meaningful when
// IsConstant is true.
func (m *Model) ConstantProb() float64 { return m.prob }

// FeatureNames returns the training feature columns in vector order.
func (m *Model) FeatureNames() []string {
	return append([]string(nil), m.names...)
}

// Proba returns the difficulty probability for one feature vector.
func (m *Model) Proba(x []float64) float64 {
	if m.clf == nil {
		return m.prob
	}
	return m.clf.Proba(x)
}

// Importances returns per-feature gain importances. The constant fallback
// reports all zeros so downstream consumers can detect the degenerate case.
func (m *Model) Importances() []float64 {
	if m.clf == nil {
		return make([]float64, len(m.names))
	}
	imp := m.clf.Importances()
	if len(imp) != len(m.names) {
		return make([]float64, len(m.names))
	}
	return imp
}

// NewConstant builds the constant-probability fallback model.
func NewConstant(prob float64, featureNames []string) *Model {
	return &Model{prob: prob, names: append([]string(nil), featureNames...)}
}

// Vectorize assembles the design matrix and target from labeled flights.
// Missing feature values become 0 in the matrix. Columns carrying raw
// outcomes (delay minutes, cancellation, diversion) are never part of the
// feature set.
func Vectorize(flights []flightops.Flight) (names []string, X [][]float64, y []int) {
	names = append([]string(nil), flightops.FeatureNames...)
	X = make([][]float64, len(flights))
	y = make([]int, len(flights))
	for i := range flights {
		vec := flights[i].Feat.Vector()
		for j, v := range vec {
			if math.IsNaN(v) {
				vec[j] = 0
			}
		}
		X[i] = vec
		if flights[i].Difficult {
			y[i] = 1
		}
	}
	return names, X, y
}

// Train fits a model on labeled flights. When the label distribution is
// degenerate (all positive or all negative), or when no trainer is wired,
// the result is the constant-probability fallback. That is a recovered
// condition, not an error; its all-zero importances make it visible
// downstream.
func Train(tr Trainer, flights []flightops.Flight) (*Model, error) {
	names, X, y := Vectorize(flights)

	pos := 0
	for _, v := range y {
		pos += v
	}
	neg := len(y) - pos
	prior := 0.5
	if len(y) > 0 {
		prior = float64(pos) / float64(len(y))
	}

	if pos == 0 || neg == 0 {
		monitoring.Logf("degenerate label distribution (pos=%d neg=%d); using constant-probability model", pos, neg)
		return NewConstant(0.5, names), nil
	}
	if tr == nil {
		monitoring.Logf("no trainer wired; using constant-probability model at prior %.4f", prior)
		return NewConstant(prior, names), nil
	}

	clf, err := tr.Fit(names, X, y)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	return &Model{clf: clf, names: names}, nil
}
