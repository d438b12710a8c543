package model

import (
	"math"
	"testing"

	"github.com/airside-data/difficulty.report/internal/flightops"
)

type stubClassifier struct {
	prob float64
	imp  []float64
}

func (s stubClassifier) Proba(x []float64) float64 { return s.prob }
func (s stubClassifier) Importances() []float64    { return s.imp }

type stubTrainer struct {
	gotNames []string
	gotRows  int
	clf      Classifier
}

func (s *stubTrainer) Fit(names []string, X [][]float64, y []int) (Classifier, error) {
	s.gotNames = names
	s.gotRows = len(X)
	return s.clf, nil
}

func mkFlights(labels ...bool) []flightops.Flight {
	out := make([]flightops.Flight, len(labels))
	for i, difficult := range labels {
		out[i] = flightops.Flight{
			Key: flightops.FlightKey{
				CompanyID:    "UA",
				FlightNumber: "100",
				DepAirport:   "ORD",
				ArrAirport:   "DEN",
			},
			Difficult: difficult,
		}
	}
	return out
}

func TestTrainDegenerateLabels(t *testing.T) {
	for _, labels := range [][]bool{
		{true, true, true},
		{false, false, false},
	} {
		m, err := Train(nil, mkFlights(labels...))
		if err != nil {
			t.Fatalf("Train: %v", err)
		}
		if !m.IsConstant() {
			t.Fatalf("expected constant model for labels %v", labels)
		}
		if got := m.ConstantProb(); got != 0.5 {
			t.Fatalf("constant prob = %v, want 0.5", got)
		}
		for i, v := range m.Importances() {
			if v != 0 {
				t.Fatalf("importance[%d] = %v, want 0", i, v)
			}
		}
	}
}

func TestTrainNoTrainerUsesPrior(t *testing.T) {
	m, err := Train(nil, mkFlights(true, false, false, false))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !m.IsConstant() {
		t.Fatal("expected constant model when no trainer is wired")
	}
	if got := m.ConstantProb(); got != 0.25 {
		t.Fatalf("constant prob = %v, want 0.25", got)
	}
}

func TestTrainFitted(t *testing.T) {
	imp := make([]float64, len(flightops.FeatureNames))
	imp[0] = 3
	tr := &stubTrainer{clf: stubClassifier{prob: 0.8, imp: imp}}

	m, err := Train(tr, mkFlights(true, false, true))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if m.IsConstant() {
		t.Fatal("expected fitted model")
	}
	if tr.gotRows != 3 {
		t.Fatalf("trainer saw %d rows, want 3", tr.gotRows)
	}
	if len(tr.gotNames) != len(flightops.FeatureNames) {
		t.Fatalf("trainer saw %d feature names, want %d", len(tr.gotNames), len(flightops.FeatureNames))
	}
	if got := m.Proba(make([]float64, len(flightops.FeatureNames))); got != 0.8 {
		t.Fatalf("Proba = %v, want 0.8", got)
	}
	if got := m.Importances(); got[0] != 3 {
		t.Fatalf("importance[0] = %v, want 3", got[0])
	}
}

func TestImportancesLengthMismatchFallsBackToZeros(t *testing.T) {
	tr := &stubTrainer{clf: stubClassifier{prob: 0.5, imp: []float64{1, 2}}}
	m, err := Train(tr, mkFlights(true, false))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	for i, v := range m.Importances() {
		if v != 0 {
			t.Fatalf("importance[%d] = %v, want 0", i, v)
		}
	}
}

func TestVectorizeReplacesNaN(t *testing.T) {
	fl := mkFlights(true)
	// Feat is zero-valued here, so every field reads 0 already; poison one.
	fl[0].Feat.PaxProxy = math.NaN()
	_, X, y := Vectorize(fl)
	for j, v := range X[0] {
		if math.IsNaN(v) {
			t.Fatalf("X[0][%d] is NaN after vectorize", j)
		}
	}
	if y[0] != 1 {
		t.Fatalf("y[0] = %d, want 1", y[0])
	}
}

func TestScoreConstantModel(t *testing.T) {
	m := NewConstant(0.42, flightops.FeatureNames)
	scored := Score(m, mkFlights(false, true, false))
	for i := range scored {
		if got := scored[i].FDS; math.Abs(got-42) > 1e-9 {
			t.Fatalf("FDS[%d] = %v, want 42", i, got)
		}
		if scored[i].FDSBucket != BucketMedium {
			t.Fatalf("bucket[%d] = %q, want %q", i, scored[i].FDSBucket, BucketMedium)
		}
	}
}

func TestScoreClamps(t *testing.T) {
	for _, tc := range []struct {
		prob float64
		want float64
	}{
		{prob: 1.5, want: 100},
		{prob: -0.2, want: 0},
	} {
		m := NewConstant(tc.prob, flightops.FeatureNames)
		scored := Score(m, mkFlights(false))
		if got := scored[0].FDS; got != tc.want {
			t.Fatalf("prob %v: FDS = %v, want %v", tc.prob, got, tc.want)
		}
	}
}

func TestBucketEdges(t *testing.T) {
	cases := []struct {
		fds  float64
		want string
	}{
		{0, BucketLow},
		{33.33, BucketLow},
		{33.34, BucketMedium},
		{66.66, BucketMedium},
		{66.67, BucketHigh},
		{100, BucketHigh},
	}
	for _, tc := range cases {
		if got := BucketFor(tc.fds); got != tc.want {
			t.Fatalf("BucketFor(%v) = %q, want %q", tc.fds, got, tc.want)
		}
	}
}
