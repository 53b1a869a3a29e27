package ensemble

import (
	"math"
	"testing"
)

func TestLogisticGradient(t *testing.T) {
	obj := NewLogisticObjective()

	tests := []struct {
		name     string
		rawScore float64
		target   float64
		want     float64
	}{
		{name: "zero score positive target", rawScore: 0, target: 1, want: -0.5},
		{name: "zero score negative target", rawScore: 0, target: 0, want: 0.5},
		{name: "saturated positive", rawScore: 40, target: 1, want: 0},
		{name: "saturated negative", rawScore: -40, target: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := obj.CalculateGradient(tt.rawScore, tt.target)
			if math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("CalculateGradient(%v, %v) = %v, want %v", tt.rawScore, tt.target, got, tt.want)
			}
		})
	}
}

func TestLogisticHessian(t *testing.T) {
	obj := NewLogisticObjective()

	if got := obj.CalculateHessian(0, 1); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("CalculateHessian(0, 1) = %v, want 0.25", got)
	}

	// stays strictly positive even when the sigmoid saturates
	for _, raw := range []float64{-100, -40, 40, 100} {
		if got := obj.CalculateHessian(raw, 0); got <= 0 {
			t.Errorf("CalculateHessian(%v, 0) = %v, want > 0", raw, got)
		}
	}
}

func TestLogisticLoss(t *testing.T) {
	obj := NewLogisticObjective()

	if got := obj.CalculateLoss(0, 1); math.Abs(got-math.Ln2) > 1e-12 {
		t.Errorf("CalculateLoss(0, 1) = %v, want ln 2", got)
	}

	confident := obj.CalculateLoss(10, 1)
	wrong := obj.CalculateLoss(-10, 1)
	if confident >= wrong {
		t.Errorf("loss for a confident correct score (%v) should be below a confident wrong one (%v)", confident, wrong)
	}
	if math.IsInf(obj.CalculateLoss(-1000, 1), 0) {
		t.Error("CalculateLoss should stay finite at extreme scores")
	}
}

func TestLogisticInitScore(t *testing.T) {
	obj := NewLogisticObjective()

	if got := obj.GetInitScore([]float64{0, 1, 0, 1}); math.Abs(got) > 1e-12 {
		t.Errorf("GetInitScore on balanced labels = %v, want 0", got)
	}

	got := obj.GetInitScore([]float64{1, 1, 1, 0})
	want := math.Log(3.0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("GetInitScore([1 1 1 0]) = %v, want ln 3", got)
	}

	if got := obj.GetInitScore(nil); got != 0 {
		t.Errorf("GetInitScore(nil) = %v, want 0", got)
	}

	allOnes := obj.GetInitScore([]float64{1, 1, 1})
	if math.IsInf(allOnes, 0) || math.IsNaN(allOnes) {
		t.Errorf("GetInitScore on a single class must stay finite, got %v", allOnes)
	}
}

func TestLogisticTransformAndName(t *testing.T) {
	obj := NewLogisticObjective()

	if got := obj.Transform(0); got != 0.5 {
		t.Errorf("Transform(0) = %v, want 0.5", got)
	}
	if obj.Name() != "binary" {
		t.Errorf("Name() = %q, want binary", obj.Name())
	}
}

func TestStableSigmoid(t *testing.T) {
	if got := stableSigmoid(0); got != 0.5 {
		t.Errorf("stableSigmoid(0) = %v, want 0.5", got)
	}
	if got := stableSigmoid(2); math.Abs(got-0.8807970779778823) > 1e-15 {
		t.Errorf("stableSigmoid(2) = %v", got)
	}

	// extremes must not overflow to NaN
	if got := stableSigmoid(1000); got != 1 {
		t.Errorf("stableSigmoid(1000) = %v, want 1", got)
	}
	if got := stableSigmoid(-1000); got != 0 {
		t.Errorf("stableSigmoid(-1000) = %v, want 0", got)
	}

	// symmetry
	for _, x := range []float64{0.5, 1, 3, 7} {
		sum := stableSigmoid(x) + stableSigmoid(-x)
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("sigmoid(%v) + sigmoid(-%v) = %v, want 1", x, x, sum)
		}
	}
}

func TestSampleFeatures(t *testing.T) {
	s := NewSamplingStrategy(42, 1.0, 1.0)
	rng := s.TreeRNG(0)

	features := SampleFeatures(rng, 10, 4)
	if len(features) != 4 {
		t.Fatalf("SampleFeatures returned %d features, want 4", len(features))
	}
	seen := map[int]bool{}
	for _, f := range features {
		if f < 0 || f >= 10 {
			t.Errorf("feature index %d out of range", f)
		}
		if seen[f] {
			t.Errorf("feature index %d drawn twice", f)
		}
		seen[f] = true
	}

	// oversampling clamps to the feature count
	all := SampleFeatures(rng, 3, 10)
	if len(all) != 3 {
		t.Errorf("SampleFeatures(3, 10) returned %d features, want 3", len(all))
	}
}

func TestBootstrap(t *testing.T) {
	s := NewSamplingStrategy(42, 1.0, 1.0)
	rng := s.TreeRNG(3)

	indices := Bootstrap(rng, 50)
	if len(indices) != 50 {
		t.Fatalf("Bootstrap returned %d indices, want 50", len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= 50 {
			t.Errorf("bootstrap index %d out of range", idx)
		}
	}
}

func TestSampleInstances(t *testing.T) {
	full := NewSamplingStrategy(42, 1.0, 1.0)
	rng := full.TreeRNG(0)
	if got := full.SampleInstances(rng, 8); len(got) != 8 {
		t.Errorf("full bagging fraction should keep every row, got %d", len(got))
	}

	half := NewSamplingStrategy(42, 1.0, 0.5)
	rng = half.TreeRNG(0)
	sampled := half.SampleInstances(rng, 8)
	if len(sampled) != 4 {
		t.Fatalf("bagging fraction 0.5 over 8 rows should keep 4, got %d", len(sampled))
	}
	seen := map[int]bool{}
	for _, idx := range sampled {
		if seen[idx] {
			t.Errorf("row %d sampled twice without replacement", idx)
		}
		seen[idx] = true
	}
}

func TestTreeRNGDeterministic(t *testing.T) {
	s := NewSamplingStrategy(7, 1.0, 1.0)

	a := s.TreeRNG(5).Int63()
	b := s.TreeRNG(5).Int63()
	if a != b {
		t.Error("TreeRNG must be reproducible for the same tree index")
	}

	c := s.TreeRNG(6).Int63()
	if a == c {
		t.Error("TreeRNG streams for different trees should diverge")
	}
}
