package linear

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRidgeFitExact(t *testing.T) {
	// y = 1 + 2*x1 - 3*x2 を alpha=0 で厳密に復元できる
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		2, 1,
		0, 1,
		1, 2,
		2, 2,
	})
	y := mat.NewDense(6, 1, []float64{1, 3, 2, -2, 0, -1})

	rd := NewRidge(WithAlpha(0))
	if err := rd.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	weights := rd.GetWeights()
	if math.Abs(weights[0]-2) > 1e-8 || math.Abs(weights[1]+3) > 1e-8 {
		t.Errorf("weights = %v, want [2 -3]", weights)
	}
	if math.Abs(rd.GetIntercept()-1) > 1e-8 {
		t.Errorf("intercept = %v, want 1", rd.GetIntercept())
	}

	score, err := rd.Score(X, y)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if math.Abs(score-1) > 1e-8 {
		t.Errorf("Score() = %v, want 1", score)
	}
}

func TestRidgeShrinkage(t *testing.T) {
	// 中心化済みの1次元データでは解が closed form になる:
	// w = sum(x*y) / (sum(x^2) + alpha) = 20 / (10 + alpha)
	X := mat.NewDense(5, 1, []float64{-2, -1, 0, 1, 2})
	y := mat.NewDense(5, 1, []float64{-4, -2, 0, 2, 4})

	tests := []struct {
		alpha float64
		want  float64
	}{
		{0, 2.0},
		{1, 20.0 / 11.0},
		{10, 1.0},
	}

	for _, tt := range tests {
		rd := NewRidge(WithAlpha(tt.alpha))
		if err := rd.Fit(X, y); err != nil {
			t.Fatalf("Fit(alpha=%v) error = %v", tt.alpha, err)
		}
		if got := rd.GetWeights()[0]; math.Abs(got-tt.want) > 1e-10 {
			t.Errorf("alpha=%v: weight = %v, want %v", tt.alpha, got, tt.want)
		}
		if math.Abs(rd.GetIntercept()) > 1e-10 {
			t.Errorf("alpha=%v: intercept = %v, want 0", tt.alpha, rd.GetIntercept())
		}
	}
}

func TestRidgeFitWeighted(t *testing.T) {
	// 外れ値の重みをゼロにすると残りの3点から y = 2x + 1 を厳密に復元する
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{1, 3, 5, 100})
	w := mat.NewVecDense(4, []float64{1, 1, 1, 0})

	rd := NewRidge(WithAlpha(0))
	if err := rd.FitWeighted(X, y, w); err != nil {
		t.Fatalf("FitWeighted() error = %v", err)
	}

	if got := rd.GetWeights()[0]; math.Abs(got-2) > 1e-8 {
		t.Errorf("weight = %v, want 2", got)
	}
	if math.Abs(rd.GetIntercept()-1) > 1e-8 {
		t.Errorf("intercept = %v, want 1", rd.GetIntercept())
	}

	// 重み付きR²は外れ値を無視して1になる
	score, err := rd.ScoreWeighted(X, y, w)
	if err != nil {
		t.Fatalf("ScoreWeighted() error = %v", err)
	}
	if math.Abs(score-1) > 1e-8 {
		t.Errorf("ScoreWeighted() = %v, want 1", score)
	}

	// 一様重みでは外れ値に引きずられて傾きが変わる
	uniform := NewRidge(WithAlpha(0))
	if err := uniform.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if math.Abs(uniform.GetWeights()[0]-2) < 1 {
		t.Errorf("uniform weight = %v, want far from 2", uniform.GetWeights()[0])
	}
}

func TestRidgeNoIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})

	rd := NewRidge(WithAlpha(0), WithFitIntercept(false))
	if err := rd.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if got := rd.GetWeights()[0]; math.Abs(got-2) > 1e-10 {
		t.Errorf("weight = %v, want 2", got)
	}
	if rd.GetIntercept() != 0 {
		t.Errorf("intercept = %v, want 0", rd.GetIntercept())
	}
}

func TestRidgePredict(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewDense(3, 1, []float64{1, 3, 5})

	rd := NewRidge(WithAlpha(0))
	if err := rd.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	pred, err := rd.Predict(mat.NewDense(2, 1, []float64{4, -1}))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if math.Abs(pred.At(0, 0)-9) > 1e-8 || math.Abs(pred.At(1, 0)+1) > 1e-8 {
		t.Errorf("Predict() = [%v %v], want [9 -1]", pred.At(0, 0), pred.At(1, 0))
	}
}

func TestRidgeDefaults(t *testing.T) {
	rd := NewRidge()
	if rd.Alpha != 1.0 {
		t.Errorf("default Alpha = %v, want 1.0", rd.Alpha)
	}
	if !rd.fitIntercept {
		t.Error("default fitIntercept = false, want true")
	}
}

func TestRidgeErrors(t *testing.T) {
	valid := mat.NewDense(3, 1, []float64{1, 2, 3})
	validY := mat.NewDense(3, 1, []float64{1, 2, 3})

	t.Run("empty data", func(t *testing.T) {
		if err := NewRidge().Fit(&mat.Dense{}, validY); err == nil {
			t.Error("Fit() expected an error")
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		y := mat.NewDense(2, 1, []float64{1, 2})
		if err := NewRidge().Fit(valid, y); err == nil {
			t.Error("Fit() expected an error")
		}
	})

	t.Run("y not a column vector", func(t *testing.T) {
		y := mat.NewDense(3, 2, nil)
		if err := NewRidge().Fit(valid, y); err == nil {
			t.Error("Fit() expected an error")
		}
	})

	t.Run("negative alpha", func(t *testing.T) {
		if err := NewRidge(WithAlpha(-1)).Fit(valid, validY); err == nil {
			t.Error("Fit() expected an error")
		}
	})

	t.Run("negative sample weight", func(t *testing.T) {
		w := mat.NewVecDense(3, []float64{1, -1, 1})
		if err := NewRidge().FitWeighted(valid, validY, w); err == nil {
			t.Error("FitWeighted() expected an error")
		}
	})

	t.Run("all-zero sample weights", func(t *testing.T) {
		w := mat.NewVecDense(3, nil)
		if err := NewRidge().FitWeighted(valid, validY, w); err == nil {
			t.Error("FitWeighted() expected an error")
		}
	})

	t.Run("weight length mismatch", func(t *testing.T) {
		w := mat.NewVecDense(2, []float64{1, 1})
		if err := NewRidge().FitWeighted(valid, validY, w); err == nil {
			t.Error("FitWeighted() expected an error")
		}
	})

	t.Run("singular matrix without regularization", func(t *testing.T) {
		// 同一の2列は alpha=0 では特異になる
		X := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})
		y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
		if err := NewRidge(WithAlpha(0)).Fit(X, y); err == nil {
			t.Error("Fit() expected a singular matrix error")
		}
	})

	t.Run("predict before fit", func(t *testing.T) {
		if _, err := NewRidge().Predict(valid); err == nil {
			t.Error("Predict() expected an error")
		}
	})

	t.Run("predict feature mismatch", func(t *testing.T) {
		rd := NewRidge()
		if err := rd.Fit(valid, validY); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		if _, err := rd.Predict(mat.NewDense(3, 2, nil)); err == nil {
			t.Error("Predict() expected an error")
		}
	})
}

// createRidgeBenchData はベンチマーク用のデータを生成する
func createRidgeBenchData(rows, cols int) (*mat.Dense, *mat.Dense) {
	// シードを固定して再現性を確保
	rng := rand.New(rand.NewSource(42))

	X := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			X.Set(i, j, rng.Float64()*2.0-1.0)
		}
	}

	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := 1.0
		for j := 0; j < cols; j++ {
			sum += X.At(i, j) * float64(j+1) * 0.5
		}
		sum += (rng.Float64() - 0.5) * 0.1
		y.Set(i, 0, sum)
	}

	return X, y
}

func BenchmarkRidgeFit(b *testing.B) {
	sizes := []struct {
		name string
		rows int
		cols int
	}{
		{"Small_100x10", 100, 10},
		{"Medium_1000x10", 1000, 10},
		{"Large_5000x20", 5000, 20},
	}

	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			X, y := createRidgeBenchData(size.rows, size.cols)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				rd := NewRidge()
				if err := rd.Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRidgeFitWeighted(b *testing.B) {
	X, y := createRidgeBenchData(5000, 20)
	w := mat.NewVecDense(5000, nil)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < w.Len(); i++ {
		w.SetVec(i, rng.Float64())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rd := NewRidge()
		if err := rd.FitWeighted(X, y, w); err != nil {
			b.Fatal(err)
		}
	}
}
