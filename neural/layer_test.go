package neural

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewDenseLayerShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := newDenseLayer(3, 5, rng)

	rows, cols := l.W.Dims()
	if rows != 5 || cols != 3 {
		t.Fatalf("W dims = (%d, %d), want (5, 3)", rows, cols)
	}
	if len(l.b) != 5 {
		t.Fatalf("bias length = %d, want 5", len(l.b))
	}
	for j, v := range l.b {
		if v != 0 {
			t.Errorf("bias[%d] = %v, want 0", j, v)
		}
	}

	nonZero := false
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if l.W.At(i, j) != 0 {
				nonZero = true
			}
		}
	}
	if !nonZero {
		t.Error("weights were not initialized")
	}
}

func TestDenseLayerForward(t *testing.T) {
	l := &denseLayer{
		W: mat.NewDense(2, 3, []float64{1, 0, -1, 2, 1, 0}),
		b: []float64{0.5, -0.5},
	}
	x := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		0, 1, 0,
	})

	pre := l.forward(x)

	want := [][]float64{
		{-1.5, 3.5},
		{0.5, 0.5},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got := pre.At(i, j); math.Abs(got-want[i][j]) > 1e-12 {
				t.Errorf("pre[%d][%d] = %v, want %v", i, j, got, want[i][j])
			}
		}
	}
}

func TestDenseLayerBackward(t *testing.T) {
	l := &denseLayer{
		W: mat.NewDense(2, 3, []float64{1, 0, -1, 2, 1, 0}),
		b: []float64{0, 0},
	}
	x := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	dPre := mat.NewDense(2, 2, []float64{
		1, -1,
		2, 0,
	})

	gW, gb, dX := l.backward(x, dPre)

	wantGW := [][]float64{
		{9, 12, 15},
		{-1, -2, -3},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if got := gW.At(i, j); math.Abs(got-wantGW[i][j]) > 1e-12 {
				t.Errorf("gW[%d][%d] = %v, want %v", i, j, got, wantGW[i][j])
			}
		}
	}

	wantGB := []float64{3, -1}
	for j, want := range wantGB {
		if math.Abs(gb[j]-want) > 1e-12 {
			t.Errorf("gb[%d] = %v, want %v", j, gb[j], want)
		}
	}

	wantDX := [][]float64{
		{-1, -1, -1},
		{2, 0, -2},
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if got := dX.At(i, j); math.Abs(got-wantDX[i][j]) > 1e-12 {
				t.Errorf("dX[%d][%d] = %v, want %v", i, j, got, wantDX[i][j])
			}
		}
	}
}

func TestAdamStepFirstUpdate(t *testing.T) {
	tests := []struct {
		name string
		g    float64
	}{
		{"positive", 1.0},
		{"negative", -2.0},
		{"fractional", 0.5},
	}

	lr, beta1, beta2, eps := 0.001, 0.9, 0.999, 1e-7
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &denseLayer{
				W:  mat.NewDense(1, 1, []float64{0.25}),
				b:  []float64{0.1},
				mW: mat.NewDense(1, 1, nil),
				vW: mat.NewDense(1, 1, nil),
				mB: make([]float64, 1),
				vB: make([]float64, 1),
			}
			gW := mat.NewDense(1, 1, []float64{tt.g})
			gb := []float64{tt.g}

			l.adamStep(gW, gb, lr, beta1, beta2, eps, 1)

			// With zero moments the first bias-corrected update reduces
			// to lr * g / (|g| + eps).
			want := 0.25 - lr*tt.g/(math.Abs(tt.g)+eps)
			if got := l.W.At(0, 0); math.Abs(got-want) > 1e-9 {
				t.Errorf("W after step = %v, want %v", got, want)
			}
			wantB := 0.1 - lr*tt.g/(math.Abs(tt.g)+eps)
			if math.Abs(l.b[0]-wantB) > 1e-9 {
				t.Errorf("b after step = %v, want %v", l.b[0], wantB)
			}
		})
	}
}

func TestDropoutMask(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mask := dropoutMask(80, 80, 0.3, rng)

	inv := 1.0 / (1.0 - 0.3)
	kept := 0
	rows, cols := mask.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := mask.At(i, j)
			if v != 0 && v != inv {
				t.Fatalf("mask[%d][%d] = %v, want 0 or %v", i, j, v, inv)
			}
			if v != 0 {
				kept++
			}
		}
	}

	frac := float64(kept) / float64(rows*cols)
	if frac < 0.6 || frac > 0.8 {
		t.Errorf("kept fraction = %v, want about 0.7", frac)
	}
}

func TestMaskReLU(t *testing.T) {
	grad := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	pre := mat.NewDense(2, 3, []float64{-1, 0, 2, 0.1, -0.1, 0})

	maskReLU(grad, pre)

	want := []float64{0, 0, 3, 4, 0, 0}
	for i, v := range grad.RawMatrix().Data {
		if v != want[i] {
			t.Errorf("grad[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestConcatSplitColumns(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 3, []float64{5, 6, 7, 8, 9, 10})

	merged := concatColumns(a, b)
	rows, cols := merged.Dims()
	if rows != 2 || cols != 5 {
		t.Fatalf("merged dims = (%d, %d), want (2, 5)", rows, cols)
	}
	if merged.At(0, 0) != 1 || merged.At(0, 2) != 5 || merged.At(1, 4) != 10 {
		t.Error("merged columns are out of order")
	}

	left, right := splitColumns(merged, 2)
	if !mat.Equal(left, a) {
		t.Error("left half does not round-trip")
	}
	if !mat.Equal(right, b) {
		t.Error("right half does not round-trip")
	}
}

func TestGatherRows(t *testing.T) {
	src := mat.NewDense(4, 2, []float64{0, 1, 10, 11, 20, 21, 30, 31})

	out := gatherRows(src, []int{3, 1})

	rows, cols := out.Dims()
	if rows != 2 || cols != 2 {
		t.Fatalf("dims = (%d, %d), want (2, 2)", rows, cols)
	}
	if out.At(0, 0) != 30 || out.At(0, 1) != 31 || out.At(1, 0) != 10 {
		t.Errorf("rows gathered in wrong order: got %v", out.RawMatrix().Data)
	}
}

func TestSigmoid(t *testing.T) {
	if got := sigmoid(0); got != 0.5 {
		t.Errorf("sigmoid(0) = %v, want 0.5", got)
	}
	if got := sigmoid(1000); got != 1.0 {
		t.Errorf("sigmoid(1000) = %v, want 1", got)
	}
	if got := sigmoid(-1000); got != 0.0 {
		t.Errorf("sigmoid(-1000) = %v, want 0", got)
	}
	for _, x := range []float64{0.5, 2, 17.3} {
		if s := sigmoid(x) + sigmoid(-x); math.Abs(s-1.0) > 1e-12 {
			t.Errorf("sigmoid(%v) + sigmoid(-%v) = %v, want 1", x, x, s)
		}
	}
}
