package neural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// twoBranchBlobs builds 2n alternating-class rows separable in both
// branches. Branch A carries three raw features, branch B four
// embedding-like features; a small per-row jitter keeps rows distinct.
func twoBranchBlobs(n int) (xa, xb, y *mat.Dense) {
	rows := 2 * n
	xa = mat.NewDense(rows, 3, nil)
	xb = mat.NewDense(rows, 4, nil)
	y = mat.NewDense(rows, 1, nil)

	for i := 0; i < rows; i++ {
		base := 0.0
		if i%2 == 1 {
			base = 2.0
			y.Set(i, 0, 1)
		}
		j := float64(i) * 0.001
		xa.Set(i, 0, base+j)
		xa.Set(i, 1, base+0.2-j)
		xa.Set(i, 2, 0.5*base+j)
		xb.Set(i, 0, base+0.1+j)
		xb.Set(i, 1, base-j)
		xb.Set(i, 2, 0.3*base+j)
		xb.Set(i, 3, base+0.4-j)
	}
	return xa, xb, y
}

func fitSmallNet(t *testing.T, epochs int) (*TwoBranchNet, *mat.Dense, *mat.Dense, *mat.Dense) {
	t.Helper()
	xa, xb, y := twoBranchBlobs(50)
	net := NewTwoBranchNet().WithEpochs(epochs).WithRandomState(3)
	require.NoError(t, net.Fit(xa, xb, y))
	return net, xa, xb, y
}

func TestTwoBranchNetDefaults(t *testing.T) {
	net := NewTwoBranchNet()

	assert.Equal(t, 64, net.BranchUnits)
	assert.Equal(t, 32, net.JointUnits)
	assert.InDelta(t, 0.3, net.DropoutRate, 1e-15)
	assert.InDelta(t, 0.001, net.LearningRate, 1e-15)
	assert.InDelta(t, 0.9, net.Beta1, 1e-15)
	assert.InDelta(t, 0.999, net.Beta2, 1e-15)
	assert.InDelta(t, 1e-7, net.Epsilon, 1e-20)
	assert.Equal(t, 75, net.Epochs)
	assert.Equal(t, 32, net.BatchSize)
	assert.InDelta(t, 0.1, net.ValidationSplit, 1e-15)
	assert.Equal(t, int64(42), net.RandomState)
	assert.False(t, net.IsFitted())
}

func TestTwoBranchNetFitPredict(t *testing.T) {
	net, xa, xb, y := fitSmallNet(t, 200)

	assert.True(t, net.IsFitted())

	pred, err := net.Predict(xa, xb)
	require.NoError(t, err)

	rows, cols := pred.Dims()
	require.Equal(t, 100, rows)
	require.Equal(t, 1, cols)

	correct := 0
	for i := 0; i < rows; i++ {
		v := pred.At(i, 0)
		require.True(t, v == 0 || v == 1)
		if v == y.At(i, 0) {
			correct++
		}
	}
	acc := float64(correct) / float64(rows)
	assert.GreaterOrEqual(t, acc, 0.9, "accuracy %.3f on separable blobs", acc)
}

func TestTwoBranchNetPredictProba(t *testing.T) {
	net, xa, xb, _ := fitSmallNet(t, 60)

	proba, err := net.PredictProba(xa, xb)
	require.NoError(t, err)

	rows, cols := proba.Dims()
	require.Equal(t, 100, rows)
	require.Equal(t, 2, cols)

	pred, err := net.Predict(xa, xb)
	require.NoError(t, err)

	for i := 0; i < rows; i++ {
		p0, p1 := proba.At(i, 0), proba.At(i, 1)
		assert.GreaterOrEqual(t, p0, 0.0)
		assert.LessOrEqual(t, p0, 1.0)
		assert.GreaterOrEqual(t, p1, 0.0)
		assert.LessOrEqual(t, p1, 1.0)
		assert.InDelta(t, 1.0, p0+p1, 1e-12)

		wantLabel := 0.0
		if p1 > 0.5 {
			wantLabel = 1.0
		}
		assert.Equal(t, wantLabel, pred.At(i, 0))
	}
}

func TestTwoBranchNetDeterministic(t *testing.T) {
	xa, xb, y := twoBranchBlobs(30)

	a := NewTwoBranchNet().WithEpochs(20).WithRandomState(11)
	b := NewTwoBranchNet().WithEpochs(20).WithRandomState(11)
	require.NoError(t, a.Fit(xa, xb, y))
	require.NoError(t, b.Fit(xa, xb, y))

	pa, err := a.PredictProba(xa, xb)
	require.NoError(t, err)
	pb, err := b.PredictProba(xa, xb)
	require.NoError(t, err)

	assert.True(t, mat.Equal(pa, pb), "same seed must reproduce the same network")
}

func TestTwoBranchNetInferenceStable(t *testing.T) {
	net, xa, xb, _ := fitSmallNet(t, 15)

	first, err := net.PredictProba(xa, xb)
	require.NoError(t, err)
	second, err := net.PredictProba(xa, xb)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first, second), "inference must not apply dropout")
}

func TestTwoBranchNetNotFitted(t *testing.T) {
	net := NewTwoBranchNet()
	xa := mat.NewDense(2, 3, nil)
	xb := mat.NewDense(2, 4, nil)

	_, err := net.Predict(xa, xb)
	assert.Error(t, err)

	_, err = net.PredictProba(xa, xb)
	assert.Error(t, err)
}

func TestTwoBranchNetPredictDimensionMismatch(t *testing.T) {
	net, _, _, _ := fitSmallNet(t, 5)

	_, err := net.PredictProba(mat.NewDense(4, 7, nil), mat.NewDense(4, 4, nil))
	assert.Error(t, err, "wrong branch A width")

	_, err = net.PredictProba(mat.NewDense(4, 3, nil), mat.NewDense(4, 9, nil))
	assert.Error(t, err, "wrong branch B width")

	_, err = net.PredictProba(mat.NewDense(3, 3, nil), mat.NewDense(4, 4, nil))
	assert.Error(t, err, "row mismatch between branches")
}
