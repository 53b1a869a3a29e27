package neural

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// denseLayer is a fully connected layer with per-parameter Adam moment
// buffers. Weights are stored as (out, in) so a batch forward pass is
// X * W^T plus a broadcast bias.
type denseLayer struct {
	W *mat.Dense // (out, in)
	b []float64

	mW, vW *mat.Dense
	mB, vB []float64
}

// newDenseLayer draws initial weights from N(0, sqrt(2/fanIn)) using the
// supplied source so repeated runs produce identical networks. Biases
// start at zero.
func newDenseLayer(fanIn, fanOut int, rng *rand.Rand) *denseLayer {
	w := mat.NewDense(fanOut, fanIn, nil)
	std := math.Sqrt(2.0 / float64(fanIn))
	for i := 0; i < fanOut; i++ {
		row := w.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64() * std
		}
	}

	return &denseLayer{
		W:  w,
		b:  make([]float64, fanOut),
		mW: mat.NewDense(fanOut, fanIn, nil),
		vW: mat.NewDense(fanOut, fanIn, nil),
		mB: make([]float64, fanOut),
		vB: make([]float64, fanOut),
	}
}

// forward computes the pre-activation X*W^T + b for a batch of shape
// (n, fanIn).
func (l *denseLayer) forward(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	out, _ := l.W.Dims()

	pre := mat.NewDense(n, out, nil)
	pre.Mul(x, l.W.T())
	for i := 0; i < n; i++ {
		row := pre.RawRowView(i)
		for j := range row {
			row[j] += l.b[j]
		}
	}
	return pre
}

// backward converts the gradient at the pre-activation into parameter
// gradients and the gradient with respect to the layer input.
func (l *denseLayer) backward(x, dPre *mat.Dense) (gW *mat.Dense, gb []float64, dX *mat.Dense) {
	n, in := x.Dims()
	out, _ := l.W.Dims()

	gW = mat.NewDense(out, in, nil)
	gW.Mul(dPre.T(), x)

	gb = make([]float64, out)
	for i := 0; i < n; i++ {
		row := dPre.RawRowView(i)
		for j := range row {
			gb[j] += row[j]
		}
	}

	dX = mat.NewDense(n, in, nil)
	dX.Mul(dPre, l.W)
	return gW, gb, dX
}

// adamStep applies one bias-corrected Adam update. step counts updates
// across the whole run and starts at 1.
func (l *denseLayer) adamStep(gW *mat.Dense, gb []float64, lr, beta1, beta2, eps float64, step int) {
	c1 := 1.0 - math.Pow(beta1, float64(step))
	c2 := 1.0 - math.Pow(beta2, float64(step))

	out, _ := l.W.Dims()
	for i := 0; i < out; i++ {
		wRow := l.W.RawRowView(i)
		gRow := gW.RawRowView(i)
		mRow := l.mW.RawRowView(i)
		vRow := l.vW.RawRowView(i)
		for j := range wRow {
			g := gRow[j]
			mRow[j] = beta1*mRow[j] + (1.0-beta1)*g
			vRow[j] = beta2*vRow[j] + (1.0-beta2)*g*g
			wRow[j] -= lr * (mRow[j] / c1) / (math.Sqrt(vRow[j]/c2) + eps)
		}
	}

	for j := range l.b {
		g := gb[j]
		l.mB[j] = beta1*l.mB[j] + (1.0-beta1)*g
		l.vB[j] = beta2*l.vB[j] + (1.0-beta2)*g*g
		l.b[j] -= lr * (l.mB[j] / c1) / (math.Sqrt(l.vB[j]/c2) + eps)
	}
}
