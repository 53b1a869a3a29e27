// Package neural implements the two-branch classifier head that joins raw
// tabular features with tree leaf embeddings. One hidden layer per input
// branch, a shared reduction layer after concatenation and a single
// sigmoid output trained with class-weighted cross-entropy.
package neural

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// EpochStats records the losses observed during one training epoch.
// ValLoss and ValAccuracy are NaN when no validation rows were held out.
type EpochStats struct {
	Epoch       int
	TrainLoss   float64
	ValLoss     float64
	ValAccuracy float64
}

// TwoBranchNet is a feed-forward binary classifier with two input
// branches. Raw features and leaf embeddings each pass through their own
// Dense+ReLU layer with inverted dropout, the activations are
// concatenated, reduced by a joint Dense+ReLU layer and squashed to a
// positive-class probability.
type TwoBranchNet struct {
	state *model.StateManager

	branchA *denseLayer
	branchB *denseLayer
	joint   *denseLayer
	output  *denseLayer

	// Architecture and optimizer settings. Mutate before calling Fit.
	BranchUnits     int
	JointUnits      int
	DropoutRate     float64
	LearningRate    float64
	Beta1           float64
	Beta2           float64
	Epsilon         float64
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	RandomState     int64

	// History holds one entry per epoch of the most recent Fit.
	History []EpochStats

	nFeaturesA_ int
	nFeaturesB_ int
}

// NewTwoBranchNet returns a network with the stock layout: Dense(64,
// ReLU) plus Dropout(0.3) on each branch, Dense(32, ReLU) after the
// merge and one sigmoid unit on top, trained by Adam for 75 epochs.
func NewTwoBranchNet() *TwoBranchNet {
	return &TwoBranchNet{
		state:           model.NewStateManager(),
		BranchUnits:     64,
		JointUnits:      32,
		DropoutRate:     0.3,
		LearningRate:    0.001,
		Beta1:           0.9,
		Beta2:           0.999,
		Epsilon:         1e-7,
		Epochs:          75,
		BatchSize:       32,
		ValidationSplit: 0.1,
		RandomState:     42,
	}
}

// WithEpochs sets the number of training epochs.
func (net *TwoBranchNet) WithEpochs(epochs int) *TwoBranchNet {
	net.Epochs = epochs
	return net
}

// WithBatchSize sets the mini-batch size.
func (net *TwoBranchNet) WithBatchSize(size int) *TwoBranchNet {
	net.BatchSize = size
	return net
}

// WithLearningRate sets the Adam learning rate.
func (net *TwoBranchNet) WithLearningRate(lr float64) *TwoBranchNet {
	net.LearningRate = lr
	return net
}

// WithDropoutRate sets the branch dropout rate.
func (net *TwoBranchNet) WithDropoutRate(rate float64) *TwoBranchNet {
	net.DropoutRate = rate
	return net
}

// WithValidationSplit sets the fraction of training rows held out for
// per-epoch validation.
func (net *TwoBranchNet) WithValidationSplit(fraction float64) *TwoBranchNet {
	net.ValidationSplit = fraction
	return net
}

// WithRandomState sets the seed used for weight init, shuffling and
// dropout masks.
func (net *TwoBranchNet) WithRandomState(seed int64) *TwoBranchNet {
	net.RandomState = seed
	return net
}

// GetParams returns the architecture and optimizer settings.
func (net *TwoBranchNet) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"branch_units":     net.BranchUnits,
		"joint_units":      net.JointUnits,
		"dropout_rate":     net.DropoutRate,
		"learning_rate":    net.LearningRate,
		"beta_1":           net.Beta1,
		"beta_2":           net.Beta2,
		"epsilon":          net.Epsilon,
		"epochs":           net.Epochs,
		"batch_size":       net.BatchSize,
		"validation_split": net.ValidationSplit,
		"random_state":     net.RandomState,
	}
}

// SetParams updates settings from a parameter map. Unknown keys and
// mismatched value types are ignored.
func (net *TwoBranchNet) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "branch_units":
			if v, ok := value.(int); ok {
				net.BranchUnits = v
			}
		case "joint_units":
			if v, ok := value.(int); ok {
				net.JointUnits = v
			}
		case "dropout_rate":
			if v, ok := value.(float64); ok {
				net.DropoutRate = v
			}
		case "learning_rate":
			if v, ok := value.(float64); ok {
				net.LearningRate = v
			}
		case "beta_1":
			if v, ok := value.(float64); ok {
				net.Beta1 = v
			}
		case "beta_2":
			if v, ok := value.(float64); ok {
				net.Beta2 = v
			}
		case "epsilon":
			if v, ok := value.(float64); ok {
				net.Epsilon = v
			}
		case "epochs":
			if v, ok := value.(int); ok {
				net.Epochs = v
			}
		case "batch_size":
			if v, ok := value.(int); ok {
				net.BatchSize = v
			}
		case "validation_split":
			if v, ok := value.(float64); ok {
				net.ValidationSplit = v
			}
		case "random_state":
			switch v := value.(type) {
			case int:
				net.RandomState = int64(v)
			case int64:
				net.RandomState = v
			}
		}
	}
	return nil
}

// IsFitted reports whether the network has been trained.
func (net *TwoBranchNet) IsFitted() bool {
	return net.state.IsFitted()
}

// PredictProba returns an n x 2 matrix of class probabilities. Column 0
// holds the negative class, column 1 the positive class; each row sums
// to one. Dropout is disabled at inference.
func (net *TwoBranchNet) PredictProba(XA, XB mat.Matrix) (*mat.Dense, error) {
	const op = "TwoBranchNet.PredictProba"
	if !net.state.IsFitted() {
		return nil, errors.NewNotFittedError("TwoBranchNet", "PredictProba")
	}

	xa, xb, err := net.checkPredictInputs(op, XA, XB)
	if err != nil {
		return nil, err
	}

	probs := net.predictRaw(xa, xb)
	out := mat.NewDense(len(probs), 2, nil)
	for i, p := range probs {
		out.Set(i, 0, 1.0-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns an n x 1 matrix of hard class labels, thresholding the
// positive-class probability at 0.5.
func (net *TwoBranchNet) Predict(XA, XB mat.Matrix) (mat.Matrix, error) {
	const op = "TwoBranchNet.Predict"
	if !net.state.IsFitted() {
		return nil, errors.NewNotFittedError("TwoBranchNet", "Predict")
	}

	xa, xb, err := net.checkPredictInputs(op, XA, XB)
	if err != nil {
		return nil, err
	}

	probs := net.predictRaw(xa, xb)
	out := mat.NewDense(len(probs), 1, nil)
	for i, p := range probs {
		if p > 0.5 {
			out.Set(i, 0, 1.0)
		}
	}
	return out, nil
}

// predictRaw runs a dropout-free forward pass and returns the
// positive-class probability per row.
func (net *TwoBranchNet) predictRaw(xa, xb *mat.Dense) []float64 {
	hA := reluInPlace(net.branchA.forward(xa))
	hB := reluInPlace(net.branchB.forward(xb))
	merged := concatColumns(hA, hB)
	hJ := reluInPlace(net.joint.forward(merged))
	preOut := net.output.forward(hJ)

	rows, _ := preOut.Dims()
	probs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		probs[i] = sigmoid(preOut.At(i, 0))
	}
	return probs
}

func (net *TwoBranchNet) checkPredictInputs(op string, XA, XB mat.Matrix) (*mat.Dense, *mat.Dense, error) {
	rows, colsA := XA.Dims()
	rowsB, colsB := XB.Dims()

	if rows == 0 || colsA == 0 || colsB == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if rowsB != rows {
		return nil, nil, errors.NewDimensionError(op, rows, rowsB, 0)
	}
	if colsA != net.nFeaturesA_ {
		return nil, nil, errors.NewDimensionError(op, net.nFeaturesA_, colsA, 1)
	}
	if colsB != net.nFeaturesB_ {
		return nil, nil, errors.NewDimensionError(op, net.nFeaturesB_, colsB, 1)
	}
	return toDense(XA), toDense(XB), nil
}

// sigmoid is numerically stable for large negative inputs.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

func reluInPlace(m *mat.Dense) *mat.Dense {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := range row {
			if row[j] < 0 {
				row[j] = 0
			}
		}
	}
	return m
}

func concatColumns(a, b *mat.Dense) *mat.Dense {
	rows, colsA := a.Dims()
	_, colsB := b.Dims()

	out := mat.NewDense(rows, colsA+colsB, nil)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		copy(row[:colsA], a.RawRowView(i))
		copy(row[colsA:], b.RawRowView(i))
	}
	return out
}

// toDense converts an arbitrary matrix to *mat.Dense without copying when
// it already is one
func toDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}

	rows, cols := X.Dims()
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d.Set(i, j, X.At(i, j))
		}
	}
	return d
}
