package neural

import (
	"bytes"
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// layerState is the serializable mirror of a dense layer. Optimizer
// moments are not carried; Fit reinitializes them anyway.
type layerState struct {
	Rows, Cols int
	Weights    []float64
	Bias       []float64
}

func captureLayer(l *denseLayer) layerState {
	r, c := l.W.Dims()
	st := layerState{
		Rows:    r,
		Cols:    c,
		Weights: make([]float64, r*c),
		Bias:    append([]float64(nil), l.b...),
	}
	for i := 0; i < r; i++ {
		copy(st.Weights[i*c:(i+1)*c], l.W.RawRowView(i))
	}
	return st
}

func (s layerState) restore() *denseLayer {
	return &denseLayer{
		W:  mat.NewDense(s.Rows, s.Cols, s.Weights),
		b:  append([]float64(nil), s.Bias...),
		mW: mat.NewDense(s.Rows, s.Cols, nil),
		vW: mat.NewDense(s.Rows, s.Cols, nil),
		mB: make([]float64, s.Rows),
		vB: make([]float64, s.Rows),
	}
}

// netState mirrors the exported settings plus the fitted weights.
type netState struct {
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
	History         []EpochStats
	NFeaturesA      int
	NFeaturesB      int
	BranchA         layerState
	BranchB         layerState
	Joint           layerState
	Output          layerState
}

// GobEncode serializes a fitted network.
func (net *TwoBranchNet) GobEncode() ([]byte, error) {
	if !net.state.IsFitted() {
		return nil, errors.NewNotFittedError("TwoBranchNet", "GobEncode")
	}
	st := netState{
		BranchUnits:     net.BranchUnits,
		JointUnits:      net.JointUnits,
		DropoutRate:     net.DropoutRate,
		LearningRate:    net.LearningRate,
		Beta1:           net.Beta1,
		Beta2:           net.Beta2,
		Epsilon:         net.Epsilon,
		Epochs:          net.Epochs,
		BatchSize:       net.BatchSize,
		ValidationSplit: net.ValidationSplit,
		RandomState:     net.RandomState,
		History:         net.History,
		NFeaturesA:      net.nFeaturesA_,
		NFeaturesB:      net.nFeaturesB_,
		BranchA:         captureLayer(net.branchA),
		BranchB:         captureLayer(net.branchB),
		Joint:           captureLayer(net.joint),
		Output:          captureLayer(net.output),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores a network saved by GobEncode. The decoded network
// predicts immediately; calling Fit starts a fresh training run.
func (net *TwoBranchNet) GobDecode(data []byte) error {
	var st netState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}

	net.state = model.NewStateManager()
	net.BranchUnits = st.BranchUnits
	net.JointUnits = st.JointUnits
	net.DropoutRate = st.DropoutRate
	net.LearningRate = st.LearningRate
	net.Beta1 = st.Beta1
	net.Beta2 = st.Beta2
	net.Epsilon = st.Epsilon
	net.Epochs = st.Epochs
	net.BatchSize = st.BatchSize
	net.ValidationSplit = st.ValidationSplit
	net.RandomState = st.RandomState
	net.History = st.History
	net.nFeaturesA_ = st.NFeaturesA
	net.nFeaturesB_ = st.NFeaturesB
	net.branchA = st.BranchA.restore()
	net.branchB = st.BranchB.restore()
	net.joint = st.Joint.restore()
	net.output = st.Output.restore()
	net.state.SetDimensions(st.NFeaturesA+st.NFeaturesB, 0)
	net.state.SetFitted()
	return nil
}
