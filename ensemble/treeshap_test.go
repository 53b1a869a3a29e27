package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TestTreeExplainerSingleSplit verifies the attribution of a hand-built
// one-split tree against the closed form: the split feature receives the
// difference between the reached leaf and the cover-weighted tree mean.
func TestTreeExplainerSingleSplit(t *testing.T) {
	model := &Model{
		NumFeatures: 1,
		InitScore:   0.25,
		Objective:   "binary",
		Trees: []Tree{
			{
				Index:         0,
				NumLeaves:     2,
				ShrinkageRate: 0.5,
				Nodes: []Node{
					{ID: 0, ParentID: -1, Left: 1, Right: 2, Kind: SplitNode, SplitFeature: 0, Threshold: 5.0, Cover: 10, SampleCount: 10},
					{ID: 1, ParentID: 0, Left: -1, Right: -1, Kind: LeafNode, LeafValue: -1.0, Cover: 6, SampleCount: 6},
					{ID: 2, ParentID: 0, Left: -1, Right: -1, Kind: LeafNode, LeafValue: 2.0, Cover: 4, SampleCount: 4},
				},
			},
		},
	}

	ex, err := NewTreeExplainer(model)
	require.NoError(t, err)

	// cover-weighted mean: (-1*6 + 2*4) / 10 = 0.2
	assert.InDelta(t, 0.25+0.5*0.2, ex.BaseValue(), 1e-12)

	X := mat.NewDense(2, 1, []float64{3, 7})
	sv, err := ex.SHAPValues(X)
	require.NoError(t, err)

	assert.InDelta(t, 0.5*(-1.0-0.2), sv.Values.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5*(2.0-0.2), sv.Values.At(1, 0), 1e-12)

	// additivity against the model margin
	assert.InDelta(t, model.Margin([]float64{3}), sv.BaseValue+sv.Values.At(0, 0), 1e-12)
	assert.InDelta(t, model.Margin([]float64{7}), sv.BaseValue+sv.Values.At(1, 0), 1e-12)
}

// TestTreeExplainerAdditivity verifies that for a trained booster the base
// value plus the per-row attributions reproduces the margin exactly.
func TestTreeExplainerAdditivity(t *testing.T) {
	X, y := blobData(25)

	clf := NewGradientBoostingClassifier().WithNumIterations(15).WithMaxDepth(6)
	require.NoError(t, clf.Fit(X, y))

	ex, err := NewTreeExplainer(clf.Model)
	require.NoError(t, err)

	sv, err := ex.SHAPValues(X)
	require.NoError(t, err)

	rows, cols := sv.Values.Dims()
	require.Equal(t, 50, rows)
	require.Equal(t, 2, cols)

	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)

		total := sv.BaseValue
		for j := 0; j < cols; j++ {
			total += sv.Values.At(i, j)
		}
		assert.InDelta(t, clf.Model.Margin(features), total, 1e-6,
			"row %d attributions must sum to the margin", i)
	}
}

// TestTreeExplainerLeafwiseModel verifies additivity on deeper, narrower
// trees where features repeat along a path.
func TestTreeExplainerLeafwiseModel(t *testing.T) {
	X, y := blobData(25)

	clf := NewLeafwiseBoostingClassifier().
		WithNumIterations(10).
		WithNumLeaves(8).
		WithMinChildSamples(2)
	require.NoError(t, clf.Fit(X, y))

	ex, err := NewTreeExplainer(clf.Model)
	require.NoError(t, err)

	sv, err := ex.SHAPValues(X)
	require.NoError(t, err)

	rows, cols := sv.Values.Dims()
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)

		total := sv.BaseValue
		for j := 0; j < cols; j++ {
			total += sv.Values.At(i, j)
		}
		assert.InDelta(t, clf.Model.Margin(features), total, 1e-6)
	}
}

// TestTreeExplainerErrors tests input validation
func TestTreeExplainerErrors(t *testing.T) {
	_, err := NewTreeExplainer(nil)
	assert.Error(t, err)

	_, err = NewTreeExplainer(&Model{NumFeatures: 2})
	assert.Error(t, err, "a model without trees cannot be explained")

	X, y := blobData(15)
	clf := NewGradientBoostingClassifier().WithNumIterations(3)
	require.NoError(t, clf.Fit(X, y))

	ex, err := NewTreeExplainer(clf.Model)
	require.NoError(t, err)

	_, err = ex.SHAPValues(mat.NewDense(2, 7, nil))
	assert.Error(t, err, "feature count mismatch must be rejected")
}
