package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/ensemble"
)

// singleSplitModel carries all signal on feature 0; feature 1 is never
// used by any split.
func singleSplitModel() *ensemble.Model {
	return &ensemble.Model{
		NumFeatures: 2,
		InitScore:   0,
		Objective:   "binary",
		Trees: []ensemble.Tree{
			{
				Index:         0,
				NumLeaves:     2,
				ShrinkageRate: 1.0,
				Nodes: []ensemble.Node{
					{ID: 0, ParentID: -1, Left: 1, Right: 2, Kind: ensemble.SplitNode,
						SplitFeature: 0, Threshold: 5.0, Gain: 10, Cover: 10},
					{ID: 1, ParentID: 0, Left: -1, Right: -1, Kind: ensemble.LeafNode,
						LeafValue: -1.0, Cover: 6},
					{ID: 2, ParentID: 0, Left: -1, Right: -1, Kind: ensemble.LeafNode,
						LeafValue: 2.0, Cover: 4},
				},
			},
		},
	}
}

func TestGlobalImportanceRanking(t *testing.T) {
	explainer, err := ensemble.NewTreeExplainer(singleSplitModel())
	require.NoError(t, err)

	// Rows land on each side of the split: phi0 = -1.2 and +1.8 against
	// the cover-weighted mean 0.2, phi1 stays zero.
	X := mat.NewDense(2, 2, []float64{
		3, 9,
		7, 1,
	})

	ranking, err := GlobalImportance(explainer, X, []string{"featA", "featB"})
	require.NoError(t, err)
	require.Len(t, ranking, 2)

	assert.Equal(t, "featA", ranking[0].Name)
	assert.InDelta(t, 1.5, ranking[0].Score, 1e-12)
	assert.Equal(t, "featB", ranking[1].Name)
	assert.InDelta(t, 0.0, ranking[1].Score, 1e-12)
}

func TestGlobalImportanceValidation(t *testing.T) {
	explainer, err := ensemble.NewTreeExplainer(singleSplitModel())
	require.NoError(t, err)
	X := mat.NewDense(2, 2, []float64{3, 9, 7, 1})

	_, err = GlobalImportance(nil, X, []string{"a", "b"})
	assert.Error(t, err, "nil explainer")

	_, err = GlobalImportance(explainer, &mat.Dense{}, []string{"a", "b"})
	assert.Error(t, err, "empty matrix")

	_, err = GlobalImportance(explainer, X, []string{"a"})
	assert.Error(t, err, "name count mismatch")

	_, err = GlobalImportance(explainer, mat.NewDense(2, 5, nil), []string{"a", "b", "c", "d", "e"})
	assert.Error(t, err, "width differs from the trained model")
}
