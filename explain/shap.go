// Package explain compares global tree-SHAP attributions against local
// LIME surrogates for the hybrid diagnosis pipeline. The global side
// ranks features by mean absolute attribution over a test matrix, the
// local side explains a single row through the full prediction path,
// and Compare reduces both rankings to a Kendall rank correlation.
package explain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/ensemble"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// FeatureImportance is one entry of a global importance ranking.
type FeatureImportance struct {
	Name  string
	Score float64
}

// GlobalImportance averages the absolute SHAP attribution of every
// feature over all rows of X and returns the features sorted by that
// mean, most important first. featureNames must match the columns of X.
func GlobalImportance(explainer *ensemble.TreeExplainer, X mat.Matrix, featureNames []string) ([]FeatureImportance, error) {
	const op = "explain.GlobalImportance"

	if explainer == nil {
		return nil, errors.NewValueError(op, "explainer is nil")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(featureNames) != cols {
		return nil, errors.NewDimensionError(op, cols, len(featureNames), 1)
	}

	shap, err := explainer.SHAPValues(X)
	if err != nil {
		return nil, err
	}

	out := make([]FeatureImportance, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += math.Abs(shap.Values.At(i, j))
		}
		out[j] = FeatureImportance{Name: featureNames[j], Score: sum / float64(rows)}
	}

	sort.SliceStable(out, func(i, k int) bool { return out[i].Score > out[k].Score })
	return out, nil
}
