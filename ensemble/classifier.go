package ensemble

import (
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Classifier is the contract shared by the four tree ensembles
type Classifier interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	PredictProba(X mat.Matrix) (*mat.Dense, error)
	PredictLeafIndex(X mat.Matrix) (*mat.Dense, error)
	NumTrees() int
	FeatureImportance(kind string) []float64
}

// validateTrainingData checks the fit inputs and extracts binary labels
func validateTrainingData(op string, X, y mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector")
	}

	labels := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return nil, errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
		labels[i] = v
	}

	return labels, nil
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
