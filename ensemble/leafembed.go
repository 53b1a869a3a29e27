package ensemble

import (
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LeafIndexer is the part of a fitted tree ensemble the embedder needs:
// terminal-leaf ordinals per sample and the number of trees behind them.
type LeafIndexer interface {
	PredictLeafIndex(X mat.Matrix) (*mat.Dense, error)
	NumTrees() int
}

// LeafEmbedder turns rows into leaf-occupancy features by concatenating the
// leaf-index matrices of several fitted ensembles. Each tree contributes one
// column, so the output width is the total tree count across models.
type LeafEmbedder struct {
	models []LeafIndexer
}

// NewLeafEmbedder wires the fitted ensembles in the order their columns
// should appear
func NewLeafEmbedder(models ...LeafIndexer) *LeafEmbedder {
	return &LeafEmbedder{models: models}
}

// NumColumns returns the width of the embedded output
func (e *LeafEmbedder) NumColumns() int {
	total := 0
	for _, m := range e.models {
		total += m.NumTrees()
	}
	return total
}

// Transform maps each row through every ensemble and stitches the leaf
// ordinals side by side
func (e *LeafEmbedder) Transform(X mat.Matrix) (*mat.Dense, error) {
	if len(e.models) == 0 {
		return nil, errors.NewModelError("LeafEmbedder.Transform", "no models registered", errors.ErrEmptyData)
	}

	rows, _ := X.Dims()

	blocks := make([]*mat.Dense, len(e.models))
	totalCols := 0
	for i, m := range e.models {
		leaves, err := m.PredictLeafIndex(X)
		if err != nil {
			return nil, err
		}
		blocks[i] = leaves
		_, c := leaves.Dims()
		totalCols += c
	}

	out := mat.NewDense(rows, totalCols, nil)
	col := 0
	for _, leaves := range blocks {
		_, c := leaves.Dims()
		for i := 0; i < rows; i++ {
			copy(out.RawRowView(i)[col:col+c], leaves.RawRowView(i))
		}
		col += c
	}

	return out, nil
}
