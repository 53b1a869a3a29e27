package ensemble

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Aggregation selects how per-tree outputs combine into a probability
type Aggregation int

const (
	// AggregateMargin sums shrunk leaf values onto the init score and
	// squashes through the sigmoid (boosted ensembles)
	AggregateMargin Aggregation = iota
	// AggregateAverage averages raw leaf probabilities (bagged ensembles)
	AggregateAverage
)

// Predictor batches predictions over a fitted ensemble with a chunked
// worker pool.
type Predictor struct {
	model      *Model
	aggregate  Aggregation
	numThreads int
}

// NewPredictor creates a predictor for the given model
func NewPredictor(model *Model, aggregate Aggregation) *Predictor {
	return &Predictor{
		model:      model,
		aggregate:  aggregate,
		numThreads: runtime.NumCPU(),
	}
}

// SetNumThreads sets the worker count for batch prediction
func (p *Predictor) SetNumThreads(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p.numThreads = n
}

// PredictProba returns an n x 2 matrix of class probabilities. Column 1
// carries the positive-class probability; rows sum to 1.
func (p *Predictor) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.PredictProba", p.model.NumFeatures, cols, 1)
	}

	probs := mat.NewDense(rows, 2, nil)
	p.forEachRow(rows, func(i int, features []float64) {
		pos := p.positiveProbability(features)
		probs.Set(i, 0, 1-pos)
		probs.Set(i, 1, pos)
	}, X)

	return probs, nil
}

// Predict returns hard 0/1 labels thresholded at 0.5
func (p *Predictor) Predict(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.Predict", p.model.NumFeatures, cols, 1)
	}

	labels := mat.NewDense(rows, 1, nil)
	p.forEachRow(rows, func(i int, features []float64) {
		if p.positiveProbability(features) >= 0.5 {
			labels.Set(i, 0, 1)
		}
	}, X)

	return labels, nil
}

// RawScore returns the margin (boosted) or averaged leaf value (bagged)
// for every row, before any probability transform.
func (p *Predictor) RawScore(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.RawScore", p.model.NumFeatures, cols, 1)
	}

	scores := mat.NewDense(rows, 1, nil)
	p.forEachRow(rows, func(i int, features []float64) {
		scores.Set(i, 0, p.rawValue(features))
	}, X)

	return scores, nil
}

// PredictLeafIndex returns an n x numTrees matrix of terminal-leaf
// ordinals, the categorical embedding consumed downstream.
func (p *Predictor) PredictLeafIndex(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.PredictLeafIndex", p.model.NumFeatures, cols, 1)
	}

	leaves := mat.NewDense(rows, p.model.NumTrees(), nil)
	p.forEachRow(rows, func(i int, features []float64) {
		p.model.LeafIndices(features, leaves.RawRowView(i))
	}, X)

	return leaves, nil
}

func (p *Predictor) positiveProbability(features []float64) float64 {
	switch p.aggregate {
	case AggregateAverage:
		return p.model.AverageLeaf(features)
	default:
		return stableSigmoid(p.model.Margin(features))
	}
}

func (p *Predictor) rawValue(features []float64) float64 {
	if p.aggregate == AggregateAverage {
		return p.model.AverageLeaf(features)
	}
	return p.model.Margin(features)
}

// forEachRow fans rows out over a chunked worker pool
func (p *Predictor) forEachRow(rows int, fn func(i int, features []float64), X mat.Matrix) {
	numWorkers := p.numThreads
	if numWorkers > rows {
		numWorkers = rows
	}
	if numWorkers <= 1 {
		buf := make([]float64, p.model.NumFeatures)
		for i := 0; i < rows; i++ {
			fn(i, mat.Row(buf, i, X))
		}
		return
	}

	chunkSize := (rows + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > rows {
			end = rows
		}

		go func(start, end int) {
			defer wg.Done()
			buf := make([]float64, p.model.NumFeatures)
			for i := start; i < end; i++ {
				fn(i, mat.Row(buf, i, X))
			}
		}(start, end)
	}

	wg.Wait()
}
