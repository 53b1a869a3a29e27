package ensemble

import (
	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// LeafwiseBoostingClassifier grows each tree best-first: the leaf with the
// highest split gain is expanded until NumLeaves is reached. Compared to the
// depth-wise booster it trades balanced trees for deeper, narrower ones.
type LeafwiseBoostingClassifier struct {
	model.BaseEstimator

	Model     *Model
	Predictor *Predictor

	NumIterations   int
	LearningRate    float64
	NumLeaves       int
	MaxDepth        int
	MinChildSamples int
	MinGainToSplit  float64
	RegLambda       float64
	RegAlpha        float64
	Subsample       float64
	ColsampleBytree float64
	RandomState     int64
	NumThreads      int
	Verbosity       int

	nFeatures_ int
	nSamples_  int
}

// NewLeafwiseBoostingClassifier creates a classifier with default parameters
func NewLeafwiseBoostingClassifier() *LeafwiseBoostingClassifier {
	return &LeafwiseBoostingClassifier{
		NumIterations:   100,
		LearningRate:    0.1,
		NumLeaves:       31,
		MaxDepth:        -1,
		MinChildSamples: 20,
		MinGainToSplit:  1e-7,
		RegLambda:       0.0,
		RegAlpha:        0.0,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		RandomState:     42,
		NumThreads:      -1,
	}
}

// WithNumIterations sets the number of boosting rounds
func (lw *LeafwiseBoostingClassifier) WithNumIterations(n int) *LeafwiseBoostingClassifier {
	lw.NumIterations = n
	return lw
}

// WithNumLeaves sets the per-tree leaf budget
func (lw *LeafwiseBoostingClassifier) WithNumLeaves(n int) *LeafwiseBoostingClassifier {
	lw.NumLeaves = n
	return lw
}

// WithLearningRate sets the shrinkage rate
func (lw *LeafwiseBoostingClassifier) WithLearningRate(lr float64) *LeafwiseBoostingClassifier {
	lw.LearningRate = lr
	return lw
}

// WithMinChildSamples sets the minimum sample count per leaf
func (lw *LeafwiseBoostingClassifier) WithMinChildSamples(n int) *LeafwiseBoostingClassifier {
	lw.MinChildSamples = n
	return lw
}

// WithRandomState sets the sampling seed
func (lw *LeafwiseBoostingClassifier) WithRandomState(seed int64) *LeafwiseBoostingClassifier {
	lw.RandomState = seed
	return lw
}

// Fit trains the boosted ensemble
func (lw *LeafwiseBoostingClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LeafwiseBoostingClassifier.Fit")

	labels, err := validateTrainingData("LeafwiseBoostingClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	rows, cols := X.Dims()
	lw.nFeatures_ = cols
	lw.nSamples_ = rows

	if lw.Verbosity > 0 {
		logger := log.GetLoggerWithName("ensemble.boosting")
		logger.Info("training leaf-wise boosting classifier",
			"samples", rows,
			"features", cols,
			"iterations", lw.NumIterations,
			"num_leaves", lw.NumLeaves)
	}

	params := trainingParams{
		numIterations:   lw.NumIterations,
		learningRate:    lw.LearningRate,
		numLeaves:       lw.NumLeaves,
		maxDepth:        lw.MaxDepth,
		minDataInLeaf:   lw.MinChildSamples,
		minGainToSplit:  lw.MinGainToSplit,
		lambda:          lw.RegLambda,
		alpha:           lw.RegAlpha,
		featureFraction: lw.ColsampleBytree,
		baggingFraction: lw.Subsample,
		growLeafwise:    true,
		seed:            lw.RandomState,
		verbosity:       lw.Verbosity,
	}

	trainer := newTrainer(params, NewLogisticObjective())
	if err := trainer.fit(toDense(X), labels); err != nil {
		return err
	}

	lw.Model = trainer.getModel()
	lw.Predictor = NewPredictor(lw.Model, AggregateMargin)
	if lw.NumThreads > 0 {
		lw.Predictor.SetNumThreads(lw.NumThreads)
	}

	lw.SetFitted()
	return nil
}

// Predict returns hard class labels
func (lw *LeafwiseBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lw.IsFitted() {
		return nil, errors.NewNotFittedError("LeafwiseBoostingClassifier", "Predict")
	}
	return lw.Predictor.Predict(X)
}

// PredictProba returns class probabilities, positive class in column 1
func (lw *LeafwiseBoostingClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !lw.IsFitted() {
		return nil, errors.NewNotFittedError("LeafwiseBoostingClassifier", "PredictProba")
	}
	return lw.Predictor.PredictProba(X)
}

// PredictLeafIndex returns terminal-leaf ordinals, one column per tree
func (lw *LeafwiseBoostingClassifier) PredictLeafIndex(X mat.Matrix) (*mat.Dense, error) {
	if !lw.IsFitted() {
		return nil, errors.NewNotFittedError("LeafwiseBoostingClassifier", "PredictLeafIndex")
	}
	return lw.Predictor.PredictLeafIndex(X)
}

// NumTrees returns the fitted ensemble size
func (lw *LeafwiseBoostingClassifier) NumTrees() int {
	if lw.Model == nil {
		return 0
	}
	return lw.Model.NumTrees()
}

// FeatureImportance returns normalized split or gain importances
func (lw *LeafwiseBoostingClassifier) FeatureImportance(kind string) []float64 {
	if lw.Model == nil {
		return nil
	}
	return lw.Model.FeatureImportance(kind)
}
