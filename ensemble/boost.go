package ensemble

import (
	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// GradientBoostingClassifier is a depth-wise boosted tree classifier on the
// logistic objective. Defaults follow the conventional depth-wise setup:
// 100 rounds of depth-6 trees at learning rate 0.3.
type GradientBoostingClassifier struct {
	model.BaseEstimator

	Model     *Model
	Predictor *Predictor

	NumIterations   int
	LearningRate    float64
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

// NewGradientBoostingClassifier creates a classifier with default parameters
func NewGradientBoostingClassifier() *GradientBoostingClassifier {
	return &GradientBoostingClassifier{
		NumIterations:   100,
		LearningRate:    0.3,
		MaxDepth:        6,
		MinChildSamples: 1,
		MinGainToSplit:  1e-7,
		RegLambda:       1.0,
		RegAlpha:        0.0,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		RandomState:     42,
		NumThreads:      -1,
	}
}

// WithNumIterations sets the number of boosting rounds
func (gb *GradientBoostingClassifier) WithNumIterations(n int) *GradientBoostingClassifier {
	gb.NumIterations = n
	return gb
}

// WithMaxDepth sets the per-tree depth budget
func (gb *GradientBoostingClassifier) WithMaxDepth(d int) *GradientBoostingClassifier {
	gb.MaxDepth = d
	return gb
}

// WithLearningRate sets the shrinkage rate
func (gb *GradientBoostingClassifier) WithLearningRate(lr float64) *GradientBoostingClassifier {
	gb.LearningRate = lr
	return gb
}

// WithRandomState sets the sampling seed
func (gb *GradientBoostingClassifier) WithRandomState(seed int64) *GradientBoostingClassifier {
	gb.RandomState = seed
	return gb
}

// Fit trains the boosted ensemble
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingClassifier.Fit")

	labels, err := validateTrainingData("GradientBoostingClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	rows, cols := X.Dims()
	gb.nFeatures_ = cols
	gb.nSamples_ = rows

	if gb.Verbosity > 0 {
		logger := log.GetLoggerWithName("ensemble.boosting")
		logger.Info("training gradient boosting classifier",
			"samples", rows,
			"features", cols,
			"iterations", gb.NumIterations,
			"max_depth", gb.MaxDepth)
	}

	params := trainingParams{
		numIterations:   gb.NumIterations,
		learningRate:    gb.LearningRate,
		maxDepth:        gb.MaxDepth,
		minDataInLeaf:   gb.MinChildSamples,
		minGainToSplit:  gb.MinGainToSplit,
		lambda:          gb.RegLambda,
		alpha:           gb.RegAlpha,
		featureFraction: gb.ColsampleBytree,
		baggingFraction: gb.Subsample,
		growLeafwise:    false,
		seed:            gb.RandomState,
		verbosity:       gb.Verbosity,
	}

	trainer := newTrainer(params, NewLogisticObjective())
	if err := trainer.fit(toDense(X), labels); err != nil {
		return err
	}

	gb.Model = trainer.getModel()
	gb.Predictor = NewPredictor(gb.Model, AggregateMargin)
	if gb.NumThreads > 0 {
		gb.Predictor.SetNumThreads(gb.NumThreads)
	}

	gb.SetFitted()
	return nil
}

// Predict returns hard class labels
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", "Predict")
	}
	return gb.Predictor.Predict(X)
}

// PredictProba returns class probabilities, positive class in column 1
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", "PredictProba")
	}
	return gb.Predictor.PredictProba(X)
}

// PredictLeafIndex returns terminal-leaf ordinals, one column per tree
func (gb *GradientBoostingClassifier) PredictLeafIndex(X mat.Matrix) (*mat.Dense, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", "PredictLeafIndex")
	}
	return gb.Predictor.PredictLeafIndex(X)
}

// NumTrees returns the fitted ensemble size
func (gb *GradientBoostingClassifier) NumTrees() int {
	if gb.Model == nil {
		return 0
	}
	return gb.Model.NumTrees()
}

// FeatureImportance returns normalized split or gain importances
func (gb *GradientBoostingClassifier) FeatureImportance(kind string) []float64 {
	if gb.Model == nil {
		return nil
	}
	return gb.Model.FeatureImportance(kind)
}
