package ensemble

import (
	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/core/parallel"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// forestConfig is the shared setup for bagged tree ensembles
type forestConfig struct {
	numTrees        int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	bootstrap       bool
	randomThreshold bool
	seed            int64
	workers         int
}

// growForest builds the trees concurrently. Every tree derives its own RNG
// from the base seed, so results do not depend on goroutine scheduling.
func growForest(cfg forestConfig, X *mat.Dense, y []float64) []Tree {
	rows, _ := X.Dims()
	sampling := NewSamplingStrategy(cfg.seed, 1.0, 1.0)
	trees := make([]Tree, cfg.numTrees)

	parallel.ParallelizeWithWorkers(cfg.numTrees, cfg.workers, func(start, end int) {
		for treeIdx := start; treeIdx < end; treeIdx++ {
			rng := sampling.TreeRNG(treeIdx)

			var indices []int
			if cfg.bootstrap {
				indices = Bootstrap(rng, rows)
			} else {
				indices = make([]int, rows)
				for i := range indices {
					indices[i] = i
				}
			}

			builder := &cartBuilder{
				params: cartParams{
					maxDepth:        cfg.maxDepth,
					minSamplesSplit: cfg.minSamplesSplit,
					minSamplesLeaf:  cfg.minSamplesLeaf,
					maxFeatures:     cfg.maxFeatures,
					randomThreshold: cfg.randomThreshold,
				},
				X:   X,
				y:   y,
				rng: rng,
			}
			trees[treeIdx] = builder.build(indices, treeIdx)
		}
	})

	return trees
}

// RandomForestClassifier bags Gini decision trees over bootstrap resamples
// with a fresh sqrt(d) feature draw at every split. Probabilities are the
// mean of per-tree leaf fractions.
type RandomForestClassifier struct {
	model.BaseEstimator

	Model     *Model
	Predictor *Predictor

	NumEstimators   int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64
	NumThreads      int
	Verbosity       int

	nFeatures_ int
}

// NewRandomForestClassifier creates a classifier with default parameters
func NewRandomForestClassifier() *RandomForestClassifier {
	return &RandomForestClassifier{
		NumEstimators:   100,
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     -1,
		Bootstrap:       true,
		RandomState:     42,
		NumThreads:      -1,
	}
}

// WithNumEstimators sets the number of trees
func (rf *RandomForestClassifier) WithNumEstimators(n int) *RandomForestClassifier {
	rf.NumEstimators = n
	return rf
}

// WithMaxDepth sets the per-tree depth budget
func (rf *RandomForestClassifier) WithMaxDepth(d int) *RandomForestClassifier {
	rf.MaxDepth = d
	return rf
}

// WithMaxFeatures sets the per-split candidate feature count
func (rf *RandomForestClassifier) WithMaxFeatures(n int) *RandomForestClassifier {
	rf.MaxFeatures = n
	return rf
}

// WithRandomState sets the sampling seed
func (rf *RandomForestClassifier) WithRandomState(seed int64) *RandomForestClassifier {
	rf.RandomState = seed
	return rf
}

// Fit grows the forest
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	labels, err := validateTrainingData("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	dense := toDense(X)
	rows, cols := dense.Dims()
	rf.nFeatures_ = cols

	if rf.Verbosity > 0 {
		logger := log.GetLoggerWithName("ensemble.forest")
		logger.Info("training random forest classifier",
			"samples", rows,
			"features", cols,
			"trees", rf.NumEstimators)
	}

	trees := growForest(forestConfig{
		numTrees:        rf.NumEstimators,
		maxDepth:        rf.MaxDepth,
		minSamplesSplit: rf.MinSamplesSplit,
		minSamplesLeaf:  rf.MinSamplesLeaf,
		maxFeatures:     rf.MaxFeatures,
		bootstrap:       rf.Bootstrap,
		randomThreshold: false,
		seed:            rf.RandomState,
		workers:         rf.NumThreads,
	}, dense, labels)

	rf.Model = &Model{
		Trees:       trees,
		NumFeatures: cols,
		InitScore:   0,
		Objective:   "gini",
	}
	rf.Predictor = NewPredictor(rf.Model, AggregateAverage)
	if rf.NumThreads > 0 {
		rf.Predictor.SetNumThreads(rf.NumThreads)
	}

	rf.SetFitted()
	return nil
}

// Predict returns hard class labels
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "Predict")
	}
	return rf.Predictor.Predict(X)
}

// PredictProba returns class probabilities, positive class in column 1
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	return rf.Predictor.PredictProba(X)
}

// PredictLeafIndex returns terminal-leaf ordinals, one column per tree
func (rf *RandomForestClassifier) PredictLeafIndex(X mat.Matrix) (*mat.Dense, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictLeafIndex")
	}
	return rf.Predictor.PredictLeafIndex(X)
}

// NumTrees returns the fitted forest size
func (rf *RandomForestClassifier) NumTrees() int {
	if rf.Model == nil {
		return 0
	}
	return rf.Model.NumTrees()
}

// FeatureImportance returns normalized split or gain importances
func (rf *RandomForestClassifier) FeatureImportance(kind string) []float64 {
	if rf.Model == nil {
		return nil
	}
	return rf.Model.FeatureImportance(kind)
}

// ExtraTreesClassifier grows extremely randomized trees: no bootstrap, and
// each split draws a single uniform threshold instead of scanning for the
// best cut point.
type ExtraTreesClassifier struct {
	model.BaseEstimator

	Model     *Model
	Predictor *Predictor

	NumEstimators   int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64
	NumThreads      int
	Verbosity       int

	nFeatures_ int
}

// NewExtraTreesClassifier creates a classifier with default parameters
func NewExtraTreesClassifier() *ExtraTreesClassifier {
	return &ExtraTreesClassifier{
		NumEstimators:   100,
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     -1,
		Bootstrap:       false,
		RandomState:     42,
		NumThreads:      -1,
	}
}

// WithNumEstimators sets the number of trees
func (et *ExtraTreesClassifier) WithNumEstimators(n int) *ExtraTreesClassifier {
	et.NumEstimators = n
	return et
}

// WithMaxDepth sets the per-tree depth budget
func (et *ExtraTreesClassifier) WithMaxDepth(d int) *ExtraTreesClassifier {
	et.MaxDepth = d
	return et
}

// WithMaxFeatures sets the per-split candidate feature count
func (et *ExtraTreesClassifier) WithMaxFeatures(n int) *ExtraTreesClassifier {
	et.MaxFeatures = n
	return et
}

// WithRandomState sets the sampling seed
func (et *ExtraTreesClassifier) WithRandomState(seed int64) *ExtraTreesClassifier {
	et.RandomState = seed
	return et
}

// Fit grows the forest
func (et *ExtraTreesClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "ExtraTreesClassifier.Fit")

	labels, err := validateTrainingData("ExtraTreesClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	dense := toDense(X)
	rows, cols := dense.Dims()
	et.nFeatures_ = cols

	if et.Verbosity > 0 {
		logger := log.GetLoggerWithName("ensemble.forest")
		logger.Info("training extra trees classifier",
			"samples", rows,
			"features", cols,
			"trees", et.NumEstimators)
	}

	trees := growForest(forestConfig{
		numTrees:        et.NumEstimators,
		maxDepth:        et.MaxDepth,
		minSamplesSplit: et.MinSamplesSplit,
		minSamplesLeaf:  et.MinSamplesLeaf,
		maxFeatures:     et.MaxFeatures,
		bootstrap:       et.Bootstrap,
		randomThreshold: true,
		seed:            et.RandomState,
		workers:         et.NumThreads,
	}, dense, labels)

	et.Model = &Model{
		Trees:       trees,
		NumFeatures: cols,
		InitScore:   0,
		Objective:   "gini",
	}
	et.Predictor = NewPredictor(et.Model, AggregateAverage)
	if et.NumThreads > 0 {
		et.Predictor.SetNumThreads(et.NumThreads)
	}

	et.SetFitted()
	return nil
}

// Predict returns hard class labels
func (et *ExtraTreesClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !et.IsFitted() {
		return nil, errors.NewNotFittedError("ExtraTreesClassifier", "Predict")
	}
	return et.Predictor.Predict(X)
}

// PredictProba returns class probabilities, positive class in column 1
func (et *ExtraTreesClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !et.IsFitted() {
		return nil, errors.NewNotFittedError("ExtraTreesClassifier", "PredictProba")
	}
	return et.Predictor.PredictProba(X)
}

// PredictLeafIndex returns terminal-leaf ordinals, one column per tree
func (et *ExtraTreesClassifier) PredictLeafIndex(X mat.Matrix) (*mat.Dense, error) {
	if !et.IsFitted() {
		return nil, errors.NewNotFittedError("ExtraTreesClassifier", "PredictLeafIndex")
	}
	return et.Predictor.PredictLeafIndex(X)
}

// NumTrees returns the fitted forest size
func (et *ExtraTreesClassifier) NumTrees() int {
	if et.Model == nil {
		return 0
	}
	return et.Model.NumTrees()
}

// FeatureImportance returns normalized split or gain importances
func (et *ExtraTreesClassifier) FeatureImportance(kind string) []float64 {
	if et.Model == nil {
		return nil
	}
	return et.Model.FeatureImportance(kind)
}
