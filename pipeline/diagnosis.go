// Package pipeline assembles the full diagnosis flow: cleaning output
// from the dataset loader runs through min-max scaling and SMOTE, four
// tree ensembles turn the rows into a leaf-occupancy embedding, and a
// two-branch network scores the combined view. The Diagnosis type owns
// every fitted artifact so that evaluation, inference, explanation and
// persistence all work against the same immutable state.
package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/dataset"
	"github.com/YuminosukeSato/cogniboost/ensemble"
	"github.com/YuminosukeSato/cogniboost/explain"
	"github.com/YuminosukeSato/cogniboost/metrics"
	"github.com/YuminosukeSato/cogniboost/neural"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/pkg/log"
	"github.com/YuminosukeSato/cogniboost/preprocessing"
)

// Diagnosis is the end-to-end classifier. Fit populates the artifact
// fields exactly once; PredictProba, Explain and Save reuse them without
// refitting anything.
type Diagnosis struct {
	state *model.StateManager

	Config *Config

	FeatureNames  []string
	FeatureScaler *preprocessing.MinMaxScaler
	Balancer      *preprocessing.SMOTE
	Forest        *ensemble.RandomForestClassifier
	ExtraTrees    *ensemble.ExtraTreesClassifier
	Boosting      *ensemble.GradientBoostingClassifier
	Leafwise      *ensemble.LeafwiseBoostingClassifier
	Embedder      *ensemble.LeafEmbedder
	LeafScaler    *preprocessing.MinMaxScaler
	Net           *neural.TwoBranchNet

	trainSet_ *dataset.Dataset
	testSet_  *dataset.Dataset
}

// NewDiagnosis builds an unfitted pipeline. A nil config selects
// DefaultConfig.
func NewDiagnosis(cfg *Config) *Diagnosis {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Diagnosis{state: model.NewStateManager(), Config: cfg}
}

// IsFitted returns whether Fit has completed successfully.
func (d *Diagnosis) IsFitted() bool {
	return d.state.IsFitted()
}

// TrainSet returns the training split in raw feature units. The rows
// include the synthetic minority samples produced by the oversampler.
func (d *Diagnosis) TrainSet() *dataset.Dataset {
	return d.trainSet_
}

// TestSet returns the held-out split in raw feature units.
func (d *Diagnosis) TestSet() *dataset.Dataset {
	return d.testSet_
}

func (c *Config) newForest() *ensemble.RandomForestClassifier {
	return ensemble.NewRandomForestClassifier().
		WithNumEstimators(c.Forest.NumEstimators).
		WithMaxDepth(c.Forest.MaxDepth).
		WithRandomState(c.Seed)
}

func (c *Config) newExtraTrees() *ensemble.ExtraTreesClassifier {
	return ensemble.NewExtraTreesClassifier().
		WithNumEstimators(c.ExtraTrees.NumEstimators).
		WithMaxDepth(c.ExtraTrees.MaxDepth).
		WithRandomState(c.Seed)
}

func (c *Config) newBoosting() *ensemble.GradientBoostingClassifier {
	return ensemble.NewGradientBoostingClassifier().
		WithNumIterations(c.Boosting.NumIterations).
		WithLearningRate(c.Boosting.LearningRate).
		WithMaxDepth(c.Boosting.MaxDepth).
		WithRandomState(c.Seed)
}

func (c *Config) newLeafwise() *ensemble.LeafwiseBoostingClassifier {
	return ensemble.NewLeafwiseBoostingClassifier().
		WithNumIterations(c.Leafwise.NumIterations).
		WithLearningRate(c.Leafwise.LearningRate).
		WithNumLeaves(c.Leafwise.NumLeaves).
		WithMinChildSamples(c.Leafwise.MinChildSamples).
		WithRandomState(c.Seed)
}

// Fit runs the whole training pass: scaling, oversampling, the
// train/test split, the four ensembles, the leaf embedding with its own
// scaler, the network, and finally the evaluation that becomes the
// returned Report.
//
// The stock stage order scales and oversamples the full matrix before
// the split, so scaler statistics and synthetic rows reach the test
// side; a DataLeakageWarning is emitted for each. Setting
// Config.LeakageSafe switches to split-first ordering.
func (d *Diagnosis) Fit(ds *dataset.Dataset) (rep *Report, err error) {
	defer errors.Recover(&err, "Diagnosis.Fit")

	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || ds.X == nil || ds.Y == nil || ds.NumSamples() == 0 {
		return nil, errors.NewModelError("Diagnosis.Fit", "dataset is empty", errors.ErrEmptyData)
	}
	rows, cols := ds.X.Dims()
	if len(ds.FeatureNames) != cols {
		return nil, errors.NewDimensionError("Diagnosis.Fit", len(ds.FeatureNames), cols, 1)
	}
	neg, pos := ds.ClassCounts()
	if neg == 0 || pos == 0 {
		return nil, errors.NewValueError("Diagnosis.Fit", "dataset must contain both classes")
	}

	logger := log.GetLoggerWithName("pipeline.Diagnosis")
	logger.Info("fitting diagnosis pipeline",
		"rows", rows, "features", cols, "positives", pos,
		"leakage_safe", d.Config.LeakageSafe)

	d.FeatureScaler = preprocessing.NewMinMaxScalerDefault()
	d.Balancer = preprocessing.NewSMOTE(d.Config.Balance.KNeighbors, d.Config.Seed)

	var train, test *dataset.Dataset
	if d.Config.LeakageSafe {
		train, test, err = d.splitThenScale(ds)
	} else {
		train, test, err = d.scaleThenSplit(ds)
	}
	if err != nil {
		return nil, err
	}

	type member struct {
		name string
		clf  interface {
			Fit(X, y mat.Matrix) error
			NumTrees() int
		}
	}
	d.Forest = d.Config.newForest()
	d.ExtraTrees = d.Config.newExtraTrees()
	d.Boosting = d.Config.newBoosting()
	d.Leafwise = d.Config.newLeafwise()
	members := []member{
		{"random_forest", d.Forest},
		{"extra_trees", d.ExtraTrees},
		{"gradient_boosting", d.Boosting},
		{"leafwise_boosting", d.Leafwise},
	}
	for _, m := range members {
		if err := m.clf.Fit(train.X, train.Y); err != nil {
			return nil, err
		}
		logger.Debug("fitted ensemble", "model", m.name, "trees", m.clf.NumTrees())
	}

	d.Embedder = ensemble.NewLeafEmbedder(d.Forest, d.ExtraTrees, d.Boosting, d.Leafwise)
	trainLeaves, err := d.Embedder.Transform(train.X)
	if err != nil {
		return nil, err
	}
	d.LeafScaler = preprocessing.NewMinMaxScalerDefault()
	trainEmb, err := d.LeafScaler.FitTransform(trainLeaves)
	if err != nil {
		return nil, err
	}
	testLeaves, err := d.Embedder.Transform(test.X)
	if err != nil {
		return nil, err
	}
	testEmb, err := d.LeafScaler.Transform(testLeaves)
	if err != nil {
		return nil, err
	}
	logger.Debug("embedded leaves", "columns", d.Embedder.NumColumns())

	n := d.Config.Network
	d.Net = neural.NewTwoBranchNet().
		WithEpochs(n.Epochs).
		WithBatchSize(n.BatchSize).
		WithLearningRate(n.LearningRate).
		WithDropoutRate(n.DropoutRate).
		WithValidationSplit(n.ValidationSplit).
		WithRandomState(d.Config.Seed)
	if err := d.Net.Fit(train.X, trainEmb, train.Y); err != nil {
		return nil, err
	}

	rep, err = d.evaluate(train, trainEmb, test, testEmb)
	if err != nil {
		return nil, err
	}

	if err := d.storeSplits(ds, train, test); err != nil {
		return nil, err
	}
	d.state.SetDimensions(cols, rows)
	d.state.SetFitted()

	logger.Info("diagnosis pipeline fitted",
		"train_rows", train.NumSamples(), "test_rows", test.NumSamples(),
		"leaf_columns", d.Embedder.NumColumns(),
		"test_accuracy", rep.TestAccuracy)
	return rep, nil
}

// scaleThenSplit reproduces the stock ordering: the scaler and the
// oversampler see the full matrix, then the balanced rows are split.
func (d *Diagnosis) scaleThenSplit(ds *dataset.Dataset) (train, test *dataset.Dataset, err error) {
	errors.Warn(errors.NewDataLeakageWarning("MinMaxScaler",
		"scaling statistics are fit on the full matrix before the train/test split"))
	errors.Warn(errors.NewDataLeakageWarning("SMOTE",
		"synthetic rows are generated before the split and can land in the test set"))

	scaled, err := d.FeatureScaler.FitTransform(ds.X)
	if err != nil {
		return nil, nil, err
	}
	balX, balY, err := d.Balancer.FitResample(scaled, ds.Y)
	if err != nil {
		return nil, nil, err
	}

	balanced := &dataset.Dataset{
		FeatureNames: copyNames(ds.FeatureNames),
		X:            balX,
		Y:            balY,
	}
	return dataset.TrainTestSplit(balanced, d.Config.TestSize, d.Config.Seed)
}

// splitThenScale is the corrected ordering: the held-out rows never
// reach the scaler or the oversampler.
func (d *Diagnosis) splitThenScale(ds *dataset.Dataset) (train, test *dataset.Dataset, err error) {
	trainRaw, testRaw, err := dataset.TrainTestSplit(ds, d.Config.TestSize, d.Config.Seed)
	if err != nil {
		return nil, nil, err
	}

	trainScaled, err := d.FeatureScaler.FitTransform(trainRaw.X)
	if err != nil {
		return nil, nil, err
	}
	testScaled, err := d.FeatureScaler.Transform(testRaw.X)
	if err != nil {
		return nil, nil, err
	}
	balX, balY, err := d.Balancer.FitResample(trainScaled, trainRaw.Y)
	if err != nil {
		return nil, nil, err
	}

	train = &dataset.Dataset{
		FeatureNames: copyNames(ds.FeatureNames),
		X:            balX,
		Y:            balY,
	}
	test = &dataset.Dataset{
		FeatureNames: copyNames(ds.FeatureNames),
		X:            asDense(testScaled),
		Y:            testRaw.Y,
	}
	return train, test, nil
}

// storeSplits keeps both splits in raw feature units for TrainSet,
// TestSet and the explanation path. The scaler is inverted rather than
// kept twice because synthetic rows only ever existed in scaled space.
func (d *Diagnosis) storeSplits(ds, train, test *dataset.Dataset) error {
	trainRawX, err := d.FeatureScaler.InverseTransform(train.X)
	if err != nil {
		return err
	}
	testRawX, err := d.FeatureScaler.InverseTransform(test.X)
	if err != nil {
		return err
	}

	d.FeatureNames = copyNames(ds.FeatureNames)
	d.trainSet_ = &dataset.Dataset{
		FeatureNames: copyNames(ds.FeatureNames),
		X:            asDense(trainRawX),
		Y:            train.Y,
	}
	d.testSet_ = &dataset.Dataset{
		FeatureNames: copyNames(ds.FeatureNames),
		X:            asDense(testRawX),
		Y:            test.Y,
	}
	return nil
}

func (d *Diagnosis) evaluate(train *dataset.Dataset, trainEmb mat.Matrix, test *dataset.Dataset, testEmb mat.Matrix) (*Report, error) {
	trainPred, err := d.Net.Predict(train.X, trainEmb)
	if err != nil {
		return nil, err
	}
	trainAcc, err := metrics.Accuracy(train.Y, colToVec(trainPred))
	if err != nil {
		return nil, err
	}

	testProba, err := d.Net.PredictProba(test.X, testEmb)
	if err != nil {
		return nil, err
	}
	nTest, _ := testProba.Dims()
	testPred := mat.NewVecDense(nTest, nil)
	scores := mat.NewVecDense(nTest, nil)
	for i := 0; i < nTest; i++ {
		p := testProba.At(i, 1)
		scores.SetVec(i, p)
		if p > 0.5 {
			testPred.SetVec(i, 1)
		}
	}

	testAcc, err := metrics.Accuracy(test.Y, testPred)
	if err != nil {
		return nil, err
	}
	prec, err := metrics.Precision(test.Y, testPred)
	if err != nil {
		return nil, err
	}
	rec, err := metrics.Recall(test.Y, testPred)
	if err != nil {
		return nil, err
	}
	f1, err := metrics.F1Score(test.Y, testPred)
	if err != nil {
		return nil, err
	}
	cm, err := metrics.NewConfusionMatrix(test.Y, testPred)
	if err != nil {
		return nil, err
	}

	// AUC is undefined when the test split holds a single class; report
	// NaN instead of failing the whole run over a supplemental metric.
	auc, err := metrics.AUC(test.Y, scores)
	if err != nil {
		auc = math.NaN()
	}

	return &Report{
		TrainAccuracy: trainAcc,
		TestAccuracy:  testAcc,
		Precision:     prec,
		Recall:        rec,
		F1:            f1,
		AUC:           auc,
		Confusion:     cm,
	}, nil
}

// PredictProba scores raw (unscaled) feature rows through the fitted
// pipeline: feature scaling, leaf embedding, leaf scaling, then the
// network. A *mat.VecDense input is treated as a single row and
// reshaped to 1 x d. The returned matrix has two columns summing to 1
// per row, positive class in column 1.
func (d *Diagnosis) PredictProba(X mat.Matrix) (out *mat.Dense, err error) {
	defer errors.Recover(&err, "Diagnosis.PredictProba")

	if !d.state.IsFitted() {
		return nil, errors.NewNotFittedError("Diagnosis", "PredictProba")
	}
	X = rowFromVec(X)
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("Diagnosis.PredictProba", "empty input", errors.ErrEmptyData)
	}
	if cols != len(d.FeatureNames) {
		return nil, errors.NewDimensionError("Diagnosis.PredictProba", len(d.FeatureNames), cols, 1)
	}

	scaled, err := d.FeatureScaler.Transform(X)
	if err != nil {
		return nil, err
	}
	leaves, err := d.Embedder.Transform(scaled)
	if err != nil {
		return nil, err
	}
	emb, err := d.LeafScaler.Transform(leaves)
	if err != nil {
		return nil, err
	}
	return d.Net.PredictProba(scaled, emb)
}

// Predict thresholds the positive-class probability at 0.5.
func (d *Diagnosis) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := d.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		if proba.At(i, 1) > 0.5 {
			out.SetVec(i, 1)
		}
	}
	return out, nil
}

// Explain contrasts the two explainability views: TreeSHAP over the
// depth-wise boosting member on every test row against a LIME surrogate
// of the full pipeline around test row 0. The test set is given in raw
// feature units, as returned by TestSet.
func (d *Diagnosis) Explain(test *dataset.Dataset) (ag *explain.Agreement, err error) {
	defer errors.Recover(&err, "Diagnosis.Explain")

	if !d.state.IsFitted() {
		return nil, errors.NewNotFittedError("Diagnosis", "Explain")
	}
	if test == nil || test.X == nil || test.NumSamples() == 0 {
		return nil, errors.NewModelError("Diagnosis.Explain", "test set is empty", errors.ErrEmptyData)
	}
	_, cols := test.X.Dims()
	if cols != len(d.FeatureNames) {
		return nil, errors.NewDimensionError("Diagnosis.Explain", len(d.FeatureNames), cols, 1)
	}

	logger := log.GetLoggerWithName("pipeline.Diagnosis")

	scaled, err := d.FeatureScaler.Transform(test.X)
	if err != nil {
		return nil, err
	}
	explainer, err := ensemble.NewTreeExplainer(d.Boosting.Model)
	if err != nil {
		return nil, err
	}
	global, err := explain.GlobalImportance(explainer, scaled, d.FeatureNames)
	if err != nil {
		return nil, err
	}

	lt := explain.NewLimeTabular().
		WithNumSamples(d.Config.Explain.NumSamples).
		WithTopK(d.Config.Explain.TopK).
		WithRandomState(d.Config.Seed)
	if err := lt.Fit(d.trainSet_.X, d.FeatureNames); err != nil {
		return nil, err
	}

	instance := make([]float64, cols)
	copy(instance, test.X.RawRowView(0))
	local, err := lt.ExplainInstance(instance, func(X *mat.Dense) (*mat.Dense, error) {
		return d.PredictProba(X)
	})
	if err != nil {
		return nil, err
	}

	ag, err = explain.Compare(global, local, explain.CompareOptions{MinOverlap: d.Config.Explain.MinOverlap})
	if err != nil {
		return nil, err
	}
	logger.Info("explainability comparison finished",
		"overlap", len(ag.Features), "insufficient", ag.Insufficient,
		"local_r2", local.R2)
	return ag, nil
}

// rowFromVec turns a bare vector into the 1 x d row the transformers
// expect; any other matrix passes through unchanged.
func rowFromVec(X mat.Matrix) mat.Matrix {
	v, ok := X.(*mat.VecDense)
	if !ok {
		return X
	}
	row := mat.NewDense(1, v.Len(), nil)
	for j := 0; j < v.Len(); j++ {
		row.Set(0, j, v.AtVec(j))
	}
	return row
}

// asDense returns X as a *mat.Dense without copying when it already is one.
func asDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

func copyNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func colToVec(m mat.Matrix) *mat.VecDense {
	rows, _ := m.Dims()
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
