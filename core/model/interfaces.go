// Package model provides the common interfaces implemented by CogniBoost
// estimators. This file complements the Transformer interface in
// transformer.go.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is the minimal contract of a trainable model: it can be fitted
// and reports whether fitting has happened.
type Estimator interface {
	Fitter

	// IsFitted returns whether Fit has completed successfully.
	IsFitted() bool
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns a goodness-of-fit measure of the prediction
	// (accuracy for classifiers, R^2 for regressors).
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Predictor
	Scorer

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// LeafIndexer is the interface for tree-ensemble models that can report,
// for every input row, the terminal leaf reached in each of their trees.
// The returned matrix has one row per input row and one column per tree.
type LeafIndexer interface {
	// PredictLeafIndex returns the per-tree terminal-leaf ordinal for
	// each input row.
	PredictLeafIndex(X mat.Matrix) (*mat.Dense, error)

	// NumTrees returns the number of trees queried by PredictLeafIndex.
	NumTrees() int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	// Save saves the model to a file.
	Save(path string) error

	// Load loads the model from a file.
	Load(path string) error
}
