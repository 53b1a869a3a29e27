// Package cogniboost provides a machine learning pipeline for binary
// clinical diagnosis, built around tree-ensemble leaf embeddings and a
// two-branch neural classifier.
//
// CogniBoost offers a scikit-learn-like estimator API: every stage is a
// struct with Fit/Transform or Fit/Predict methods, explicit error
// returns and deterministic seeded behavior, so a whole study can be
// reproduced from one configuration.
//
// # Features
//
// - Full pipeline: cleaning, scaling, oversampling, four tree ensembles,
// leaf embeddings and a two-branch neural net behind a single Fit call
// - Explainability: exact TreeSHAP and tabular LIME with a rank-agreement
// comparison (Kendall's tau) and a chart renderer
// - Robust Error Handling: typed errors, warnings and panic recovery
// - Reproducible: one seed drives sampling, training and explanation
//
// # Installation
//
// Install CogniBoost using go get:
//
//	go get github.com/YuminosukeSato/cogniboost
//
// # Quick Start
//
// Training the diagnosis pipeline on a synthetic cohort:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/cogniboost/dataset"
//	    "github.com/YuminosukeSato/cogniboost/pipeline"
//	)
//
//	func main() {
//	    ds, err := dataset.Synthetic(500, 8, 0.1, 42)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    diag := pipeline.NewDiagnosis(pipeline.DefaultConfig())
//	    report, err := diag.Fit(ds)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    fmt.Print(report)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - pipeline: the Diagnosis orchestrator, configuration and a generic
//     named-step pipeline
//   - dataset: CSV loading and cleaning, train/test splitting, synthetic
//     cohorts
//   - preprocessing: MinMaxScaler, StandardScaler, LabelEncoder, SMOTE
//   - ensemble: random forest, extra trees, depth-wise and leaf-wise
//     gradient boosting, leaf embeddings, TreeSHAP
//   - neural: the two-branch classifier head
//   - linear: weighted ridge regression
//   - metrics: classification, regression and rank-correlation metrics
//   - explain: SHAP and LIME rankings and their agreement
//   - chart: rank-comparison plots
//   - core/model: core interfaces and estimator state
//   - core/parallel: parallel processing utilities
//
// # Performance
//
// Tree growing and batch prediction parallelize across CPU cores with
// per-tree seeded random streams, so results do not depend on the worker
// count.
//
// # Contributing
//
// Contributions are welcome! Please see our GitHub repository:
// https://github.com/YuminosukeSato/cogniboost
//
// # License
//
// CogniBoost is released under the MIT License.
package cogniboost
