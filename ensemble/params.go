package ensemble

// Parameter maps use scikit-learn naming so configurations written for the
// Python pipeline carry over unchanged. SetParams ignores unknown keys and
// mismatched value types, like the upstream estimators do.

func seedValue(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// GetParams returns the hyperparameters of the forest
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NumEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
		"n_jobs":            rf.NumThreads,
		"verbosity":         rf.Verbosity,
	}
}

// SetParams sets the hyperparameters of the forest
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators":
			if v, ok := value.(int); ok {
				rf.NumEstimators = v
			}
		case "max_depth":
			if v, ok := value.(int); ok {
				rf.MaxDepth = v
			}
		case "min_samples_split":
			if v, ok := value.(int); ok {
				rf.MinSamplesSplit = v
			}
		case "min_samples_leaf":
			if v, ok := value.(int); ok {
				rf.MinSamplesLeaf = v
			}
		case "max_features":
			if v, ok := value.(int); ok {
				rf.MaxFeatures = v
			}
		case "bootstrap":
			if v, ok := value.(bool); ok {
				rf.Bootstrap = v
			}
		case "random_state":
			if v, ok := seedValue(value); ok {
				rf.RandomState = v
			}
		case "n_jobs":
			if v, ok := value.(int); ok {
				rf.NumThreads = v
			}
		case "verbosity":
			if v, ok := value.(int); ok {
				rf.Verbosity = v
			}
		}
	}
	return nil
}

// GetParams returns the hyperparameters of the extra-trees ensemble
func (et *ExtraTreesClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      et.NumEstimators,
		"max_depth":         et.MaxDepth,
		"min_samples_split": et.MinSamplesSplit,
		"min_samples_leaf":  et.MinSamplesLeaf,
		"max_features":      et.MaxFeatures,
		"bootstrap":         et.Bootstrap,
		"random_state":      et.RandomState,
		"n_jobs":            et.NumThreads,
		"verbosity":         et.Verbosity,
	}
}

// SetParams sets the hyperparameters of the extra-trees ensemble
func (et *ExtraTreesClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators":
			if v, ok := value.(int); ok {
				et.NumEstimators = v
			}
		case "max_depth":
			if v, ok := value.(int); ok {
				et.MaxDepth = v
			}
		case "min_samples_split":
			if v, ok := value.(int); ok {
				et.MinSamplesSplit = v
			}
		case "min_samples_leaf":
			if v, ok := value.(int); ok {
				et.MinSamplesLeaf = v
			}
		case "max_features":
			if v, ok := value.(int); ok {
				et.MaxFeatures = v
			}
		case "bootstrap":
			if v, ok := value.(bool); ok {
				et.Bootstrap = v
			}
		case "random_state":
			if v, ok := seedValue(value); ok {
				et.RandomState = v
			}
		case "n_jobs":
			if v, ok := value.(int); ok {
				et.NumThreads = v
			}
		case "verbosity":
			if v, ok := value.(int); ok {
				et.Verbosity = v
			}
		}
	}
	return nil
}

// GetParams returns the hyperparameters of the booster
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      gb.NumIterations,
		"learning_rate":     gb.LearningRate,
		"max_depth":         gb.MaxDepth,
		"min_child_samples": gb.MinChildSamples,
		"min_split_gain":    gb.MinGainToSplit,
		"reg_lambda":        gb.RegLambda,
		"reg_alpha":         gb.RegAlpha,
		"subsample":         gb.Subsample,
		"colsample_bytree":  gb.ColsampleBytree,
		"random_state":      gb.RandomState,
		"n_jobs":            gb.NumThreads,
		"verbosity":         gb.Verbosity,
	}
}

// SetParams sets the hyperparameters of the booster
func (gb *GradientBoostingClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators", "num_iterations":
			if v, ok := value.(int); ok {
				gb.NumIterations = v
			}
		case "learning_rate":
			if v, ok := value.(float64); ok {
				gb.LearningRate = v
			}
		case "max_depth":
			if v, ok := value.(int); ok {
				gb.MaxDepth = v
			}
		case "min_child_samples":
			if v, ok := value.(int); ok {
				gb.MinChildSamples = v
			}
		case "min_split_gain":
			if v, ok := value.(float64); ok {
				gb.MinGainToSplit = v
			}
		case "reg_lambda":
			if v, ok := value.(float64); ok {
				gb.RegLambda = v
			}
		case "reg_alpha":
			if v, ok := value.(float64); ok {
				gb.RegAlpha = v
			}
		case "subsample":
			if v, ok := value.(float64); ok {
				gb.Subsample = v
			}
		case "colsample_bytree":
			if v, ok := value.(float64); ok {
				gb.ColsampleBytree = v
			}
		case "random_state":
			if v, ok := seedValue(value); ok {
				gb.RandomState = v
			}
		case "n_jobs":
			if v, ok := value.(int); ok {
				gb.NumThreads = v
			}
		case "verbosity":
			if v, ok := value.(int); ok {
				gb.Verbosity = v
			}
		}
	}
	return nil
}

// GetParams returns the hyperparameters of the leaf-wise booster
func (lw *LeafwiseBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      lw.NumIterations,
		"learning_rate":     lw.LearningRate,
		"num_leaves":        lw.NumLeaves,
		"max_depth":         lw.MaxDepth,
		"min_child_samples": lw.MinChildSamples,
		"min_split_gain":    lw.MinGainToSplit,
		"reg_lambda":        lw.RegLambda,
		"reg_alpha":         lw.RegAlpha,
		"subsample":         lw.Subsample,
		"colsample_bytree":  lw.ColsampleBytree,
		"random_state":      lw.RandomState,
		"n_jobs":            lw.NumThreads,
		"verbosity":         lw.Verbosity,
	}
}

// SetParams sets the hyperparameters of the leaf-wise booster
func (lw *LeafwiseBoostingClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators", "num_iterations":
			if v, ok := value.(int); ok {
				lw.NumIterations = v
			}
		case "learning_rate":
			if v, ok := value.(float64); ok {
				lw.LearningRate = v
			}
		case "num_leaves", "n_leaves":
			if v, ok := value.(int); ok {
				lw.NumLeaves = v
			}
		case "max_depth":
			if v, ok := value.(int); ok {
				lw.MaxDepth = v
			}
		case "min_child_samples":
			if v, ok := value.(int); ok {
				lw.MinChildSamples = v
			}
		case "min_split_gain":
			if v, ok := value.(float64); ok {
				lw.MinGainToSplit = v
			}
		case "reg_lambda":
			if v, ok := value.(float64); ok {
				lw.RegLambda = v
			}
		case "reg_alpha":
			if v, ok := value.(float64); ok {
				lw.RegAlpha = v
			}
		case "subsample":
			if v, ok := value.(float64); ok {
				lw.Subsample = v
			}
		case "colsample_bytree":
			if v, ok := value.(float64); ok {
				lw.ColsampleBytree = v
			}
		case "random_state":
			if v, ok := seedValue(value); ok {
				lw.RandomState = v
			}
		case "n_jobs":
			if v, ok := value.(int); ok {
				lw.NumThreads = v
			}
		case "verbosity":
			if v, ok := value.(int); ok {
				lw.Verbosity = v
			}
		}
	}
	return nil
}
