package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForestParamsRoundTrip(t *testing.T) {
	rf := NewRandomForestClassifier()
	require.NoError(t, rf.SetParams(map[string]interface{}{
		"n_estimators": 25,
		"max_depth":    4,
		"bootstrap":    false,
		"random_state": 7,
		"unknown_key":  "ignored",
		"max_features": "not an int",
	}))

	assert.Equal(t, 25, rf.NumEstimators)
	assert.Equal(t, 4, rf.MaxDepth)
	assert.False(t, rf.Bootstrap)
	assert.Equal(t, int64(7), rf.RandomState)
	assert.Equal(t, -1, rf.MaxFeatures, "mismatched value type stays at default")

	got := rf.GetParams()
	assert.Equal(t, 25, got["n_estimators"])
	assert.Equal(t, int64(7), got["random_state"])

	et := NewExtraTreesClassifier()
	require.NoError(t, et.SetParams(map[string]interface{}{"n_estimators": 30}))
	assert.Equal(t, 30, et.NumEstimators)
	assert.Equal(t, 30, et.GetParams()["n_estimators"])
}

func TestBoosterParams(t *testing.T) {
	gb := NewGradientBoostingClassifier()
	require.NoError(t, gb.SetParams(map[string]interface{}{
		"num_iterations": 50,
		"learning_rate":  0.05,
		"random_state":   int64(9),
	}))
	assert.Equal(t, 50, gb.NumIterations)
	assert.Equal(t, 0.05, gb.LearningRate)
	assert.Equal(t, int64(9), gb.RandomState)
	assert.Equal(t, 0.05, gb.GetParams()["learning_rate"])

	lw := NewLeafwiseBoostingClassifier()
	require.NoError(t, lw.SetParams(map[string]interface{}{
		"num_leaves":    15,
		"n_estimators":  40,
		"learning_rate": 0.2,
	}))
	assert.Equal(t, 15, lw.NumLeaves)
	assert.Equal(t, 40, lw.NumIterations)
	assert.Equal(t, 0.2, lw.LearningRate)
	assert.Equal(t, 15, lw.GetParams()["num_leaves"])
}
