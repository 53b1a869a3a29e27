package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YuminosukeSato/cogniboost/metrics"
)

func TestReportString(t *testing.T) {
	rep := &Report{
		TrainAccuracy: 0.9,
		TestAccuracy:  0.85,
		Precision:     0.8,
		Recall:        0.75,
		F1:            0.7742,
		AUC:           0.91,
		Confusion:     &metrics.ConfusionMatrix{TP: 10, FP: 3, TN: 20, FN: 2},
	}

	s := rep.String()
	assert.Contains(t, s, "diagnosis report")
	assert.Contains(t, s, "train accuracy : 0.9000")
	assert.Contains(t, s, "test accuracy  : 0.8500")
	assert.Contains(t, s, "f1 score       : 0.7742")
	assert.Contains(t, s, "TP=10 FP=3 TN=20 FN=2")
}

func TestReportStringWithoutConfusion(t *testing.T) {
	s := (&Report{TestAccuracy: 0.5}).String()
	assert.Contains(t, s, "test accuracy")
	assert.NotContains(t, s, "confusion")
}
