package chart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/cogniboost/explain"
)

func sampleAgreement() *explain.Agreement {
	return &explain.Agreement{
		Features:  []string{"age", "bmi", "mmse"},
		ShapRanks: []float64{1, 2, 3},
		LimeRanks: []float64{2, 1, 3},
		Tau:       0.333,
		PValue:    0.6,
	}
}

func TestRankComparisonWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "ranks.png")

	require.NoError(t, RankComparison(sampleAgreement(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRankComparisonValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranks.png")

	assert.Error(t, RankComparison(nil, path), "nil agreement")
	assert.Error(t, RankComparison(&explain.Agreement{}, path), "no features")

	broken := sampleAgreement()
	broken.LimeRanks = broken.LimeRanks[:2]
	assert.Error(t, RankComparison(broken, path), "mismatched series")

	assert.Error(t, RankComparison(sampleAgreement(), ""), "empty path")
}
