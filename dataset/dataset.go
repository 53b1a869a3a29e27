// Package dataset loads, cleans, splits and synthesizes the tabular
// clinical data consumed by the diagnosis pipeline. Cleaning follows the
// imputation and encoding rules of the upstream study: numeric gaps take
// the column mean, categorical gaps take the column mode, and both
// statistics are computed once over the full file.
package dataset

import (
	"gonum.org/v1/gonum/mat"
)

// Dataset is a cleaned numeric feature matrix with aligned binary labels.
type Dataset struct {
	// FeatureNames holds column names in matrix column order.
	FeatureNames []string

	// X is the feature matrix, one row per subject.
	X *mat.Dense

	// Y is the binary label vector aligned with X by row.
	Y *mat.VecDense
}

// NumSamples returns the number of rows.
func (d *Dataset) NumSamples() int {
	if d.X == nil {
		return 0
	}
	r, _ := d.X.Dims()
	return r
}

// NumFeatures returns the number of feature columns.
func (d *Dataset) NumFeatures() int {
	if d.X == nil {
		return 0
	}
	_, c := d.X.Dims()
	return c
}

// ClassCounts returns the number of negative (0) and positive (1) labels.
func (d *Dataset) ClassCounts() (neg, pos int) {
	if d.Y == nil {
		return 0, 0
	}
	for i := 0; i < d.Y.Len(); i++ {
		if d.Y.AtVec(i) == 1 {
			pos++
		} else {
			neg++
		}
	}
	return neg, pos
}

// Subset returns a new dataset containing the given rows, in order.
func (d *Dataset) Subset(indices []int) *Dataset {
	c := d.NumFeatures()
	X := mat.NewDense(len(indices), c, nil)
	Y := mat.NewVecDense(len(indices), nil)

	for to, from := range indices {
		for j := 0; j < c; j++ {
			X.Set(to, j, d.X.At(from, j))
		}
		Y.SetVec(to, d.Y.AtVec(from))
	}

	names := make([]string, len(d.FeatureNames))
	copy(names, d.FeatureNames)

	return &Dataset{FeatureNames: names, X: X, Y: Y}
}

// CleaningReport records what LoadCSV did to the raw file.
type CleaningReport struct {
	// DroppedColumns lists identifier columns that were present and removed.
	DroppedColumns []string

	// ImputedNumeric lists numeric columns that had missing values filled
	// with the column mean.
	ImputedNumeric []string

	// ImputedCategorical lists categorical columns that had missing values
	// filled with the column mode.
	ImputedCategorical []string

	// EncodedCategorical lists columns that were integer-encoded.
	EncodedCategorical []string

	// RowsFiltered is the number of rows dropped by the age domain rule.
	RowsFiltered int
}
