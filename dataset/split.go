package dataset

import (
	"math"
	"math/rand"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// TrainTestSplit shuffles the dataset with the given seed and splits it
// into train and test partitions. testSize is the test fraction; the test
// row count is rounded up, matching the usual shuffle-split convention.
func TrainTestSplit(ds *Dataset, testSize float64, seed int64) (train, test *Dataset, err error) {
	if ds == nil || ds.NumSamples() == 0 {
		return nil, nil, errors.NewValueError("dataset.TrainTestSplit", "empty dataset")
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValueError("dataset.TrainTestSplit", "testSize must be in (0, 1)")
	}

	n := ds.NumSamples()
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n {
		return nil, nil, errors.NewValueError("dataset.TrainTestSplit", "test split leaves no training rows")
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = ds.Subset(perm[:nTest])
	train = ds.Subset(perm[nTest:])

	return train, test, nil
}
