package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Synthetic generates a reproducible, class-imbalanced clinical-like
// dataset for examples, tests and benchmarks. The first column is an Age
// drawn around 72 and clipped to the domain rule range; odd-numbered
// columns carry class signal (their mean shifts with the positive label),
// even-numbered columns are pure noise.
func Synthetic(n, features int, positiveFraction float64, seed int64) (*Dataset, error) {
	if n < 2 {
		return nil, errors.NewValueError("dataset.Synthetic", "need at least 2 rows")
	}
	if features < 1 {
		return nil, errors.NewValueError("dataset.Synthetic", "need at least 1 feature")
	}
	if positiveFraction <= 0 || positiveFraction >= 1 {
		return nil, errors.NewValueError("dataset.Synthetic", "positiveFraction must be in (0, 1)")
	}

	rng := rand.New(rand.NewSource(seed))

	nPos := int(math.Round(float64(n) * positiveFraction))
	if nPos < 1 {
		nPos = 1
	}
	if nPos > n-1 {
		nPos = n - 1
	}

	Y := mat.NewVecDense(n, nil)
	for _, i := range rng.Perm(n)[:nPos] {
		Y.SetVec(i, 1)
	}

	names := make([]string, features)
	names[0] = ageColumn
	for j := 1; j < features; j++ {
		names[j] = fmt.Sprintf("feature_%d", j)
	}

	age := distuv.Normal{Mu: 72, Sigma: 8}
	noise := distuv.Normal{Mu: 0, Sigma: 1}

	X := mat.NewDense(n, features, nil)
	for i := 0; i < n; i++ {
		label := Y.AtVec(i)

		a := normalDraw(rng, age)
		if a < ageMin {
			a = ageMin
		}
		if a > ageMax {
			a = ageMax
		}
		X.Set(i, 0, a)

		for j := 1; j < features; j++ {
			v := normalDraw(rng, noise)
			if j%2 == 1 {
				v += 1.5 * label
			}
			X.Set(i, j, v)
		}
	}

	return &Dataset{FeatureNames: names, X: X, Y: Y}, nil
}

// normalDraw samples via the inverse CDF so the stream follows the
// caller's seeded generator.
func normalDraw(rng *rand.Rand, dist distuv.Normal) float64 {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return dist.Quantile(u)
}
