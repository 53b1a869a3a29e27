package metrics

import (
	"math"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// KendallTau は2つの順位系列間のKendallの順位相関係数（tau-a）と両側p値を計算する
// p値は正規近似による: S = τ·n(n-1)/2, Var(S) = n(n-1)(2n+5)/18, z = S/√Var(S)
func KendallTau(x, y []float64) (tau, pValue float64, err error) {
	if len(x) != len(y) {
		return 0, 0, errors.NewDimensionError("KendallTau", len(x), len(y), 0)
	}
	n := len(x)
	if n < 2 {
		return 0, 0, errors.NewValueError("KendallTau", "at least 2 observations required")
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return 0, 0, errors.NewValueError("KendallTau", "input contains NaN")
		}
	}

	tau = stat.Kendall(x, y, nil)

	nf := float64(n)
	s := tau * nf * (nf - 1) / 2
	variance := nf * (nf - 1) * (2*nf + 5) / 18
	z := s / math.Sqrt(variance)

	pValue = 2 * distuv.UnitNormal.Survival(math.Abs(z))
	pValue = errors.ClipValue(pValue, 0, 1)

	return tau, pValue, nil
}
