package explain

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/core/parallel"
	"github.com/YuminosukeSato/cogniboost/linear"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// PredictProbaFunc scores a batch of raw feature rows and returns an
// n x 2 probability matrix with the positive class in column 1.
type PredictProbaFunc func(X *mat.Dense) (*mat.Dense, error)

// WeightedFeature is one ranked entry of a local explanation. The label
// carries the discretizer's threshold text, e.g. "age <= 62.00".
type WeightedFeature struct {
	Label  string
	Weight float64
}

// Explanation is the result of explaining a single row: the top-k
// features ranked by absolute surrogate weight plus the quality of the
// local fit.
type Explanation struct {
	Features        []WeightedFeature
	Intercept       float64
	R2              float64
	LocalPrediction float64
}

// LimeTabular explains single predictions of an arbitrary probability
// function. Continuous features are discretized into quartile bins on
// the training data; perturbed samples are drawn bin-first by training
// frequency, then a value inside the bin. A weighted ridge surrogate
// over "same bin as the instance" indicators yields the local weights.
type LimeTabular struct {
	model.BaseEstimator

	NumSamples  int
	TopK        int
	KernelWidth float64 // <= 0 resolves to 0.75*sqrt(num features)
	Alpha       float64
	RandomState int64

	featureNames []string
	quartiles    [][]float64 // per feature: q1, q2, q3
	mins         []float64
	maxs         []float64
	binMeans     [][]float64 // per feature, one entry per bin
	binStds      [][]float64
	binFreqs     [][]float64
	nFeatures    int
}

const limeBins = 4

// NewLimeTabular returns an explainer with 5000 perturbations, ten
// reported features and a ridge regularization of 1.
func NewLimeTabular() *LimeTabular {
	return &LimeTabular{
		NumSamples:  5000,
		TopK:        10,
		Alpha:       1.0,
		RandomState: 42,
	}
}

// WithNumSamples sets how many perturbed rows each explanation draws.
func (l *LimeTabular) WithNumSamples(n int) *LimeTabular {
	l.NumSamples = n
	return l
}

// WithTopK sets how many ranked features an explanation reports.
func (l *LimeTabular) WithTopK(k int) *LimeTabular {
	l.TopK = k
	return l
}

// WithRandomState sets the sampling seed.
func (l *LimeTabular) WithRandomState(seed int64) *LimeTabular {
	l.RandomState = seed
	return l
}

// Fit learns per-feature quartiles and per-bin statistics (mean, std,
// empirical frequency) from the training matrix.
func (l *LimeTabular) Fit(X mat.Matrix, featureNames []string) error {
	const op = "LimeTabular.Fit"

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(featureNames) != cols {
		return errors.NewDimensionError(op, cols, len(featureNames), 1)
	}

	l.nFeatures = cols
	l.featureNames = append([]string(nil), featureNames...)
	l.quartiles = make([][]float64, cols)
	l.mins = make([]float64, cols)
	l.maxs = make([]float64, cols)
	l.binMeans = make([][]float64, cols)
	l.binStds = make([][]float64, cols)
	l.binFreqs = make([][]float64, cols)

	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			column[i] = X.At(i, j)
		}
		sort.Float64s(column)
		l.mins[j] = column[0]
		l.maxs[j] = column[rows-1]
		l.quartiles[j] = []float64{
			percentile(column, 0.25),
			percentile(column, 0.50),
			percentile(column, 0.75),
		}

		counts := make([]int, limeBins)
		sums := make([]float64, limeBins)
		sumSquares := make([]float64, limeBins)
		for i := 0; i < rows; i++ {
			v := X.At(i, j)
			b := l.binOf(j, v)
			counts[b]++
			sums[b] += v
			sumSquares[b] += v * v
		}

		means := make([]float64, limeBins)
		stds := make([]float64, limeBins)
		freqs := make([]float64, limeBins)
		for b := 0; b < limeBins; b++ {
			if counts[b] > 0 {
				mean := sums[b] / float64(counts[b])
				means[b] = mean
				variance := sumSquares[b]/float64(counts[b]) - mean*mean
				if variance > 0 {
					stds[b] = math.Sqrt(variance)
				}
			}
			// Tiny floor keeps degenerate bins sampleable.
			stds[b] += 1e-11
			freqs[b] = float64(counts[b]) / float64(rows)
		}
		l.binMeans[j] = means
		l.binStds[j] = stds
		l.binFreqs[j] = freqs
	}

	l.SetFitted()
	return nil
}

// ExplainInstance perturbs the given row, scores the perturbations with
// predict and fits a weighted ridge surrogate on the bin-match
// indicators. The returned features are ranked by absolute weight.
func (l *LimeTabular) ExplainInstance(row []float64, predict PredictProbaFunc) (*Explanation, error) {
	const op = "LimeTabular.ExplainInstance"

	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("LimeTabular", "ExplainInstance")
	}
	if len(row) != l.nFeatures {
		return nil, errors.NewDimensionError(op, l.nFeatures, len(row), 1)
	}
	if predict == nil {
		return nil, errors.NewValueError(op, "predict function is nil")
	}
	if l.NumSamples < 2 {
		return nil, errors.NewValueError(op, "at least 2 perturbation samples are required")
	}

	instanceBins := make([]int, l.nFeatures)
	for j, v := range row {
		instanceBins[j] = l.binOf(j, v)
	}

	rng := rand.New(rand.NewSource(l.RandomState))
	binary := mat.NewDense(l.NumSamples, l.nFeatures, nil)
	raw := mat.NewDense(l.NumSamples, l.nFeatures, nil)

	// Row 0 is the instance itself: all indicators on, raw values as
	// given.
	for j, v := range row {
		binary.Set(0, j, 1)
		raw.Set(0, j, v)
	}
	for i := 1; i < l.NumSamples; i++ {
		for j := 0; j < l.nFeatures; j++ {
			b := l.sampleBin(j, rng)
			if b == instanceBins[j] {
				binary.Set(i, j, 1)
			}
			raw.Set(i, j, l.sampleValue(j, b, rng))
		}
	}

	probs, err := predict(raw)
	if err != nil {
		return nil, err
	}
	pRows, pCols := probs.Dims()
	if pRows != l.NumSamples || pCols != 2 {
		return nil, errors.NewValueError(op, fmt.Sprintf(
			"predict returned %dx%d, want %dx2", pRows, pCols, l.NumSamples))
	}

	target := mat.NewDense(l.NumSamples, 1, nil)
	for i := 0; i < l.NumSamples; i++ {
		target.Set(i, 0, probs.At(i, 1))
	}

	width := l.KernelWidth
	if width <= 0 {
		width = 0.75 * math.Sqrt(float64(l.nFeatures))
	}
	weights := mat.NewVecDense(l.NumSamples, nil)
	parallel.ParallelizeVec(l.NumSamples, func(i int) {
		d2 := 0.0
		for j := 0; j < l.nFeatures; j++ {
			diff := 1.0 - binary.At(i, j)
			d2 += diff * diff
		}
		weights.SetVec(i, math.Sqrt(math.Exp(-d2/(width*width))))
	})

	surrogate := linear.NewRidge(linear.WithAlpha(l.Alpha))
	if err := surrogate.FitWeighted(binary, target, weights); err != nil {
		return nil, err
	}
	r2, err := surrogate.ScoreWeighted(binary, target, weights)
	if err != nil {
		return nil, err
	}

	coefs := surrogate.GetWeights()
	order := make([]int, l.nFeatures)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(coefs[order[a]]) > math.Abs(coefs[order[b]])
	})

	k := l.TopK
	if k <= 0 || k > l.nFeatures {
		k = l.nFeatures
	}
	features := make([]WeightedFeature, 0, k)
	for _, j := range order[:k] {
		features = append(features, WeightedFeature{
			Label:  l.binLabel(j, instanceBins[j]),
			Weight: coefs[j],
		})
	}

	local := surrogate.GetIntercept()
	for _, c := range coefs {
		local += c
	}

	return &Explanation{
		Features:        features,
		Intercept:       surrogate.GetIntercept(),
		R2:              r2,
		LocalPrediction: local,
	}, nil
}

// binOf counts the quartiles strictly below v, so a value equal to a
// quartile falls in the lower bin.
func (l *LimeTabular) binOf(feature int, v float64) int {
	b := 0
	for _, q := range l.quartiles[feature] {
		if v > q {
			b++
		}
	}
	return b
}

func (l *LimeTabular) sampleBin(feature int, rng *rand.Rand) int {
	r := rng.Float64()
	cum := 0.0
	for b, f := range l.binFreqs[feature] {
		cum += f
		if r < cum {
			return b
		}
	}
	return limeBins - 1
}

// sampleValue draws from the bin's normal and clamps to the bin edges.
func (l *LimeTabular) sampleValue(feature, bin int, rng *rand.Rand) float64 {
	v := rng.NormFloat64()*l.binStds[feature][bin] + l.binMeans[feature][bin]

	lo := l.mins[feature]
	hi := l.maxs[feature]
	qts := l.quartiles[feature]
	if bin > 0 {
		lo = qts[bin-1]
	}
	if bin < limeBins-1 {
		hi = qts[bin]
	}
	return errors.ClipValue(v, lo, hi)
}

func (l *LimeTabular) binLabel(feature, bin int) string {
	name := l.featureNames[feature]
	qts := l.quartiles[feature]
	switch bin {
	case 0:
		return fmt.Sprintf("%s <= %.2f", name, qts[0])
	case 1:
		return fmt.Sprintf("%.2f < %s <= %.2f", qts[0], name, qts[1])
	case 2:
		return fmt.Sprintf("%.2f < %s <= %.2f", qts[1], name, qts[2])
	default:
		return fmt.Sprintf("%s > %.2f", name, qts[2])
	}
}

// percentile interpolates linearly between order statistics, matching
// the numpy default. sorted must be ascending and non-empty.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
