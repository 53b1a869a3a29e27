package linear

import (
	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/core/parallel"
	"github.com/YuminosukeSato/cogniboost/metrics"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Ridge はL2正則化付きの線形回帰モデル
// サンプル重み付き学習に対応しており、局所説明の代理モデルとして使われる
type Ridge struct {
	model.BaseEstimator
	Alpha     float64       // L2正則化係数
	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
	NFeatures int           // 特徴量の数

	fitIntercept bool
}

// NewRidge は新しいRidge回帰モデルを作成する
// デフォルトは alpha=1.0、切片あり
func NewRidge(opts ...Option) *Ridge {
	rd := &Ridge{Alpha: 1.0, fitIntercept: true}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Fit はモデルを一様なサンプル重みで学習させる
func (rd *Ridge) Fit(X, y mat.Matrix) error {
	return rd.FitWeighted(X, y, nil)
}

// FitWeighted はサンプル重み付きでモデルを学習させる
// 正規方程式 (Xc^T W Xc + alpha*I) w = Xc^T W yc を解く
// 切片は正則化の対象外で、重み付き平均による中心化で求める
// sampleWeight が nil の場合は一様重みとして扱う
func (rd *Ridge) FitWeighted(X, y mat.Matrix, sampleWeight *mat.VecDense) error {
	// 入力の検証
	rows, cols := X.Dims()
	ry, cy := y.Dims()

	if rows == 0 || cols == 0 {
		return errors.NewModelError("Ridge.Fit", "empty data", errors.ErrEmptyData)
	}

	if ry != rows {
		return errors.NewDimensionError("Ridge.Fit", rows, ry, 0)
	}

	if cy != 1 {
		return errors.NewValueError("Ridge.Fit", "y must be a column vector")
	}

	if rd.Alpha < 0 {
		return errors.NewValueError("Ridge.Fit", "alpha must be non-negative")
	}

	w := make([]float64, rows)
	var wSum float64
	if sampleWeight == nil {
		for i := range w {
			w[i] = 1
		}
		wSum = float64(rows)
	} else {
		if sampleWeight.Len() != rows {
			return errors.NewDimensionError("Ridge.Fit", rows, sampleWeight.Len(), 0)
		}
		for i := 0; i < rows; i++ {
			wi := sampleWeight.AtVec(i)
			if wi < 0 {
				return errors.NewValueError("Ridge.Fit", "negative sample weight")
			}
			w[i] = wi
			wSum += wi
		}
		if wSum == 0 {
			return errors.NewValueError("Ridge.Fit", "all sample weights are zero")
		}
	}

	rd.NFeatures = cols

	// 重み付き平均を計算（切片なしの場合はゼロのまま）
	xMean := make([]float64, cols)
	var yMean float64
	if rd.fitIntercept {
		for i := 0; i < rows; i++ {
			wi := w[i]
			for j := 0; j < cols; j++ {
				xMean[j] += wi * X.At(i, j)
			}
			yMean += wi * y.At(i, 0)
		}
		for j := 0; j < cols; j++ {
			xMean[j] /= wSum
		}
		yMean /= wSum
	}

	// 中心化した Xc と、重みを掛けた Xw = W * Xc を構築
	Xc := mat.NewDense(rows, cols, nil)
	Xw := mat.NewDense(rows, cols, nil)
	yc := mat.NewVecDense(rows, nil)
	ywc := mat.NewVecDense(rows, nil)

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000

	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			wi := w[i]
			for j := 0; j < cols; j++ {
				v := X.At(i, j) - xMean[j]
				Xc.Set(i, j, v)
				Xw.Set(i, j, wi*v)
			}
			yci := y.At(i, 0) - yMean
			yc.SetVec(i, yci)
			ywc.SetVec(i, wi*yci)
		}
	})

	// Xc^T W Xc + alpha*I を組み立てる
	var A mat.Dense
	A.Mul(Xc.T(), Xw)
	for j := 0; j < cols; j++ {
		A.Set(j, j, A.At(j, j)+rd.Alpha)
	}

	// 逆行列を計算
	var AInv mat.Dense
	if err := AInv.Inverse(&A); err != nil {
		return errors.NewModelError("Ridge.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	// Xc^T W yc を計算
	var XTy mat.VecDense
	XTy.MulVec(Xc.T(), ywc)

	// 重みを計算: (Xc^T W Xc + alpha*I)^(-1) * Xc^T W yc
	weights := mat.NewVecDense(cols, nil)
	weights.MulVec(&AInv, &XTy)

	rd.Weights = weights
	rd.Intercept = 0
	if rd.fitIntercept {
		rd.Intercept = yMean
		for j := 0; j < cols; j++ {
			rd.Intercept -= xMean[j] * weights.AtVec(j)
		}
	}

	// モデルを学習済み状態に設定
	rd.SetFitted()

	return nil
}

// Predict は入力データに対する予測を行う
func (rd *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rd.IsFitted() {
		return nil, errors.NewNotFittedError("Ridge", "Predict")
	}

	rows, cols := X.Dims()
	if cols != rd.NFeatures {
		return nil, errors.NewDimensionError("Ridge.Predict", rd.NFeatures, cols, 1)
	}

	// 予測: y = X * weights + intercept
	predictions := mat.NewDense(rows, 1, nil)

	for i := 0; i < rows; i++ {
		pred := rd.Intercept
		for j := 0; j < cols; j++ {
			pred += X.At(i, j) * rd.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}

	return predictions, nil
}

// GetWeights は学習された重み（係数）を返す
func (rd *Ridge) GetWeights() []float64 {
	if rd.Weights == nil {
		return nil
	}

	weights := make([]float64, rd.Weights.Len())
	for i := 0; i < rd.Weights.Len(); i++ {
		weights[i] = rd.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept は学習された切片を返す
func (rd *Ridge) GetIntercept() float64 {
	if !rd.IsFitted() {
		return 0
	}
	return rd.Intercept
}

// GetParams はモデルのパラメータを取得する
func (rd *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         rd.Alpha,
		"fit_intercept": rd.fitIntercept,
	}
}

// Score はモデルの決定係数（R²）を計算する
func (rd *Ridge) Score(X, y mat.Matrix) (float64, error) {
	if !rd.IsFitted() {
		return 0, errors.NewNotFittedError("Ridge", "Score")
	}

	yTrue, yPred, err := rd.scoreVectors(X, y)
	if err != nil {
		return 0, err
	}

	return metrics.R2Score(yTrue, yPred)
}

// ScoreWeighted はサンプル重み付きの決定係数（R²）を計算する
// 代理モデルの局所的な当てはまりの評価に使う
func (rd *Ridge) ScoreWeighted(X, y mat.Matrix, sampleWeight *mat.VecDense) (float64, error) {
	if !rd.IsFitted() {
		return 0, errors.NewNotFittedError("Ridge", "ScoreWeighted")
	}

	if sampleWeight == nil {
		return rd.Score(X, y)
	}

	yTrue, yPred, err := rd.scoreVectors(X, y)
	if err != nil {
		return 0, err
	}

	return metrics.WeightedR2Score(yTrue, yPred, sampleWeight)
}

// scoreVectors は真値と予測値を列ベクトルに揃える
func (rd *Ridge) scoreVectors(X, y mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	pred, err := rd.Predict(X)
	if err != nil {
		return nil, nil, err
	}

	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	yPred := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
		yPred.SetVec(i, pred.At(i, 0))
	}

	return yTrue, yPred, nil
}
