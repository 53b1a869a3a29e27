package preprocessing

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SMOTE は少数派クラスの合成オーバーサンプリングを行う
// 少数派サンプルとその近傍の線形補間で合成行を生成し、クラス数を均等化する
type SMOTE struct {
	// K は補間相手を選ぶ近傍数（少数派サンプル数-1でクランプされる）
	K int

	// RandomState は乱数シード
	RandomState int64
}

// NewSMOTE は新しいSMOTEを作成する
//
// パラメータ:
//   - k: 近傍数
//   - randomState: 乱数シード
func NewSMOTE(k int, randomState int64) *SMOTE {
	return &SMOTE{
		K:           k,
		RandomState: randomState,
	}
}

// NewSMOTEDefault はデフォルト設定（k=5）でSMOTEを作成する
func NewSMOTEDefault() *SMOTE {
	return NewSMOTE(5, 0)
}

// GetParams はオーバーサンプラーのパラメータを取得する
func (s *SMOTE) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"k_neighbors":  s.K,
		"random_state": s.RandomState,
	}
}

// FitResample は少数派クラスを多数派と同数になるまでオーバーサンプリングする
// 元の行は順序を保って先頭に置かれ、合成行が末尾に追加される
//
// パラメータ:
//   - X: 特徴量行列 (n_samples × n_features)
//   - y: 二値ラベルベクトル
//
// 戻り値:
//   - *mat.Dense: リサンプリング後の特徴量行列
//   - *mat.VecDense: リサンプリング後のラベルベクトル
//   - error: エラーが発生した場合
func (s *SMOTE) FitResample(X mat.Matrix, y *mat.VecDense) (*mat.Dense, *mat.VecDense, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, nil, errors.NewModelError("SMOTE.FitResample", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != r {
		return nil, nil, errors.NewDimensionError("SMOTE.FitResample", r, y.Len(), 0)
	}

	// クラスごとの行インデックスを集める
	classRows := make(map[float64][]int)
	for i := 0; i < r; i++ {
		label := y.AtVec(i)
		classRows[label] = append(classRows[label], i)
	}
	if len(classRows) != 2 {
		return nil, nil, errors.NewValueError("SMOTE.FitResample",
			fmt.Sprintf("expected 2 classes, got %d", len(classRows)))
	}

	labels := make([]float64, 0, 2)
	for label := range classRows {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	minorityLabel, majorityLabel := labels[0], labels[1]
	if len(classRows[minorityLabel]) > len(classRows[majorityLabel]) {
		minorityLabel, majorityLabel = majorityLabel, minorityLabel
	}
	minority := classRows[minorityLabel]
	needed := len(classRows[majorityLabel]) - len(minority)

	// 元データをコピー
	result := mat.NewDense(r+needed, c, nil)
	resultY := mat.NewVecDense(r+needed, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j))
		}
		resultY.SetVec(i, y.AtVec(i))
	}

	if needed == 0 {
		return result, resultY, nil
	}
	if len(minority) < 2 {
		return nil, nil, errors.NewValueError("SMOTE.FitResample",
			"minority class needs at least 2 samples for interpolation")
	}

	k := s.K
	if k > len(minority)-1 {
		k = len(minority) - 1
	}
	if k < 1 {
		k = 1
	}

	// 少数派各行のk近傍（ユークリッド距離、自分自身を除く）を前計算する
	minRows := make([][]float64, len(minority))
	for i, rowIdx := range minority {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(rowIdx, j)
		}
		minRows[i] = row
	}
	neighbors := nearestNeighbors(minRows, k)

	rng := rand.New(rand.NewSource(s.RandomState))
	for n := 0; n < needed; n++ {
		base := rng.Intn(len(minority))
		nb := neighbors[base][rng.Intn(k)]
		u := rng.Float64()

		for j := 0; j < c; j++ {
			v := minRows[base][j] + u*(minRows[nb][j]-minRows[base][j])
			result.Set(r+n, j, v)
		}
		resultY.SetVec(r+n, minorityLabel)
	}

	return result, resultY, nil
}

// nearestNeighbors は各行のk近傍インデックスを返す
func nearestNeighbors(rows [][]float64, k int) [][]int {
	n := len(rows)
	neighbors := make([][]int, n)

	for i := 0; i < n; i++ {
		type distIdx struct {
			dist float64
			idx  int
		}
		dists := make([]distIdx, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			var d float64
			for f := range rows[i] {
				diff := rows[i][f] - rows[j][f]
				d += diff * diff
			}
			dists = append(dists, distIdx{dist: math.Sqrt(d), idx: j})
		}
		sort.Slice(dists, func(a, b int) bool {
			if dists[a].dist != dists[b].dist {
				return dists[a].dist < dists[b].dist
			}
			return dists[a].idx < dists[b].idx
		})

		nn := make([]int, k)
		for m := 0; m < k; m++ {
			nn[m] = dists[m].idx
		}
		neighbors[i] = nn
	}

	return neighbors
}
