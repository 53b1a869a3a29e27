package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダー
// 文字列カテゴリをソート順の整数コードに変換する
type LabelEncoder struct {
	model.BaseEstimator

	// Classes は学習済みのクラス一覧（ソート済み）
	Classes []string
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	encoder := preprocessing.NewLabelEncoder()
//	codes, err := encoder.FitTransform([]string{"Male", "Female", "Male"})
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit は値の一覧からクラス集合を学習する
//
// パラメータ:
//   - values: カテゴリ値の一覧
//
// 戻り値:
//   - error: エラーが発生した場合
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}

	e.Classes = make([]string, 0, len(seen))
	for v := range seen {
		e.Classes = append(e.Classes, v)
	}
	sort.Strings(e.Classes)

	e.SetFitted()
	return nil
}

// Transform は学習済みのクラス集合を使って値を整数コードに変換する
// 未知のカテゴリ値はエラーになる
//
// パラメータ:
//   - values: 変換するカテゴリ値の一覧
//
// 戻り値:
//   - []float64: 整数コード（行列への組み込みを考慮してfloat64で返す）
//   - error: エラーが発生した場合
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}

	codes := make([]float64, len(values))
	for i, v := range values {
		idx := sort.SearchStrings(e.Classes, v)
		if idx >= len(e.Classes) || e.Classes[idx] != v {
			return nil, errors.NewValueError("LabelEncoder.Transform",
				fmt.Sprintf("unseen label %q", v))
		}
		codes[i] = float64(idx)
	}

	return codes, nil
}

// FitTransform は値の一覧で学習し、同じ値を変換する
func (e *LabelEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// InverseTransform は整数コードを元のカテゴリ値に戻す
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	values := make([]string, len(codes))
	for i, code := range codes {
		idx := int(code)
		if float64(idx) != code || idx < 0 || idx >= len(e.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform",
				fmt.Sprintf("code %v is not a valid class index", code))
		}
		values[i] = e.Classes[idx]
	}

	return values, nil
}

// String はエンコーダーの文字列表現を返す
func (e *LabelEncoder) String() string {
	if !e.IsFitted() {
		return "LabelEncoder()"
	}
	return fmt.Sprintf("LabelEncoder(n_classes=%d)", len(e.Classes))
}
