package metrics

import (
	"math"
	"testing"
)

func TestKendallTau(t *testing.T) {
	tests := []struct {
		name    string
		x       []float64
		y       []float64
		wantTau float64
		wantErr bool
	}{
		{
			name:    "Perfect agreement",
			x:       []float64{1, 2, 3, 4, 5},
			y:       []float64{1, 2, 3, 4, 5},
			wantTau: 1.0,
			wantErr: false,
		},
		{
			name:    "Perfect disagreement",
			x:       []float64{1, 2, 3, 4, 5},
			y:       []float64{5, 4, 3, 2, 1},
			wantTau: -1.0,
			wantErr: false,
		},
		{
			name:    "One swapped pair",
			x:       []float64{1, 2, 3, 4, 5},
			y:       []float64{2, 1, 3, 4, 5},
			wantTau: 0.8,
			wantErr: false,
		},
		{
			name:    "Single discordant pair of three",
			x:       []float64{1, 2, 3},
			y:       []float64{1, 3, 2},
			wantTau: 1.0 / 3.0,
			wantErr: false,
		},
		{
			name:    "Constant input has no concordant pairs",
			x:       []float64{2, 2, 2, 2},
			y:       []float64{1, 2, 3, 4},
			wantTau: 0,
			wantErr: false,
		},
		{
			name:    "Dimension mismatch",
			x:       []float64{1, 2, 3},
			y:       []float64{1, 2},
			wantTau: 0,
			wantErr: true,
		},
		{
			name:    "Too few observations",
			x:       []float64{1},
			y:       []float64{1},
			wantTau: 0,
			wantErr: true,
		},
		{
			name:    "NaN input",
			x:       []float64{1, math.NaN(), 3},
			y:       []float64{1, 2, 3},
			wantTau: 0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tau, pValue, err := KendallTau(tt.x, tt.y)
			if (err != nil) != tt.wantErr {
				t.Errorf("KendallTau() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if math.Abs(tau-tt.wantTau) > 1e-10 {
				t.Errorf("KendallTau() tau = %v, want %v", tau, tt.wantTau)
			}
			if pValue <= 0 || pValue > 1 {
				t.Errorf("KendallTau() pValue = %v, want in (0, 1]", pValue)
			}
		})
	}
}

func TestKendallTauPValue(t *testing.T) {
	// 完全一致(n=5)では z² = 6 なので p は約0.0143になる
	_, pPerfect, err := KendallTau(
		[]float64{1, 2, 3, 4, 5},
		[]float64{1, 2, 3, 4, 5},
	)
	if err != nil {
		t.Fatalf("KendallTau() unexpected error: %v", err)
	}
	if pPerfect < 0.01 || pPerfect > 0.02 {
		t.Errorf("p-value for perfect agreement (n=5) = %v, want in [0.01, 0.02]", pPerfect)
	}

	// 符号を反転してもp値は変わらない（両側検定）
	_, pReversed, err := KendallTau(
		[]float64{1, 2, 3, 4, 5},
		[]float64{5, 4, 3, 2, 1},
	)
	if err != nil {
		t.Fatalf("KendallTau() unexpected error: %v", err)
	}
	if math.Abs(pPerfect-pReversed) > 1e-10 {
		t.Errorf("two-sided p-value should be symmetric: got %v and %v", pPerfect, pReversed)
	}

	// 相関が弱いほどp値は大きくなる
	_, pWeak, err := KendallTau(
		[]float64{1, 2, 3, 4, 5},
		[]float64{2, 1, 3, 5, 4},
	)
	if err != nil {
		t.Fatalf("KendallTau() unexpected error: %v", err)
	}
	if pWeak <= pPerfect {
		t.Errorf("weaker correlation should have larger p-value: weak=%v, perfect=%v", pWeak, pPerfect)
	}

	// サンプル数が増えると完全一致のp値は小さくなる
	x10 := make([]float64, 10)
	for i := range x10 {
		x10[i] = float64(i + 1)
	}
	_, pLarge, err := KendallTau(x10, x10)
	if err != nil {
		t.Fatalf("KendallTau() unexpected error: %v", err)
	}
	if pLarge >= 0.001 {
		t.Errorf("p-value for perfect agreement (n=10) = %v, want < 0.001", pLarge)
	}
}
