package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const clinicalCSV = `PatientID,Age,Gender,MMSE,SupportLevel,DoctorInCharge,Diagnosis
p1,65,Male,28,High,drA,0
p2,72,Female,,Low,drB,1
p3,39,Male,22,High,drC,0
p4,80,Female,26,,drD,1
p5,101,Male,21,Low,drE,0
p6,55,Female,28,High,drF,0
`

func TestLoadCSVCleaning(t *testing.T) {
	path := writeCSV(t, clinicalCSV)

	ds, report, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}

	wantNames := []string{"Age", "Gender", "MMSE", "SupportLevel"}
	if len(ds.FeatureNames) != len(wantNames) {
		t.Fatalf("FeatureNames = %v, want %v", ds.FeatureNames, wantNames)
	}
	for i, name := range wantNames {
		if ds.FeatureNames[i] != name {
			t.Errorf("FeatureNames[%d] = %q, want %q", i, ds.FeatureNames[i], name)
		}
	}

	// Rows p3 (age 39) and p5 (age 101) fall outside [40, 100].
	if ds.NumSamples() != 4 {
		t.Fatalf("NumSamples() = %d, want 4", ds.NumSamples())
	}
	if report.RowsFiltered != 2 {
		t.Errorf("RowsFiltered = %d, want 2", report.RowsFiltered)
	}

	// The observed MMSE values are 28, 22, 26, 21, 28: mean 25. Gender encodes
	// Female=0/Male=1, SupportLevel encodes High=0/Low=1 with the p4 gap
	// mode-filled as High.
	want := [][]float64{
		{65, 1, 28, 0},
		{72, 0, 25, 1},
		{80, 0, 26, 0},
		{55, 0, 28, 0},
	}
	wantY := []float64{0, 1, 1, 0}
	for i := range want {
		for j := range want[i] {
			if math.Abs(ds.X.At(i, j)-want[i][j]) > 1e-10 {
				t.Errorf("X[%d,%d] = %v, want %v", i, j, ds.X.At(i, j), want[i][j])
			}
		}
		if ds.Y.AtVec(i) != wantY[i] {
			t.Errorf("Y[%d] = %v, want %v", i, ds.Y.AtVec(i), wantY[i])
		}
	}

	if len(report.DroppedColumns) != 2 ||
		report.DroppedColumns[0] != "PatientID" || report.DroppedColumns[1] != "DoctorInCharge" {
		t.Errorf("DroppedColumns = %v, want [PatientID DoctorInCharge]", report.DroppedColumns)
	}
	if len(report.ImputedNumeric) != 1 || report.ImputedNumeric[0] != "MMSE" {
		t.Errorf("ImputedNumeric = %v, want [MMSE]", report.ImputedNumeric)
	}
	if len(report.ImputedCategorical) != 1 || report.ImputedCategorical[0] != "SupportLevel" {
		t.Errorf("ImputedCategorical = %v, want [SupportLevel]", report.ImputedCategorical)
	}
	if len(report.EncodedCategorical) != 2 ||
		report.EncodedCategorical[0] != "Gender" || report.EncodedCategorical[1] != "SupportLevel" {
		t.Errorf("EncodedCategorical = %v, want [Gender SupportLevel]", report.EncodedCategorical)
	}
}

func TestLoadCSVNoAgeColumn(t *testing.T) {
	path := writeCSV(t, `ID,Score,Diagnosis
a,1.5,0
b,2.5,1
c,3.5,0
`)

	ds, report, err := LoadCSV(path, WithDropColumns("ID"))
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}

	// Without an Age column the domain filter is skipped entirely.
	if ds.NumSamples() != 3 {
		t.Errorf("NumSamples() = %d, want 3", ds.NumSamples())
	}
	if report.RowsFiltered != 0 {
		t.Errorf("RowsFiltered = %d, want 0", report.RowsFiltered)
	}
}

func TestLoadCSVCustomTarget(t *testing.T) {
	path := writeCSV(t, `Age,Score,Outcome
50,1,1
60,2,0
`)

	ds, _, err := LoadCSV(path, WithTarget("Outcome"), WithDropColumns())
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if ds.NumFeatures() != 2 {
		t.Errorf("NumFeatures() = %d, want 2", ds.NumFeatures())
	}
	if ds.Y.AtVec(0) != 1 || ds.Y.AtVec(1) != 0 {
		t.Errorf("Y = [%v %v], want [1 0]", ds.Y.AtVec(0), ds.Y.AtVec(1))
	}
}

func TestLoadCSVMissingTokens(t *testing.T) {
	path := writeCSV(t, `Age,Score,Diagnosis
50,1,0
60,NA,1
70,n/a,0
80,?,1
90,9,0
`)

	ds, report, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}

	// Observed scores are 1 and 9; every missing token fills with mean 5.
	for _, i := range []int{1, 2, 3} {
		if math.Abs(ds.X.At(i, 1)-5.0) > 1e-10 {
			t.Errorf("X[%d,1] = %v, want 5", i, ds.X.At(i, 1))
		}
	}
	if len(report.ImputedNumeric) != 1 || report.ImputedNumeric[0] != "Score" {
		t.Errorf("ImputedNumeric = %v, want [Score]", report.ImputedNumeric)
	}
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    []LoadOption
	}{
		{
			name: "missing target column",
			content: `Age,Score
50,1
`,
		},
		{
			name: "non-binary target",
			content: `Age,Diagnosis
50,2
`,
		},
		{
			name: "non-numeric target",
			content: `Age,Diagnosis
50,positive
`,
		},
		{
			name: "missing target value",
			content: `Age,Diagnosis
50,0
60,
`,
		},
		{
			name: "all-missing column",
			content: `Age,Score,Diagnosis
50,,0
60,,1
`,
		},
		{
			name:    "header only",
			content: "Age,Diagnosis\n",
		},
		{
			name: "all rows outside age range",
			content: `Age,Diagnosis
20,0
30,1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.content)
			if _, _, err := LoadCSV(path, tt.opts...); err == nil {
				t.Error("LoadCSV() expected an error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, _, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
			t.Error("LoadCSV() expected an error for a missing file")
		}
	})
}
