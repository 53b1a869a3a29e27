package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/pkg/log"
	"github.com/YuminosukeSato/cogniboost/preprocessing"
	"gonum.org/v1/gonum/mat"
)

const (
	ageColumn = "Age"
	ageMin    = 40.0
	ageMax    = 100.0
)

// LoadOption configures LoadCSV.
type LoadOption func(*loadConfig)

type loadConfig struct {
	target      string
	dropColumns []string
}

// WithTarget sets the name of the label column. Default is "Diagnosis".
func WithTarget(name string) LoadOption {
	return func(c *loadConfig) {
		c.target = name
	}
}

// WithDropColumns sets the identifier columns removed before modeling.
// Default is PatientID and DoctorInCharge. Absent columns are ignored.
func WithDropColumns(names ...string) LoadOption {
	return func(c *loadConfig) {
		c.dropColumns = names
	}
}

// missingCell reports whether a raw CSV cell counts as a missing value.
func missingCell(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "na", "n/a", "nan", "null", "?":
		return true
	}
	return false
}

// LoadCSV reads and cleans a clinical CSV file.
//
// Cleaning order: identifier columns are dropped, numeric gaps are filled
// with the column mean and categorical gaps with the column mode (both
// computed once over the full file), categorical columns are
// integer-encoded over their sorted distinct values, and finally rows
// whose Age falls outside [40, 100] are removed. The age filter is
// skipped entirely when the file has no Age column. The target column
// must exist and must be binary 0/1.
func LoadCSV(path string, opts ...LoadOption) (ds *Dataset, report *CleaningReport, err error) {
	defer errors.Recover(&err, "dataset.LoadCSV")

	cfg := &loadConfig{
		target:      "Diagnosis",
		dropColumns: []string{"PatientID", "DoctorInCharge"},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dataset: parse %s", path)
	}
	if len(records) < 2 {
		return nil, nil, errors.NewValueError("dataset.LoadCSV", "file has no data rows")
	}

	header := records[0]
	rows := records[1:]
	report = &CleaningReport{}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}

	dropped := make(map[string]bool)
	for _, name := range cfg.dropColumns {
		if _, ok := colIndex[name]; ok {
			dropped[name] = true
			report.DroppedColumns = append(report.DroppedColumns, name)
		}
	}

	targetIdx, ok := colIndex[cfg.target]
	if !ok {
		return nil, nil, errors.NewValueError("dataset.LoadCSV",
			fmt.Sprintf("target column %q not found", cfg.target))
	}

	// Kept feature columns, in file order.
	var featureNames []string
	var featureIdx []int
	for i, name := range header {
		if i == targetIdx || dropped[name] {
			continue
		}
		featureNames = append(featureNames, name)
		featureIdx = append(featureIdx, i)
	}
	if len(featureNames) == 0 {
		return nil, nil, errors.NewValueError("dataset.LoadCSV", "no feature columns remain")
	}

	// Impute and encode column by column.
	n := len(rows)
	columns := make([][]float64, len(featureNames))
	for j, idx := range featureIdx {
		col, imputed, encoded, cerr := cleanColumn(rows, idx, featureNames[j])
		if cerr != nil {
			return nil, nil, cerr
		}
		columns[j] = col
		if imputed {
			if encoded {
				report.ImputedCategorical = append(report.ImputedCategorical, featureNames[j])
			} else {
				report.ImputedNumeric = append(report.ImputedNumeric, featureNames[j])
			}
		}
		if encoded {
			report.EncodedCategorical = append(report.EncodedCategorical, featureNames[j])
		}
	}

	// Target must be present and binary on every row.
	target := make([]float64, n)
	for i, row := range rows {
		cell := row[targetIdx]
		if missingCell(cell) {
			return nil, nil, errors.NewValueError("dataset.LoadCSV",
				fmt.Sprintf("target column %q has a missing value at row %d", cfg.target, i+1))
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if perr != nil || (v != 0 && v != 1) {
			return nil, nil, errors.NewValueError("dataset.LoadCSV",
				fmt.Sprintf("target column %q must be binary 0/1, got %q at row %d", cfg.target, cell, i+1))
		}
		target[i] = v
	}

	// Age domain filter, skipped when the column is absent.
	keep := make([]int, 0, n)
	ageIdx := -1
	for j, name := range featureNames {
		if name == ageColumn {
			ageIdx = j
			break
		}
	}
	for i := 0; i < n; i++ {
		if ageIdx >= 0 {
			age := columns[ageIdx][i]
			if age < ageMin || age > ageMax {
				report.RowsFiltered++
				continue
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == 0 {
		return nil, nil, errors.NewValueError("dataset.LoadCSV", "no rows remain after the age filter")
	}

	X := mat.NewDense(len(keep), len(featureNames), nil)
	Y := mat.NewVecDense(len(keep), nil)
	for to, from := range keep {
		for j := range featureNames {
			X.Set(to, j, columns[j][from])
		}
		Y.SetVec(to, target[from])
	}

	logger := log.GetLoggerWithName("DataLoader")
	logger.Info("dataset loaded",
		"path", path,
		"rows", len(keep),
		"features", len(featureNames),
		"dropped_columns", len(report.DroppedColumns),
		"encoded_columns", len(report.EncodedCategorical),
		"rows_filtered", report.RowsFiltered)

	return &Dataset{FeatureNames: featureNames, X: X, Y: Y}, report, nil
}

// cleanColumn imputes and, for categorical columns, integer-encodes one
// raw column. It reports whether any value was imputed and whether the
// column was treated as categorical.
func cleanColumn(rows [][]string, idx int, name string) ([]float64, bool, bool, error) {
	n := len(rows)
	raw := make([]string, n)
	missing := make([]bool, n)

	numeric := true
	observed := 0
	for i, row := range rows {
		raw[i] = strings.TrimSpace(row[idx])
		if missingCell(row[idx]) {
			missing[i] = true
			continue
		}
		observed++
		if _, err := strconv.ParseFloat(raw[i], 64); err != nil {
			numeric = false
		}
	}
	if observed == 0 {
		return nil, false, false, errors.NewValueError("dataset.LoadCSV",
			fmt.Sprintf("column %q has no observed values to impute from", name))
	}

	imputed := observed < n

	if numeric {
		col := make([]float64, n)
		var sum float64
		for i := range raw {
			if missing[i] {
				continue
			}
			v, _ := strconv.ParseFloat(raw[i], 64)
			col[i] = v
			sum += v
		}
		mean := sum / float64(observed)
		for i := range col {
			if missing[i] {
				col[i] = mean
			}
		}
		return col, imputed, false, nil
	}

	// Mode imputation; ties resolve to the lexicographically smallest value
	// so repeated runs stay stable.
	counts := make(map[string]int)
	for i := range raw {
		if !missing[i] {
			counts[raw[i]]++
		}
	}
	mode := ""
	best := -1
	for v, c := range counts {
		if c > best || (c == best && v < mode) {
			mode = v
			best = c
		}
	}
	values := make([]string, n)
	for i := range raw {
		if missing[i] {
			values[i] = mode
		} else {
			values[i] = raw[i]
		}
	}

	encoder := preprocessing.NewLabelEncoder()
	col, err := encoder.FitTransform(values)
	if err != nil {
		return nil, false, false, errors.Wrapf(err, "dataset: encode column %q", name)
	}
	return col, imputed, true, nil
}
