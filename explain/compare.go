package explain

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/cogniboost/metrics"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// CompareOptions tunes the ranking comparison.
type CompareOptions struct {
	// MinOverlap is the smallest number of shared features required to
	// compute a correlation. Zero means 2.
	MinOverlap int
}

// Agreement holds the aligned rank series of both explainers and their
// Kendall rank correlation. When fewer features overlap than
// MinOverlap the correlation is skipped and Insufficient is set.
type Agreement struct {
	Features     []string
	ShapRanks    []float64
	LimeRanks    []float64
	Tau          float64
	PValue       float64
	Insufficient bool
}

// Summary renders the agreement as a one-line report.
func (a *Agreement) Summary() string {
	if a.Insufficient {
		return fmt.Sprintf("insufficient overlap: only %d feature(s) ranked by both explainers", len(a.Features))
	}
	return fmt.Sprintf("kendall tau = %.4f (p = %.4f) over %d common features", a.Tau, a.PValue, len(a.Features))
}

// Compare matches a local LIME explanation against a global SHAP
// ranking. LIME labels carry threshold text, so the raw feature name is
// recovered as the first whitespace token; middle-bin labels such as
// "1.23 < age <= 4.56" start with a number and therefore drop out of
// the intersection. Ranks are positions in each full ranking before
// intersecting.
func Compare(global []FeatureImportance, local *Explanation, opts CompareOptions) (*Agreement, error) {
	const op = "explain.Compare"

	if len(global) == 0 {
		return nil, errors.NewValueError(op, "global ranking is empty")
	}
	if local == nil || len(local.Features) == 0 {
		return nil, errors.NewValueError(op, "local explanation is empty")
	}

	minOverlap := opts.MinOverlap
	if minOverlap <= 0 {
		minOverlap = 2
	}

	shapRank := make(map[string]int, len(global))
	for i, fi := range global {
		shapRank[fi.Name] = i + 1
	}

	agreement := &Agreement{}
	for i, wf := range local.Features {
		fields := strings.Fields(wf.Label)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		rank, ok := shapRank[name]
		if !ok {
			continue
		}
		agreement.Features = append(agreement.Features, name)
		agreement.ShapRanks = append(agreement.ShapRanks, float64(rank))
		agreement.LimeRanks = append(agreement.LimeRanks, float64(i+1))
	}

	if len(agreement.Features) < minOverlap {
		agreement.Insufficient = true
		return agreement, nil
	}

	tau, p, err := metrics.KendallTau(agreement.ShapRanks, agreement.LimeRanks)
	if err != nil {
		return nil, err
	}
	agreement.Tau = tau
	agreement.PValue = p
	return agreement, nil
}
