package pipeline

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/cogniboost/metrics"
)

// Report carries the evaluation of one training run. Accuracy is
// measured on both splits; precision, recall, F1, AUC and the confusion
// matrix describe the test split with positive class 1.
type Report struct {
	TrainAccuracy float64
	TestAccuracy  float64
	Precision     float64
	Recall        float64
	F1            float64
	AUC           float64
	Confusion     *metrics.ConfusionMatrix
}

// String renders the report as an aligned text block.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("diagnosis report\n")
	fmt.Fprintf(&b, "  train accuracy : %.4f\n", r.TrainAccuracy)
	fmt.Fprintf(&b, "  test accuracy  : %.4f\n", r.TestAccuracy)
	fmt.Fprintf(&b, "  precision      : %.4f\n", r.Precision)
	fmt.Fprintf(&b, "  recall         : %.4f\n", r.Recall)
	fmt.Fprintf(&b, "  f1 score       : %.4f\n", r.F1)
	fmt.Fprintf(&b, "  auc            : %.4f\n", r.AUC)
	if r.Confusion != nil {
		fmt.Fprintf(&b, "  confusion      : TP=%d FP=%d TN=%d FN=%d\n",
			r.Confusion.TP, r.Confusion.FP, r.Confusion.TN, r.Confusion.FN)
	}
	return b.String()
}
