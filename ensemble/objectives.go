package ensemble

import (
	"math"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// ObjectiveFunction defines the loss interface driving gradient boosting
type ObjectiveFunction interface {
	// CalculateGradient returns the first derivative of the loss with
	// respect to the raw score for a single sample
	CalculateGradient(rawScore, target float64) float64

	// CalculateHessian returns the second derivative of the loss with
	// respect to the raw score for a single sample
	CalculateHessian(rawScore, target float64) float64

	// CalculateLoss returns the loss for a single sample
	CalculateLoss(rawScore, target float64) float64

	// GetInitScore returns the constant raw score the ensemble starts from
	GetInitScore(targets []float64) float64

	// Transform maps a raw score to the output space
	Transform(rawScore float64) float64

	// Name returns the name of the objective
	Name() string
}

// LogisticObjective implements binary cross-entropy on raw log-odds scores
type LogisticObjective struct{}

// NewLogisticObjective creates the binary classification objective
func NewLogisticObjective() *LogisticObjective {
	return &LogisticObjective{}
}

func (o *LogisticObjective) CalculateGradient(rawScore, target float64) float64 {
	return stableSigmoid(rawScore) - target
}

func (o *LogisticObjective) CalculateHessian(rawScore, target float64) float64 {
	p := stableSigmoid(rawScore)
	hess := p * (1 - p)
	// The hessian vanishes at saturated predictions; keep leaf values finite
	if hess < 1e-16 {
		hess = 1e-16
	}
	return hess
}

func (o *LogisticObjective) CalculateLoss(rawScore, target float64) float64 {
	p := errors.ClipValue(stableSigmoid(rawScore), 1e-15, 1-1e-15)
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

// GetInitScore returns the log-odds of the positive rate, the constant
// minimizer of the loss.
func (o *LogisticObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}

	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	p := errors.ClipValue(sum/float64(len(targets)), 1e-15, 1-1e-15)
	return math.Log(p / (1 - p))
}

func (o *LogisticObjective) Transform(rawScore float64) float64 {
	return stableSigmoid(rawScore)
}

func (o *LogisticObjective) Name() string {
	return "binary"
}

// stableSigmoid computes the logistic function without overflowing exp
func stableSigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}
