package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// Step is one named stage of a Pipeline.
type Step struct {
	Name      string
	Estimator interface{}
}

// Pipeline chains named transformer steps in front of a final estimator.
// Every step but the last must implement model.Transformer; the last
// must implement model.Fitter and, for the corresponding Pipeline
// methods, model.Predictor or PredictProba.
type Pipeline struct {
	state *model.StateManager
	steps []Step
}

// NewPipeline builds a pipeline from the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{state: model.NewStateManager(), steps: steps}
}

// NamedStep returns the estimator registered under name.
func (p *Pipeline) NamedStep(name string) (interface{}, bool) {
	for _, s := range p.steps {
		if s.Name == name {
			return s.Estimator, true
		}
	}
	return nil, false
}

// IsFitted returns whether Fit has completed successfully.
func (p *Pipeline) IsFitted() bool {
	return p.state.IsFitted()
}

// Fit runs FitTransform through every intermediate step and fits the
// final estimator on the transformed matrix.
func (p *Pipeline) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")

	if len(p.steps) == 0 {
		return errors.NewValueError("Pipeline.Fit", "pipeline has no steps")
	}

	Xt := X
	for _, s := range p.steps[:len(p.steps)-1] {
		tr, ok := s.Estimator.(model.Transformer)
		if !ok {
			return errors.NewValueError("Pipeline.Fit",
				fmt.Sprintf("step %q must be a transformer", s.Name))
		}
		if Xt, err = tr.FitTransform(Xt); err != nil {
			return errors.Wrapf(err, "pipeline step %q", s.Name)
		}
	}

	last := p.steps[len(p.steps)-1]
	f, ok := last.Estimator.(model.Fitter)
	if !ok {
		return errors.NewValueError("Pipeline.Fit",
			fmt.Sprintf("final step %q must implement Fit(X, y)", last.Name))
	}
	if err = f.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "pipeline step %q", last.Name)
	}

	rows, cols := X.Dims()
	p.state.SetDimensions(cols, rows)
	p.state.SetFitted()
	return nil
}

// Transform pushes X through the fitted intermediate steps.
func (p *Pipeline) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !p.state.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Transform")
	}
	return p.transform(X)
}

func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	var err error
	for _, s := range p.steps[:len(p.steps)-1] {
		tr := s.Estimator.(model.Transformer)
		if Xt, err = tr.Transform(Xt); err != nil {
			return nil, errors.Wrapf(err, "pipeline step %q", s.Name)
		}
	}
	return Xt, nil
}

// Predict transforms X and delegates to the final estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.state.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	last := p.steps[len(p.steps)-1]
	pr, ok := last.Estimator.(model.Predictor)
	if !ok {
		return nil, errors.NewValueError("Pipeline.Predict",
			fmt.Sprintf("final step %q cannot predict", last.Name))
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return pr.Predict(Xt)
}

// PredictProba transforms X and returns the final estimator's class
// probabilities.
func (p *Pipeline) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !p.state.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "PredictProba")
	}
	last := p.steps[len(p.steps)-1]
	pr, ok := last.Estimator.(interface {
		PredictProba(X mat.Matrix) (*mat.Dense, error)
	})
	if !ok {
		return nil, errors.NewValueError("Pipeline.PredictProba",
			fmt.Sprintf("final step %q cannot predict probabilities", last.Name))
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return pr.PredictProba(Xt)
}
