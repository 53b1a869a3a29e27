package pipeline

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/core/model"
	"github.com/YuminosukeSato/cogniboost/dataset"
	"github.com/YuminosukeSato/cogniboost/ensemble"
	"github.com/YuminosukeSato/cogniboost/neural"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/preprocessing"
)

// The artifact file holds plain exported mirrors of the fitted state.
// Scalers and datasets wrap types whose own fields do not survive
// encoding/gob, so they are captured field by field and rebuilt on load.

type matrixState struct {
	Rows, Cols int
	Data       []float64
}

func captureMatrix(m *mat.Dense) matrixState {
	if m == nil {
		return matrixState{}
	}
	r, c := m.Dims()
	st := matrixState{Rows: r, Cols: c, Data: make([]float64, r*c)}
	for i := 0; i < r; i++ {
		copy(st.Data[i*c:(i+1)*c], m.RawRowView(i))
	}
	return st
}

func (s matrixState) restore() *mat.Dense {
	if s.Rows == 0 || s.Cols == 0 {
		return nil
	}
	return mat.NewDense(s.Rows, s.Cols, s.Data)
}

type scalerState struct {
	Min          []float64
	Max          []float64
	Scale        []float64
	DataMin      []float64
	DataMax      []float64
	NFeatures    int
	FeatureRange [2]float64
}

func captureScaler(m *preprocessing.MinMaxScaler) scalerState {
	return scalerState{
		Min:          m.Min,
		Max:          m.Max,
		Scale:        m.Scale,
		DataMin:      m.DataMin,
		DataMax:      m.DataMax,
		NFeatures:    m.NFeatures,
		FeatureRange: m.FeatureRange,
	}
}

func (s scalerState) restore() *preprocessing.MinMaxScaler {
	sc := preprocessing.NewMinMaxScaler(s.FeatureRange)
	sc.Min = s.Min
	sc.Max = s.Max
	sc.Scale = s.Scale
	sc.DataMin = s.DataMin
	sc.DataMax = s.DataMax
	sc.NFeatures = s.NFeatures
	sc.SetFitted()
	return sc
}

type datasetState struct {
	FeatureNames []string
	X            matrixState
	Y            []float64
}

func captureDataset(ds *dataset.Dataset) datasetState {
	if ds == nil {
		return datasetState{}
	}
	st := datasetState{
		FeatureNames: copyNames(ds.FeatureNames),
		X:            captureMatrix(ds.X),
		Y:            make([]float64, ds.NumSamples()),
	}
	for i := range st.Y {
		st.Y[i] = ds.Y.AtVec(i)
	}
	return st
}

func (s datasetState) restore() *dataset.Dataset {
	X := s.X.restore()
	if X == nil {
		return nil
	}
	return &dataset.Dataset{
		FeatureNames: s.FeatureNames,
		X:            X,
		Y:            mat.NewVecDense(len(s.Y), s.Y),
	}
}

type diagnosisState struct {
	Config        *Config
	FeatureNames  []string
	FeatureScaler scalerState
	LeafScaler    scalerState
	Forest        *ensemble.Model
	ExtraTrees    *ensemble.Model
	Boosting      *ensemble.Model
	Leafwise      *ensemble.Model
	Net           *neural.TwoBranchNet
	TrainSet      datasetState
	TestSet       datasetState
}

// Save writes every fitted artifact to path with encoding/gob.
func (d *Diagnosis) Save(path string) (err error) {
	defer errors.Recover(&err, "Diagnosis.Save")

	if !d.state.IsFitted() {
		return errors.NewNotFittedError("Diagnosis", "Save")
	}
	st := diagnosisState{
		Config:        d.Config,
		FeatureNames:  copyNames(d.FeatureNames),
		FeatureScaler: captureScaler(d.FeatureScaler),
		LeafScaler:    captureScaler(d.LeafScaler),
		Forest:        d.Forest.Model,
		ExtraTrees:    d.ExtraTrees.Model,
		Boosting:      d.Boosting.Model,
		Leafwise:      d.Leafwise.Model,
		Net:           d.Net,
		TrainSet:      captureDataset(d.trainSet_),
		TestSet:       captureDataset(d.testSet_),
	}
	return model.SaveModel(&st, path)
}

// LoadDiagnosis restores a pipeline saved by Save. The ensemble
// predictors are rebuilt around the decoded tree models, so the loaded
// pipeline predicts and explains exactly like the one that was saved.
func LoadDiagnosis(path string) (d *Diagnosis, err error) {
	defer errors.Recover(&err, "pipeline.LoadDiagnosis")

	var st diagnosisState
	if err := model.LoadModel(&st, path); err != nil {
		return nil, err
	}
	if st.Config == nil || st.Net == nil ||
		st.Forest == nil || st.ExtraTrees == nil || st.Boosting == nil || st.Leafwise == nil {
		return nil, errors.NewValueError("pipeline.LoadDiagnosis", "artifact file is incomplete")
	}

	d = NewDiagnosis(st.Config)
	d.FeatureNames = st.FeatureNames
	d.FeatureScaler = st.FeatureScaler.restore()
	d.LeafScaler = st.LeafScaler.restore()
	d.Balancer = preprocessing.NewSMOTE(st.Config.Balance.KNeighbors, st.Config.Seed)

	d.Forest = st.Config.newForest()
	d.Forest.Model = st.Forest
	d.Forest.Predictor = ensemble.NewPredictor(st.Forest, ensemble.AggregateAverage)
	d.Forest.SetFitted()

	d.ExtraTrees = st.Config.newExtraTrees()
	d.ExtraTrees.Model = st.ExtraTrees
	d.ExtraTrees.Predictor = ensemble.NewPredictor(st.ExtraTrees, ensemble.AggregateAverage)
	d.ExtraTrees.SetFitted()

	d.Boosting = st.Config.newBoosting()
	d.Boosting.Model = st.Boosting
	d.Boosting.Predictor = ensemble.NewPredictor(st.Boosting, ensemble.AggregateMargin)
	d.Boosting.SetFitted()

	d.Leafwise = st.Config.newLeafwise()
	d.Leafwise.Model = st.Leafwise
	d.Leafwise.Predictor = ensemble.NewPredictor(st.Leafwise, ensemble.AggregateMargin)
	d.Leafwise.SetFitted()

	d.Embedder = ensemble.NewLeafEmbedder(d.Forest, d.ExtraTrees, d.Boosting, d.Leafwise)
	d.Net = st.Net
	d.trainSet_ = st.TrainSet.restore()
	d.testSet_ = st.TestSet.restore()

	nSamples := 0
	if d.trainSet_ != nil {
		nSamples = d.trainSet_.NumSamples()
	}
	d.state.SetDimensions(len(st.FeatureNames), nSamples)
	d.state.SetFitted()
	return d, nil
}
