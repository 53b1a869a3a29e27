package ensemble

import (
	"github.com/YuminosukeSato/cogniboost/core/parallel"
	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SHAPValues holds exact per-feature attributions for a block of rows.
// For every row, BaseValue plus the row's attributions reproduces the
// model margin.
type SHAPValues struct {
	Values    *mat.Dense // rows x features, margin-space attributions
	BaseValue float64
}

// TreeExplainer computes exact path-dependent SHAP values for a fitted
// tree ensemble. Node means are weighted by Cover, so attribution follows
// the same hessian weighting the trees were grown with.
type TreeExplainer struct {
	model      *Model
	meanValues [][]float64 // per tree, per node: cover-weighted subtree mean
	baseValue  float64
	pathSize   int
}

// NewTreeExplainer precomputes the per-node subtree means and the base
// value for the given model
func NewTreeExplainer(model *Model) (*TreeExplainer, error) {
	if model == nil || len(model.Trees) == 0 {
		return nil, errors.NewModelError("NewTreeExplainer", "model has no trees", errors.ErrEmptyData)
	}

	ex := &TreeExplainer{
		model:      model,
		meanValues: make([][]float64, len(model.Trees)),
		baseValue:  model.InitScore,
	}

	maxDepth := 0
	for t := range model.Trees {
		tree := &model.Trees[t]

		means := make([]float64, len(tree.Nodes))
		fillNodeMeans(tree, 0, means)
		ex.meanValues[t] = means
		ex.baseValue += means[0] * tree.ShrinkageRate

		if d := tree.MaxDepth(); d > maxDepth {
			maxDepth = d
		}
	}

	// each recursion level keeps its own copy of the unique path
	maxd := maxDepth + 2
	ex.pathSize = (maxd * (maxd + 1)) / 2

	return ex, nil
}

// BaseValue returns the expected model margin over the training
// distribution implied by the node covers
func (ex *TreeExplainer) BaseValue() float64 {
	return ex.baseValue
}

// SHAPValues computes attributions for every row of X
func (ex *TreeExplainer) SHAPValues(X mat.Matrix) (*SHAPValues, error) {
	rows, cols := X.Dims()
	if cols != ex.model.NumFeatures {
		return nil, errors.NewDimensionError("TreeExplainer.SHAPValues", ex.model.NumFeatures, cols, 1)
	}

	values := mat.NewDense(rows, cols, nil)

	parallel.ParallelizeWithThreshold(rows, 16, func(start, end int) {
		x := make([]float64, cols)
		path := make([]pathElement, ex.pathSize)
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			phi := values.RawRowView(i)
			for t := range ex.model.Trees {
				ex.treeShap(&ex.model.Trees[t], x, phi, 0, 0, path, 1, 1, -1)
			}
		}
	})

	return &SHAPValues{Values: values, BaseValue: ex.baseValue}, nil
}

// fillNodeMeans computes the cover-weighted mean subtree output for every
// node, bottom up
func fillNodeMeans(tree *Tree, nodeID int, means []float64) float64 {
	node := &tree.Nodes[nodeID]
	if node.IsLeaf() {
		means[nodeID] = node.LeafValue
		return node.LeafValue
	}

	left := fillNodeMeans(tree, node.Left, means)
	right := fillNodeMeans(tree, node.Right, means)
	mean := (left*tree.Nodes[node.Left].Cover + right*tree.Nodes[node.Right].Cover) / node.Cover
	means[nodeID] = mean
	return mean
}

// pathElement is one step of the unique feature path maintained by the
// SHAP recursion
type pathElement struct {
	featureIndex int
	zeroFraction float64
	oneFraction  float64
	pweight      float64
}

// treeShap walks one tree, keeping the weighted count of feature subsets
// flowing along each root-to-leaf path. Attributions are scaled by the
// tree's shrinkage so they sum to the ensemble margin.
func (ex *TreeExplainer) treeShap(tree *Tree, x, phi []float64, nodeIndex, uniqueDepth int,
	parentUniquePath []pathElement, parentZeroFraction, parentOneFraction float64, parentFeatureIndex int) {
	node := &tree.Nodes[nodeIndex]

	// every level works on its own copy of the path
	uniquePath := parentUniquePath[uniqueDepth+1:]
	copy(uniquePath[:uniqueDepth+1], parentUniquePath[:uniqueDepth+1])
	extendPath(uniquePath, uniqueDepth, parentZeroFraction, parentOneFraction, parentFeatureIndex)

	if node.IsLeaf() {
		for i := 1; i <= uniqueDepth; i++ {
			w := unwoundPathSum(uniquePath, uniqueDepth, i)
			el := &uniquePath[i]
			phi[el.featureIndex] += w * (el.oneFraction - el.zeroFraction) * node.LeafValue * tree.ShrinkageRate
		}
		return
	}

	var hotIndex, coldIndex int
	if x[node.SplitFeature] <= node.Threshold {
		hotIndex, coldIndex = node.Left, node.Right
	} else {
		hotIndex, coldIndex = node.Right, node.Left
	}

	hotZeroFraction := tree.Nodes[hotIndex].Cover / node.Cover
	coldZeroFraction := tree.Nodes[coldIndex].Cover / node.Cover
	incomingZeroFraction := 1.0
	incomingOneFraction := 1.0

	// if this feature was already split on, undo that split and fold its
	// fractions into this one
	pathIndex := 0
	for ; pathIndex <= uniqueDepth; pathIndex++ {
		if uniquePath[pathIndex].featureIndex == node.SplitFeature {
			break
		}
	}
	if pathIndex != uniqueDepth+1 {
		incomingZeroFraction = uniquePath[pathIndex].zeroFraction
		incomingOneFraction = uniquePath[pathIndex].oneFraction
		unwindPath(uniquePath, uniqueDepth, pathIndex)
		uniqueDepth--
	}

	ex.treeShap(tree, x, phi, hotIndex, uniqueDepth+1, uniquePath,
		hotZeroFraction*incomingZeroFraction, incomingOneFraction, node.SplitFeature)
	ex.treeShap(tree, x, phi, coldIndex, uniqueDepth+1, uniquePath,
		coldZeroFraction*incomingZeroFraction, 0, node.SplitFeature)
}

// extendPath grows the unique path by one fractional feature
func extendPath(uniquePath []pathElement, uniqueDepth int, zeroFraction, oneFraction float64, featureIndex int) {
	uniquePath[uniqueDepth] = pathElement{
		featureIndex: featureIndex,
		zeroFraction: zeroFraction,
		oneFraction:  oneFraction,
	}
	if uniqueDepth == 0 {
		uniquePath[0].pweight = 1
	}

	for i := uniqueDepth - 1; i >= 0; i-- {
		uniquePath[i+1].pweight += oneFraction * uniquePath[i].pweight * float64(i+1) / float64(uniqueDepth+1)
		uniquePath[i].pweight = zeroFraction * uniquePath[i].pweight * float64(uniqueDepth-i) / float64(uniqueDepth+1)
	}
}

// unwindPath removes the feature at pathIndex, restoring the weights to
// the state before it was extended in
func unwindPath(uniquePath []pathElement, uniqueDepth, pathIndex int) {
	oneFraction := uniquePath[pathIndex].oneFraction
	zeroFraction := uniquePath[pathIndex].zeroFraction
	nextOnePortion := uniquePath[uniqueDepth].pweight

	for i := uniqueDepth - 1; i >= 0; i-- {
		if oneFraction != 0 {
			tmp := uniquePath[i].pweight
			uniquePath[i].pweight = nextOnePortion * float64(uniqueDepth+1) / (float64(i+1) * oneFraction)
			nextOnePortion = tmp - uniquePath[i].pweight*zeroFraction*float64(uniqueDepth-i)/float64(uniqueDepth+1)
		} else {
			uniquePath[i].pweight = uniquePath[i].pweight * float64(uniqueDepth+1) / (zeroFraction * float64(uniqueDepth-i))
		}
	}

	for i := pathIndex; i < uniqueDepth; i++ {
		uniquePath[i].featureIndex = uniquePath[i+1].featureIndex
		uniquePath[i].zeroFraction = uniquePath[i+1].zeroFraction
		uniquePath[i].oneFraction = uniquePath[i+1].oneFraction
	}
}

// unwoundPathSum totals the permutation weights the path would have had
// without the feature at pathIndex
func unwoundPathSum(uniquePath []pathElement, uniqueDepth, pathIndex int) float64 {
	oneFraction := uniquePath[pathIndex].oneFraction
	zeroFraction := uniquePath[pathIndex].zeroFraction
	nextOnePortion := uniquePath[uniqueDepth].pweight
	total := 0.0

	for i := uniqueDepth - 1; i >= 0; i-- {
		if oneFraction != 0 {
			tmp := nextOnePortion * float64(uniqueDepth+1) / (float64(i+1) * oneFraction)
			total += tmp
			nextOnePortion = uniquePath[i].pweight - tmp*zeroFraction*float64(uniqueDepth-i)/float64(uniqueDepth+1)
		} else {
			total += uniquePath[i].pweight * float64(uniqueDepth+1) / (zeroFraction * float64(uniqueDepth-i))
		}
	}

	return total
}
