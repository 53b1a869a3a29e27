package ensemble

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/cogniboost/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// trainingParams holds the hyperparameters consumed by the boosting trainer
type trainingParams struct {
	numIterations   int
	learningRate    float64
	numLeaves       int // leaf budget, 0 disables the cap
	maxDepth        int // depth budget, <=0 disables the cap
	minDataInLeaf   int
	minGainToSplit  float64
	lambda          float64 // L2 leaf regularization
	alpha           float64 // L1 leaf regularization
	featureFraction float64
	baggingFraction float64
	growLeafwise    bool
	seed            int64
	verbosity       int
}

// splitInfo describes a candidate split of a node
type splitInfo struct {
	feature   int
	threshold float64
	gain      float64
	leftIdx   []int
	rightIdx  []int
}

// trainer grows one boosted ensemble over a logistic objective
type trainer struct {
	params    trainingParams
	objective ObjectiveFunction
	sampling  *SamplingStrategy

	X *mat.Dense
	y []float64

	gradients []float64
	hessians  []float64
	rawScores []float64 // cached ensemble margins, updated after every tree

	trees     []Tree
	initScore float64
	iteration int
}

func newTrainer(params trainingParams, objective ObjectiveFunction) *trainer {
	if params.numIterations == 0 {
		params.numIterations = 100
	}
	if params.learningRate == 0 {
		params.learningRate = 0.1
	}
	if params.minDataInLeaf == 0 {
		params.minDataInLeaf = 1
	}
	if params.minGainToSplit == 0 {
		params.minGainToSplit = 1e-7
	}
	if params.featureFraction == 0 {
		params.featureFraction = 1.0
	}
	if params.baggingFraction == 0 {
		params.baggingFraction = 1.0
	}

	return &trainer{
		params:    params,
		objective: objective,
		sampling:  NewSamplingStrategy(params.seed, params.featureFraction, params.baggingFraction),
	}
}

// fit runs the boosting loop: gradients from the cached margins, one tree
// per iteration, margins updated in place.
func (t *trainer) fit(X *mat.Dense, y []float64) error {
	t.X = X
	t.y = y

	rows, _ := X.Dims()
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.rawScores = make([]float64, rows)

	t.initScore = t.objective.GetInitScore(y)
	for i := range t.rawScores {
		t.rawScores[i] = t.initScore
	}

	for iter := 0; iter < t.params.numIterations; iter++ {
		t.iteration = iter
		t.calculateGradients()

		rng := t.sampling.TreeRNG(iter)
		indices := t.sampling.SampleInstances(rng, rows)
		features := SampleFeatures(rng, t.numFeatures(), t.sampling.FeatureCount(t.numFeatures()))

		var tree Tree
		if t.params.growLeafwise {
			tree = t.buildTreeLeafwise(indices, features)
		} else {
			tree = t.buildTreeDepthwise(indices, features)
		}
		t.trees = append(t.trees, tree)

		t.updatePredictions(&tree)

		if t.params.verbosity > 0 && iter%10 == 0 {
			logger := log.GetLoggerWithName("ensemble.boosting")
			logger.Debug("training progress",
				"iteration", iter,
				"loss", t.calculateLoss())
		}
	}

	return nil
}

func (t *trainer) numFeatures() int {
	_, cols := t.X.Dims()
	return cols
}

// calculateGradients refreshes per-sample gradients and hessians from the
// cached raw scores
func (t *trainer) calculateGradients() {
	for i := range t.gradients {
		t.gradients[i] = t.objective.CalculateGradient(t.rawScores[i], t.y[i])
		t.hessians[i] = t.objective.CalculateHessian(t.rawScores[i], t.y[i])
	}
}

// updatePredictions folds a new tree into the cached margins
func (t *trainer) updatePredictions(tree *Tree) {
	rows, _ := t.X.Dims()
	for i := 0; i < rows; i++ {
		t.rawScores[i] += tree.Predict(t.X.RawRowView(i))
	}
}

func (t *trainer) calculateLoss() float64 {
	loss := 0.0
	for i := range t.y {
		loss += t.objective.CalculateLoss(t.rawScores[i], t.y[i])
	}
	return loss / float64(len(t.y))
}

// buildTreeDepthwise grows a tree by recursive splitting until the depth
// budget or the data runs out
func (t *trainer) buildTreeDepthwise(indices, features []int) Tree {
	tree := Tree{
		Index:         t.iteration,
		ShrinkageRate: t.params.learningRate,
		Nodes:         []Node{},
	}

	t.buildNode(&tree, indices, features, -1, 0)
	tree.NumLeaves = countLeaves(&tree)

	return tree
}

// buildNode recursively builds tree nodes, returning the new node's index
func (t *trainer) buildNode(tree *Tree, indices, features []int, parentID, depth int) int {
	nodeID := len(tree.Nodes)
	sumGrad, sumHess := t.sums(indices)

	numLeaves := countLeaves(tree)
	if (t.params.maxDepth > 0 && depth >= t.params.maxDepth) ||
		len(indices) < 2*t.params.minDataInLeaf ||
		(t.params.numLeaves > 0 && numLeaves >= t.params.numLeaves-1) {
		tree.Nodes = append(tree.Nodes, t.newLeaf(nodeID, parentID, indices, sumGrad, sumHess))
		return nodeID
	}

	best := t.findBestSplit(indices, features, sumGrad, sumHess)
	if best.gain < t.params.minGainToSplit {
		tree.Nodes = append(tree.Nodes, t.newLeaf(nodeID, parentID, indices, sumGrad, sumHess))
		return nodeID
	}

	tree.Nodes = append(tree.Nodes, Node{
		ID:           nodeID,
		ParentID:     parentID,
		Kind:         SplitNode,
		SplitFeature: best.feature,
		Threshold:    best.threshold,
		Gain:         best.gain,
		Cover:        sumHess,
		SampleCount:  len(indices),
		Left:         -1,
		Right:        -1,
	})

	left := t.buildNode(tree, best.leftIdx, features, nodeID, depth+1)
	right := t.buildNode(tree, best.rightIdx, features, nodeID, depth+1)

	tree.Nodes[nodeID].Left = left
	tree.Nodes[nodeID].Right = right

	return nodeID
}

// buildTreeLeafwise grows a tree best-first: the open leaf with the
// largest gain is split until the leaf budget is exhausted
func (t *trainer) buildTreeLeafwise(indices, features []int) Tree {
	tree := Tree{
		Index:         t.iteration,
		ShrinkageRate: t.params.learningRate,
		Nodes:         []Node{},
	}

	type openLeaf struct {
		nodeID  int
		depth   int
		indices []int
		split   splitInfo
		canGrow bool
	}

	sumGrad, sumHess := t.sums(indices)
	tree.Nodes = append(tree.Nodes, t.newLeaf(0, -1, indices, sumGrad, sumHess))

	newOpen := func(nodeID, depth int, idx []int) openLeaf {
		leaf := openLeaf{nodeID: nodeID, depth: depth, indices: idx}
		if t.params.maxDepth > 0 && depth >= t.params.maxDepth {
			return leaf
		}
		if len(idx) >= 2*t.params.minDataInLeaf {
			g, h := t.sums(idx)
			leaf.split = t.findBestSplit(idx, features, g, h)
			leaf.canGrow = leaf.split.gain >= t.params.minGainToSplit
		}
		return leaf
	}

	open := []openLeaf{newOpen(0, 0, indices)}
	numLeaves := 1

	for t.params.numLeaves <= 0 || numLeaves < t.params.numLeaves {
		bestAt := -1
		for i := range open {
			if !open[i].canGrow {
				continue
			}
			if bestAt < 0 || open[i].split.gain > open[bestAt].split.gain {
				bestAt = i
			}
		}
		if bestAt < 0 {
			break
		}

		leaf := open[bestAt]
		open = append(open[:bestAt], open[bestAt+1:]...)

		leftID := len(tree.Nodes)
		rightID := leftID + 1

		node := &tree.Nodes[leaf.nodeID]
		node.Kind = SplitNode
		node.SplitFeature = leaf.split.feature
		node.Threshold = leaf.split.threshold
		node.Gain = leaf.split.gain
		node.Left = leftID
		node.Right = rightID

		lg, lh := t.sums(leaf.split.leftIdx)
		rg, rh := t.sums(leaf.split.rightIdx)
		tree.Nodes = append(tree.Nodes, t.newLeaf(leftID, leaf.nodeID, leaf.split.leftIdx, lg, lh))
		tree.Nodes = append(tree.Nodes, t.newLeaf(rightID, leaf.nodeID, leaf.split.rightIdx, rg, rh))

		open = append(open,
			newOpen(leftID, leaf.depth+1, leaf.split.leftIdx),
			newOpen(rightID, leaf.depth+1, leaf.split.rightIdx))
		numLeaves++
	}

	tree.NumLeaves = countLeaves(&tree)

	return tree
}

func (t *trainer) newLeaf(nodeID, parentID int, indices []int, sumGrad, sumHess float64) Node {
	return Node{
		ID:          nodeID,
		ParentID:    parentID,
		Kind:        LeafNode,
		LeafValue:   t.applyLeafRegularization(sumGrad, sumHess),
		Cover:       sumHess,
		SampleCount: len(indices),
		Left:        -1,
		Right:       -1,
	}
}

func (t *trainer) sums(indices []int) (sumGrad, sumHess float64) {
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}
	return sumGrad, sumHess
}

// findBestSplit scans the candidate features for the highest-gain split
func (t *trainer) findBestSplit(indices, features []int, totalGrad, totalHess float64) splitInfo {
	best := splitInfo{gain: -math.MaxFloat64}

	for _, j := range features {
		split := t.findBestSplitForFeature(indices, j, totalGrad, totalHess)
		if split.gain > best.gain {
			best = split
		}
	}

	if best.gain > -math.MaxFloat64 && best.leftIdx == nil {
		best.leftIdx, best.rightIdx = t.partition(indices, best.feature, best.threshold)
	}

	return best
}

// findBestSplitForFeature runs the exact sorted scan with prefix
// gradient/hessian sums over one feature
func (t *trainer) findBestSplitForFeature(indices []int, feature int, totalGrad, totalHess float64) splitInfo {
	type pair struct {
		value float64
		idx   int
	}

	values := make([]pair, len(indices))
	for i, idx := range indices {
		values[i] = pair{value: t.X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	best := splitInfo{feature: feature, gain: -math.MaxFloat64}

	leftGrad := 0.0
	leftHess := 0.0
	for i := 0; i < len(values)-1; i++ {
		leftGrad += t.gradients[values[i].idx]
		leftHess += t.hessians[values[i].idx]

		if values[i].value == values[i+1].value {
			continue
		}

		leftCount := i + 1
		rightCount := len(values) - leftCount
		if leftCount < t.params.minDataInLeaf || rightCount < t.params.minDataInLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > best.gain {
			best.gain = gain
			best.threshold = (values[i].value + values[i+1].value) / 2
		}
	}

	return best
}

func (t *trainer) partition(indices []int, feature int, threshold float64) (left, right []int) {
	for _, idx := range indices {
		if t.X.At(idx, feature) <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// calculateSplitGain scores a split with L1/L2 regularization applied to
// each side's gradient mass
func (t *trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	leftScore := t.leafScore(leftGrad, leftHess)
	rightScore := t.leafScore(rightGrad, rightHess)
	totalScore := t.leafScore(totalGrad, totalHess)

	return leftScore + rightScore - totalScore
}

func (t *trainer) leafScore(sumGrad, sumHess float64) float64 {
	const epsilon = 1e-10
	denominator := sumHess + t.params.lambda + epsilon

	numerator := sumGrad
	if t.params.alpha > 0 {
		switch {
		case sumGrad > t.params.alpha:
			numerator = sumGrad - t.params.alpha
		case sumGrad < -t.params.alpha:
			numerator = sumGrad + t.params.alpha
		default:
			return 0
		}
	}

	return 0.5 * numerator * numerator / denominator
}

// applyLeafRegularization computes the optimal leaf value with L2 shrinkage
// and L1 soft thresholding
func (t *trainer) applyLeafRegularization(sumGrad, sumHess float64) float64 {
	const epsilon = 1e-10
	denominator := sumHess + t.params.lambda + epsilon

	if t.params.alpha > 0 {
		switch {
		case sumGrad > t.params.alpha:
			return -(sumGrad - t.params.alpha) / denominator
		case sumGrad < -t.params.alpha:
			return -(sumGrad + t.params.alpha) / denominator
		default:
			return 0
		}
	}

	return -sumGrad / denominator
}

// getModel packages the grown trees into an immutable ensemble
func (t *trainer) getModel() *Model {
	return &Model{
		Trees:       t.trees,
		NumFeatures: t.numFeatures(),
		InitScore:   t.initScore,
		Objective:   t.objective.Name(),
	}
}

func countLeaves(tree *Tree) int {
	count := 0
	for i := range tree.Nodes {
		if tree.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}
