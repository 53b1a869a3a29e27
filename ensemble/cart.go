package ensemble

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// cartParams configures impurity-based tree growing
type cartParams struct {
	maxDepth        int // depth budget, <=0 disables the cap
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // candidate features per split, <=0 means sqrt(d)
	randomThreshold bool
}

// cartBuilder grows one Gini decision tree. Leaves store the positive-class
// fraction of the samples they contain.
type cartBuilder struct {
	params cartParams
	X      *mat.Dense
	y      []float64
	rng    *rand.Rand
}

// build grows the tree with an explicit stack, patching each parent's child
// pointer when the child node is appended
func (b *cartBuilder) build(indices []int, treeIndex int) Tree {
	tree := Tree{
		Index:         treeIndex,
		ShrinkageRate: 1.0,
		Nodes:         []Node{},
	}

	type frame struct {
		parentID int
		isLeft   bool
		depth    int
		indices  []int
	}

	stack := []frame{{parentID: -1, depth: 0, indices: indices}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nodeID := len(tree.Nodes)
		if f.parentID >= 0 {
			if f.isLeft {
				tree.Nodes[f.parentID].Left = nodeID
			} else {
				tree.Nodes[f.parentID].Right = nodeID
			}
		}

		total := float64(len(f.indices))
		impurity := giniImpurity(b.positives(f.indices), total)

		if impurity == 0 ||
			len(f.indices) < b.params.minSamplesSplit ||
			(b.params.maxDepth > 0 && f.depth >= b.params.maxDepth) {
			tree.Nodes = append(tree.Nodes, b.newLeaf(nodeID, f.parentID, f.indices))
			continue
		}

		best, ok := b.findBestSplit(f.indices, impurity)
		if !ok {
			tree.Nodes = append(tree.Nodes, b.newLeaf(nodeID, f.parentID, f.indices))
			continue
		}
		if best.leftIdx == nil {
			best.leftIdx, best.rightIdx = b.partition(f.indices, best.feature, best.threshold)
		}

		tree.Nodes = append(tree.Nodes, Node{
			ID:           nodeID,
			ParentID:     f.parentID,
			Kind:         SplitNode,
			SplitFeature: best.feature,
			Threshold:    best.threshold,
			Gain:         best.gain,
			Cover:        total,
			SampleCount:  len(f.indices),
			Left:         -1,
			Right:        -1,
		})

		stack = append(stack,
			frame{parentID: nodeID, isLeft: false, depth: f.depth + 1, indices: best.rightIdx},
			frame{parentID: nodeID, isLeft: true, depth: f.depth + 1, indices: best.leftIdx},
		)
	}

	tree.NumLeaves = countLeaves(&tree)

	return tree
}

func (b *cartBuilder) newLeaf(nodeID, parentID int, indices []int) Node {
	return Node{
		ID:          nodeID,
		ParentID:    parentID,
		Kind:        LeafNode,
		LeafValue:   b.positives(indices) / float64(len(indices)),
		Cover:       float64(len(indices)),
		SampleCount: len(indices),
		Left:        -1,
		Right:       -1,
	}
}

// positives sums the binary labels over the given rows
func (b *cartBuilder) positives(indices []int) float64 {
	pos := 0.0
	for _, idx := range indices {
		pos += b.y[idx]
	}
	return pos
}

// findBestSplit draws a fresh feature sample and keeps the highest-gain
// split. Constant features do not count against the candidate budget, so
// flat columns never starve the search.
func (b *cartBuilder) findBestSplit(indices []int, parentImpurity float64) (splitInfo, bool) {
	_, nFeatures := b.X.Dims()

	maxFeatures := b.params.maxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(nFeatures)))
	}
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	if maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}

	best := splitInfo{gain: -math.MaxFloat64}
	found := false
	visited := 0

	for _, feature := range b.rng.Perm(nFeatures) {
		var split splitInfo
		var ok bool
		if b.params.randomThreshold {
			split, ok = b.randomSplitOnFeature(indices, feature, parentImpurity)
		} else {
			split, ok = b.exactSplitOnFeature(indices, feature, parentImpurity)
		}
		if !ok {
			continue
		}

		visited++
		if split.gain > best.gain {
			best = split
			found = true
		}
		if visited >= maxFeatures {
			break
		}
	}

	return best, found
}

// exactSplitOnFeature runs the sorted scan over one feature, scoring each
// distinct midpoint by weighted Gini decrease
func (b *cartBuilder) exactSplitOnFeature(indices []int, feature int, parentImpurity float64) (splitInfo, bool) {
	type pair struct {
		value float64
		label float64
	}

	values := make([]pair, len(indices))
	for i, idx := range indices {
		values[i] = pair{value: b.X.At(idx, feature), label: b.y[idx]}
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	if values[len(values)-1].value-values[0].value <= 1e-7 {
		return splitInfo{}, false
	}

	total := float64(len(values))
	totalPos := 0.0
	for i := range values {
		totalPos += values[i].label
	}

	best := splitInfo{feature: feature, gain: -math.MaxFloat64}
	found := false

	leftPos := 0.0
	for i := 0; i < len(values)-1; i++ {
		leftPos += values[i].label

		if values[i+1].value-values[i].value <= 1e-7 {
			continue
		}

		leftCount := i + 1
		rightCount := len(values) - leftCount
		if leftCount < b.params.minSamplesLeaf || rightCount < b.params.minSamplesLeaf {
			continue
		}

		nLeft := float64(leftCount)
		nRight := float64(rightCount)
		gain := parentImpurity -
			nLeft/total*giniImpurity(leftPos, nLeft) -
			nRight/total*giniImpurity(totalPos-leftPos, nRight)

		if gain > best.gain {
			best.gain = gain
			best.threshold = (values[i].value + values[i+1].value) / 2
			found = true
		}
	}

	return best, found
}

// randomSplitOnFeature draws one uniform threshold between the feature's
// extremes, the extremely randomized trees strategy
func (b *cartBuilder) randomSplitOnFeature(indices []int, feature int, parentImpurity float64) (splitInfo, bool) {
	lo := math.MaxFloat64
	hi := -math.MaxFloat64
	for _, idx := range indices {
		v := b.X.At(idx, feature)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo <= 1e-7 {
		return splitInfo{}, false
	}

	threshold := lo + b.rng.Float64()*(hi-lo)
	left, right := b.partition(indices, feature, threshold)
	if len(left) < b.params.minSamplesLeaf || len(right) < b.params.minSamplesLeaf {
		return splitInfo{}, false
	}

	nLeft := float64(len(left))
	nRight := float64(len(right))
	total := float64(len(indices))
	gain := parentImpurity -
		nLeft/total*giniImpurity(b.positives(left), nLeft) -
		nRight/total*giniImpurity(b.positives(right), nRight)

	return splitInfo{
		feature:   feature,
		threshold: threshold,
		gain:      gain,
		leftIdx:   left,
		rightIdx:  right,
	}, true
}

func (b *cartBuilder) partition(indices []int, feature int, threshold float64) (left, right []int) {
	for _, idx := range indices {
		if b.X.At(idx, feature) <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// giniImpurity is the binary Gini index 2p(1-p)
func giniImpurity(pos, total float64) float64 {
	if total == 0 {
		return 0
	}
	p := pos / total
	return 2 * p * (1 - p)
}
