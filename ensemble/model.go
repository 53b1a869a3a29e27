// Package ensemble implements the four tree-ensemble classifiers behind the
// diagnosis pipeline's leaf-embedding stage: depth-wise and leaf-wise gradient
// boosting on a logistic objective, random forest and extra-trees with Gini
// CART, plus exact TreeSHAP attribution over the boosted models.
package ensemble

// NodeKind represents the type of a tree node
type NodeKind int

const (
	// LeafNode is a terminal node carrying a value
	LeafNode NodeKind = iota
	// SplitNode is an internal node with a numerical threshold split
	SplitNode
)

// Node is a single node in a decision tree. Indices refer to positions in
// the owning Tree's Nodes slice.
type Node struct {
	ID       int
	ParentID int // -1 for root
	Left     int // -1 if leaf
	Right    int // -1 if leaf
	Kind     NodeKind

	// Split information (internal nodes)
	SplitFeature int
	Threshold    float64
	Gain         float64

	// Leaf information
	LeafValue float64

	// Statistics collected during training. Cover is the sum of hessians
	// that reached the node (plain sample count for impurity-based trees);
	// TreeSHAP relies on it for path weighting.
	Cover       float64
	SampleCount int
}

// IsLeaf returns true if the node is a terminal node
func (n *Node) IsLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// Tree is a single decision tree in an ensemble
type Tree struct {
	Index         int     // Position in the ensemble
	NumLeaves     int     // Number of terminal nodes
	ShrinkageRate float64 // Learning rate applied to this tree's output
	Nodes         []Node
}

// Predict routes a sample to its terminal node and returns the leaf value
// with shrinkage applied.
func (t *Tree) Predict(features []float64) float64 {
	node := t.leaf(features)
	if node == nil {
		return 0
	}
	return node.LeafValue * t.ShrinkageRate
}

// LeafIndex returns the ordinal position, in node order, of the terminal
// node the sample reaches. Ordinals run 0..NumLeaves-1 and are stable for a
// fitted tree, which makes them usable as categorical embedding values.
func (t *Tree) LeafIndex(features []float64) int {
	node := t.leaf(features)
	if node == nil {
		return 0
	}

	ordinal := 0
	for i := 0; i < node.ID; i++ {
		if t.Nodes[i].IsLeaf() {
			ordinal++
		}
	}
	return ordinal
}

func (t *Tree) leaf(features []float64) *Node {
	if len(t.Nodes) == 0 {
		return nil
	}

	id := 0
	for id >= 0 && id < len(t.Nodes) {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return node
		}
		if features[node.SplitFeature] <= node.Threshold {
			id = node.Left
		} else {
			id = node.Right
		}
	}
	return nil
}

// MaxDepth returns the depth of the deepest node, with the root at depth 0.
func (t *Tree) MaxDepth() int {
	if len(t.Nodes) == 0 {
		return 0
	}

	depths := make([]int, len(t.Nodes))
	maxDepth := 0
	for i := 1; i < len(t.Nodes); i++ {
		parent := t.Nodes[i].ParentID
		if parent >= 0 {
			depths[i] = depths[parent] + 1
		}
		if depths[i] > maxDepth {
			maxDepth = depths[i]
		}
	}
	return maxDepth
}

// Model is a fitted tree ensemble. Boosted models accumulate shrunk leaf
// values on top of InitScore to form a margin; bagged models average raw
// leaf values instead.
type Model struct {
	Trees       []Tree
	NumFeatures int
	InitScore   float64
	Objective   string
}

// NumTrees returns the number of trees in the ensemble
func (m *Model) NumTrees() int {
	return len(m.Trees)
}

// Margin returns the additive raw score for a sample: the init score plus
// the shrunk outputs of every tree.
func (m *Model) Margin(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// AverageLeaf returns the mean raw leaf value across trees, the aggregation
// used by the bagged ensembles where leaves carry class probabilities.
func (m *Model) AverageLeaf(features []float64) float64 {
	if len(m.Trees) == 0 {
		return 0
	}

	sum := 0.0
	for i := range m.Trees {
		t := &m.Trees[i]
		if node := t.leaf(features); node != nil {
			sum += node.LeafValue
		}
	}
	return sum / float64(len(m.Trees))
}

// LeafIndices fills one row of leaf ordinals, one column per tree.
func (m *Model) LeafIndices(features []float64, out []float64) {
	for i := range m.Trees {
		out[i] = float64(m.Trees[i].LeafIndex(features))
	}
}

// FeatureImportance returns normalized per-feature importance scores.
// kind is "split" (number of times a feature is used) or "gain" (total
// split gain attributed to the feature).
func (m *Model) FeatureImportance(kind string) []float64 {
	importance := make([]float64, m.NumFeatures)

	for i := range m.Trees {
		for _, node := range m.Trees[i].Nodes {
			if node.IsLeaf() {
				continue
			}
			switch kind {
			case "gain":
				importance[node.SplitFeature] += node.Gain
			default:
				importance[node.SplitFeature]++
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}

	return importance
}
