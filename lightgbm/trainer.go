package lightgbm

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/log"
)

// TrainingParams contains the training hyperparameters.
type TrainingParams struct {
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization.
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Sampling.
	BaggingFraction float64 `json:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq"`
	FeatureFraction float64 `json:"feature_fraction"`

	Objective string `json:"objective"`
	Seed      int    `json:"seed"`
	Verbosity int    `json:"verbosity"`
}

// SplitInfo describes a candidate split during tree construction.
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

// Trainer runs the gradient boosting loop and produces a Model.
type Trainer struct {
	params TrainingParams

	X *mat.Dense
	y *mat.Dense

	// Per-sample state for the current iteration.
	gradients []float64
	hessians  []float64
	scores    []float64 // cached raw ensemble scores, incl. init score

	trees     []Tree
	iteration int

	objective ObjectiveFunction
	initScore float64

	rng         *rand.Rand
	lossHistory []float64
}

// NewTrainer creates a trainer, filling unset parameters with LightGBM
// defaults.
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = 31
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.BaggingFraction == 0 {
		params.BaggingFraction = 1.0
	}
	if params.FeatureFraction == 0 {
		params.FeatureFraction = 1.0
	}
	if params.Objective == "" {
		params.Objective = string(RegressionL2)
	}

	return &Trainer{
		params: params,
		rng:    rand.New(rand.NewSource(int64(params.Seed))),
	}
}

// Fit trains the ensemble on X and y. y must be a column vector aligned
// with the rows of X.
func (t *Trainer) Fit(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return errors.NewDimensionError("Trainer.Fit", 1, yCols, 1)
	}
	if rows != yRows {
		return errors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}

	t.X = toDense(X)
	t.y = toDense(y)

	objective, err := CreateObjectiveFunction(t.params.Objective)
	if err != nil {
		return errors.Wrap(err, "creating objective function")
	}
	t.objective = objective

	t.initialize()

	logger := log.GetLoggerWithName("lightgbm.trainer")
	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter

		t.calculateGradients()

		tree := t.buildTree()
		t.trees = append(t.trees, tree)
		t.updateScores(tree)

		loss := t.computeLoss()
		t.lossHistory = append(t.lossHistory, loss)

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss)
		}
	}

	return nil
}

// initialize prepares the per-sample training state.
func (t *Trainer) initialize() {
	rows, _ := t.X.Dims()

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		targets[i] = t.y.At(i, 0)
	}
	t.initScore = t.objective.GetInitScore(targets)

	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}
	t.trees = t.trees[:0]
	t.lossHistory = t.lossHistory[:0]
}

// calculateGradients computes gradients and hessians against the cached
// raw scores.
func (t *Trainer) calculateGradients() {
	rows, _ := t.y.Dims()
	for i := 0; i < rows; i++ {
		target := t.y.At(i, 0)
		t.gradients[i] = t.objective.CalculateGradient(t.scores[i], target)
		t.hessians[i] = t.objective.CalculateHessian(t.scores[i], target)
	}
}

// buildTree constructs one tree against the current gradients.
func (t *Trainer) buildTree() Tree {
	tree := Tree{
		TreeIndex:     t.iteration,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         []Node{},
	}

	rootIndices := t.sampleRows()
	features := t.sampleFeatures()

	t.buildNode(&tree, rootIndices, features, -1, 0)

	for _, node := range tree.Nodes {
		if node.IsLeaf() {
			tree.NumLeaves++
		}
	}
	return tree
}

// sampleRows returns the row indices used for this iteration, applying
// bagging when configured.
func (t *Trainer) sampleRows() []int {
	rows, _ := t.X.Dims()

	bagging := t.params.BaggingFraction < 1.0 && t.params.BaggingFreq > 0
	if !bagging {
		indices := make([]int, rows)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	n := int(math.Ceil(t.params.BaggingFraction * float64(rows)))
	perm := t.rng.Perm(rows)[:n]
	sort.Ints(perm)
	return perm
}

// sampleFeatures returns the feature indices considered for splits in this
// tree.
func (t *Trainer) sampleFeatures() []int {
	_, cols := t.X.Dims()

	if t.params.FeatureFraction >= 1.0 {
		features := make([]int, cols)
		for j := range features {
			features[j] = j
		}
		return features
	}

	n := int(math.Ceil(t.params.FeatureFraction * float64(cols)))
	if n < 1 {
		n = 1
	}
	perm := t.rng.Perm(cols)[:n]
	sort.Ints(perm)
	return perm
}

// buildNode recursively grows the tree depth-first and returns the index of
// the created node.
func (t *Trainer) buildNode(tree *Tree, indices, features []int, parentIdx, depth int) int {
	nodeIdx := len(tree.Nodes)

	if t.shouldStop(tree, indices, depth) {
		tree.Nodes = append(tree.Nodes, t.makeLeaf(nodeIdx, parentIdx, indices))
		return nodeIdx
	}

	bestSplit := t.findBestSplit(indices, features)
	if bestSplit.Gain < t.params.MinGainToSplit || bestSplit.LeftCount == 0 {
		tree.Nodes = append(tree.Nodes, t.makeLeaf(nodeIdx, parentIdx, indices))
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeIdx,
		ParentID:     parentIdx,
		NodeType:     NumericalNode,
		SplitFeature: bestSplit.Feature,
		Threshold:    bestSplit.Threshold,
		Gain:         bestSplit.Gain,
		LeftChild:    -1,
		RightChild:   -1,
	})

	leftIndices, rightIndices := t.splitData(indices, bestSplit)
	leftChild := t.buildNode(tree, leftIndices, features, nodeIdx, depth+1)
	rightChild := t.buildNode(tree, rightIndices, features, nodeIdx, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

func (t *Trainer) shouldStop(tree *Tree, indices []int, depth int) bool {
	if t.params.MaxDepth > 0 && depth >= t.params.MaxDepth {
		return true
	}
	if len(indices) < 2*t.params.MinDataInLeaf {
		return true
	}
	if t.params.NumLeaves > 0 && t.countLeaves(tree) >= t.params.NumLeaves-1 {
		return true
	}
	return false
}

func (t *Trainer) makeLeaf(nodeIdx, parentIdx int, indices []int) Node {
	return Node{
		NodeID:     nodeIdx,
		ParentID:   parentIdx,
		NodeType:   LeafNode,
		LeafValue:  t.calculateLeafValue(indices),
		LeafCount:  len(indices),
		LeftChild:  -1,
		RightChild: -1,
	}
}

// findBestSplit scans the candidate features for the highest-gain split.
func (t *Trainer) findBestSplit(indices, features []int) SplitInfo {
	bestSplit := SplitInfo{Gain: math.Inf(-1)}
	for _, j := range features {
		split := t.findBestSplitForFeature(indices, j)
		if split.Gain > bestSplit.Gain {
			bestSplit = split
		}
	}
	return bestSplit
}

// findBestSplitForFeature scans every threshold of one feature by sorted
// order, accumulating left-side gradient and hessian sums.
func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	type sample struct {
		value float64
		idx   int
	}
	values := make([]sample, len(indices))
	for i, idx := range indices {
		values[i] = sample{value: t.X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	totalGrad := 0.0
	totalHess := 0.0
	for _, idx := range indices {
		totalGrad += t.gradients[idx]
		totalHess += t.hessians[idx]
	}

	bestSplit := SplitInfo{Feature: feature, Gain: math.Inf(-1)}

	leftGrad, leftHess := 0.0, 0.0
	leftCount := 0
	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]
		leftCount++

		// A threshold between identical values would be ambiguous.
		if values[i].value == values[i+1].value {
			continue
		}

		rightCount := len(indices) - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > bestSplit.Gain {
			bestSplit.Gain = gain
			bestSplit.Threshold = (values[i].value + values[i+1].value) / 2
			bestSplit.LeftCount = leftCount
			bestSplit.RightCount = rightCount
		}
	}

	return bestSplit
}

// calculateSplitGain applies the LightGBM split gain formula with L2
// regularization.
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

func (t *Trainer) splitData(indices []int, split SplitInfo) (left, right []int) {
	left = make([]int, 0, split.LeftCount)
	right = make([]int, 0, split.RightCount)
	for _, idx := range indices {
		if t.X.At(idx, split.Feature) <= split.Threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// calculateLeafValue returns the Newton step for a leaf with L2
// regularization.
func (t *Trainer) calculateLeafValue(indices []int) float64 {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}

	const epsilon = 1e-10
	if math.Abs(sumHess) < epsilon {
		sumHess = epsilon
	}
	return -sumGrad / (sumHess + t.params.Lambda)
}

// updateScores folds the new tree's shrunk leaf outputs into the cached raw
// scores. Every sample is updated, including ones left out by bagging.
func (t *Trainer) updateScores(tree Tree) {
	rows, _ := t.X.Dims()
	features := make([]float64, t.X.RawMatrix().Cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, t.X)
		t.scores[i] += tree.Predict(features)
	}
}

// computeLoss returns the mean objective loss over the training data.
func (t *Trainer) computeLoss() float64 {
	rows, _ := t.y.Dims()
	loss := 0.0
	for i := 0; i < rows; i++ {
		loss += t.objective.CalculateLoss(t.scores[i], t.y.At(i, 0))
	}
	return loss / float64(rows)
}

func (t *Trainer) countLeaves(tree *Tree) int {
	count := 0
	for _, node := range tree.Nodes {
		if node.IsLeaf() {
			count++
		}
	}
	return count
}

// LossHistory returns the per-iteration training loss of the last Fit call.
func (t *Trainer) LossHistory() []float64 {
	history := make([]float64, len(t.lossHistory))
	copy(history, t.lossHistory)
	return history
}

// GetModel returns the trained model.
func (t *Trainer) GetModel() *Model {
	model := NewModel()
	model.Trees = t.trees
	model.NumIteration = len(t.trees)
	model.NumFeatures = t.X.RawMatrix().Cols
	model.Objective = ObjectiveType(t.objective.Name())
	model.LearningRate = t.params.LearningRate
	model.NumLeaves = t.params.NumLeaves
	model.MaxDepth = t.params.MaxDepth
	model.InitScore = t.initScore
	model.RandomSeed = t.params.Seed
	if model.Objective == BinaryLogistic {
		model.NumClass = 2
	} else {
		model.NumClass = 1
	}
	return model
}

// toDense converts an arbitrary mat.Matrix into a Dense matrix without
// copying when it already is one.
func toDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	rows, cols := m.Dims()
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d.Set(i, j, m.At(i, j))
		}
	}
	return d
}
