// Package lightgbm implements gradient-boosted decision tree training and
// prediction compatible with LightGBM semantics. It provides the training
// half of the ShieldAI model pipeline; the onnx package handles conversion
// of fitted models to the interchange format.
package lightgbm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// NodeType represents the type of a tree node.
type NodeType int

const (
	// LeafNode is a terminal node with a value.
	LeafNode NodeType = iota
	// NumericalNode is a node with a numerical threshold split.
	NumericalNode
)

// Node is a single node in a decision tree. Nodes are stored in a flat
// slice; children are referenced by index, -1 meaning none.
type Node struct {
	NodeID     int
	ParentID   int // -1 for the root
	LeftChild  int // -1 if leaf
	RightChild int // -1 if leaf
	NodeType   NodeType

	// Split information, for non-leaf nodes.
	SplitFeature int
	Threshold    float64
	DefaultLeft  bool // direction for missing values
	Gain         float64

	// Leaf information.
	LeafValue float64
	LeafCount int
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a single decision tree in the ensemble.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	ShrinkageRate float64 // learning rate applied to this tree's leaves
	Nodes         []Node
}

// Predict evaluates the tree for one sample, with the shrinkage rate applied
// to the returned leaf value.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}

		value := features[node.SplitFeature]
		if math.IsNaN(value) {
			if node.DefaultLeft {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
			continue
		}

		if value <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// ObjectiveType identifies the objective function a model was trained with.
type ObjectiveType string

const (
	// RegressionL2 is least-squares regression.
	RegressionL2 ObjectiveType = "regression"
	// BinaryLogistic is binary classification with log loss.
	BinaryLogistic ObjectiveType = "binary"
)

// Model is a trained ensemble of decision trees.
type Model struct {
	Objective    ObjectiveType
	NumClass     int // 2 for binary classification, 1 for regression
	NumIteration int
	LearningRate float64
	NumLeaves    int
	MaxDepth     int

	Trees []Tree

	NumFeatures  int
	FeatureNames []string

	// InitScore is the baseline raw score added before any tree output.
	InitScore float64

	Deterministic bool
	RandomSeed    int
}

// NewModel creates an empty model with LightGBM default parameters.
func NewModel() *Model {
	return &Model{
		Trees:        make([]Tree, 0),
		LearningRate: 0.1,
		NumLeaves:    31,
		MaxDepth:     -1,
	}
}

// Predict makes predictions for a batch of samples. For the binary objective
// the output is an n×1 matrix of positive-class probabilities; for
// regression it is an n×1 matrix of raw predictions.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		features := mat.Row(nil, i, X)
		predictions.Set(i, 0, m.PredictSingle(features, -1))
	}
	return predictions, nil
}

// PredictSingle evaluates the ensemble for one sample. numIteration limits
// how many trees are used; -1 means all. The binary objective applies the
// sigmoid transform to the accumulated raw score.
func (m *Model) PredictSingle(features []float64, numIteration int) float64 {
	return m.transform(m.RawScore(features, numIteration))
}

// RawScore returns the untransformed margin for one sample.
func (m *Model) RawScore(features []float64, numIteration int) float64 {
	if numIteration < 0 || numIteration > len(m.Trees) {
		numIteration = len(m.Trees)
	}
	score := m.InitScore
	for i := 0; i < numIteration; i++ {
		score += m.Trees[i].Predict(features)
	}
	return score
}

func (m *Model) transform(rawScore float64) float64 {
	if m.Objective == BinaryLogistic {
		return sigmoid(rawScore)
	}
	return rawScore
}

// FeatureImportance returns per-feature importance scores normalized to sum
// to 1. importanceType is "split" (number of uses) or "gain" (total gain).
func (m *Model) FeatureImportance(importanceType string) ([]float64, error) {
	if importanceType != "split" && importanceType != "gain" {
		return nil, errors.NewValueError("Model.FeatureImportance", "importance type must be \"split\" or \"gain\"")
	}

	importance := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "split":
				importance[node.SplitFeature]++
			case "gain":
				importance[node.SplitFeature] += node.Gain
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
	return importance, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
