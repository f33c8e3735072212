package lightgbm

import (
	"math"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// ObjectiveFunction supplies the per-sample derivatives driving boosting.
type ObjectiveFunction interface {
	// CalculateGradient returns the first derivative of the loss with
	// respect to the raw score.
	CalculateGradient(rawScore, target float64) float64

	// CalculateHessian returns the second derivative of the loss with
	// respect to the raw score.
	CalculateHessian(rawScore, target float64) float64

	// CalculateLoss returns the loss for a single sample.
	CalculateLoss(rawScore, target float64) float64

	// GetInitScore returns the optimal constant raw score for the targets.
	GetInitScore(targets []float64) float64

	// Name returns the objective's LightGBM name.
	Name() string
}

// L2Objective implements least-squares regression loss.
type L2Objective struct{}

// NewL2Objective creates an L2 regression objective.
func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) CalculateGradient(rawScore, target float64) float64 {
	return rawScore - target
}

func (o *L2Objective) CalculateHessian(rawScore, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(rawScore, target float64) float64 {
	diff := rawScore - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return string(RegressionL2)
}

// BinaryLogisticObjective implements binary cross-entropy loss on raw
// scores. Targets must be 0 or 1; predictions pass through the sigmoid.
type BinaryLogisticObjective struct {
	epsilon float64 // probability clipping bound for the loss
}

// NewBinaryLogisticObjective creates a binary log-loss objective.
func NewBinaryLogisticObjective() *BinaryLogisticObjective {
	return &BinaryLogisticObjective{epsilon: 1e-15}
}

func (o *BinaryLogisticObjective) CalculateGradient(rawScore, target float64) float64 {
	return sigmoid(rawScore) - target
}

func (o *BinaryLogisticObjective) CalculateHessian(rawScore, target float64) float64 {
	p := sigmoid(rawScore)
	h := p * (1.0 - p)
	// The hessian vanishes for saturated scores; floor it so leaf values
	// stay finite.
	if h < 1e-16 {
		h = 1e-16
	}
	return h
}

func (o *BinaryLogisticObjective) CalculateLoss(rawScore, target float64) float64 {
	p := sigmoid(rawScore)
	if p < o.epsilon {
		p = o.epsilon
	}
	if p > 1.0-o.epsilon {
		p = 1.0 - o.epsilon
	}
	return -(target*math.Log(p) + (1.0-target)*math.Log(1.0-p))
}

func (o *BinaryLogisticObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	mean := sum / float64(len(targets))
	// Clamp so a single-class sample still produces a finite log-odds.
	if mean < 1e-15 {
		mean = 1e-15
	}
	if mean > 1.0-1e-15 {
		mean = 1.0 - 1e-15
	}
	return math.Log(mean / (1.0 - mean))
}

func (o *BinaryLogisticObjective) Name() string {
	return string(BinaryLogistic)
}

// CreateObjectiveFunction resolves a LightGBM objective name.
func CreateObjectiveFunction(objective string) (ObjectiveFunction, error) {
	switch objective {
	case "regression", "regression_l2", "l2", "mean_squared_error", "mse":
		return NewL2Objective(), nil
	case "binary", "binary_logloss", "logistic":
		return NewBinaryLogisticObjective(), nil
	default:
		return nil, errors.Newf("unknown objective: %s", objective)
	}
}
