package lightgbm

import (
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/Abdullahalhasan627/ShieldAI/core/parallel"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// parallelThreshold is the batch size below which prediction stays
// sequential.
const parallelThreshold = 256

// Predictor evaluates a trained model over batches of samples, optionally
// in parallel across rows.
type Predictor struct {
	model         *Model
	numThreads    int
	deterministic bool
}

// NewPredictor creates a predictor for the given model.
func NewPredictor(model *Model) *Predictor {
	return &Predictor{
		model:         model,
		numThreads:    runtime.NumCPU(),
		deterministic: model.Deterministic,
	}
}

// SetNumThreads sets the number of goroutines used for batch prediction.
// Values below 1 reset to the CPU count.
func (p *Predictor) SetNumThreads(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p.numThreads = n
}

// SetDeterministic forces sequential evaluation. Tree traversal itself is
// deterministic either way; this only fixes the order of floating-point
// accumulation per row, which is already independent across rows, so the
// switch mainly aids debugging.
func (p *Predictor) SetDeterministic(deterministic bool) {
	p.deterministic = deterministic
}

// Predict evaluates the model for each row of X. The output matches
// Model.Predict: an n×1 matrix of probabilities (binary) or raw values
// (regression).
func (p *Predictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.Predict", p.model.NumFeatures, cols, 1)
	}

	xDense := toDense(X)
	predictions := mat.NewDense(rows, 1, nil)

	predictRange := func(start, end int) {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(features, i, xDense)
			predictions.Set(i, 0, p.model.PredictSingle(features, -1))
		}
	}

	if p.deterministic || p.numThreads == 1 || rows <= parallelThreshold {
		predictRange(0, rows)
	} else {
		parallel.ParallelizeWithWorkers(rows, p.numThreads, predictRange)
	}

	return predictions, nil
}

// PredictRaw evaluates untransformed margins for each row of X.
func (p *Predictor) PredictRaw(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.PredictRaw", p.model.NumFeatures, cols, 1)
	}

	xDense := toDense(X)
	scores := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, xDense)
		scores.Set(i, 0, p.model.RawScore(features, -1))
	}
	return scores, nil
}
