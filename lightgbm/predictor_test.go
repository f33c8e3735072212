package lightgbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPredictorMatchesModel(t *testing.T) {
	X, y := binaryFixture(100)
	clf := NewLGBMClassifier().WithNumIterations(20)
	require.NoError(t, clf.Fit(X, y))

	predictor := NewPredictor(clf.Model)
	got, err := predictor.Predict(X)
	require.NoError(t, err)

	want, err := clf.Model.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-15))
}

func TestPredictorParallelMatchesSequential(t *testing.T) {
	// Enough rows to cross the parallel threshold.
	X, y := binaryFixture(1000)
	clf := NewLGBMClassifier().WithNumIterations(10)
	require.NoError(t, clf.Fit(X, y))

	sequential := NewPredictor(clf.Model)
	sequential.SetDeterministic(true)
	seq, err := sequential.Predict(X)
	require.NoError(t, err)

	parallelPred := NewPredictor(clf.Model)
	parallelPred.SetNumThreads(8)
	par, err := parallelPred.Predict(X)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(seq, par, 0))
}

func TestPredictorDimensionCheck(t *testing.T) {
	model := stumpModel()
	predictor := NewPredictor(model)

	_, err := predictor.Predict(mat.NewDense(4, 7, nil))
	assert.Error(t, err)

	_, err = predictor.PredictRaw(mat.NewDense(4, 7, nil))
	assert.Error(t, err)
}

func TestPredictorRawScores(t *testing.T) {
	model := stumpModel()
	predictor := NewPredictor(model)

	X := mat.NewDense(2, 2, []float64{0.2, 0, 0.8, 0})
	raw, err := predictor.PredictRaw(X)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, raw.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, raw.At(1, 0), 1e-12)
}
