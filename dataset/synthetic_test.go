package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSyntheticShapeAndRange(t *testing.T) {
	X, y, err := Synthetic(1000, 20, 42)
	require.NoError(t, err)

	rows, cols := X.Dims()
	assert.Equal(t, 1000, rows)
	assert.Equal(t, 20, cols)

	yRows, yCols := y.Dims()
	assert.Equal(t, 1000, yRows)
	assert.Equal(t, 1, yCols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := X.At(i, j)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
			// Values must survive a round trip through float32, since the
			// exported model input is float32.
			assert.Equal(t, float64(float32(v)), v)
		}
	}

	require.NoError(t, CheckBinaryLabels(X, y))
}

func TestSyntheticDeterministicForSeed(t *testing.T) {
	X1, y1, err := Synthetic(50, 5, 7)
	require.NoError(t, err)
	X2, y2, err := Synthetic(50, 5, 7)
	require.NoError(t, err)

	assert.True(t, mat.Equal(X1, X2))
	assert.True(t, mat.Equal(y1, y2))

	X3, _, err := Synthetic(50, 5, 8)
	require.NoError(t, err)
	assert.False(t, mat.Equal(X1, X3))
}

func TestSyntheticInvalidArgs(t *testing.T) {
	tests := []struct {
		name      string
		nSamples  int
		nFeatures int
	}{
		{name: "zero samples", nSamples: 0, nFeatures: 20},
		{name: "negative samples", nSamples: -1, nFeatures: 20},
		{name: "zero features", nSamples: 100, nFeatures: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Synthetic(tt.nSamples, tt.nFeatures, 0)
			assert.Error(t, err)
			_, _, err = SyntheticSeparable(tt.nSamples, tt.nFeatures, 0)
			assert.Error(t, err)
		})
	}
}

func TestSyntheticSeparableHasBothClasses(t *testing.T) {
	_, y, err := SyntheticSeparable(500, 10, 13)
	require.NoError(t, err)

	var positives int
	rows, _ := y.Dims()
	for i := 0; i < rows; i++ {
		if y.At(i, 0) == 1 {
			positives++
		}
	}
	// A random hyperplane through the feature-space center should give a
	// roughly balanced split.
	assert.Greater(t, positives, 100)
	assert.Less(t, positives, 400)
}

func TestCheckBinaryLabelsRejectsBadInput(t *testing.T) {
	X := mat.NewDense(3, 2, nil)

	badShape := mat.NewDense(3, 2, nil)
	assert.Error(t, CheckBinaryLabels(X, badShape))

	badRows := mat.NewDense(2, 1, nil)
	assert.Error(t, CheckBinaryLabels(X, badRows))

	badValue := mat.NewDense(3, 1, []float64{0, 1, 2})
	assert.Error(t, CheckBinaryLabels(X, badValue))

	fractional := mat.NewDense(3, 1, []float64{0, 0.5, 1})
	assert.Error(t, CheckBinaryLabels(X, fractional))
}
