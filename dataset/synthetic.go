// Package dataset generates synthetic training data for proof-of-concept
// model runs. The ShieldAI scoring model is trained on extracted file
// features in production; these generators stand in for that data when
// exercising the training and export pipeline.
package dataset

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// Synthetic returns a feature matrix and label vector of random data.
//
// Features are uniform in [0, 1), truncated to float32 precision because the
// exported model declares a float32 input tensor. Labels are uniform over
// {0, 1} and carry no relationship to the features.
func Synthetic(nSamples, nFeatures int, seed int64) (X, y *mat.Dense, err error) {
	if nSamples <= 0 {
		return nil, nil, errors.NewValidationError("n_samples", "must be positive", nSamples)
	}
	if nFeatures <= 0 {
		return nil, nil, errors.NewValidationError("n_features", "must be positive", nFeatures)
	}

	rng := rand.New(rand.NewSource(seed))

	X = mat.NewDense(nSamples, nFeatures, nil)
	y = mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, float64(float32(rng.Float64())))
		}
		y.Set(i, 0, float64(rng.Intn(2)))
	}
	return X, y, nil
}

// SyntheticSeparable returns random features with labels derived from a
// linear score of the features plus Gaussian noise, so a classifier can
// actually learn something. Used by tests and demos that assert on model
// quality rather than just on pipeline mechanics.
func SyntheticSeparable(nSamples, nFeatures int, seed int64) (X, y *mat.Dense, err error) {
	if nSamples <= 0 {
		return nil, nil, errors.NewValidationError("n_samples", "must be positive", nSamples)
	}
	if nFeatures <= 0 {
		return nil, nil, errors.NewValidationError("n_features", "must be positive", nFeatures)
	}

	rng := rand.New(rand.NewSource(seed))

	// Random hyperplane with zero intercept; labels are the sign of the
	// centered score. Weights alternate in sign so no single feature
	// dominates.
	weights := make([]float64, nFeatures)
	for j := range weights {
		weights[j] = rng.NormFloat64()
	}

	X = mat.NewDense(nSamples, nFeatures, nil)
	y = mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		score := 0.0
		for j := 0; j < nFeatures; j++ {
			v := float64(float32(rng.Float64()))
			X.Set(i, j, v)
			score += weights[j] * (v - 0.5)
		}
		score += 0.1 * rng.NormFloat64()
		if score > 0 {
			y.Set(i, 0, 1)
		}
	}
	return X, y, nil
}

// CheckBinaryLabels verifies that every label is 0 or 1 and that y is a
// column vector aligned with X.
func CheckBinaryLabels(X, y mat.Matrix) error {
	xRows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return errors.NewDimensionError("CheckBinaryLabels", 1, yCols, 1)
	}
	if xRows != yRows {
		return errors.NewDimensionError("CheckBinaryLabels", xRows, yRows, 0)
	}
	for i := 0; i < yRows; i++ {
		v := y.At(i, 0)
		if v != math.Trunc(v) || (v != 0 && v != 1) {
			return errors.NewValueError("CheckBinaryLabels", "labels must be 0 or 1")
		}
	}
	return nil
}
