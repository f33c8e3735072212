// Package metrics implements evaluation metrics for binary classification.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// logLossEpsilon clips probabilities away from 0 and 1 so the log stays
// finite.
const logLossEpsilon = 1e-15

// Accuracy returns the fraction of predictions equal to the true labels.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyMatrix computes Accuracy over n×1 matrices.
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	tVec, pVec, err := toVectors("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(tVec, pVec)
}

// ClassificationError returns 1 - Accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - acc, nil
}

// BinaryLogLoss returns the mean binary cross-entropy between 0/1 labels
// and predicted positive-class probabilities. Probabilities are clipped to
// [eps, 1-eps].
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	loss := 0.0
	for i := 0; i < n; i++ {
		p := yPred.AtVec(i)
		if p < logLossEpsilon {
			p = logLossEpsilon
		}
		if p > 1.0-logLossEpsilon {
			p = 1.0 - logLossEpsilon
		}
		if yTrue.AtVec(i) == 1 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1.0 - p)
		}
	}
	return loss / float64(n), nil
}

// AUC returns the area under the ROC curve for binary labels and scores.
// Ties in the scores are handled by the rank-sum formulation. When only one
// class is present the result is undefined; a warning is raised and 0.5 is
// returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	nPos := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present", 0.5))
		return 0.5, nil
	}

	// Rank-sum (Mann-Whitney U) with mid-ranks for tied scores.
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		return yPred.AtVec(indices[a]) < yPred.AtVec(indices[b])
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yPred.AtVec(indices[j]) == yPred.AtVec(indices[i]) {
			j++
		}
		// Mid-rank of the tie group (1-based ranks).
		midRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[indices[k]] = midRank
		}
		i = j
	}

	rankSum := 0.0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			rankSum += ranks[i]
		}
	}

	u := rankSum - float64(nPos)*float64(nPos+1)/2.0
	return u / (float64(nPos) * float64(nNeg)), nil
}

// AUCMatrix computes AUC over n×1 matrices.
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	tVec, pVec, err := toVectors("AUCMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AUC(tVec, pVec)
}

// checkVectors validates the shared preconditions of all metrics and
// returns the length.
func checkVectors(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary validates that every label is 0 or 1.
func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// toVectors converts n×1 matrices into vectors.
func toVectors(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	tRows, tCols := yTrue.Dims()
	pRows, pCols := yPred.Dims()
	if tRows == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if tCols != 1 || pCols != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	if tRows != pRows {
		return nil, nil, errors.NewDimensionError(op, tRows, pRows, 0)
	}

	tVec := mat.NewVecDense(tRows, nil)
	pVec := mat.NewVecDense(pRows, nil)
	for i := 0; i < tRows; i++ {
		tVec.SetVec(i, yTrue.At(i, 0))
		pVec.SetVec(i, yPred.At(i, 0))
	}
	return tVec, pVec, nil
}
