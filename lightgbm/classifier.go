package lightgbm

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/Abdullahalhasan627/ShieldAI/core/model"
	"github.com/Abdullahalhasan627/ShieldAI/metrics"
	mlErrors "github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/log"
)

// LGBMClassifier is a binary gradient-boosted tree classifier with a
// scikit-learn compatible API.
type LGBMClassifier struct {
	state *model.StateManager

	// Model holds the trained ensemble after Fit.
	Model     *Model
	Predictor *Predictor

	// Hyperparameters, matching Python LightGBM naming.
	NumLeaves       int
	MaxDepth        int
	LearningRate    float64
	NumIterations   int
	MinChildSamples int
	Subsample       float64
	SubsampleFreq   int
	ColsampleBytree float64
	RegLambda       float64
	RandomState     int
	NumThreads      int
	Deterministic   bool
	Verbosity       int

	classes_    []int
	nClasses_   int
	lossHistory []float64
}

// NewLGBMClassifier creates a classifier with LightGBM default parameters.
func NewLGBMClassifier() *LGBMClassifier {
	return &LGBMClassifier{
		state:           model.NewStateManager(),
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		NumIterations:   100,
		MinChildSamples: 20,
		Subsample:       1.0,
		SubsampleFreq:   0,
		ColsampleBytree: 1.0,
		RegLambda:       0.0,
		RandomState:     42,
		NumThreads:      -1,
	}
}

// WithNumLeaves sets the maximum number of leaves per tree.
func (clf *LGBMClassifier) WithNumLeaves(n int) *LGBMClassifier {
	clf.NumLeaves = n
	return clf
}

// WithMaxDepth sets the maximum tree depth. -1 means no limit.
func (clf *LGBMClassifier) WithMaxDepth(d int) *LGBMClassifier {
	clf.MaxDepth = d
	return clf
}

// WithLearningRate sets the boosting learning rate.
func (clf *LGBMClassifier) WithLearningRate(lr float64) *LGBMClassifier {
	clf.LearningRate = lr
	return clf
}

// WithNumIterations sets the number of boosting iterations.
func (clf *LGBMClassifier) WithNumIterations(n int) *LGBMClassifier {
	clf.NumIterations = n
	return clf
}

// WithMinChildSamples sets the minimum number of samples per leaf.
func (clf *LGBMClassifier) WithMinChildSamples(n int) *LGBMClassifier {
	clf.MinChildSamples = n
	return clf
}

// WithRandomState sets the random seed for bagging and feature sampling.
func (clf *LGBMClassifier) WithRandomState(seed int) *LGBMClassifier {
	clf.RandomState = seed
	return clf
}

// WithDeterministic forces sequential prediction.
func (clf *LGBMClassifier) WithDeterministic(det bool) *LGBMClassifier {
	clf.Deterministic = det
	return clf
}

// Fit trains the classifier. y must be an n×1 matrix of binary labels
// aligned with the rows of X.
func (clf *LGBMClassifier) Fit(X, y mat.Matrix) (err error) {
	defer mlErrors.Recover(&err, "LGBMClassifier.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return mlErrors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return mlErrors.NewDimensionError("Fit", 1, yCols, 1)
	}

	if err := clf.extractClasses(y); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("lightgbm.classifier")
	if clf.Verbosity > 0 {
		logger.Info("Training LGBMClassifier",
			log.OperationKey, "fit",
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
			log.ClassesKey, clf.nClasses_)
	}

	params := TrainingParams{
		NumIterations:   clf.NumIterations,
		LearningRate:    clf.LearningRate,
		NumLeaves:       clf.NumLeaves,
		MaxDepth:        clf.MaxDepth,
		MinDataInLeaf:   clf.MinChildSamples,
		Lambda:          clf.RegLambda,
		MinGainToSplit:  1e-7,
		BaggingFraction: clf.Subsample,
		BaggingFreq:     clf.SubsampleFreq,
		FeatureFraction: clf.ColsampleBytree,
		Objective:       string(BinaryLogistic),
		Seed:            clf.RandomState,
		Verbosity:       clf.Verbosity,
	}

	start := time.Now()
	trainer := NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		return mlErrors.Wrap(err, "training failed")
	}

	clf.Model = trainer.GetModel()
	clf.Model.Deterministic = clf.Deterministic
	clf.lossHistory = trainer.LossHistory()

	clf.Predictor = NewPredictor(clf.Model)
	if clf.NumThreads > 0 {
		clf.Predictor.SetNumThreads(clf.NumThreads)
	}
	clf.Predictor.SetDeterministic(clf.Deterministic)

	clf.state.SetDimensions(cols, rows)
	clf.state.SetFitted()

	if clf.Verbosity > 0 {
		logger.Info("Training completed",
			log.OperationKey, "fit",
			log.DurationMsKey, time.Since(start).Milliseconds())
	}
	return nil
}

// extractClasses validates the label set and records the sorted class list.
func (clf *LGBMClassifier) extractClasses(y mat.Matrix) error {
	rows, _ := y.Dims()
	seen := make(map[int]struct{})
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		label := int(v)
		if float64(label) != v || label < 0 {
			return mlErrors.NewValueError("Fit", "labels must be non-negative integers")
		}
		seen[label] = struct{}{}
	}

	classes := make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	if len(classes) > 2 {
		return mlErrors.NewValidationError("y", "only binary classification is supported", len(classes))
	}
	for _, label := range classes {
		if label != 0 && label != 1 {
			return mlErrors.NewValueError("Fit", "binary labels must be 0 or 1")
		}
	}

	clf.classes_ = classes
	clf.nClasses_ = len(classes)
	return nil
}

// Predict returns the predicted class label for each row of X as an n×1
// matrix.
func (clf *LGBMClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := clf.state.RequireFitted("LGBMClassifier", "Predict"); err != nil {
		return nil, err
	}

	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	rows, _ := proba.Dims()
	labels := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		if proba.At(i, 1) > proba.At(i, 0) {
			labels.Set(i, 0, 1)
		}
	}
	return labels, nil
}

// PredictProba returns an n×2 matrix of class probabilities. Each row sums
// to 1; column order follows Classes().
func (clf *LGBMClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := clf.state.RequireFitted("LGBMClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	positive, err := clf.Predictor.Predict(X)
	if err != nil {
		return nil, err
	}

	rows, _ := positive.Dims()
	proba := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := positive.At(i, 0)
		proba.Set(i, 0, 1.0-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Score returns the mean accuracy of Predict on X against y.
func (clf *LGBMClassifier) Score(X, y mat.Matrix) (float64, error) {
	if err := clf.state.RequireFitted("LGBMClassifier", "Score"); err != nil {
		return 0, err
	}

	predictions, err := clf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, predictions)
}

// Classes returns the sorted class labels seen during Fit.
func (clf *LGBMClassifier) Classes() []int {
	classes := make([]int, len(clf.classes_))
	copy(classes, clf.classes_)
	return classes
}

// NClasses returns the number of classes seen during Fit.
func (clf *LGBMClassifier) NClasses() int {
	return clf.nClasses_
}

// IsFitted returns whether Fit has completed successfully.
func (clf *LGBMClassifier) IsFitted() bool {
	return clf.state.IsFitted()
}

// LossHistory returns the per-iteration training loss of the last Fit.
func (clf *LGBMClassifier) LossHistory() []float64 {
	history := make([]float64, len(clf.lossHistory))
	copy(history, clf.lossHistory)
	return history
}
