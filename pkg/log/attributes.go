package log

// Standard attribute keys for machine learning operations. Using these keys
// consistently makes training and export logs filterable by field.

// Model and operation context.
const (
	// ModelNameKey identifies the type of model, e.g. "LGBMClassifier".
	ModelNameKey = "model.name"

	// OperationKey names the operation being performed: "fit", "predict",
	// "convert", "export".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"
)

// Data shape and characteristics.
const (
	// SamplesKey is the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey is the number of target classes.
	ClassesKey = "data.classes"
)

// Training progress and results.
const (
	// IterationKey is the current boosting iteration.
	IterationKey = "train.iteration"

	// LossKey is the training loss at the current iteration.
	LossKey = "train.loss"

	// AccuracyKey is a model accuracy score in [0, 1].
	AccuracyKey = "metric.accuracy"

	// AUCKey is the area under the ROC curve.
	AUCKey = "metric.auc"

	// DurationMsKey is an operation duration in milliseconds.
	DurationMsKey = "duration_ms"
)

// Export context.
const (
	// ArtifactKey is the path of a written model artifact.
	ArtifactKey = "export.artifact"

	// ArtifactBytesKey is the size of a written model artifact.
	ArtifactBytesKey = "export.bytes"
)
