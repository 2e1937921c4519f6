// Package log defines standard attribute keys for the examscore pipeline.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that log lines from ingestion, training and serving can be
// filtered with the same queries.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies a candidate by its roster name.
	// Examples: "Linear Regression", "Random Forest"
	ModelNameKey = "model.name"

	// FitIDKey carries the identifier shared by a model and its preprocessor.
	FitIDKey = "model.fit_id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "ingestion", "trainer", "server"
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline phase.
	PhaseKey = "ml.phase"
)

// Data Shape and Artifacts
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns of a feature matrix.
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey describe a split.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// PathKey is a filesystem path: a dataset, an artifact or a report.
	PathKey = "artifact.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// CVScoreKey records a mean cross-validated score.
	CVScoreKey = "metrics.cv_score"
	CVStdKey   = "metrics.cv_std"

	// ThresholdKey records the minimum acceptable score.
	ThresholdKey = "metrics.threshold"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Error Context
const (
	// ErrorTypeKey categorizes the error or warning.
	ErrorTypeKey = "error.type"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains the hyperparameters of a candidate.
	HyperParamsKey = "model.hyperparams"

	// CombinationsKey is the number of grid combinations searched.
	CombinationsKey = "search.combinations"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "search.folds"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Transport
const (
	// MethodKey and RouteKey describe an HTTP request.
	MethodKey = "http.method"
	RouteKey  = "http.route"

	// StatusKey is the HTTP status code returned.
	StatusKey = "http.status"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseIngestion = "ingestion"
	PhaseTransform = "transformation"
	PhaseTraining  = "training"
	PhaseInference = "inference"
)
