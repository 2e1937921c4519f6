// Package ensemble provides tree ensembles for regression: a bagged random
// forest, stochastic gradient boosting on squared error, and AdaBoost.R2.
//
// Every ensemble is seeded through RandomState and produces identical
// models for identical inputs regardless of how many workers are used.
package ensemble
