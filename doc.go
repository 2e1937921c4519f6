// Package examscore trains and serves a regression model that predicts a
// student's math score from demographic attributes and the reading and
// writing scores.
//
// # Layout
//
//   - dataset: schema, CSV tables, typed records, columnar frames and the
//     seeded train/test split
//   - preprocessing: imputers, one-hot encoder, scaler and the
//     ColumnTransformer that turns a Frame into a feature matrix
//   - linear, sklearn/tree, sklearn/ensemble, sklearn/neighbors: the
//     candidate regressors
//   - modelselection: K-fold splitting and parallel grid search
//   - metrics: R², MAE, RMSE
//   - pipeline: ingestion, model selection, artifacts and prediction
//   - config: YAML + environment configuration (koanf)
//   - server: HTML form, JSON API, health probes and Prometheus metrics
//   - cmd/train, cmd/serve: the batch job and the prediction server
//
// # Quick Start
//
//	go run ./cmd/train -config examscore.yaml -source data/StudentsPerformance.csv
//	go run ./cmd/serve -config examscore.yaml
//
// Then open http://127.0.0.1:5000/predictdata, or:
//
//	curl -X POST localhost:5000/api/v1/predict -d '{"gender":"male",
//	  "race_ethnicity":"group A","parental_level_of_education":"bachelor'\''s degree",
//	  "lunch":"standard","test_preparation_course":"none",
//	  "reading_score":78,"writing_score":82}'
//
// Training writes data.csv, train.csv, test.csv, preprocessor.pkl,
// model.pkl, report.json and scores.png under the artifacts directory. The
// model and preprocessor share a fit ID; loading a mismatched pair fails.
//
// # Logging
//
// Components take a log.Logger. Binaries install a zerolog-backed provider
// with log.SetProvider; tests use log.NewTestLogger.
package examscore
