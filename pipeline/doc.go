// Package pipeline wires the training and inference stages together.
//
// DataIngestion snapshots the raw CSV and splits it into train and test
// files. ModelTrainer fits the preprocessor, searches every roster candidate
// and persists the winner alongside its preprocessor. Predictor and
// PredictPipeline load that pair back and score new rows.
//
// All artifacts live in one directory:
//
//	artifacts/
//	  data.csv  train.csv  test.csv
//	  preprocessor.pkl  model.pkl
//	  report.json  scores.png
package pipeline
