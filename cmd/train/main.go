// Command train ingests the student-performance CSV, selects the best
// regressor and writes the model and preprocessor artifacts.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YuminosukeSato/examscore/config"
	"github.com/YuminosukeSato/examscore/pipeline"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "examscore.yaml", "path to the YAML config file")
	source := flag.String("source", "", "CSV dataset to ingest (overrides data.source)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.GetLogger().Error("Invalid configuration", err)
		return 2
	}
	if *source != "" {
		cfg.Data.Source = *source
	}
	log.SetProvider(newProvider(cfg))
	logger := log.GetLoggerWithName("train")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	ingestion := pipeline.NewDataIngestion(cfg.IngestionConfig(), log.GetLoggerWithName("ingestion"))
	trainPath, testPath, err := ingestion.Ingest(ctx, cfg.Data.Source)
	if err != nil {
		logger.Error("Ingestion failed", err, log.PathKey, cfg.Data.Source)
		return 1
	}

	trainerCfg, err := cfg.TrainerConfig()
	if err != nil {
		logger.Error("Invalid roster", err)
		return 2
	}
	trainer := pipeline.NewModelTrainer(trainerCfg, log.GetLoggerWithName("trainer"))
	tm, report, err := trainer.InitiateTraining(ctx, trainPath, testPath)
	if report != nil {
		for _, e := range report.Entries {
			logger.Info("Candidate score",
				log.ModelNameKey, e.Name,
				log.R2ScoreKey, e.TestR2,
				log.CVScoreKey, e.CVScore,
			)
		}
		for _, x := range report.Excluded {
			logger.Warn("Candidate excluded", log.ModelNameKey, x.Name, "reason", x.Reason)
		}
	}
	if err != nil {
		var nam *errors.NoAcceptableModelError
		if errors.As(err, &nam) {
			logger.Error("No acceptable model", err, log.ThresholdKey, trainerCfg.MinScore)
		} else {
			logger.Error("Training failed", err)
		}
		return 1
	}

	logger.Info("Training complete",
		log.ModelNameKey, tm.Name,
		log.R2ScoreKey, tm.TestScore,
		log.FitIDKey, tm.FitID.String(),
		log.PathKey, trainerCfg.ModelPath(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return 0
}

func newProvider(cfg config.Config) *log.ZerologProvider {
	var opts []log.ProviderOption
	if !cfg.Log.JSON {
		opts = append(opts, log.WithConsole())
	}
	return log.NewZerologProvider(cfg.LogLevel(), opts...)
}
