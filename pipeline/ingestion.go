package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/examscore/dataset"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
)

// File names inside the artifacts directory.
const (
	RawDataFile      = "data.csv"
	TrainDataFile    = "train.csv"
	TestDataFile     = "test.csv"
	ModelFile        = "model.pkl"
	PreprocessorFile = "preprocessor.pkl"
	ReportFile       = "report.json"
	ScoresPlotFile   = "scores.png"
)

// DefaultArtifactsDir is used when no directory is configured.
const DefaultArtifactsDir = "artifacts"

// DataIngestionConfig locates the snapshots and fixes the split.
type DataIngestionConfig struct {
	ArtifactsDir string
	TestSize     float64
	Seed         uint64
}

// RawDataPath returns the path of the raw snapshot.
func (c DataIngestionConfig) RawDataPath() string { return filepath.Join(c.ArtifactsDir, RawDataFile) }

// TrainDataPath returns the path of the train split.
func (c DataIngestionConfig) TrainDataPath() string {
	return filepath.Join(c.ArtifactsDir, TrainDataFile)
}

// TestDataPath returns the path of the test split.
func (c DataIngestionConfig) TestDataPath() string { return filepath.Join(c.ArtifactsDir, TestDataFile) }

// DefaultDataIngestionConfig returns artifacts/, a 20% test split and seed 42.
func DefaultDataIngestionConfig() DataIngestionConfig {
	return DataIngestionConfig{
		ArtifactsDir: DefaultArtifactsDir,
		TestSize:     dataset.DefaultTestSize,
		Seed:         dataset.DefaultSeed,
	}
}

// DataIngestion reads the source dataset and writes the raw, train and test
// snapshots.
type DataIngestion struct {
	Config DataIngestionConfig
	Schema dataset.Schema

	logger log.Logger
}

// NewDataIngestion creates an ingestion stage for the student schema.
func NewDataIngestion(cfg DataIngestionConfig, logger log.Logger) *DataIngestion {
	if logger == nil {
		logger = log.GetLoggerWithName("ingestion")
	}
	return &DataIngestion{
		Config: cfg,
		Schema: dataset.StudentSchema(),
		logger: logger.With(log.PhaseKey, log.PhaseIngestion),
	}
}

// Ingest reads sourcePath, writes the raw snapshot and then the train and
// test splits, and returns the split paths. The raw snapshot keeps every
// column as read. Nothing is split when the raw write fails.
func (d *DataIngestion) Ingest(ctx context.Context, sourcePath string) (trainPath, testPath string, err error) {
	start := time.Now()
	d.logger.Info("Entered data ingestion", log.PathKey, sourcePath)

	table, err := dataset.ReadCSVFile(sourcePath)
	if err != nil {
		return "", "", err
	}
	if err := d.Schema.ValidateHeader(table.Header, d.Schema.Columns()); err != nil {
		return "", "", err
	}
	d.logger.Info("Read dataset", log.SamplesKey, table.Len())

	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if err := dataset.WriteCSVFile(d.Config.RawDataPath(), table); err != nil {
		return "", "", err
	}

	trainIdx, testIdx, err := dataset.TrainTestSplit(table.Len(), d.Config.TestSize, d.Config.Seed)
	if err != nil {
		return "", "", errors.NewIngestionError(errors.PhaseIngestion, sourcePath, err)
	}
	d.logger.Info("Train test split initiated",
		log.TrainSamplesKey, len(trainIdx),
		log.TestSamplesKey, len(testIdx),
		log.RandomSeedKey, d.Config.Seed,
	)

	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	trainPath, testPath = d.Config.TrainDataPath(), d.Config.TestDataPath()
	if err := dataset.WriteCSVFile(trainPath, table.Take(trainIdx)); err != nil {
		return "", "", err
	}
	if err := dataset.WriteCSVFile(testPath, table.Take(testIdx)); err != nil {
		return "", "", err
	}

	d.logger.Info("Ingestion of the data is completed",
		log.PathKey, d.Config.ArtifactsDir,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return trainPath, testPath, nil
}
