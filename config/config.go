// Package config loads examscore settings from an optional YAML file and
// EXAMSCORE__ environment variables.
package config

import (
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/YuminosukeSato/examscore/dataset"
	"github.com/YuminosukeSato/examscore/pipeline"
	"github.com/YuminosukeSato/examscore/pkg/errors"
	"github.com/YuminosukeSato/examscore/pkg/log"
	"github.com/YuminosukeSato/examscore/preprocessing"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with "__", e.g. EXAMSCORE__TRAINING__MIN_SCORE=0.7.
const EnvPrefix = "EXAMSCORE__"

// SchemaVersion is the only accepted value of schema_version.
const SchemaVersion = "v1"

type DataConfig struct {
	Source       string `koanf:"source"`
	ArtifactsDir string `koanf:"artifacts_dir"`
}

type SplitConfig struct {
	TestSize float64 `koanf:"test_size"`
	Seed     uint64  `koanf:"seed"`
}

// RosterEntry selects a candidate by name and optionally replaces its grid.
type RosterEntry struct {
	Name string                   `koanf:"name"`
	Grid map[string][]interface{} `koanf:"grid"`
}

type TrainingConfig struct {
	MinScore    float64       `koanf:"min_score"`
	CVFolds     int           `koanf:"cv_folds"`
	Workers     int           `koanf:"workers"` // 0 = NumCPU
	RandomState uint64        `koanf:"random_state"`
	PlotScores  bool          `koanf:"plot_scores"`
	Roster      []RosterEntry `koanf:"roster"`
}

type PreprocessingConfig struct {
	CategoricalStrategy string `koanf:"categorical_strategy"` // constant|most_frequent
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Config is the full set of settings.
type Config struct {
	SchemaVersion string              `koanf:"schema_version"`
	Data          DataConfig          `koanf:"data"`
	Split         SplitConfig         `koanf:"split"`
	Training      TrainingConfig      `koanf:"training"`
	Preprocessing PreprocessingConfig `koanf:"preprocessing"`
	Server        ServerConfig        `koanf:"server"`
	Log           LogConfig           `koanf:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		SchemaVersion: SchemaVersion,
		Data: DataConfig{
			Source:       "notebook/data/StudentsPerformance.csv",
			ArtifactsDir: pipeline.DefaultArtifactsDir,
		},
		Split: SplitConfig{
			TestSize: dataset.DefaultTestSize,
			Seed:     dataset.DefaultSeed,
		},
		Training: TrainingConfig{
			MinScore:    pipeline.DefaultMinScore,
			CVFolds:     3,
			RandomState: dataset.DefaultSeed,
			PlotScores:  true,
		},
		Preprocessing: PreprocessingConfig{
			CategoricalStrategy: preprocessing.StrategyConstant,
		},
		Server: ServerConfig{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info", JSON: true},
	}
}

// Load merges Default, the YAML file at path (skipped when path is empty or
// absent) and EXAMSCORE__ environment variables, in that order.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.NewConfigurationError(errors.PhaseConfig, "read "+path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SchemaVersion {
		return Config{}, errors.NewConfigurationError(errors.PhaseConfig,
			fmt.Sprintf("schema_version %q not supported (want %s)", sv, SchemaVersion), nil)
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return Config{}, errors.NewConfigurationError(errors.PhaseConfig, "read environment", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.NewConfigurationError(errors.PhaseConfig, "decode", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func applyDefaults(c *Config) {
	d := Default()
	if c.SchemaVersion == "" {
		c.SchemaVersion = SchemaVersion
	}
	if c.Data.ArtifactsDir == "" {
		c.Data.ArtifactsDir = d.Data.ArtifactsDir
	}
	if c.Split.TestSize == 0 {
		c.Split.TestSize = d.Split.TestSize
	}
	if c.Training.CVFolds == 0 {
		c.Training.CVFolds = d.Training.CVFolds
	}
	if c.Preprocessing.CategoricalStrategy == "" {
		c.Preprocessing.CategoricalStrategy = d.Preprocessing.CategoricalStrategy
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	bad := func(reason string) error {
		return errors.NewConfigurationError(errors.PhaseConfig, reason, nil)
	}
	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		return bad(fmt.Sprintf("split.test_size must be in (0, 1), got %v", c.Split.TestSize))
	}
	if c.Training.MinScore > 1 {
		return bad(fmt.Sprintf("training.min_score must be <= 1, got %v", c.Training.MinScore))
	}
	if c.Training.CVFolds < 2 {
		return bad(fmt.Sprintf("training.cv_folds must be >= 2, got %d", c.Training.CVFolds))
	}
	if c.Training.Workers < 0 {
		return bad(fmt.Sprintf("training.workers must be >= 0, got %d", c.Training.Workers))
	}
	switch c.Preprocessing.CategoricalStrategy {
	case preprocessing.StrategyConstant, preprocessing.StrategyMostFrequent:
	default:
		return bad("preprocessing.categorical_strategy must be constant or most_frequent, got " +
			c.Preprocessing.CategoricalStrategy)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewConfigurationError(errors.PhaseConfig, "log.level", err)
	}
	for i, r := range c.Training.Roster {
		if strings.TrimSpace(r.Name) == "" {
			return bad(fmt.Sprintf("training.roster[%d] has no name", i))
		}
	}
	return nil
}

// IngestionConfig returns the settings of the ingestion stage.
func (c Config) IngestionConfig() pipeline.DataIngestionConfig {
	return pipeline.DataIngestionConfig{
		ArtifactsDir: c.Data.ArtifactsDir,
		TestSize:     c.Split.TestSize,
		Seed:         c.Split.Seed,
	}
}

// TrainerConfig returns the settings of the training stage with the roster
// resolved.
func (c Config) TrainerConfig() (pipeline.ModelTrainerConfig, error) {
	overrides := make([]pipeline.RosterOverride, len(c.Training.Roster))
	for i, r := range c.Training.Roster {
		overrides[i] = pipeline.RosterOverride{Name: r.Name, Grid: r.Grid}
	}
	roster, err := pipeline.BuildRoster(overrides, c.Training.RandomState)
	if err != nil {
		return pipeline.ModelTrainerConfig{}, err
	}
	workers := c.Training.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return pipeline.ModelTrainerConfig{
		ArtifactsDir:        c.Data.ArtifactsDir,
		MinScore:            c.Training.MinScore,
		CVFolds:             c.Training.CVFolds,
		Workers:             workers,
		RandomState:         c.Training.RandomState,
		CategoricalStrategy: c.Preprocessing.CategoricalStrategy,
		PlotScores:          c.Training.PlotScores,
		Roster:              roster,
	}, nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() log.Level {
	l, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.LevelInfo
	}
	return l
}
