package pipeline

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
)

// DataConfig names the CSV source and its cleaning rules.
type DataConfig struct {
	Path        string   `yaml:"path"`
	Target      string   `yaml:"target"`
	DropColumns []string `yaml:"drop_columns"`
}

// BalanceConfig holds the oversampler settings.
type BalanceConfig struct {
	KNeighbors int `yaml:"k_neighbors"`
}

// ForestConfig covers the two bagged ensembles.
type ForestConfig struct {
	NumEstimators int `yaml:"num_estimators"`
	MaxDepth      int `yaml:"max_depth"`
}

// BoostConfig covers the depth-wise boosted ensemble.
type BoostConfig struct {
	NumIterations int     `yaml:"num_iterations"`
	LearningRate  float64 `yaml:"learning_rate"`
	MaxDepth      int     `yaml:"max_depth"`
}

// LeafwiseConfig covers the leaf-wise boosted ensemble.
type LeafwiseConfig struct {
	NumIterations   int     `yaml:"num_iterations"`
	LearningRate    float64 `yaml:"learning_rate"`
	NumLeaves       int     `yaml:"num_leaves"`
	MinChildSamples int     `yaml:"min_child_samples"`
}

// NetworkConfig covers the two-branch network training run.
type NetworkConfig struct {
	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	LearningRate    float64 `yaml:"learning_rate"`
	DropoutRate     float64 `yaml:"dropout_rate"`
	ValidationSplit float64 `yaml:"validation_split"`
}

// ExplainConfig covers the SHAP versus LIME comparison.
type ExplainConfig struct {
	NumSamples int `yaml:"num_samples"`
	TopK       int `yaml:"top_k"`
	MinOverlap int `yaml:"min_overlap"`
}

// ChartConfig names the rank-comparison output file. An empty path
// disables the chart.
type ChartConfig struct {
	Path string `yaml:"path"`
}

// Config collects every tunable of the diagnosis pipeline. The zero
// value is not usable; start from DefaultConfig or LoadConfig.
type Config struct {
	Data        DataConfig     `yaml:"data"`
	TestSize    float64        `yaml:"test_size"`
	Seed        int64          `yaml:"seed"`
	LeakageSafe bool           `yaml:"leakage_safe"`
	LogLevel    string         `yaml:"log_level"`
	Balance     BalanceConfig  `yaml:"balance"`
	Forest      ForestConfig   `yaml:"random_forest"`
	ExtraTrees  ForestConfig   `yaml:"extra_trees"`
	Boosting    BoostConfig    `yaml:"gradient_boosting"`
	Leafwise    LeafwiseConfig `yaml:"leafwise_boosting"`
	Network     NetworkConfig  `yaml:"network"`
	Explain     ExplainConfig  `yaml:"explain"`
	Chart       ChartConfig    `yaml:"chart"`
}

// DefaultConfig returns the canonical single-run settings: default
// hyperparameters for all four ensembles, the 64/64-32-1 network trained
// 75 epochs, a 20% test split and seed 42 everywhere.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Path:        "alzheimers_disease_data.csv",
			Target:      "Diagnosis",
			DropColumns: []string{"PatientID", "DoctorInCharge"},
		},
		TestSize: 0.2,
		Seed:     42,
		LogLevel: "info",
		Balance:  BalanceConfig{KNeighbors: 5},
		Forest:   ForestConfig{NumEstimators: 100, MaxDepth: -1},
		ExtraTrees: ForestConfig{
			NumEstimators: 100,
			MaxDepth:      -1,
		},
		Boosting: BoostConfig{NumIterations: 100, LearningRate: 0.3, MaxDepth: 6},
		Leafwise: LeafwiseConfig{
			NumIterations:   100,
			LearningRate:    0.1,
			NumLeaves:       31,
			MinChildSamples: 20,
		},
		Network: NetworkConfig{
			Epochs:          75,
			BatchSize:       32,
			LearningRate:    0.001,
			DropoutRate:     0.3,
			ValidationSplit: 0.1,
		},
		Explain: ExplainConfig{NumSamples: 5000, TopK: 10, MinOverlap: 2},
		Chart:   ChartConfig{Path: "shap_vs_lime.png"},
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file and
// COGNIBOOST_* environment overrides, in that order. An empty path skips
// the file entirely.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const envPrefix = "COGNIBOOST_"

func applyEnv(c *Config) {
	c.Data.Path = envString("DATA_PATH", c.Data.Path)
	c.Data.Target = envString("TARGET", c.Data.Target)
	c.TestSize = envFloat("TEST_SIZE", c.TestSize)
	c.Seed = envInt64("SEED", c.Seed)
	c.LeakageSafe = envBool("LEAKAGE_SAFE", c.LeakageSafe)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
	c.Network.Epochs = envInt("EPOCHS", c.Network.Epochs)
	c.Chart.Path = envString("CHART_PATH", c.Chart.Path)
}

func envString(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Validate rejects settings no stage can run with.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	switch {
	case c.TestSize <= 0 || c.TestSize >= 1:
		return errors.NewValueError(op, "test_size must be in (0, 1)")
	case c.Balance.KNeighbors < 1:
		return errors.NewValueError(op, "balance.k_neighbors must be positive")
	case c.Forest.NumEstimators < 1:
		return errors.NewValueError(op, "random_forest.num_estimators must be positive")
	case c.ExtraTrees.NumEstimators < 1:
		return errors.NewValueError(op, "extra_trees.num_estimators must be positive")
	case c.Boosting.NumIterations < 1:
		return errors.NewValueError(op, "gradient_boosting.num_iterations must be positive")
	case c.Boosting.LearningRate <= 0:
		return errors.NewValueError(op, "gradient_boosting.learning_rate must be positive")
	case c.Leafwise.NumIterations < 1:
		return errors.NewValueError(op, "leafwise_boosting.num_iterations must be positive")
	case c.Leafwise.LearningRate <= 0:
		return errors.NewValueError(op, "leafwise_boosting.learning_rate must be positive")
	case c.Leafwise.NumLeaves < 2:
		return errors.NewValueError(op, "leafwise_boosting.num_leaves must be at least 2")
	case c.Network.Epochs < 1:
		return errors.NewValueError(op, "network.epochs must be positive")
	case c.Network.BatchSize < 1:
		return errors.NewValueError(op, "network.batch_size must be positive")
	case c.Network.LearningRate <= 0:
		return errors.NewValueError(op, "network.learning_rate must be positive")
	case c.Network.DropoutRate < 0 || c.Network.DropoutRate >= 1:
		return errors.NewValueError(op, "network.dropout_rate must be in [0, 1)")
	case c.Network.ValidationSplit < 0 || c.Network.ValidationSplit >= 1:
		return errors.NewValueError(op, "network.validation_split must be in [0, 1)")
	case c.Explain.NumSamples < 2:
		return errors.NewValueError(op, "explain.num_samples must be at least 2")
	case c.Explain.TopK < 1:
		return errors.NewValueError(op, "explain.top_k must be positive")
	}
	return nil
}
