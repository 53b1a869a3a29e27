package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "alzheimers_disease_data.csv", cfg.Data.Path)
	assert.Equal(t, "Diagnosis", cfg.Data.Target)
	assert.Equal(t, []string{"PatientID", "DoctorInCharge"}, cfg.Data.DropColumns)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.False(t, cfg.LeakageSafe)
	assert.Equal(t, 5, cfg.Balance.KNeighbors)
	assert.Equal(t, 100, cfg.Forest.NumEstimators)
	assert.Equal(t, 100, cfg.ExtraTrees.NumEstimators)
	assert.Equal(t, 100, cfg.Boosting.NumIterations)
	assert.Equal(t, 0.3, cfg.Boosting.LearningRate)
	assert.Equal(t, 6, cfg.Boosting.MaxDepth)
	assert.Equal(t, 100, cfg.Leafwise.NumIterations)
	assert.Equal(t, 0.1, cfg.Leafwise.LearningRate)
	assert.Equal(t, 31, cfg.Leafwise.NumLeaves)
	assert.Equal(t, 20, cfg.Leafwise.MinChildSamples)
	assert.Equal(t, 75, cfg.Network.Epochs)
	assert.Equal(t, 32, cfg.Network.BatchSize)
	assert.Equal(t, 0.001, cfg.Network.LearningRate)
	assert.Equal(t, 0.3, cfg.Network.DropoutRate)
	assert.Equal(t, 0.1, cfg.Network.ValidationSplit)
	assert.Equal(t, 5000, cfg.Explain.NumSamples)
	assert.Equal(t, 10, cfg.Explain.TopK)
	assert.Equal(t, 2, cfg.Explain.MinOverlap)
	assert.Equal(t, "shap_vs_lime.png", cfg.Chart.Path)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	body := `
test_size: 0.3
leakage_safe: true
data:
  path: clinic.csv
network:
  epochs: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.3, cfg.TestSize)
	assert.True(t, cfg.LeakageSafe)
	assert.Equal(t, "clinic.csv", cfg.Data.Path)
	assert.Equal(t, 5, cfg.Network.Epochs)

	// keys the file does not mention keep their defaults
	assert.Equal(t, "Diagnosis", cfg.Data.Target)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.3, cfg.Boosting.LearningRate)
	assert.Equal(t, 32, cfg.Network.BatchSize)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("COGNIBOOST_SEED", "7")
	t.Setenv("COGNIBOOST_TEST_SIZE", "0.4")
	t.Setenv("COGNIBOOST_DATA_PATH", "env.csv")
	t.Setenv("COGNIBOOST_LEAKAGE_SAFE", "true")
	t.Setenv("COGNIBOOST_EPOCHS", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 0.4, cfg.TestSize)
	assert.Equal(t, "env.csv", cfg.Data.Path)
	assert.True(t, cfg.LeakageSafe)
	assert.Equal(t, 3, cfg.Network.Epochs)
}

func TestLoadConfigMalformedEnvIgnored(t *testing.T) {
	t.Setenv("COGNIBOOST_SEED", "not-a-number")
	t.Setenv("COGNIBOOST_TEST_SIZE", "huge")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.2, cfg.TestSize)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test_size: 1.5\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero test size", func(c *Config) { c.TestSize = 0 }},
		{"test size of one", func(c *Config) { c.TestSize = 1 }},
		{"zero neighbors", func(c *Config) { c.Balance.KNeighbors = 0 }},
		{"no forest trees", func(c *Config) { c.Forest.NumEstimators = 0 }},
		{"no extra trees", func(c *Config) { c.ExtraTrees.NumEstimators = 0 }},
		{"no boosting rounds", func(c *Config) { c.Boosting.NumIterations = 0 }},
		{"zero boosting rate", func(c *Config) { c.Boosting.LearningRate = 0 }},
		{"no leafwise rounds", func(c *Config) { c.Leafwise.NumIterations = 0 }},
		{"zero leafwise rate", func(c *Config) { c.Leafwise.LearningRate = 0 }},
		{"single leaf", func(c *Config) { c.Leafwise.NumLeaves = 1 }},
		{"zero epochs", func(c *Config) { c.Network.Epochs = 0 }},
		{"zero batch size", func(c *Config) { c.Network.BatchSize = 0 }},
		{"zero network rate", func(c *Config) { c.Network.LearningRate = 0 }},
		{"dropout of one", func(c *Config) { c.Network.DropoutRate = 1 }},
		{"validation split of one", func(c *Config) { c.Network.ValidationSplit = 1 }},
		{"single perturbation sample", func(c *Config) { c.Explain.NumSamples = 1 }},
		{"zero top features", func(c *Config) { c.Explain.TopK = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
