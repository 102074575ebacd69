package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/common"
)

var testEnvKeys = []string{
	common.EnvConfigFile, common.EnvTrainPath, common.EnvTestPath, common.EnvDataPath,
	common.EnvOutputPath, common.EnvThreshold, common.EnvROCSteps, common.EnvTrainRatio,
	common.EnvEpochs, common.EnvBatchSize, common.EnvLearningRate, common.EnvL2,
	common.EnvPatience, common.EnvClassWeights, common.EnvDashboardPort,
	common.EnvFetchTimeout, common.EnvLogLevel,
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, k := range testEnvKeys {
		t.Setenv(k, "")
	}
	t.Setenv(common.EnvDotEnvFile, filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, common.DefaultTrainPath, settings.TrainPath)
				assert.Equal(t, common.DefaultTestPath, settings.TestPath)
				assert.Equal(t, 0.35, settings.Threshold)
				assert.Equal(t, 100, settings.ROCSteps)
				assert.Equal(t, 0.8, settings.TrainRatio)
				assert.Equal(t, 40, settings.Epochs)
				assert.Equal(t, 64, settings.BatchSize)
				assert.True(t, settings.ClassWeights)
				assert.Equal(t, 30*time.Second, settings.FetchTimeout)
				assert.Equal(t, "info", settings.LogLevel)
			},
		},
		{
			name: "custom values",
			envVars: map[string]string{
				common.EnvTrainPath:     "https://example.com/train.csv",
				common.EnvThreshold:     "0.5",
				common.EnvEpochs:        "10",
				common.EnvClassWeights:  "false",
				common.EnvDashboardPort: "9090",
				common.EnvFetchTimeout:  "5s",
				common.EnvLogLevel:      "DEBUG",
			},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, "https://example.com/train.csv", settings.TrainPath)
				assert.Equal(t, 0.5, settings.Threshold)
				assert.Equal(t, 10, settings.Epochs)
				assert.False(t, settings.ClassWeights)
				assert.Equal(t, 9090, settings.DashboardPort)
				assert.Equal(t, 5*time.Second, settings.FetchTimeout)
				assert.Equal(t, "debug", settings.LogLevel)
			},
		},
		{
			name:    "unparseable value falls back to default",
			envVars: map[string]string{common.EnvEpochs: "many"},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, common.DefaultEpochs, settings.Epochs)
			},
		},
		{name: "threshold above one", envVars: map[string]string{common.EnvThreshold: "1.5"}, wantErr: true},
		{name: "negative threshold", envVars: map[string]string{common.EnvThreshold: "-0.1"}, wantErr: true},
		{name: "too few ROC steps", envVars: map[string]string{common.EnvROCSteps: "1"}, wantErr: true},
		{name: "train ratio too small", envVars: map[string]string{common.EnvTrainRatio: "0.2"}, wantErr: true},
		{name: "zero epochs", envVars: map[string]string{common.EnvEpochs: "0"}, wantErr: true},
		{name: "negative L2", envVars: map[string]string{common.EnvL2: "-1"}, wantErr: true},
		{name: "privileged port", envVars: map[string]string{common.EnvDashboardPort: "80"}, wantErr: true},
		{name: "short timeout", envVars: map[string]string{common.EnvFetchTimeout: "10ms"}, wantErr: true},
		{name: "unknown log level", envVars: map[string]string{common.EnvLogLevel: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
data:
  train: "in/train.csv"
  test: "in/test.csv"
  dataPath: "/var/lib/churn"
  output: "/tmp/out"
  fetchTimeout: "45s"

training:
  trainRatio: 0.75
  epochs: 20
  batchSize: 32
  learningRate: 0.01
  patience: 3
  classWeights: false

evaluation:
  threshold: 0.5
  rocSteps: 50

system:
  dashboardPort: 9000
  logLevel: "warn"
`,
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, "in/train.csv", settings.TrainPath)
				assert.Equal(t, "/var/lib/churn", settings.DataPath)
				assert.Equal(t, 45*time.Second, settings.FetchTimeout)
				assert.Equal(t, 0.75, settings.TrainRatio)
				assert.Equal(t, 20, settings.Epochs)
				assert.Equal(t, 32, settings.BatchSize)
				assert.False(t, settings.ClassWeights)
				assert.Equal(t, 0.5, settings.Threshold)
				assert.Equal(t, 50, settings.ROCSteps)
				assert.Equal(t, 9000, settings.DashboardPort)
				assert.Equal(t, "warn", settings.LogLevel)
			},
		},
		{
			name: "zero threshold is kept",
			yamlContent: `
evaluation:
  threshold: 0
`,
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, 0.0, settings.Threshold)
				assert.Equal(t, common.DefaultROCSteps, settings.ROCSteps)
			},
		},
		{
			name: "environment overrides YAML",
			yamlContent: `
training:
  epochs: 20
evaluation:
  threshold: 0.5
`,
			envOverrides: map[string]string{
				common.EnvEpochs:    "5",
				common.EnvThreshold: "0.2",
			},
			validate: func(t *testing.T, settings Settings) {
				assert.Equal(t, 5, settings.Epochs)
				assert.Equal(t, 0.2, settings.Threshold)
			},
		},
		{
			name:        "invalid YAML",
			yamlContent: "training: [unclosed",
			wantErr:     true,
		},
		{
			name: "invalid value",
			yamlContent: `
training:
  batchSize: -4
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)

			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yamlContent), 0o600))
			t.Setenv(common.EnvConfigFile, path)
			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			settings, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, settings)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearTestEnv(t)
	t.Setenv(common.EnvConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearTestEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("EPOCHS=7\n"), 0o600))
	t.Setenv(common.EnvDotEnvFile, envFile)
	// godotenv does not override variables that are already set, so unset it.
	require.NoError(t, os.Unsetenv(common.EnvEpochs))

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, settings.Epochs)
	require.NoError(t, os.Unsetenv(common.EnvEpochs))
}

func TestTrainConfig(t *testing.T) {
	s := Settings{Epochs: 3, BatchSize: 8, LearningRate: 0.05, L2: 0.1, Patience: 2, ClassWeights: false}
	tc := s.TrainConfig()

	assert.Equal(t, 3, tc.Epochs)
	assert.Equal(t, 8, tc.BatchSize)
	assert.Equal(t, 0.05, tc.LearningRate)
	assert.Equal(t, 0.1, tc.L2)
	assert.Equal(t, 2, tc.Patience)
	assert.False(t, tc.ClassWeights)
	assert.Positive(t, tc.MinDelta)
}
