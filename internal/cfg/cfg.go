package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"churnlab/internal/common"
	"churnlab/internal/ml"
)

type Settings struct {
	TrainPath     string
	TestPath      string
	DataPath      string
	OutputPath    string
	Threshold     float64
	ROCSteps      int
	TrainRatio    float64
	Epochs        int
	BatchSize     int
	LearningRate  float64
	L2            float64
	Patience      int
	ClassWeights  bool
	DashboardPort int
	FetchTimeout  time.Duration
	LogLevel      string
}

type ConfigFile struct {
	Data struct {
		Train    string `yaml:"train"`
		Test     string `yaml:"test"`
		DataPath string `yaml:"dataPath"`
		Output   string `yaml:"output"`
		Timeout  string `yaml:"fetchTimeout"`
	} `yaml:"data"`

	Training struct {
		TrainRatio   float64 `yaml:"trainRatio"`
		Epochs       int     `yaml:"epochs"`
		BatchSize    int     `yaml:"batchSize"`
		LearningRate float64 `yaml:"learningRate"`
		L2           float64 `yaml:"l2"`
		Patience     int     `yaml:"patience"`
		ClassWeights *bool   `yaml:"classWeights"`
	} `yaml:"training"`

	Evaluation struct {
		Threshold *float64 `yaml:"threshold"`
		ROCSteps  int      `yaml:"rocSteps"`
	} `yaml:"evaluation"`

	System struct {
		DashboardPort int    `yaml:"dashboardPort"`
		LogLevel      string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads the optional .env file, then the YAML file named by CONFIG_FILE
// if set, and finally applies environment overrides.
func Load() (Settings, error) {
	if err := loadDotEnv(getEnvOrDefault(common.EnvDotEnvFile, common.DefaultDotEnvFile)); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

// loadDotEnv sets variables from path without overriding the environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout, err := time.ParseDuration(config.Data.Timeout)
	if err != nil {
		timeout = 30 * time.Second
	}
	threshold := common.DefaultThreshold
	if config.Evaluation.Threshold != nil {
		threshold = *config.Evaluation.Threshold
	}
	classWeights := common.DefaultClassWeights
	if config.Training.ClassWeights != nil {
		classWeights = *config.Training.ClassWeights
	}

	settings := Settings{
		TrainPath:     getEnvOrDefault(common.EnvTrainPath, orString(config.Data.Train, common.DefaultTrainPath)),
		TestPath:      getEnvOrDefault(common.EnvTestPath, orString(config.Data.Test, common.DefaultTestPath)),
		DataPath:      getEnvOrDefault(common.EnvDataPath, orString(config.Data.DataPath, common.DefaultDataPath)),
		OutputPath:    getEnvOrDefault(common.EnvOutputPath, orString(config.Data.Output, common.DefaultOutputPath)),
		Threshold:     getFloatOrDefault(common.EnvThreshold, threshold),
		ROCSteps:      getIntFromEnvOrConfig(common.EnvROCSteps, config.Evaluation.ROCSteps, common.DefaultROCSteps),
		TrainRatio:    getFloatFromEnvOrConfig(common.EnvTrainRatio, config.Training.TrainRatio, common.DefaultTrainRatio),
		Epochs:        getIntFromEnvOrConfig(common.EnvEpochs, config.Training.Epochs, common.DefaultEpochs),
		BatchSize:     getIntFromEnvOrConfig(common.EnvBatchSize, config.Training.BatchSize, common.DefaultBatchSize),
		LearningRate:  getFloatFromEnvOrConfig(common.EnvLearningRate, config.Training.LearningRate, common.DefaultLearningRate),
		L2:            getFloatFromEnvOrConfig(common.EnvL2, config.Training.L2, common.DefaultL2),
		Patience:      getIntFromEnvOrConfig(common.EnvPatience, config.Training.Patience, common.DefaultPatience),
		ClassWeights:  getBoolOrDefault(common.EnvClassWeights, classWeights),
		DashboardPort: getIntFromEnvOrConfig(common.EnvDashboardPort, config.System.DashboardPort, common.DefaultDashboardPort),
		FetchTimeout:  getDurationOrDefault(common.EnvFetchTimeout, timeout),
		LogLevel:      getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		TrainPath:     getEnvOrDefault(common.EnvTrainPath, common.DefaultTrainPath),
		TestPath:      getEnvOrDefault(common.EnvTestPath, common.DefaultTestPath),
		DataPath:      getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		OutputPath:    getEnvOrDefault(common.EnvOutputPath, common.DefaultOutputPath),
		Threshold:     getFloatOrDefault(common.EnvThreshold, common.DefaultThreshold),
		ROCSteps:      getIntOrDefault(common.EnvROCSteps, common.DefaultROCSteps),
		TrainRatio:    getFloatOrDefault(common.EnvTrainRatio, common.DefaultTrainRatio),
		Epochs:        getIntOrDefault(common.EnvEpochs, common.DefaultEpochs),
		BatchSize:     getIntOrDefault(common.EnvBatchSize, common.DefaultBatchSize),
		LearningRate:  getFloatOrDefault(common.EnvLearningRate, common.DefaultLearningRate),
		L2:            getFloatOrDefault(common.EnvL2, common.DefaultL2),
		Patience:      getIntOrDefault(common.EnvPatience, common.DefaultPatience),
		ClassWeights:  getBoolOrDefault(common.EnvClassWeights, common.DefaultClassWeights),
		DashboardPort: getIntOrDefault(common.EnvDashboardPort, common.DefaultDashboardPort),
		FetchTimeout:  getDurationOrDefault(common.EnvFetchTimeout, 30*time.Second),
		LogLevel:      getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// TrainConfig returns the trainer settings.
func (s *Settings) TrainConfig() ml.TrainConfig {
	tc := ml.DefaultTrainConfig()
	tc.Epochs = s.Epochs
	tc.BatchSize = s.BatchSize
	tc.LearningRate = s.LearningRate
	tc.L2 = s.L2
	tc.Patience = s.Patience
	tc.ClassWeights = s.ClassWeights
	return tc
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// validateSettings checks every value against its allowed range.
func validateSettings(settings *Settings) error {
	if settings.TrainPath == "" {
		return fmt.Errorf("train path cannot be empty")
	}
	if settings.TestPath == "" {
		return fmt.Errorf("test path cannot be empty")
	}
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}

	if settings.Threshold < 0 || settings.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", settings.Threshold)
	}
	if settings.ROCSteps < common.MinROCSteps || settings.ROCSteps > common.MaxROCSteps {
		return fmt.Errorf("ROC steps must be between %d and %d, got %d", common.MinROCSteps, common.MaxROCSteps, settings.ROCSteps)
	}
	if settings.TrainRatio < common.MinTrainRatio || settings.TrainRatio > common.MaxTrainRatio {
		return fmt.Errorf("train ratio must be between %.2f and %.2f, got %f", common.MinTrainRatio, common.MaxTrainRatio, settings.TrainRatio)
	}

	if settings.Epochs <= 0 || settings.Epochs > common.MaxEpochs {
		return fmt.Errorf("epochs must be between 1 and %d, got %d", common.MaxEpochs, settings.Epochs)
	}
	if settings.BatchSize <= 0 || settings.BatchSize > common.MaxBatchSize {
		return fmt.Errorf("batch size must be between 1 and %d, got %d", common.MaxBatchSize, settings.BatchSize)
	}
	if settings.LearningRate <= 0 || settings.LearningRate > common.MaxLearningRate {
		return fmt.Errorf("learning rate must be between 0 and %.1f, got %f", common.MaxLearningRate, settings.LearningRate)
	}
	if settings.L2 < 0 {
		return fmt.Errorf("L2 penalty cannot be negative, got %f", settings.L2)
	}
	if settings.Patience < 0 {
		return fmt.Errorf("patience cannot be negative, got %d", settings.Patience)
	}

	if settings.DashboardPort < common.MinPort || settings.DashboardPort > common.MaxPort {
		return fmt.Errorf("dashboard port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.DashboardPort)
	}
	if settings.FetchTimeout < time.Second || settings.FetchTimeout > 10*time.Minute {
		return fmt.Errorf("fetch timeout must be between 1s and 10m, got %v", settings.FetchTimeout)
	}

	level := strings.ToLower(settings.LogLevel)
	for _, l := range validLogLevels {
		if level == l {
			settings.LogLevel = level
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q", settings.LogLevel)
}
