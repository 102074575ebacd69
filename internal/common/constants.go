package common

// Environment variable keys
const (
	EnvConfigFile    = "CONFIG_FILE"
	EnvDotEnvFile    = "DOTENV_FILE"
	EnvTrainPath     = "TRAIN_PATH"
	EnvTestPath      = "TEST_PATH"
	EnvDataPath      = "DATA_PATH"
	EnvOutputPath    = "OUTPUT_PATH"
	EnvThreshold     = "THRESHOLD"
	EnvROCSteps      = "ROC_STEPS"
	EnvTrainRatio    = "TRAIN_RATIO"
	EnvEpochs        = "EPOCHS"
	EnvBatchSize     = "BATCH_SIZE"
	EnvLearningRate  = "LEARNING_RATE"
	EnvL2            = "L2"
	EnvPatience      = "PATIENCE"
	EnvClassWeights  = "CLASS_WEIGHTS"
	EnvDashboardPort = "DASHBOARD_PORT"
	EnvFetchTimeout  = "FETCH_TIMEOUT"
	EnvLogLevel      = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultDotEnvFile    = ".env"
	DefaultTrainPath     = "data/train.csv"
	DefaultTestPath      = "data/test.csv"
	DefaultDataPath      = "data"
	DefaultOutputPath    = "out"
	DefaultThreshold     = 0.35
	DefaultROCSteps      = 100
	DefaultTrainRatio    = 0.8
	DefaultEpochs        = 40
	DefaultBatchSize     = 64
	DefaultLearningRate  = 0.001
	DefaultL2            = 0.0
	DefaultPatience      = 6
	DefaultClassWeights  = true
	DefaultDashboardPort = 8080
	DefaultLogLevel      = "info"
)

// Validation constants
const (
	MinROCSteps     = 2
	MaxROCSteps     = 10000
	MinTrainRatio   = 0.5
	MaxTrainRatio   = 0.95
	MaxEpochs       = 10000
	MaxBatchSize    = 1 << 16
	MaxLearningRate = 1.0
	MinPort         = 1024
	MaxPort         = 65535
)
