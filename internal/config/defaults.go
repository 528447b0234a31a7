package config

const (
	defaultStateDir              = "~/.local/share/subflow"
	defaultLogDir                = "~/.local/share/subflow/logs"
	defaultRecognitionBinary     = "faster-whisper-batch"
	defaultRecognitionModel      = "large-v3"
	defaultRecognitionLanguage   = "ja"
	defaultTranslatorBaseURL     = "http://localhost:1234"
	defaultTranslatorTemperature = 0.2
	defaultTranslatorTimeout     = 300
	defaultBatchSize             = 20
	defaultMaxTokensBatch        = 1024
	defaultMaxTokensLine         = 256
	defaultRetryAttempts         = 3
	defaultRetryBaseMS           = 600
	defaultSourceLanguage        = "ja"
	defaultTargetLanguage        = "zh-Hans"
	defaultOutputSuffix          = "chs"
	defaultEnqueueDelayMS        = 3000
	defaultWaitIntervalMS        = 1000
	defaultWaitAttempts          = 10
	defaultLaunchTimeoutSeconds  = 5
	defaultTerminateGraceSeconds = 3
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// IgnorableRecognitionExitCode is the crash code the recognition tool emits
// on some GPU stacks after all files have already been transcribed.
const IgnorableRecognitionExitCode = -1073740791

// Default returns a configuration populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Recognition: Recognition{
			Binary:             defaultRecognitionBinary,
			Model:              defaultRecognitionModel,
			Language:           defaultRecognitionLanguage,
			IgnorableExitCodes: []int{IgnorableRecognitionExitCode},
		},
		Translator: Translator{
			BaseURL:        defaultTranslatorBaseURL,
			Temperature:    defaultTranslatorTemperature,
			TimeoutSeconds: defaultTranslatorTimeout,
			BatchSize:      defaultBatchSize,
			MaxTokensBatch: defaultMaxTokensBatch,
			MaxTokensLine:  defaultMaxTokensLine,
			RetryAttempts:  defaultRetryAttempts,
			RetryBaseMS:    defaultRetryBaseMS,
			SourceLanguage: defaultSourceLanguage,
			TargetLanguage: defaultTargetLanguage,
			OutputSuffix:   defaultOutputSuffix,
		},
		Workflow: Workflow{
			EnqueueDelayMS:        defaultEnqueueDelayMS,
			WaitIntervalMS:        defaultWaitIntervalMS,
			WaitAttempts:          defaultWaitAttempts,
			LaunchTimeoutSeconds:  defaultLaunchTimeoutSeconds,
			TerminateGraceSeconds: defaultTerminateGraceSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
