package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// StateDir holds the run lock, resume marker, history database, and logs.
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Recognition configures the external speech-recognition batch tool.
type Recognition struct {
	Binary             string   `toml:"binary"`
	Model              string   `toml:"model"`
	Language           string   `toml:"language"`
	ExtraArgs          []string `toml:"extra_args"`
	IgnorableExitCodes []int    `toml:"ignorable_exit_codes"`
}

// Translator configures the translation subprocess and its endpoint.
type Translator struct {
	// Binary is the translation subprocess; empty means the current
	// executable invoked as "subflow translate <path>".
	Binary         string  `toml:"binary"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	BatchSize      int     `toml:"batch_size"`
	MaxTokensBatch int     `toml:"max_tokens_batch"`
	MaxTokensLine  int     `toml:"max_tokens_line"`
	RetryAttempts  int     `toml:"retry_attempts"`
	RetryBaseMS    int     `toml:"retry_base_ms"`
	SourceLanguage string  `toml:"source_language"`
	TargetLanguage string  `toml:"target_language"`
	OutputSuffix   string  `toml:"output_suffix"`
}

// Workflow contains pipeline timing configuration.
type Workflow struct {
	EnqueueDelayMS        int `toml:"enqueue_delay_ms"`
	WaitIntervalMS        int `toml:"wait_interval_ms"`
	WaitAttempts          int `toml:"wait_attempts"`
	LaunchTimeoutSeconds  int `toml:"launch_timeout_seconds"`
	TerminateGraceSeconds int `toml:"terminate_grace_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History configures the SQLite job-history store.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for subflow.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Recognition Recognition `toml:"recognition"`
	Translator  Translator  `toml:"translator"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
	History     History     `toml:"history"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("subflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.StateDir, &c.Paths.LogDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	if key := strings.TrimSpace(os.Getenv("SUBFLOW_API_KEY")); key != "" {
		c.Translator.APIKey = key
	}
	c.Translator.OutputSuffix = strings.Trim(strings.TrimSpace(c.Translator.OutputSuffix), ".")
	return nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the location of the job-history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "subflow.lock")
}

// ResumeMarkerPath returns the pending-video marker file location.
func (c *Config) ResumeMarkerPath() string {
	return filepath.Join(c.Paths.StateDir, "pending.list")
}

// LogPath returns the pipeline log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "subflow.log")
}

// EnqueueDelay is the pause between an inferred file completion and its
// translation enqueue.
func (c *Config) EnqueueDelay() time.Duration {
	return time.Duration(c.Workflow.EnqueueDelayMS) * time.Millisecond
}

// WaitInterval is the spacing between subtitle existence checks.
func (c *Config) WaitInterval() time.Duration {
	return time.Duration(c.Workflow.WaitIntervalMS) * time.Millisecond
}

// LaunchTimeout bounds how long a subprocess may take to enter a running state.
func (c *Config) LaunchTimeout() time.Duration {
	return time.Duration(c.Workflow.LaunchTimeoutSeconds) * time.Second
}

// TerminateGrace bounds each of the graceful-shutdown and kill waits.
func (c *Config) TerminateGrace() time.Duration {
	return time.Duration(c.Workflow.TerminateGraceSeconds) * time.Second
}

// RetryBase is the initial translation endpoint retry backoff.
func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.Translator.RetryBaseMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
