package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate reports configuration values that cannot work at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return fmt.Errorf("paths.state_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	if strings.TrimSpace(c.Recognition.Binary) == "" {
		return fmt.Errorf("recognition.binary is required")
	}
	if base := strings.TrimSpace(c.Translator.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("translator.base_url %q is not an absolute URL", base)
		}
	} else {
		return fmt.Errorf("translator.base_url is required")
	}
	if c.Translator.Temperature < 0 || c.Translator.Temperature > 2 {
		return fmt.Errorf("translator.temperature must be within [0, 2], got %v", c.Translator.Temperature)
	}
	if c.Translator.BatchSize <= 0 {
		return fmt.Errorf("translator.batch_size must be positive, got %d", c.Translator.BatchSize)
	}
	if c.Translator.MaxTokensBatch <= 0 || c.Translator.MaxTokensLine <= 0 {
		return fmt.Errorf("translator token budgets must be positive")
	}
	if c.Translator.RetryAttempts <= 0 {
		return fmt.Errorf("translator.retry_attempts must be positive, got %d", c.Translator.RetryAttempts)
	}
	if c.Workflow.WaitAttempts <= 0 {
		return fmt.Errorf("workflow.wait_attempts must be positive, got %d", c.Workflow.WaitAttempts)
	}
	if c.Workflow.WaitIntervalMS < 0 || c.Workflow.EnqueueDelayMS < 0 {
		return fmt.Errorf("workflow intervals must not be negative")
	}
	if c.Workflow.LaunchTimeoutSeconds <= 0 || c.Workflow.TerminateGraceSeconds <= 0 {
		return fmt.Errorf("workflow launch/terminate timeouts must be positive")
	}
	return nil
}
