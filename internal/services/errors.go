package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLaunch marks a process that failed to enter a running state.
	ErrLaunch = errors.New("launch error")
	// ErrExternalTool marks an external process that crashed after starting.
	ErrExternalTool = errors.New("external tool error")
	// ErrEndpoint marks a translation endpoint call that exhausted retries.
	ErrEndpoint = errors.New("endpoint error")
	// ErrValidation marks structurally invalid data.
	ErrValidation = errors.New("validation error")
	// ErrMissingOutput marks a subtitle file that never appeared on disk.
	ErrMissingOutput = errors.New("missing output file")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification via errors.Is.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
