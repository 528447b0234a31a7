// Package services defines the shared error taxonomy used by the pipeline
// stages and external integrations.
//
// Failures are tagged with sentinel markers so callers can classify them with
// errors.Is without string matching: launch failures, external tool crashes,
// translation endpoint exhaustion, validation problems, and subtitle files
// that never materialized. Wrap builds consistent stage-prefixed messages
// around those markers.
package services
