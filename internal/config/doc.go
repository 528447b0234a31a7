// Package config loads, validates, and normalizes subflow's TOML
// configuration.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Recognition: the external speech-recognition batch tool
//   - Translator: translation endpoint connection and batching behavior
//   - Workflow: queue timing (enqueue delay, existence polling, terminate
//     grace periods)
//   - Logging: log format and level
//   - History: the SQLite job-history store
package config
