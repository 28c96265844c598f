// Package config loads reabridge configuration.
//
// Configuration comes from, lowest precedence first:
//
//   - built-in defaults (Default)
//   - a TOML or YAML file, picked by extension
//   - REABRIDGE_* environment variables (ApplyEnv)
//
// A missing file is not an error. Unknown keys are.
package config
