// Package config defines the fergando-md configuration structure.
//
//   - spec.go: Config struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation
//   - sanitize.go: Masking of secrets for logs and "config show"
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// FERGANDO_ environment variables and command-line flags.
package config
