// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults (the target struct as passed in)
//  2. YAML configuration file
//  3. Environment variables (FERGANDO_ prefix, "__" between sections)
//  4. Explicit maps, used for command-line flags
//
// Watcher reports changes to the configuration file so that reloadable
// settings (the log level) can be applied without a restart.
package confloader
