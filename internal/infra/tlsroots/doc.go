// Package tlsroots builds the TLS client configuration for the bridge
// connection.
//
//   - roots.go: system roots plus an optional private CA, and ClientConfig
//   - watcher.go: client certificate hot-reload via fsnotify
package tlsroots
