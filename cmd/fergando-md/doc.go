// Package main provides the entry point for fergando-md.
//
// fergando-md keeps one linked-device chat session alive, persists its
// credentials, and answers prefixed commands.
//
// Usage:
//
//	fergando-md [--config fergando.yaml] [run]
//	fergando-md status [--live]
//	fergando-md logout
//	fergando-md config show|validate
//	fergando-md version
package main
