// Package buildinfo exposes version information injected via ldflags:
//
//	go build -ldflags "-X github.com/Niro-Programe/Fergando-MD/internal/infra/buildinfo.Version=v1.0.0"
//
// When a value is not injected it falls back to the module build info
// recorded by the Go toolchain.
package buildinfo
