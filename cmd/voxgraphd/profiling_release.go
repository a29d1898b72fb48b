//go:build !debug
// +build !debug

package main

import "github.com/charmbracelet/log"

// maybeProfile is a no-op in release builds; pkg/performance.Profiler is
// only compiled under -tags debug, so --cpu-profile is accepted but
// ignored here, with a warning if the operator asked for it anyway.
func maybeProfile(path string, logger *log.Logger) func() {
	if path != "" {
		logger.Warn("--cpu-profile requires a -tags debug build, ignoring", "path", path)
	}
	return func() {}
}
