//go:build debug
// +build debug

package main

import (
	"github.com/charmbracelet/log"

	"github.com/vosim/voxgraph/pkg/performance"
)

// maybeProfile starts a CPU profile at path when non-empty, returning a
// stop function that must be called before the process exits. Only
// compiled into -tags debug builds; see profiling_release.go for the
// default no-op.
func maybeProfile(path string, logger *log.Logger) func() {
	if path == "" {
		return func() {}
	}
	p := performance.NewProfiler()
	if err := p.StartCPUProfile(path); err != nil {
		logger.Error("failed to start cpu profile", "path", path, "err", err)
		return func() {}
	}
	return func() {
		if err := p.StopCPUProfile(); err != nil {
			logger.Error("failed to stop cpu profile", "err", err)
		}
	}
}
