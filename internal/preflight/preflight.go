package preflight

import (
	"context"
	"strings"

	"signagerec/internal/config"
	"signagerec/internal/contentprobe"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional failures are reported but never block a run.
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for cfg. prober may be nil to skip
// the content source check.
func RunAll(ctx context.Context, cfg *config.Config, prober *contentprobe.Prober) []Result {
	if cfg == nil {
		return nil
	}

	results := Local(cfg)
	if prober != nil && strings.TrimSpace(cfg.Content.URL) != "" {
		results = append(results, CheckContent(ctx, prober, cfg.Content.URL))
	}
	return results
}

// Local runs the checks that need no network access.
func Local(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckDisplay("X display", cfg.Display.ID, DefaultSocketDir))
	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	return results
}

// Blocking returns the failed, non-optional results.
func Blocking(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
