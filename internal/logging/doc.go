// Package logging assembles structured slog loggers and formatting helpers used
// across signagerec.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestrator code can tag
// every line of one capture attempt with its run ID. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing guarantees.
package logging
