// Package orchestrator runs one capture attempt end to end.
//
// RunOnce is the only entry point and contains no loop; cadence belongs to
// whatever scheduler invokes it. A run moves through
//
//	Idle -> Armed -> BusyRendering -> BusyCapturing -> Finalizing -> Idle
//
// and exits early to Idle when no capture was requested or another one holds
// the busy marker. Once the busy marker is created it is released on every
// exit path, including failures and panics. Terminal steps are attempted
// independently and their outcomes are collected into the Report.
package orchestrator
