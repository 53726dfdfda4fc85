// Package main hosts the signagerec CLI.
//
// "run" performs one capture attempt and is meant to be invoked by an
// external scheduler (cron, a systemd timer). "watch" is a built-in scheduler
// that reacts to the start marker appearing. The remaining commands inspect
// state and readiness without touching the markers.
package main
