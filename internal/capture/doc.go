// Package capture runs ffmpeg against the live X display for a fixed number of
// seconds.
//
// BuildArgs is pure so the argument list can be asserted without a display.
// Client.Record spawns the encoder, keeps the tail of its stderr, and returns
// a Result for any process that started: a non-zero exit code is reported, not
// raised. Only a spawn failure or cancellation of the caller's context is an
// error.
package capture
