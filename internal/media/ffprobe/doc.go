// Package ffprobe inspects captured videos with ffprobe.
//
// Inspect runs ffprobe and decodes its JSON report. Verifier compares the
// container duration of a finished capture against the length the content
// source asked for, so drift can be logged and journaled. Verification never
// changes the outcome of a capture.
package ffprobe
