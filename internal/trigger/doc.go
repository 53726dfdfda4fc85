// Package trigger owns the marker files that coordinate signagerec with the
// external scheduler and downstream consumers.
//
// Presence is the signal: the start marker requests a capture, the busy marker
// is the cross-process mutex, the done marker announces a finished video and
// the failed marker records why the last armed run gave up. FileStore creates
// the busy marker with O_EXCL and guards the check-then-create arming section
// with an advisory lock so concurrent invocations cannot both win.
package trigger
