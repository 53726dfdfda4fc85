package render

import "errors"

var (
	// ErrLaunch marks a browser that failed to start.
	ErrLaunch = errors.New("browser launch failed")
	// ErrLaunchTimeout marks a browser that did not become ready within the launch ceiling.
	ErrLaunchTimeout = errors.New("browser launch timed out")
	// ErrNavigation marks a navigation the browser reported as failed.
	ErrNavigation = errors.New("navigation failed")
	// ErrNavigationTimeout marks a page that did not reach network idle within the ceiling.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrDurationFieldTimeout marks a page that never exposed the duration field.
	ErrDurationFieldTimeout = errors.New("duration field did not appear")
	// ErrMalformedDuration marks a duration field whose value is not a base-10 integer.
	ErrMalformedDuration = errors.New("duration value is not an integer")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("render session closed")
)
