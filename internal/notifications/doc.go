// Package notifications delivers capture outcomes to ntfy.
//
// NewService returns a no-op when no topic is configured, so callers can
// notify unconditionally. Failed captures are always sent at high priority;
// completed captures only when on_success is set.
package notifications
