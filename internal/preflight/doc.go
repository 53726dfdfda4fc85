// Package preflight provides readiness checks for the programs, paths, and
// services a capture depends on.
//
// These checks run in two contexts:
//   - "signagerec doctor" runs RunAll and prints every result.
//   - "signagerec run" and "signagerec watch" call Blocking before arming so a
//     missing display or encoder fails fast instead of leaving a failed marker.
//
// The content check is network-bound and only runs when a Prober is supplied.
package preflight
