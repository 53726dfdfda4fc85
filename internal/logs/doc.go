// Package logs reads the JSON log file written alongside console output.
//
// Last returns the trailing lines with bounded memory, Follow streams appended
// lines using fsnotify, and MatchRunID narrows either to one capture attempt.
package logs
