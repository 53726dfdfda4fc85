// Package history journals capture attempts in SQLite.
//
// Only armed runs are worth keeping; skips are cheap and frequent under a
// timer and are not recorded by callers. The journal is pruned to a fixed
// number of rows on every insert.
package history
