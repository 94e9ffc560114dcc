// Package probe runs a concurrent workload against one database handle that is shared
// through sharedptr: every worker owns a clone of the handle, a monitor observes it through a
// weak handle, and the database is closed by whichever owner lets go last.
package probe
