// Package preflight checks that the host environment can support
// indexing and watching before the engine touches anything.
//
// Checks cover write permissions, free disk space, descriptor headroom
// for the watcher, configuration validity, index artifacts on disk, and
// whether another process holds the watch lock. The doctor command runs
// them all:
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(target)
//	if checker.HasCriticalFailures(results) {
//		// refuse to proceed
//	}
package preflight
