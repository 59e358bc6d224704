//go:build synctest

// Package testutil provides test utilities for stress testing and verification.
//
// This file provides production-safe sync point hooks that have minimal overhead
// when sync points are not enabled.
//
// Sync points are named locations in the code where tests can:
// - Inject delays
// - Inject errors
// - Force specific orderings of concurrent operations
// - Verify that code paths are executed
package testutil

// Common sync point names used throughout the codebase, following the
// convention "Component::Function:Location".
const (
	// Store lifecycle
	SPStoreOpen         = "Store::Open:Start"
	SPStoreOpenComplete = "Store::Open:Complete"
	SPStoreClose        = "Store::Close:Start"

	// Store write path
	SPStoreWrite         = "Store::Write:Start"
	SPStoreWriteLocked   = "Store::Write:Locked"
	SPStoreWriteWrap     = "Store::Write:Wrap"
	SPStoreWriteComplete = "Store::Write:Complete"

	// Store read path
	SPStoreRead         = "Store::Read:Start"
	SPStoreReadTailHit   = "Store::Read:TailCacheHit"
	SPStoreReadDiskSeek  = "Store::Read:DiskSeek"
	SPStoreReadComplete  = "Store::Read:Complete"

	// Wrap-aware search
	SPSearchSeek       = "Search::Seek:Start"
	SPSearchInterpolate = "Search::Seek:Interpolate"
	SPSearchBisect      = "Search::Seek:Bisect"
	SPSearchComplete    = "Search::Seek:Complete"
	SPSearchFindWrap    = "Search::FindWrap:Start"

	// Integrator / writer task
	SPWriterCollectStart    = "Writer::Collect:Start"
	SPWriterCollectAccum    = "Writer::Collect:Accumulate"
	SPWriterCollectComplete = "Writer::Collect:Complete"
	SPWriterCatchUp         = "Writer::CatchUp:Start"

	// Two-core cooperative scheduler
	SPSchedLoopIteration = "Sched::Loop:Iteration"
	SPSchedTaskRun       = "Sched::Task:Run"

	// Backup export
	SPBackupExportStart    = "Backup::Export:Start"
	SPBackupExportComplete = "Backup::Export:Complete"
)

// SyncPointEnabled controls whether sync points are processed.
// In production, this should be false for zero overhead.
// Tests set this to true and configure the global manager.
var SyncPointEnabled = false

// ProcessSyncPoint is the main entry point for sync point processing.
// It's designed to have minimal overhead when disabled.
//
// Usage in production code:
//
//	if testutil.SyncPointEnabled {
//	    testutil.ProcessSyncPoint("DBImpl::Write:Start")
//	}
//
// Or use the convenience function:
//
//	testutil.SP("DBImpl::Write:Start")
func ProcessSyncPoint(name string) error {
	if !SyncPointEnabled {
		return nil
	}
	return SyncPointProcess(name)
}

// SP is a convenience alias for ProcessSyncPoint.
// It's short to minimize code noise in production code.
func SP(name string) error {
	if !SyncPointEnabled {
		return nil
	}
	return SyncPointProcess(name)
}

// SPCallback processes a sync point with optional callback data.
func SPCallback(name string, data any) error {
	if !SyncPointEnabled {
		return nil
	}
	return SyncPointProcessWithData(name, data)
}

// EnableSyncPoints enables sync point processing globally.
// Call this at the start of tests that need sync points.
func EnableSyncPoints() *SyncPointManager {
	mgr := NewSyncPointManager()
	mgr.EnableProcessing()
	mgr.SetGlobal()
	SyncPointEnabled = true
	return mgr
}

// DisableSyncPoints disables sync point processing.
// Call this to restore normal operation after tests.
func DisableSyncPoints() {
	SyncPointEnabled = false
	ClearGlobal()
}
