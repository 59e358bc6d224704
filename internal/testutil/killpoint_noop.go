//go:build !crashtest

// Package testutil provides test utilities for stress testing and verification.
//
// This file provides no-op implementations of kill point functions for
// production builds. When built without the "crashtest" tag, all kill point
// calls are effectively eliminated by the compiler.
package testutil

// KillPointEnvVar is the environment variable used to set the kill point target.
// In production builds, this is defined but ignored.
const KillPointEnvVar = "DATALOG_KILL_POINT"

// SetKillPoint is a no-op in production builds.
func SetKillPoint(_ string) {}

// ClearKillPoint is a no-op in production builds.
func ClearKillPoint() {}

// ArmKillPoint is a no-op in production builds.
func ArmKillPoint() {}

// DisarmKillPoint is a no-op in production builds.
func DisarmKillPoint() {}

// IsKillPointArmed always returns false in production builds.
func IsKillPointArmed() bool { return false }

// GetKillPointTarget always returns empty string in production builds.
func GetKillPointTarget() string { return "" }

// GetKillPointHitCount always returns 0 in production builds.
func GetKillPointHitCount(_ string) int64 { return 0 }

// ResetKillPointCounts is a no-op in production builds.
func ResetKillPointCounts() {}

// MaybeKill is a no-op in production builds.
// The compiler should inline and eliminate this entirely.
func MaybeKill(_ string) {}

// Kill point name constants - defined for API compatibility even in prod builds.
const (
	KPStoreWrite0 = "Store.Write:0"
	KPStoreWrite1 = "Store.Write:1"

	KPStoreWrap0 = "Store.Wrap:0"
	KPStoreWrap1 = "Store.Wrap:1"

	KPStoreSync0 = "Store.Sync:0"
	KPStoreSync1 = "Store.Sync:1"

	KPWriterCollect0 = "Writer.Collect:0"
	KPWriterCollect1 = "Writer.Collect:1"

	KPBackupExport0 = "Backup.Export:0"
	KPBackupExport1 = "Backup.Export:1"

	KPFileSync0 = "File.Sync:0"
	KPFileSync1 = "File.Sync:1"
)
