/*
Package state owns the watchdog's durable on-disk state directory.

Everything the supervisor must remember across its own crashes lives
under a single root:

	watchdog.pid                 decimal pid (single-instance marker)
	state/config-checksum        hex SHA-256 of the current config
	state/rollback-armed.flag    line1: deadline epoch; line2: snapshot path
	snapshots/                   config snapshots, newest-first retention
	backups/                     archiver generations
	watchdog.log                 supervisor's own rotated log

# Crash Safety

Every state write goes through WriteFileAtomic: temp file in the same
directory, fsync, rename. A crash mid-write leaves either the old file
or the new one, never a truncated hybrid. This is what makes the
rollback ticket trustworthy: a safety net that cannot survive the
supervisor's own death is not a safety net.

# Single Instance

AcquirePidFile enforces at most one supervisor per host. A recorded pid
is probed with signal 0; a dead owner's file is treated as stale and
replaced, a live owner's file fails the acquire with ErrAlreadyRunning.

# Usage

	paths := state.NewPaths(cfg.StateDir)
	if err := paths.Ensure(); err != nil { ... }
	if err := state.AcquirePidFile(paths.PidFile()); err != nil { ... }
	defer state.ReleasePidFile(paths.PidFile())

# Integration Points

  - pkg/safeguard: checksum file, ticket file, snapshot directory
  - pkg/backup: backup generations directory
  - pkg/supervisor: pid file lifecycle
  - cmd/watchdog: status/stop read the pid file; confirm/rollback and
    snapshot operate on the same layout from a second process
*/
package state
