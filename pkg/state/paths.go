package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// File names inside the state directory. The layout is part of the
// watchdog's public contract; external tooling greps these paths.
const (
	pidFileName      = "watchdog.pid"
	checksumFileName = "config-checksum"
	ticketFileName   = "rollback-armed.flag"
	stateDirName     = "state"
	snapshotsDirName = "snapshots"
	backupsDirName   = "backups"
	logFileName      = "watchdog.log"
)

// Paths resolves every persisted file and directory under a single
// state root
type Paths struct {
	Root string
}

// NewPaths returns the path layout rooted at root
func NewPaths(root string) Paths {
	return Paths{Root: root}
}

// Ensure creates the state root and its subdirectories
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Root, p.StateDir(), p.SnapshotsDir(), p.BackupsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("state: creating %s: %w", dir, err)
		}
	}
	return nil
}

// PidFile is the single-instance marker
func (p Paths) PidFile() string {
	return filepath.Join(p.Root, pidFileName)
}

// StateDir holds the checksum and ticket files
func (p Paths) StateDir() string {
	return filepath.Join(p.Root, stateDirName)
}

// ChecksumFile holds the hex SHA-256 of the current config
func (p Paths) ChecksumFile() string {
	return filepath.Join(p.StateDir(), checksumFileName)
}

// TicketFile is the durable rollback-armed ticket
func (p Paths) TicketFile() string {
	return filepath.Join(p.StateDir(), ticketFileName)
}

// SnapshotsDir holds config snapshots
func (p Paths) SnapshotsDir() string {
	return filepath.Join(p.Root, snapshotsDirName)
}

// BackupsDir holds archiver generations
func (p Paths) BackupsDir() string {
	return filepath.Join(p.Root, backupsDirName)
}

// LogFile is the supervisor's own rotated log
func (p Paths) LogFile() string {
	return filepath.Join(p.Root, logFileName)
}
