/*
Package backup is the periodic file-history archiver.

At most once per BACKUP_INTERVAL the archiver copies the watched files
into a timestamped generation directory under the state root and
records what it captured in a YAML manifest:

	backups/
	  manifest.yaml
	  20260730-120000/
	    openclaw.json
	    agents.list

A filesystem watcher (fsnotify on the parent directories, so renames
are seen) marks paths dirty between passes; a pass with nothing dirty
writes nothing. When the watcher cannot be attached the archiver
degrades to archiving every pass unconditionally.

Generations are pruned oldest-first beyond BACKUP_RETENTION, and the
manifest is rewritten atomically to match. Each file record carries the
source path, a SHA-256 digest and the size, so "which generation still
has the good file" is answerable without opening archives.

This is a side task: it informs no restart decision, and its failures
are logged and retried on the next pass (failed paths stay dirty).

# Usage

	archiver := backup.New(backup.Options{
		Paths:     cfg.BackupPaths,
		Dir:       paths.BackupsDir(),
		Interval:  cfg.BackupInterval,
		Retention: cfg.BackupRetention,
	}, broker)
	archiver.Start()
	defer archiver.Stop()

	archiver.Tick(ctx) // called every supervisor tick; self rate-limited
*/
package backup
