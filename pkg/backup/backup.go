package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/events"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/log"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
)

const generationStamp = "20060102-150405"

// Options configures an Archiver
type Options struct {
	// Paths are the files to archive
	Paths []string

	// Dir is the versioned store root
	Dir string

	// Interval is the minimum spacing between archive passes
	Interval time.Duration

	// Retention caps the number of kept generations
	Retention int
}

// Archiver is the rate-limited file-history side task: it copies
// watched files into a timestamped generation directory and keeps a
// manifest of what was captured when. An fsnotify watcher marks paths
// dirty so unchanged passes write nothing.
type Archiver struct {
	opts    Options
	broker  *events.Broker
	logger  zerolog.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	dirty    map[string]bool
	watching bool
	watcher  *fsnotify.Watcher

	now func() time.Time
}

// New creates an archiver. Every configured path starts dirty so the
// first pass captures a full baseline.
func New(opts Options, broker *events.Broker) *Archiver {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	if opts.Retention <= 0 {
		opts.Retention = 24
	}

	dirty := make(map[string]bool, len(opts.Paths))
	for _, p := range opts.Paths {
		dirty[p] = true
	}

	return &Archiver{
		opts:    opts,
		broker:  broker,
		logger:  log.WithComponent("backup"),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		dirty:   dirty,
		now:     time.Now,
	}
}

// Start attaches the filesystem watcher. Failure to watch is not
// fatal: without a watcher every pass treats all paths as dirty.
func (a *Archiver) Start() {
	if len(a.opts.Paths) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Filesystem watcher unavailable, archiving unconditionally")
		return
	}

	// Watch parent directories: editors and atomic writers replace
	// files by rename, which a per-file watch would lose.
	dirs := make(map[string]bool)
	for _, p := range a.opts.Paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			a.logger.Warn().Err(err).Str("dir", dir).Msg("Cannot watch directory")
		}
	}

	a.mu.Lock()
	a.watcher = watcher
	a.watching = true
	a.mu.Unlock()

	go a.watchLoop(watcher)
}

// Stop detaches the filesystem watcher
func (a *Archiver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
		a.watching = false
	}
}

func (a *Archiver) watchLoop(watcher *fsnotify.Watcher) {
	targets := make(map[string]bool, len(a.opts.Paths))
	for _, p := range a.opts.Paths {
		targets[filepath.Clean(p)] = true
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if targets[filepath.Clean(event.Name)] {
				a.mu.Lock()
				a.dirty[filepath.Clean(event.Name)] = true
				a.mu.Unlock()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			a.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// Tick runs one archive pass when the rate limit allows and anything
// is dirty. Reports whether a pass ran and completed without error; a
// pass in which every dirty file is missing writes no generation and
// still reports true.
func (a *Archiver) Tick(ctx context.Context) bool {
	if len(a.opts.Paths) == 0 {
		return false
	}
	if !a.limiter.Allow() {
		return false
	}

	paths := a.takeDirty()
	if len(paths) == 0 {
		return false
	}

	if err := a.archive(paths); err != nil {
		a.logger.Error().Err(err).Msg("Archive pass failed")
		// failed paths stay dirty for the next pass
		a.mu.Lock()
		for _, p := range paths {
			a.dirty[p] = true
		}
		a.mu.Unlock()
		return false
	}
	return true
}

// takeDirty drains the dirty set. Without a live watcher every
// configured path counts as dirty.
func (a *Archiver) takeDirty() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.watching {
		return append([]string(nil), a.opts.Paths...)
	}
	var out []string
	for _, p := range a.opts.Paths {
		if a.dirty[filepath.Clean(p)] || a.dirty[p] {
			out = append(out, p)
		}
	}
	a.dirty = make(map[string]bool)
	return out
}

// archive writes one generation directory and updates the manifest
func (a *Archiver) archive(paths []string) error {
	now := a.now()
	stamp := now.Format(generationStamp)
	genDir := filepath.Join(a.opts.Dir, stamp)
	if err := os.MkdirAll(genDir, 0755); err != nil {
		return fmt.Errorf("backup: creating generation dir: %w", err)
	}

	gen := Generation{Stamp: stamp, TakenAt: now}
	for _, src := range paths {
		if _, err := os.Stat(src); err != nil {
			a.logger.Warn().Str("path", src).Msg("Watched file missing, skipping")
			continue
		}
		dst := filepath.Join(genDir, filepath.Base(src))
		if err := state.CopyFile(src, dst); err != nil {
			return err
		}
		sum, err := state.SHA256File(dst)
		if err != nil {
			return err
		}
		info, err := os.Stat(dst)
		if err != nil {
			return fmt.Errorf("backup: stat %s: %w", dst, err)
		}
		gen.Files = append(gen.Files, FileRecord{
			Source:    src,
			SHA256:    sum,
			SizeBytes: info.Size(),
		})
	}

	if len(gen.Files) == 0 {
		// nothing captured: drop the empty directory again
		os.Remove(genDir)
		return nil
	}

	if err := a.appendGeneration(gen); err != nil {
		return err
	}
	if err := a.prune(); err != nil {
		a.logger.Warn().Err(err).Msg("Pruning old generations failed")
	}

	a.logger.Info().
		Str("generation", stamp).
		Int("files", len(gen.Files)).
		Msg("Backup generation written")
	a.broker.Emit(events.EventBackupArchived, "backup generation written", map[string]string{
		"generation": stamp,
		"files":      fmt.Sprintf("%d", len(gen.Files)),
	})
	return nil
}

// prune deletes generation directories beyond retention, oldest first,
// and rewrites the manifest to match
func (a *Archiver) prune() error {
	m, err := loadManifest(a.manifestPath())
	if err != nil {
		return err
	}
	if len(m.Generations) <= a.opts.Retention {
		return nil
	}

	sort.Slice(m.Generations, func(i, j int) bool {
		return m.Generations[i].TakenAt.After(m.Generations[j].TakenAt)
	})
	for _, gen := range m.Generations[a.opts.Retention:] {
		if err := os.RemoveAll(filepath.Join(a.opts.Dir, gen.Stamp)); err != nil {
			return fmt.Errorf("backup: removing generation %s: %w", gen.Stamp, err)
		}
	}
	m.Generations = m.Generations[:a.opts.Retention]
	return saveManifest(a.manifestPath(), m)
}

func (a *Archiver) appendGeneration(gen Generation) error {
	m, err := loadManifest(a.manifestPath())
	if err != nil {
		return err
	}
	m.Generations = append(m.Generations, gen)
	sort.Slice(m.Generations, func(i, j int) bool {
		return m.Generations[i].TakenAt.After(m.Generations[j].TakenAt)
	})
	return saveManifest(a.manifestPath(), m)
}

func (a *Archiver) manifestPath() string {
	return filepath.Join(a.opts.Dir, "manifest.yaml")
}

// Status summarizes the archiver for the status command
type Status struct {
	Configured  bool
	Generations int
	LastRun     time.Time
	LastFiles   int
}

// Status reads the manifest
func (a *Archiver) Status() (Status, error) {
	st := Status{Configured: len(a.opts.Paths) > 0}
	if !st.Configured {
		return st, nil
	}
	m, err := loadManifest(a.manifestPath())
	if err != nil {
		return st, err
	}
	st.Generations = len(m.Generations)
	if len(m.Generations) > 0 {
		st.LastRun = m.Generations[0].TakenAt
		st.LastFiles = len(m.Generations[0].Files)
	}
	return st, nil
}
