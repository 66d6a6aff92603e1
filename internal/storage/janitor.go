package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sncop/coursestore/internal/logger"
)

// Janitor periodically sweeps the temp scratch directory, removing spooled
// files that were never committed.
type Janitor struct {
	layout   *Layout
	interval time.Duration
	maxAge   time.Duration
}

// NewJanitor creates a janitor sweeping layout's temp directory every
// interval, removing files older than maxAge.
func NewJanitor(layout *Layout, interval, maxAge time.Duration) *Janitor {
	return &Janitor{layout: layout, interval: interval, maxAge: maxAge}
}

// Run sweeps on a ticker until ctx is canceled. An immediate sweep happens
// on startup to clear leftovers from a previous run.
func (j *Janitor) Run(ctx context.Context) {
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Temp janitor stopping")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep removes stale files from the temp directory. Errors are logged and
// skipped so one bad entry never blocks the rest of the sweep.
func (j *Janitor) Sweep() {
	dir := j.layout.TempDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Temp sweep failed to read %s: %v", dir, err)
		}
		return
	}

	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("Temp sweep failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("Temp sweep removed %d stale file(s)", removed)
	}
}
