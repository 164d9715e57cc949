// Package watch re-resolves samples when their directories change.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// maxDepth covers the root, sample directories and candidate directories.
const maxDepth = 2

// RefreshFunc is called with a sample name after changes beneath it settle.
type RefreshFunc func(ctx context.Context, sample string) error

// Watcher watches a data root and reports changed samples.
type Watcher struct {
	root      string
	refresh   RefreshFunc
	logger    *log.Logger
	debounce  time.Duration
	startedCh chan struct{}
}

// New returns a Watcher for root. Each changed sample is refreshed once no
// event for it has arrived for the debounce interval.
func New(root string, refresh RefreshFunc, logger *log.Logger, debounce time.Duration) *Watcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Watcher{
		root:      filepath.Clean(root),
		refresh:   refresh,
		logger:    logger,
		debounce:  debounce,
		startedCh: make(chan struct{}),
	}
}

// Started is closed once the initial watches are in place.
func (w *Watcher) Started() <-chan struct{} {
	return w.startedCh
}

// Run watches until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil {
			// Best-effort watcher close.
			_ = cerr
		}
	}()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	close(w.startedCh)
	w.logger.Info("watching data root", "root", w.root)

	// pending maps each changed sample to the time of its latest event.
	pending := map[string]time.Time{}
	var flush <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			sample, ok := SampleFor(w.root, ev.Name)
			if !ok {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.logger.Warn("failed to watch directory", "dir", ev.Name, "err", err)
					}
				}
			}
			w.logger.Debug("change detected", "sample", sample, "op", ev.Op.String())
			pending[sample] = time.Now()
			if flush == nil {
				flush = time.After(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		case now := <-flush:
			flush = nil
			due, next := dueSamples(pending, now, w.debounce)
			w.flush(ctx, due)
			if !next.IsZero() {
				flush = time.After(time.Until(next))
			}
		}
	}
}

// dueSamples removes from pending every sample whose latest event is at least
// debounce old at now. It returns those samples in name order and the
// earliest deadline among the samples still pending, or the zero time.
func dueSamples(pending map[string]time.Time, now time.Time, debounce time.Duration) ([]string, time.Time) {
	var due []string
	var next time.Time
	for sample, last := range pending {
		deadline := last.Add(debounce)
		if !deadline.After(now) {
			due = append(due, sample)
			delete(pending, sample)
			continue
		}
		if next.IsZero() || deadline.Before(next) {
			next = deadline
		}
	}
	sort.Strings(due)
	return due, next
}

func (w *Watcher) flush(ctx context.Context, samples []string) {
	for _, s := range samples {
		if err := w.refresh(ctx, s); err != nil {
			w.logger.Warn("failed to refresh sample", "sample", s, "err", err)
		}
	}
}

// addTree watches dir and its subdirectories down to maxDepth below the root.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	d := depth(w.root, dir)
	if d < 0 || d > maxDepth {
		return nil
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if d == maxDepth {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := w.addTree(fw, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// SampleFor maps a path beneath root to the sample directory it belongs to.
func SampleFor(root, path string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	first := strings.SplitN(rel, string(filepath.Separator), 2)[0]
	if strings.HasPrefix(first, ".") {
		return "", false
	}
	return first, true
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return -1
	}
	if rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
