// Package catalog discovers samples under the data root and keeps the
// catalog store in sync with them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/samplecat/internal/meta"
	"github.com/verte-zerg/samplecat/internal/model"
	"github.com/verte-zerg/samplecat/internal/resolver"
	"github.com/verte-zerg/samplecat/internal/store"
)

const defaultWorkers = 4

// Catalog resolves samples and records them in a store.
type Catalog struct {
	resolver *resolver.Resolver
	store    *store.Store
	logger   *log.Logger
	workers  int
	now      func() time.Time
}

// New returns a Catalog. workers bounds concurrent resolutions during a scan;
// values below one use a default.
func New(r *resolver.Resolver, st *store.Store, logger *log.Logger, workers int) *Catalog {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Catalog{
		resolver: r,
		store:    st,
		logger:   logger,
		workers:  workers,
		now:      time.Now,
	}
}

// DiscoverSamples lists the sample names under root: immediate child
// directories that hold a metadata file, in name order.
func DiscoverSamples(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data root: %w", err)
	}
	var names []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(path, meta.FileName)); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

type scanResult struct {
	sample model.Sample
	err    error
}

// Scan resolves every discovered sample and upserts the ones that resolve.
// Samples that fail to resolve, or whose name is already cataloged from
// another directory, are collected in the summary and left out of the
// catalog. Other store failures abort.
func (c *Catalog) Scan(ctx context.Context, periods []string) (model.ScanSummary, error) {
	names, err := DiscoverSamples(c.resolver.Root())
	if err != nil {
		return model.ScanSummary{}, err
	}
	summary := model.ScanSummary{
		ScanID:   uuid.NewString(),
		Failures: map[string]error{},
	}
	c.logger.Info("scanning samples", "root", c.resolver.Root(), "count", len(names), "scan", summary.ScanID)

	results := make([]scanResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sample, err := c.resolver.Resolve(name, resolver.Options{Periods: periods})
			results[i] = scanResult{sample: sample, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	resolvedAt := c.now()
	for i, name := range names {
		res := results[i]
		if res.err != nil {
			if err := c.drop(ctx, name); err != nil {
				return summary, err
			}
			summary.Failed++
			summary.Failures[name] = res.err
			continue
		}
		entry := model.CatalogEntry{
			Sample:     res.sample,
			Base:       name,
			Periods:    appliedPeriods(res.sample, periods),
			ScanID:     summary.ScanID,
			ResolvedAt: resolvedAt,
		}
		if err := c.store.UpsertSample(ctx, entry); err != nil {
			if errors.Is(err, store.ErrNameConflict) {
				c.logger.Warn("sample name already cataloged", "sample", res.sample.Name, "dir", name)
				summary.Failed++
				summary.Failures[name] = err
				continue
			}
			return summary, fmt.Errorf("failed to store %s: %w", res.sample.Name, err)
		}
		summary.Resolved++
	}
	c.logger.Info("scan finished", "resolved", summary.Resolved, "failed", summary.Failed)
	return summary, nil
}

// Refresh re-resolves one sample directory. A sample that no longer
// resolves is dropped from the catalog; a vanished directory is not an error.
func (c *Catalog) Refresh(ctx context.Context, base string, periods []string) error {
	sample, err := c.resolver.Resolve(base, resolver.Options{Periods: periods})
	if err != nil {
		if derr := c.drop(ctx, base); derr != nil {
			return derr
		}
		if errors.Is(err, resolver.ErrSampleNotFound) {
			return nil
		}
		return err
	}
	entry := model.CatalogEntry{
		Sample:     sample,
		Base:       base,
		Periods:    appliedPeriods(sample, periods),
		ScanID:     uuid.NewString(),
		ResolvedAt: c.now(),
	}
	if err := c.store.UpsertSample(ctx, entry); err != nil {
		return fmt.Errorf("failed to store %s: %w", sample.Name, err)
	}
	c.logger.Info("refreshed sample", "sample", sample.Name, "files", len(sample.Files))
	return nil
}

// drop removes every entry resolved from base.
func (c *Catalog) drop(ctx context.Context, base string) error {
	n, err := c.store.DeleteByBase(ctx, base)
	if err != nil {
		return fmt.Errorf("failed to drop %s: %w", base, err)
	}
	if n > 0 {
		c.logger.Info("dropped sample from catalog", "sample", base)
	}
	return nil
}

// appliedPeriods returns the period labels that shaped sample; the filter
// only applies to recorded data.
func appliedPeriods(sample model.Sample, periods []string) []string {
	if sample.DataType != model.DataTypeData {
		return nil
	}
	return periods
}
