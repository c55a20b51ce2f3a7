package dataset

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

// Cache holds the parsed dataset of one Source. It never invalidates itself:
// callers decide when to Reload, typically after checking Stale.
type Cache struct {
	source Source
	logger *zap.Logger

	mu    sync.RWMutex
	entry *Dataset
}

// NewCache wires a cache around the given source.
func NewCache(source Source, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{source: source, logger: logger}
}

// Get returns the cached dataset, loading it on first use.
func (c *Cache) Get(ctx context.Context) (*Dataset, error) {
	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()
	if entry != nil {
		return entry, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry != nil {
		return c.entry, nil
	}
	return c.loadLocked(ctx)
}

// Reload discards the cached dataset, including working-copy edits, and reads the source again.
func (c *Cache) Reload(ctx context.Context) (*Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

// Invalidate drops the cached dataset; the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	c.logger.Debug("dataset cache invalidated", zap.String("source", c.source.Name()))
}

// Stale reports whether the source fingerprint differs from the cached one.
// An empty cache is always stale.
func (c *Cache) Stale(ctx context.Context) (bool, error) {
	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()
	if entry == nil {
		return true, nil
	}

	fingerprint, err := c.source.Fingerprint(ctx)
	if err != nil {
		return false, fmt.Errorf("fingerprint source: %w", err)
	}
	return fingerprint != entry.Fingerprint, nil
}

// Replace swaps the working copy for edited records. The edit lasts until the next Reload.
func (c *Cache) Replace(records []models.StockRecord) *Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()

	edited := &Dataset{
		Source:  c.source.Name(),
		Records: append([]models.StockRecord(nil), records...),
		Edited:  true,
	}
	for _, record := range records {
		if record.Required > 0 {
			edited.HasRequired = true
			break
		}
	}
	if c.entry != nil {
		edited.Fingerprint = c.entry.Fingerprint
		edited.HasRequired = edited.HasRequired || c.entry.HasRequired
	}

	c.entry = edited
	c.logger.Info("dataset working copy replaced", zap.Int("records", len(records)))
	return edited
}

func (c *Cache) loadLocked(ctx context.Context) (*Dataset, error) {
	fingerprint, err := c.source.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("fingerprint source: %w", err)
	}

	rows, err := c.source.Rows(ctx)
	if err != nil {
		return nil, err
	}

	ds, err := Parse(rows)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.source.Name(), err)
	}
	ds.Source = c.source.Name()
	ds.Fingerprint = fingerprint

	c.entry = ds
	c.logger.Info("dataset loaded",
		zap.String("source", ds.Source),
		zap.Int("records", len(ds.Records)),
		zap.Int("invalid_rows", len(ds.Diagnostics)))
	return ds, nil
}
