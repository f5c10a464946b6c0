package country

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"session-issuance-console/internal/country/domain"
)

// Lister fetches the full country catalog from the backend.
type Lister interface {
	ListCountries(ctx context.Context) ([]domain.Record, error)
}

// Catalog serves lookups from a cached catalog snapshot, reloading it after ttl.
// A failed reload keeps serving the previous snapshot.
type Catalog struct {
	lister  Lister
	codes   CallingCodes
	aliases Aliases
	ttl     time.Duration
	nowF    func() time.Time

	loadMu sync.Mutex

	mu       sync.RWMutex
	index    *Index
	report   LoadReport
	loadedAt time.Time
}

// NewCatalog returns a Catalog backed by lister with the built-in tables.
func NewCatalog(lister Lister, ttl time.Duration) *Catalog {
	return NewCatalogWithTables(lister, ttl, DefaultCallingCodes(), DefaultAliases())
}

// NewCatalogWithTables returns a Catalog with explicit calling-code and alias tables.
func NewCatalogWithTables(lister Lister, ttl time.Duration, codes CallingCodes, aliases Aliases) *Catalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{
		lister:  lister,
		codes:   codes,
		aliases: aliases,
		ttl:     ttl,
		nowF:    time.Now,
	}
}

// Resolve returns the catalog record for phone. ErrNotFound means the snapshot has no match;
// other errors mean no snapshot could be loaded.
func (c *Catalog) Resolve(ctx context.Context, phone string) (domain.Record, error) {
	ix, err := c.snapshot(ctx)
	if err != nil {
		return domain.Record{}, err
	}
	return ix.Resolve(phone)
}

// Refresh reloads the snapshot unconditionally and returns its load report.
func (c *Catalog) Refresh(ctx context.Context) (LoadReport, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.load(ctx)
}

// Report returns the load report of the current snapshot.
func (c *Catalog) Report() LoadReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report
}

func (c *Catalog) snapshot(ctx context.Context) (*Index, error) {
	c.mu.RLock()
	ix, fresh := c.index, c.index != nil && c.nowF().Sub(c.loadedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return ix, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.RLock()
	ix, fresh = c.index, c.index != nil && c.nowF().Sub(c.loadedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return ix, nil
	}

	if _, err := c.load(ctx); err != nil {
		if ix != nil {
			slog.Warn("catalog reload failed, serving stale snapshot", "component", "country", "error", err)
			return ix, nil
		}
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index, nil
}

// load must be called with loadMu held.
func (c *Catalog) load(ctx context.Context) (LoadReport, error) {
	if c.lister == nil {
		return LoadReport{}, errors.New("country: no catalog lister configured")
	}
	records, err := c.lister.ListCountries(ctx)
	if err != nil {
		return LoadReport{}, fmt.Errorf("country: list catalog: %w", err)
	}
	ix, report := NewIndex(records, c.codes, c.aliases)

	c.mu.Lock()
	c.index = ix
	c.report = report
	c.loadedAt = c.nowF()
	c.mu.Unlock()

	slog.Info("catalog loaded", "component", "country",
		"records", ix.Records(), "prefixes", ix.Prefixes(),
		"unbound", len(report.Unbound), "conflicts", len(report.Conflicts), "ambiguous", len(report.Ambiguous))
	for _, conflict := range report.Conflicts {
		slog.Warn("catalog prefix claimed twice", "component", "country",
			"prefix", conflict.Prefix, "kept", conflict.Kept, "dropped", conflict.Dropped)
	}
	for _, amb := range report.Ambiguous {
		slog.Warn("ambiguous country alias left unbound", "component", "country",
			"codes", amb.Codes, "records", amb.Records)
	}
	if len(report.Unaliased) > 0 {
		slog.Warn("calling codes without aliases", "component", "country", "codes", report.Unaliased)
	}
	if len(report.Unbound) > 0 {
		slog.Debug("calling codes without catalog entry", "component", "country", "codes", report.Unbound)
	}
	return report, nil
}
