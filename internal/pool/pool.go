package pool

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"asset-inventory-api/internal/inventory"
	"asset-inventory-api/internal/model"
	"asset-inventory-api/internal/schema"
)

// DefaultPageSize bounds a single refresh fetch.
const DefaultPageSize = 2000

// Pools caches, per accessory category, the unassigned available units
// eligible for cross-linking to a parent asset. A pool is a snapshot: it is
// fully replaced on every successful refresh and never diffed
// incrementally. A failed refresh keeps the previous, possibly stale,
// snapshot in place.
type Pools struct {
	client   inventory.Client
	logger   *log.Logger
	pageSize int

	mu         sync.RWMutex
	byCategory map[string][]model.Asset
	claimed    map[uuid.UUID]bool
}

// New creates an empty pool set backed by the given inventory client.
func New(client inventory.Client, logger *log.Logger, pageSize int) *Pools {
	if logger == nil {
		logger = log.Default()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pools{
		client:     client,
		logger:     logger,
		pageSize:   pageSize,
		byCategory: make(map[string][]model.Asset),
		claimed:    make(map[uuid.UUID]bool),
	}
}

// Refresh replaces the snapshot for one category. The server may serve
// smaller pages than requested, so the fetch pages through the listing
// until it is exhausted or the pool bound is reached. Refresh failures are
// non-fatal to the caller's flow: the stale snapshot stays usable and the
// error is logged here; it is returned only so tests can observe it.
func (p *Pools) Refresh(ctx context.Context, category schema.Category) error {
	filter := inventory.Filter{
		AssetType:  category.Type,
		Status:     model.StatusAvailable,
		Unassigned: true,
	}

	var eligible []model.Asset
	served := 0
	for page := 1; ; page++ {
		result, err := p.client.ListAssets(ctx, filter, page, p.pageSize)
		if err != nil {
			p.logger.Printf("Availability pool refresh failed for %s, keeping stale snapshot: %v", category.Type, err)
			return err
		}

		// The server already filters, but the pool invariant is enforced
		// here too: an entry must be available and unassigned.
		for _, asset := range result.Items {
			if asset.Status != model.StatusAvailable || asset.IsAssigned() {
				continue
			}
			eligible = append(eligible, asset)
		}

		served += len(result.Items)
		if len(result.Items) == 0 || served >= result.Total || served >= p.pageSize {
			break
		}
	}

	p.mu.Lock()
	p.byCategory[category.Type] = eligible
	p.mu.Unlock()
	return nil
}

// RefreshAll refreshes every given category, typically on parent-form open.
// Individual failures are logged and skipped.
func (p *Pools) RefreshAll(ctx context.Context, categories []schema.Category) {
	for _, category := range categories {
		_ = p.Refresh(ctx, category)
	}
}

// Available returns a copy of the current snapshot for the category,
// without the units claimed by open forms.
func (p *Pools) Available(category schema.Category) []model.Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := p.byCategory[category.Type]
	out := make([]model.Asset, 0, len(snapshot))
	for _, asset := range snapshot {
		if p.claimed[asset.ID] {
			continue
		}
		out = append(out, asset)
	}
	return out
}

// Claim marks a unit as linked by an open form. Claimed units disappear
// from Available and cannot be selected by another form until released;
// Contains still reports them, so the claiming form's own revalidation
// passes.
func (p *Pools) Claim(id uuid.UUID) {
	p.mu.Lock()
	p.claimed[id] = true
	p.mu.Unlock()
}

// Release returns a previously claimed unit to the pool.
func (p *Pools) Release(id uuid.UUID) {
	p.mu.Lock()
	delete(p.claimed, id)
	p.mu.Unlock()
}

// Claimed reports whether the unit is currently claimed by an open form.
func (p *Pools) Claimed(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.claimed[id]
}

// Contains reports whether the current snapshot for the category holds the
// given unit id.
func (p *Pools) Contains(category schema.Category, id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, asset := range p.byCategory[category.Type] {
		if asset.ID == id {
			return true
		}
	}
	return false
}
