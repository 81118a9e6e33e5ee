// Package domaincache holds per-domain DNS and catch-all results with
// independent TTLs, sparing repeated MX lookups and catch-all probes when
// a batch touches many addresses at the same domain (C12). Grounded on
// original_source/store/cache.py (DomainCacheEntry, MX_TTL/CATCH_ALL_TTL)
// and ahmadpiran-mailvetter/internal/cache/store.go (RWMutex map +
// background sweep ticker idiom).
package domaincache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mailnexy/internal/model"
)

const (
	// MXTTL is how long a cached DNS lookup stays valid.
	MXTTL = 24 * time.Hour
	// CatchAllTTL is how long a cached catch-all probe stays valid.
	CatchAllTTL = 7 * 24 * time.Hour
)

type entry struct {
	dns           *model.DnsInfo
	dnsCachedAt   time.Time
	catchAll      model.Tri
	catchAllSet   bool
	catchAllCachedAt time.Time
}

// Cache is a thread-safe, in-process domain intelligence cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	mxTTL       time.Duration
	catchAllTTL time.Duration
}

// New constructs a Cache with the standard TTLs.
func New() *Cache {
	return &Cache{
		entries:     make(map[string]*entry),
		mxTTL:       MXTTL,
		catchAllTTL: CatchAllTTL,
	}
}

func (c *Cache) entryFor(domain string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[domain]
	if !ok {
		e = &entry{}
		c.entries[domain] = e
	}
	return e
}

// GetDNS returns the cached DnsInfo for domain if present and fresh.
func (c *Cache) GetDNS(domain string) (model.DnsInfo, bool) {
	c.mu.RLock()
	e, ok := c.entries[domain]
	c.mu.RUnlock()
	if !ok || e.dns == nil {
		return model.DnsInfo{}, false
	}
	if time.Since(e.dnsCachedAt) > c.mxTTL {
		return model.DnsInfo{}, false
	}
	return *e.dns, true
}

// SetDNS caches dnsInfo for domain.
func (c *Cache) SetDNS(domain string, dnsInfo model.DnsInfo) {
	e := c.entryFor(domain)
	c.mu.Lock()
	e.dns = &dnsInfo
	e.dnsCachedAt = time.Now()
	c.mu.Unlock()
}

// GetCatchAll returns the cached catch-all tri-state for domain, and
// whether a fresh cached value exists at all (distinguishing "not cached"
// from "cached as indeterminate").
func (c *Cache) GetCatchAll(domain string) (model.Tri, bool) {
	c.mu.RLock()
	e, ok := c.entries[domain]
	c.mu.RUnlock()
	if !ok || !e.catchAllSet {
		return nil, false
	}
	if time.Since(e.catchAllCachedAt) > c.catchAllTTL {
		return nil, false
	}
	return e.catchAll, true
}

// SetCatchAll caches the catch-all tri-state for domain.
func (c *Cache) SetCatchAll(domain string, isCatchAll model.Tri) {
	e := c.entryFor(domain)
	c.mu.Lock()
	e.catchAll = isCatchAll
	e.catchAllSet = true
	e.catchAllCachedAt = time.Now()
	c.mu.Unlock()
}

// Stats summarizes cache occupancy for the metrics/stats endpoint.
type Stats struct {
	TotalDomains      int
	DNSValid          int
	CatchAllValid     int
}

// Stats returns a snapshot of how many entries are currently cached and
// still fresh.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	s.TotalDomains = len(c.entries)
	now := time.Now()
	for _, e := range c.entries {
		if e.dns != nil && now.Sub(e.dnsCachedAt) <= c.mxTTL {
			s.DNSValid++
		}
		if e.catchAllSet && now.Sub(e.catchAllCachedAt) <= c.catchAllTTL {
			s.CatchAllValid++
		}
	}
	return s
}

// Sweep removes entries whose DNS and catch-all data have both expired.
func (c *Cache) Sweep(logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for domain, e := range c.entries {
		dnsExpired := e.dns == nil || now.Sub(e.dnsCachedAt) > c.mxTTL
		catchAllExpired := !e.catchAllSet || now.Sub(e.catchAllCachedAt) > c.catchAllTTL
		if dnsExpired && catchAllExpired {
			delete(c.entries, domain)
			removed++
		}
	}
	if removed > 0 && logger != nil {
		logger.Debug("domaincache swept expired entries", "removed", removed, "remaining", len(c.entries))
	}
}

// StartSweeper launches a background goroutine that sweeps expired entries
// on the given interval until ctx is cancelled.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep(logger)
			case <-ctx.Done():
				return
			}
		}
	}()
}
