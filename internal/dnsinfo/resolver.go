// Package dnsinfo implements async-style MX/A/AAAA lookup with provider
// fingerprinting and an in-memory TTL cache (C3). Grounded on the original
// engine/dns.py (_detect_provider precedence, MX->A->AAAA fallback chain)
// and the teacher's utils/verifier.go getMXRecords (mutex-guarded cache).
package dnsinfo

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"mailnexy/internal/model"
)

const (
	// DefaultTimeout is the per-lookup DNS timeout.
	DefaultTimeout = 10 * time.Second
	// MXCacheTTL is how long a cached DnsInfo stays fresh.
	MXCacheTTL = 24 * time.Hour
)

// Resolver performs MX/A/AAAA lookups with provider detection and caching.
// A single long-lived instance should be constructed at startup and shared
// (see SPEC_FULL.md §9 "process-wide singletons").
type Resolver struct {
	timeout time.Duration
	netRes  *net.Resolver

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	info     model.DnsInfo
	cachedAt time.Time
}

// New constructs a Resolver with the given timeout. Pass 0 for the default.
func New(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		timeout: timeout,
		netRes:  net.DefaultResolver,
		cache:   make(map[string]cacheEntry),
	}
}

// Lookup returns DnsInfo for domain, using the cache when fresh.
func (r *Resolver) Lookup(ctx context.Context, domain string) (model.DnsInfo, error) {
	domain = strings.ToLower(domain)

	r.mu.RLock()
	entry, ok := r.cache[domain]
	r.mu.RUnlock()
	if ok && time.Since(entry.cachedAt) < MXCacheTTL {
		return entry.info, nil
	}

	info, err := r.lookupFresh(ctx, domain)
	if err != nil {
		return info, err
	}

	r.mu.Lock()
	r.cache[domain] = cacheEntry{info: info, cachedAt: time.Now()}
	r.mu.Unlock()

	return info, nil
}

func (r *Resolver) lookupFresh(ctx context.Context, domain string) (model.DnsInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var hosts []string

	if mxRecords, err := r.netRes.LookupMX(ctx, domain); err == nil && len(mxRecords) > 0 {
		// net.LookupMX already returns records sorted by ascending preference.
		for _, mx := range mxRecords {
			hosts = append(hosts, strings.TrimSuffix(mx.Host, "."))
		}
	}

	if len(hosts) == 0 {
		if ips, err := r.netRes.LookupIPAddr(ctx, domain); err == nil {
			for _, ip := range ips {
				if ip.IP.To4() != nil {
					hosts = append(hosts, ip.IP.String())
				}
			}
		}
	}

	if len(hosts) == 0 {
		if ips, err := r.netRes.LookupIPAddr(ctx, domain); err == nil {
			for _, ip := range ips {
				if ip.IP.To4() == nil {
					hosts = append(hosts, ip.IP.String())
				}
			}
		}
	}

	hasMX := len(hosts) > 0
	provider := model.ProviderGeneric
	if hasMX {
		provider = DetectProvider(hosts, domain)
	}

	return model.DnsInfo{
		Domain:    domain,
		MXHosts:   hosts,
		HasMX:     hasMX,
		Provider:  provider,
		FetchedAt: time.Now(),
	}, nil
}

// SeedCache preloads domain's lookup result as if it had just been fetched,
// bypassing the network. Exported for tests that need a Resolver wired
// through a real Verifier/Engine without depending on live DNS, mirroring
// domaincache.Cache's SetDNS.
func (r *Resolver) SeedCache(domain string, info model.DnsInfo) {
	r.mu.Lock()
	r.cache[strings.ToLower(domain)] = cacheEntry{info: info, cachedAt: time.Now()}
	r.mu.Unlock()
}

// DetectProvider inspects MX hostnames (highest-priority first) against
// known mail-provider fingerprints, per spec.md §4.3.
func DetectProvider(mxHosts []string, domain string) model.Provider {
	if len(mxHosts) == 0 {
		return model.ProviderGeneric
	}

	domainLower := strings.ToLower(strings.TrimSuffix(domain, "."))

	for _, mx := range mxHosts {
		mxLower := strings.ToLower(strings.TrimSuffix(mx, "."))

		if strings.HasSuffix(mxLower, ".google.com") || strings.HasSuffix(mxLower, ".googlemail.com") {
			if domainLower == "gmail.com" || domainLower == "googlemail.com" {
				return model.ProviderGmail
			}
			return model.ProviderGoogleWorkspace
		}

		if strings.HasSuffix(mxLower, ".yahoodns.net") {
			return model.ProviderYahoo
		}

		if strings.HasSuffix(mxLower, ".protection.outlook.com") {
			if strings.Contains(mxLower, ".olc.protection.outlook.com") {
				return model.ProviderHotmail
			}
			return model.ProviderMicrosoft365
		}

		if strings.HasSuffix(mxLower, ".hotmail.com") || strings.HasSuffix(mxLower, ".outlook.com") {
			return model.ProviderHotmail
		}
	}

	return model.ProviderGeneric
}
