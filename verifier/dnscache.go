package verifier

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultCacheTTL   = 1 * time.Hour
	preloadedCacheTTL = 24 * time.Hour
)

// Resolver abstracts DNS so tests can substitute a fake. The default wraps
// net.Resolver.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

type netResolver struct {
	r net.Resolver
}

func (n *netResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return n.r.LookupHost(ctx, host)
}

func (n *netResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return n.r.LookupMX(ctx, domain)
}

// NewNetResolver returns the production resolver.
func NewNetResolver() Resolver { return &netResolver{} }

// DomainCacheEntry caches the DNS and MX verdict for one domain.
type DomainCacheEntry struct {
	Domain    string        `json:"domain"`
	DNSValid  bool          `json:"dns_valid"`
	MXValid   bool          `json:"mx_valid"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl"`
	Source    string        `json:"source"` // preloaded, lookup
}

func (e *DomainCacheEntry) expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// CacheStats is a snapshot of cache effectiveness counters.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
}

// DNSCache caches per-domain DNS and MX validity behind a single mutex.
// Within a TTL window, repeated lookups of the same domain never re-trigger
// network resolution. The lock is never held across network I/O.
type DNSCache struct {
	mu         sync.Mutex
	entries    map[string]*DomainCacheEntry
	hits       uint64
	misses     uint64
	defaultTTL time.Duration
	resolver   Resolver
	logger     *logrus.Logger
}

// NewDNSCache builds a cache pre-seeded with the well-known mail providers at
// a 24h TTL; everything learned at runtime gets the default 1h TTL.
func NewDNSCache(resolver Resolver, logger *logrus.Logger) *DNSCache {
	c := &DNSCache{
		entries:    make(map[string]*DomainCacheEntry),
		defaultTTL: defaultCacheTTL,
		resolver:   resolver,
		logger:     logger,
	}
	now := time.Now()
	for _, domain := range knownProviderDomains {
		c.entries[domain] = &DomainCacheEntry{
			Domain:    domain,
			DNSValid:  true,
			MXValid:   true,
			Timestamp: now,
			TTL:       preloadedCacheTTL,
			Source:    "preloaded",
		}
	}
	return c
}

// Get returns the cached verdict, or ok=false on a miss or expired entry.
func (c *DNSCache) Get(domain string) (dnsValid, mxValid, ok bool) {
	domain = normalizeDomain(domain)
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[domain]
	if !found || entry.expired(time.Now()) {
		c.misses++
		return false, false, false
	}
	c.hits++
	return entry.DNSValid, entry.MXValid, true
}

// Peek returns the cached verdict without touching the hit/miss counters,
// for callers probing cache state ahead of a Lookup.
func (c *DNSCache) Peek(domain string) (dnsValid, mxValid, ok bool) {
	domain = normalizeDomain(domain)
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[domain]
	if !found || entry.expired(time.Now()) {
		return false, false, false
	}
	return entry.DNSValid, entry.MXValid, true
}

// Set stores a verdict with the default TTL.
func (c *DNSCache) Set(domain string, dnsValid, mxValid bool) {
	c.SetWithTTL(domain, dnsValid, mxValid, c.defaultTTL)
}

// SetWithTTL stores a verdict with an explicit TTL.
func (c *DNSCache) SetWithTTL(domain string, dnsValid, mxValid bool, ttl time.Duration) {
	domain = normalizeDomain(domain)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain] = &DomainCacheEntry{
		Domain:    domain,
		DNSValid:  dnsValid,
		MXValid:   mxValid,
		Timestamp: time.Now(),
		TTL:       ttl,
		Source:    "lookup",
	}
}

// Lookup is the get-or-resolve path. A cache miss resolves the hostname
// (unresolvable means dns_valid=false) and, only when that succeeds, queries
// MX records; the verdict is written back with the default TTL.
func (c *DNSCache) Lookup(ctx context.Context, domain string) (dnsValid, mxValid bool, err error) {
	domain = normalizeDomain(domain)
	if dnsValid, mxValid, ok := c.Get(domain); ok {
		return dnsValid, mxValid, nil
	}

	if _, err := c.resolver.LookupHost(ctx, domain); err != nil {
		// Domains with MX but no A record still resolve for mail purposes.
		if mxRecords, mxErr := c.resolver.LookupMX(ctx, domain); mxErr == nil && len(mxRecords) > 0 {
			c.Set(domain, true, true)
			return true, true, nil
		}
		c.Set(domain, false, false)
		return false, false, nil
	}

	mxRecords, err := c.resolver.LookupMX(ctx, domain)
	mxValid = err == nil && len(mxRecords) > 0
	c.Set(domain, true, mxValid)
	return true, mxValid, nil
}

// ResolveMX fetches the MX host list sorted by preference, cache-aside from
// the validity verdict (the probe engine needs the hosts themselves).
func (c *DNSCache) ResolveMX(ctx context.Context, domain string) ([]*net.MX, error) {
	records, err := c.resolver.LookupMX(ctx, normalizeDomain(domain))
	if err != nil {
		return nil, ErrNoMXRecords
	}
	if len(records) == 0 {
		return nil, ErrNoMXRecords
	}
	sortMXByPreference(records)
	return records, nil
}

// ClearExpired drops expired entries and reports how many were removed.
func (c *DNSCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for domain, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, domain)
			removed++
		}
	}
	if removed > 0 && c.logger != nil {
		c.logger.WithField("component", "dnscache").Debugf("cleared %d expired entries", removed)
	}
	return removed
}

// Stats returns the hit/miss counters.
func (c *DNSCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := CacheStats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

func sortMXByPreference(records []*net.MX) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].Pref < records[j-1].Pref; j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}
