package verifier

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver scripts DNS answers per domain and counts lookups.
type fakeResolver struct {
	mu        sync.Mutex
	hosts     map[string][]string
	mx        map[string][]*net.MX
	hostCalls int
	mxCalls   int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		hosts: make(map[string][]string),
		mx:    make(map[string][]*net.MX),
	}
}

func (f *fakeResolver) addDomain(domain string, mxHosts ...string) {
	f.hosts[domain] = []string{"192.0.2.1"}
	for i, host := range mxHosts {
		f.mx[domain] = append(f.mx[domain], &net.MX{Host: host, Pref: uint16((i + 1) * 10)})
	}
}

func (f *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hostCalls++
	if addrs, ok := f.hosts[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func (f *fakeResolver) LookupMX(_ context.Context, domain string) ([]*net.MX, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mxCalls++
	if records, ok := f.mx[domain]; ok {
		return records, nil
	}
	return nil, errors.New("no mx records")
}

func (f *fakeResolver) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hostCalls, f.mxCalls
}

func TestDNSCachePreseededProviders(t *testing.T) {
	resolver := newFakeResolver()
	cache := NewDNSCache(resolver, nil)

	dnsValid, mxValid, ok := cache.Get("gmail.com")
	require.True(t, ok)
	assert.True(t, dnsValid)
	assert.True(t, mxValid)

	// Preseeded entries never touch the resolver.
	hostCalls, mxCalls := resolver.calls()
	assert.Zero(t, hostCalls)
	assert.Zero(t, mxCalls)
}

func TestDNSCacheLookupOncePerTTL(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addDomain("company.com", "mx1.company.com")
	cache := NewDNSCache(resolver, nil)

	for i := 0; i < 5; i++ {
		dnsValid, mxValid, err := cache.Lookup(context.Background(), "company.com")
		require.NoError(t, err)
		assert.True(t, dnsValid)
		assert.True(t, mxValid)
	}

	hostCalls, mxCalls := resolver.calls()
	assert.Equal(t, 1, hostCalls)
	assert.Equal(t, 1, mxCalls)
}

func TestDNSCacheExpiredEntryIsMiss(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addDomain("company.com", "mx1.company.com")
	cache := NewDNSCache(resolver, nil)

	cache.SetWithTTL("company.com", true, true, -time.Second)
	_, _, ok := cache.Get("company.com")
	assert.False(t, ok)

	// Lookup refreshes the expired entry from the resolver.
	dnsValid, _, err := cache.Lookup(context.Background(), "company.com")
	require.NoError(t, err)
	assert.True(t, dnsValid)
	hostCalls, _ := resolver.calls()
	assert.Equal(t, 1, hostCalls)
}

func TestDNSCacheMXOnlyDomain(t *testing.T) {
	// Domains with MX but no A record still count as resolvable for mail.
	resolver := newFakeResolver()
	resolver.mx["mxonly.com"] = []*net.MX{{Host: "mx.mxonly.com", Pref: 10}}
	cache := NewDNSCache(resolver, nil)

	dnsValid, mxValid, err := cache.Lookup(context.Background(), "mxonly.com")
	require.NoError(t, err)
	assert.True(t, dnsValid)
	assert.True(t, mxValid)
}

func TestDNSCacheUnresolvableDomain(t *testing.T) {
	resolver := newFakeResolver()
	cache := NewDNSCache(resolver, nil)

	dnsValid, mxValid, err := cache.Lookup(context.Background(), "no-such-domain.invalid")
	require.NoError(t, err)
	assert.False(t, dnsValid)
	assert.False(t, mxValid)

	// The negative verdict is cached too.
	_, _, ok := cache.Get("no-such-domain.invalid")
	assert.True(t, ok)
}

func TestDNSCacheStats(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addDomain("company.com", "mx1.company.com")
	cache := NewDNSCache(resolver, nil)

	cache.Get("company.com") // miss
	cache.Lookup(context.Background(), "company.com")
	cache.Get("company.com") // hit

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.InDelta(t, 1.0/3.0, stats.HitRate, 0.001)
	assert.Greater(t, stats.Size, 0)
}

func TestDNSCachePeekDoesNotTouchStats(t *testing.T) {
	cache := NewDNSCache(newFakeResolver(), nil)

	dnsValid, mxValid, ok := cache.Peek("gmail.com")
	require.True(t, ok)
	assert.True(t, dnsValid)
	assert.True(t, mxValid)
	_, _, ok = cache.Peek("unseen.com")
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
}

func TestDNSCacheClearExpired(t *testing.T) {
	cache := NewDNSCache(newFakeResolver(), nil)
	cache.SetWithTTL("old.com", true, true, -time.Second)
	cache.Set("fresh.com", true, true)

	removed := cache.ClearExpired()
	assert.Equal(t, 1, removed)
	_, _, ok := cache.Get("fresh.com")
	assert.True(t, ok)
}

func TestResolveMXSorted(t *testing.T) {
	resolver := newFakeResolver()
	resolver.mx["company.com"] = []*net.MX{
		{Host: "backup.company.com", Pref: 20},
		{Host: "primary.company.com", Pref: 5},
		{Host: "secondary.company.com", Pref: 10},
	}
	cache := NewDNSCache(resolver, nil)

	records, err := cache.ResolveMX(context.Background(), "company.com")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "primary.company.com", records[0].Host)
	assert.Equal(t, "secondary.company.com", records[1].Host)
	assert.Equal(t, "backup.company.com", records[2].Host)

	_, err = cache.ResolveMX(context.Background(), "no-mx.com")
	assert.ErrorIs(t, err, ErrNoMXRecords)
}
