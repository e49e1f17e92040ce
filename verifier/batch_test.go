package verifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchAnalyzeGroupsAndOrders(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addDomain("alive.com", "mx1.alive.com")
	resolver.hosts["no-mx.com"] = []string{"192.0.2.7"}
	cache := NewDNSCache(resolver, nil)
	analyzer := NewBatchAnalyzer(NewClassifier(), cache, nil)

	emails := []string{
		"a@alive.com",
		"broken@@address",
		"b@alive.com",
		"c@dead.com",
		"d@no-mx.com",
	}
	analysis := analyzer.Analyze(context.Background(), emails)

	require.Len(t, analysis.Domains, 4)
	assert.Equal(t, 2, analysis.Domains["alive.com"].EmailCount)
	assert.Equal(t, "analyzed", analysis.Domains["alive.com"].Status)
	assert.True(t, analysis.Domains["alive.com"].MXValid)
	assert.Equal(t, "invalid_format", analysis.Domains[invalidFormatGroup].Status)
	assert.False(t, analysis.Domains["dead.com"].DNSValid)
	assert.True(t, analysis.Domains["no-mx.com"].DNSValid)
	assert.False(t, analysis.Domains["no-mx.com"].MXValid)

	// Cheap rejections first: bad format, dead DNS, missing MX, then valid.
	assert.Equal(t, []string{
		"broken@@address",
		"c@dead.com",
		"d@no-mx.com",
		"a@alive.com",
		"b@alive.com",
	}, analysis.Ordered)
}

func TestBatchAnalyzeSavesDuplicateQueries(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addDomain("alive.com", "mx1.alive.com")
	cache := NewDNSCache(resolver, nil)
	analyzer := NewBatchAnalyzer(NewClassifier(), cache, nil)

	emails := []string{"a@alive.com", "b@alive.com", "c@alive.com"}
	analysis := analyzer.Analyze(context.Background(), emails)

	// Three addresses, one resolution.
	assert.Equal(t, 2, analysis.DNSQueriesSaved)
	hostCalls, _ := resolver.calls()
	assert.Equal(t, 1, hostCalls)

	// A cold domain registers exactly one miss, not a pre-check plus the
	// Lookup's own.
	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Zero(t, stats.Hits)
}

func TestBatchAnalyzeUsesWarmCache(t *testing.T) {
	resolver := newFakeResolver()
	cache := NewDNSCache(resolver, nil)
	analyzer := NewBatchAnalyzer(NewClassifier(), cache, nil)

	// gmail.com is preseeded, so the pass costs zero resolutions.
	analysis := analyzer.Analyze(context.Background(), []string{"a@gmail.com", "b@gmail.com"})

	assert.Equal(t, "cached", analysis.Domains["gmail.com"].Status)
	assert.Equal(t, 2, analysis.DNSQueriesSaved) // one duplicate plus one cache hit
	hostCalls, mxCalls := resolver.calls()
	assert.Zero(t, hostCalls)
	assert.Zero(t, mxCalls)
}

func TestBatchAnalyzeStableWithinBand(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addDomain("a.com", "mx.a.com")
	resolver.addDomain("b.com", "mx.b.com")
	cache := NewDNSCache(resolver, nil)
	analyzer := NewBatchAnalyzer(NewClassifier(), cache, nil)

	analysis := analyzer.Analyze(context.Background(),
		[]string{"one@a.com", "two@b.com", "three@a.com"})

	// All in the same priority band, so caller order is preserved.
	assert.Equal(t, []string{"one@a.com", "two@b.com", "three@a.com"}, analysis.Ordered)
}
