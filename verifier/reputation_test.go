package verifier

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu    sync.Mutex
	saved map[string]*DomainReputation
	err   error
}

func (s *captureSink) Save(domain string, rep *DomainReputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.saved == nil {
		s.saved = make(map[string]*DomainReputation)
	}
	s.saved[domain] = rep
	return nil
}

func TestReputationRunningAverages(t *testing.T) {
	s := NewReputationStore(nil, nil)

	s.Update("company.com", 250, 100, true, false)
	s.Update("company.com", 250, 300, true, false)
	s.Update("company.com", 550, 200, false, false)

	rep := s.Get("company.com")
	require.NotNil(t, rep)
	assert.Equal(t, 3, rep.TotalChecks)
	assert.InDelta(t, 2.0/3.0, rep.SuccessRate, 0.001)
	assert.InDelta(t, 200.0, rep.AvgResponseTimeMs, 0.001)
	assert.Equal(t, 2, rep.CodeHistogram[250])
	assert.Equal(t, 1, rep.CodeHistogram[550])
	assert.False(t, rep.BlocksSMTP)
	require.NotNil(t, rep.IsCatchAll)
	assert.False(t, *rep.IsCatchAll)
}

func TestReputationBlockingDetection(t *testing.T) {
	for _, code := range []int{421, 554, 571} {
		s := NewReputationStore(nil, nil)
		s.Update("blocked.com", code, 100, false, false)
		rep := s.Get("blocked.com")
		require.NotNil(t, rep, code)
		assert.True(t, rep.BlocksSMTP, code)
	}

	// Pathological latency flags blocking too.
	s := NewReputationStore(nil, nil)
	s.Update("slow.com", 250, 35000, true, false)
	assert.True(t, s.Get("slow.com").BlocksSMTP)
}

func TestShouldSkipSMTP(t *testing.T) {
	s := NewReputationStore(nil, nil)
	assert.False(t, s.ShouldSkipSMTP("unseen.com"))

	// Five straight 554 rejections make probing futile.
	for i := 0; i < 5; i++ {
		s.Update("hostile.com", 554, 100, false, false)
	}
	assert.True(t, s.ShouldSkipSMTP("hostile.com"))

	// A blocking domain that still mostly accepts is kept.
	s.Update("flaky.com", 421, 100, false, false)
	for i := 0; i < 9; i++ {
		s.Update("flaky.com", 250, 100, true, false)
	}
	assert.False(t, s.ShouldSkipSMTP("flaky.com"))

	// Chronically slow domains are skipped outright.
	for i := 0; i < 3; i++ {
		s.Update("sluggish.com", 250, 28000, true, false)
	}
	assert.True(t, s.ShouldSkipSMTP("sluggish.com"))
}

func TestGetIntelligenceNeedsMinimumChecks(t *testing.T) {
	s := NewReputationStore(nil, nil)

	intel := s.GetIntelligence("unseen.com")
	assert.False(t, intel.HasData)
	assert.Equal(t, "unknown", intel.Recommendation)

	for i := 0; i < 4; i++ {
		s.Update("fresh.com", 250, 100, true, false)
	}
	intel = s.GetIntelligence("fresh.com")
	assert.True(t, intel.HasData)
	assert.Equal(t, "unknown", intel.Recommendation)

	s.Update("fresh.com", 250, 100, true, false)
	intel = s.GetIntelligence("fresh.com")
	assert.Equal(t, "reliable", intel.Recommendation)
	assert.InDelta(t, 0.25, intel.Confidence, 0.001)
}

func TestGetIntelligenceRecommendations(t *testing.T) {
	cases := []struct {
		name      string
		successes int
		failures  int
		want      string
	}{
		{"reliable", 9, 1, "reliable"},
		{"moderate", 6, 4, "moderate"},
		{"unreliable", 2, 8, "unreliable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewReputationStore(nil, nil)
			for i := 0; i < tc.successes; i++ {
				s.Update("d.com", 250, 100, true, false)
			}
			for i := 0; i < tc.failures; i++ {
				s.Update("d.com", 550, 100, false, false)
			}
			assert.Equal(t, tc.want, s.GetIntelligence("d.com").Recommendation)
		})
	}
}

func TestOptimalStrategy(t *testing.T) {
	s := NewReputationStore(nil, nil)

	// Unknown domain: static defaults.
	strategy := s.OptimalStrategy("unseen.com")
	assert.True(t, strategy.UseSMTP)
	assert.Equal(t, 10*time.Second, strategy.Timeout)
	assert.Equal(t, 2, strategy.Retries)
	assert.Equal(t, 1, strategy.Priority)

	// Freemail providers that block verification are skipped statically.
	assert.False(t, s.OptimalStrategy("gmail.com").UseSMTP)

	// Poor success rate cuts retries and deprioritizes.
	for i := 0; i < 10; i++ {
		s.Update("bad.com", 450, 100, false, false)
	}
	strategy = s.OptimalStrategy("bad.com")
	assert.Equal(t, 1, strategy.Retries)
	assert.Equal(t, 2, strategy.Priority)

	// Slow but responsive domains get a padded timeout.
	for i := 0; i < 5; i++ {
		s.Update("slowish.com", 250, 12000, true, false)
	}
	strategy = s.OptimalStrategy("slowish.com")
	assert.Equal(t, 15*time.Second, strategy.Timeout)
	assert.Equal(t, 0, strategy.Priority)
}

func TestReputationSinkReceivesSnapshots(t *testing.T) {
	sink := &captureSink{}
	s := NewReputationStore(sink, nil)

	s.Update("company.com", 250, 100, true, false)

	sink.mu.Lock()
	saved := sink.saved["company.com"]
	sink.mu.Unlock()
	require.NotNil(t, saved)
	assert.Equal(t, 1, saved.TotalChecks)

	// Mutating the snapshot must not leak back into the store.
	saved.TotalChecks = 99
	assert.Equal(t, 1, s.Get("company.com").TotalChecks)
}

func TestReputationSinkFailureIsSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("redis down")}
	s := NewReputationStore(sink, nil)

	assert.NotPanics(t, func() {
		s.Update("company.com", 250, 100, true, false)
	})
	// Learned state survives the persistence failure.
	assert.Equal(t, 1, s.Get("company.com").TotalChecks)
}

func TestSnapshotRestore(t *testing.T) {
	s := NewReputationStore(nil, nil)
	s.Update("a.com", 250, 100, true, false)
	s.Update("b.com", 550, 100, false, false)

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 2)

	restored := NewReputationStore(nil, nil)
	restored.Update("a.com", 550, 200, false, false) // learned before restore
	restored.Restore(snapshot)

	// Restore never overwrites state learned since start.
	assert.Equal(t, 1, restored.Get("a.com").TotalChecks)
	assert.InDelta(t, 0.0, restored.Get("a.com").SuccessRate, 0.001)
	// Unseen domains are seeded from the snapshot.
	require.NotNil(t, restored.Get("b.com"))
	assert.Equal(t, 1, restored.Get("b.com").TotalChecks)
}
