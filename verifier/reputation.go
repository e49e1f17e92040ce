package verifier

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// A recommendation is only emitted once a domain has this many probes.
	reputationMinChecks = 5

	blockingResponseTimeMs = 30000
	slowDomainThresholdMs  = 25000
)

// DomainReputation is the running per-domain probe statistic. It is mutated
// incrementally after every probe and never recomputed from scratch.
type DomainReputation struct {
	Domain            string      `json:"domain"`
	SuccessRate       float64     `json:"success_rate"`
	TotalChecks       int         `json:"total_checks"`
	AvgResponseTimeMs float64     `json:"avg_response_time_ms"`
	CodeHistogram     map[int]int `json:"code_histogram"`
	BlocksSMTP        bool        `json:"blocks_smtp"`
	IsCatchAll        *bool       `json:"is_catch_all"`
	LastUpdated       time.Time   `json:"last_updated"`
}

func (r *DomainReputation) clone() *DomainReputation {
	copied := *r
	copied.CodeHistogram = make(map[int]int, len(r.CodeHistogram))
	for code, count := range r.CodeHistogram {
		copied.CodeHistogram[code] = count
	}
	if r.IsCatchAll != nil {
		v := *r.IsCatchAll
		copied.IsCatchAll = &v
	}
	return &copied
}

// DomainIntelligence is the consumable summary of a domain's reputation.
type DomainIntelligence struct {
	HasData        bool    `json:"has_data"`
	Recommendation string  `json:"recommendation"` // reliable, moderate, unreliable, blocks_smtp, unknown
	Confidence     float64 `json:"confidence"`
}

// ProbeStrategy is the probing plan derived from a domain's reputation.
type ProbeStrategy struct {
	UseSMTP  bool          `json:"use_smtp"`
	Timeout  time.Duration `json:"timeout"`
	Retries  int           `json:"retries"`
	Delay    time.Duration `json:"delay"`
	UseAsync bool          `json:"use_async"`
	Priority int           `json:"priority"` // lower runs first
}

// ReputationSink persists reputation snapshots. Failures are swallowed and
// logged; they never fail the enclosing validation.
type ReputationSink interface {
	Save(domain string, rep *DomainReputation) error
}

// ReputationStore accumulates probe outcomes per domain. All mutation happens
// under one mutex; the persistence sink is called outside the lock with a
// private copy.
type ReputationStore struct {
	mu      sync.Mutex
	domains map[string]*DomainReputation
	sink    ReputationSink
	logger  *logrus.Logger
}

func NewReputationStore(sink ReputationSink, logger *logrus.Logger) *ReputationStore {
	return &ReputationStore{
		domains: make(map[string]*DomainReputation),
		sink:    sink,
		logger:  logger,
	}
}

// Update folds one probe outcome into the domain's running statistics using
// count-weighted running averages.
func (s *ReputationStore) Update(domain string, smtpCode int, responseTimeMs int64, success, isCatchAll bool) {
	domain = normalizeDomain(domain)

	s.mu.Lock()
	rep, ok := s.domains[domain]
	if !ok {
		rep = &DomainReputation{
			Domain:        domain,
			CodeHistogram: make(map[int]int),
		}
		s.domains[domain] = rep
	}

	oldCount := float64(rep.TotalChecks)
	successValue := 0.0
	if success {
		successValue = 1.0
	}
	rep.SuccessRate = (rep.SuccessRate*oldCount + successValue) / (oldCount + 1)
	rep.AvgResponseTimeMs = (rep.AvgResponseTimeMs*oldCount + float64(responseTimeMs)) / (oldCount + 1)
	rep.TotalChecks++
	if smtpCode > 0 {
		rep.CodeHistogram[smtpCode]++
	}
	if smtpCode == 421 || smtpCode == 554 || smtpCode == 571 || responseTimeMs > blockingResponseTimeMs {
		rep.BlocksSMTP = true
	}
	if isCatchAll {
		rep.IsCatchAll = boolPtr(true)
	} else if success {
		rep.IsCatchAll = boolPtr(false)
	}
	rep.LastUpdated = time.Now()

	snapshot := rep.clone()
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Save(domain, snapshot); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"component": "reputation",
				"domain":    domain,
			}).Warnf("reputation persistence failed: %v", err)
		}
	}
}

// Get returns a copy of the domain's reputation, or nil when unseen.
func (s *ReputationStore) Get(domain string) *DomainReputation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rep, ok := s.domains[normalizeDomain(domain)]; ok {
		return rep.clone()
	}
	return nil
}

// GetIntelligence summarizes a domain. Recommendations need at least
// reputationMinChecks observations; before that the verdict is unknown.
func (s *ReputationStore) GetIntelligence(domain string) DomainIntelligence {
	rep := s.Get(domain)
	if rep == nil {
		return DomainIntelligence{Recommendation: "unknown"}
	}
	intel := DomainIntelligence{HasData: true, Recommendation: "unknown"}
	if rep.TotalChecks < reputationMinChecks {
		return intel
	}

	intel.Confidence = float64(rep.TotalChecks) / 20.0
	if intel.Confidence > 1.0 {
		intel.Confidence = 1.0
	}
	switch {
	case rep.BlocksSMTP:
		intel.Recommendation = "blocks_smtp"
	case rep.SuccessRate >= 0.8:
		intel.Recommendation = "reliable"
	case rep.SuccessRate >= 0.5:
		intel.Recommendation = "moderate"
	default:
		intel.Recommendation = "unreliable"
	}
	return intel
}

// ShouldSkipSMTP reports whether probing the domain is a waste of a
// connection: it blocks verification and almost never accepts, or it is so
// slow that the probe budget is better spent elsewhere.
func (s *ReputationStore) ShouldSkipSMTP(domain string) bool {
	rep := s.Get(domain)
	if rep == nil {
		return false
	}
	if rep.BlocksSMTP && rep.SuccessRate < 0.1 {
		return true
	}
	return rep.AvgResponseTimeMs > slowDomainThresholdMs
}

// OptimalStrategy derives a probing plan from reputation plus the static
// provider policy.
func (s *ReputationStore) OptimalStrategy(domain string) ProbeStrategy {
	policy := LookupProviderPolicy(domain)
	strategy := ProbeStrategy{
		UseSMTP:  !policy.SkipSMTP,
		Timeout:  policy.Timeout,
		Retries:  policy.Retries,
		Delay:    policy.RetryDelay,
		UseAsync: true,
		Priority: 1,
	}

	rep := s.Get(domain)
	if rep == nil {
		return strategy
	}
	if s.ShouldSkipSMTP(domain) {
		strategy.UseSMTP = false
	}
	if rep.TotalChecks >= reputationMinChecks {
		switch {
		case rep.SuccessRate >= 0.8:
			strategy.Priority = 0
		case rep.SuccessRate < 0.3:
			strategy.Priority = 2
			strategy.Retries = 1
		}
		// Pad the timeout for slow but responsive domains.
		if rep.AvgResponseTimeMs > 10000 && rep.AvgResponseTimeMs <= slowDomainThresholdMs {
			strategy.Timeout = 15 * time.Second
		}
	}
	return strategy
}

// Snapshot copies the whole store, for persistence on shutdown.
func (s *ReputationStore) Snapshot() map[string]*DomainReputation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*DomainReputation, len(s.domains))
	for domain, rep := range s.domains {
		out[domain] = rep.clone()
	}
	return out
}

// Restore seeds the store from persisted state, replacing nothing that was
// learned since start.
func (s *ReputationStore) Restore(snapshot map[string]*DomainReputation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for domain, rep := range snapshot {
		if _, exists := s.domains[normalizeDomain(domain)]; !exists {
			s.domains[normalizeDomain(domain)] = rep.clone()
		}
	}
}
