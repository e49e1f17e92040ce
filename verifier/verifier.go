package verifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/likexian/whois"
	"github.com/sirupsen/logrus"
)

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	BatchWorkers int
	Probe        ProbeConfig
	Policy       ScorePolicy
}

func DefaultConfig() Config {
	return Config{
		BatchWorkers: 10,
		Probe:        DefaultProbeConfig(),
		Policy:       DefaultScorePolicy(),
	}
}

// Verifier is the top-level engine: it owns the classifier, the DNS cache,
// the probe engine, the reputation store, the pattern learner and the risk
// scorer, and merges their signals into one ValidationResult. Everything is
// injected at construction; there are no package-level singletons.
type Verifier struct {
	cfg        Config
	classifier *Classifier
	cache      *DNSCache
	probe      *ProbeEngine
	reputation *ReputationStore
	patterns   *PatternLearner
	risk       *RiskScorer
	logger     *logrus.Logger

	// WhoisLookup is overridable for tests; nil disables enrichment.
	WhoisLookup func(domain string) (string, error)
}

// New wires the engine. resolver, dialer, sink and logger may be nil: the
// production resolver and dialer are used, persistence is disabled, and a
// default logger is created.
func New(cfg Config, resolver Resolver, dialer Dialer, sink ReputationSink, logger *logrus.Logger) *Verifier {
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 10
	}
	if cfg.Policy == (ScorePolicy{}) {
		cfg.Policy = DefaultScorePolicy()
	}
	if resolver == nil {
		resolver = NewNetResolver()
	}
	if logger == nil {
		logger = logrus.New()
	}

	reputation := NewReputationStore(sink, logger)
	return &Verifier{
		cfg:         cfg,
		classifier:  NewClassifier(),
		cache:       NewDNSCache(resolver, logger),
		probe:       NewProbeEngine(cfg.Probe, resolver, dialer, reputation, logger),
		reputation:  reputation,
		patterns:    NewPatternLearner(),
		risk:        NewRiskScorer(),
		logger:      logger,
		WhoisLookup: func(domain string) (string, error) { return whois.Whois(domain) },
	}
}

func (v *Verifier) Cache() *DNSCache             { return v.cache }
func (v *Verifier) Reputation() *ReputationStore { return v.reputation }
func (v *Verifier) Patterns() *PatternLearner    { return v.patterns }

// Validate runs the staged checks for one address. It always returns a
// result; malformed or unreachable addresses never surface as errors.
func (v *Verifier) Validate(ctx context.Context, email string, opts Options) ValidationResult {
	result := ValidationResult{Email: email, Tier: TierLow, Deliverability: "undeliverable"}

	addr, err := v.classifier.ParseAddress(email)
	if err != nil {
		// Terminal: syntax failure forces every other check off and the
		// score to zero.
		result.Reason = err.Error()
		return result
	}
	result.Address = addr
	result.Checks.Syntax = true

	disposable := opts.CheckDisposable && v.classifier.IsDisposable(addr.Domain)
	roleBased := opts.CheckRoleBased && v.classifier.IsRoleBased(addr.Local)

	prelim := PreliminaryScore(disposable, roleBased, v.cfg.Policy)
	tier := SelectTier(prelim, v.cfg.Policy)
	result.Tier = tier
	eff := gateOptions(tier, opts)

	score := prelim
	var reasons []string
	hardFail := false
	dnsFailed := false

	if eff.CheckDisposable {
		result.Checks.IsDisposable = boolPtr(disposable)
		if disposable {
			reasons = append(reasons, "disposable email domain")
		}
	}
	if eff.CheckRoleBased {
		result.Checks.IsRoleBased = boolPtr(roleBased)
		if roleBased {
			reasons = append(reasons, "role-based address")
		}
	}
	if eff.CheckTypos {
		if suggestion, ok := v.classifier.SuggestDomain(addr.Domain); ok {
			result.SuggestedDomain = suggestion
			reasons = append(reasons, fmt.Sprintf("did you mean %s@%s?", addr.Local, suggestion))
		}
	}

	mxValid := false
	if eff.CheckDNS {
		dnsValid, mx, err := v.cache.Lookup(ctx, addr.Domain)
		if err != nil {
			reasons = append(reasons, "dns lookup failed")
		}
		result.Checks.DNSValid = boolPtr(dnsValid)
		if !dnsValid {
			score = 0
			hardFail = true
			dnsFailed = true
			reasons = append(reasons, ErrDNSResolutionFailed.Error())
		} else if eff.CheckMX {
			mxValid = mx
			result.Checks.MXRecords = boolPtr(mxValid)
			if !mxValid {
				score -= v.cfg.Policy.MissingMXPenalty
				reasons = append(reasons, ErrNoMXRecords.Error())
			}
		}
	}

	if eff.EnableSMTP && !hardFail && mxValid {
		probe := v.runProbe(ctx, addr, eff.SMTPTimeout)
		result.SMTP = probe
		if probe != nil {
			switch probe.Outcome {
			case ProbeDeliverable:
				result.Checks.SMTPVerified = boolPtr(true)
				result.Checks.IsCatchAll = boolPtr(false)
			case ProbeUndeliverable:
				result.Checks.SMTPVerified = boolPtr(false)
				score = 0
				hardFail = true
				reasons = append(reasons, "mailbox does not exist")
			case ProbeCatchAll:
				result.Checks.SMTPVerified = boolPtr(true)
				result.Checks.IsCatchAll = boolPtr(true)
				result.IsCatchAll = true
				score -= v.cfg.Policy.CatchAllPenalty
				reasons = append(reasons, "domain accepts any recipient (catch-all)")
			case ProbeBlocked, ProbeRisky:
				score -= v.cfg.Policy.UnreachablePenalty
				reasons = append(reasons, "mailbox could not be verified: "+probe.Message)
			default:
				// Greylisting and exhausted probes contribute unknown, not
				// invalid: many providers legitimately block verification.
				reasons = append(reasons, "mailbox could not be verified")
			}
		}
	}

	if eff.CheckDomainInfo && v.WhoisLookup != nil {
		if info, err := v.WhoisLookup(addr.Domain); err == nil {
			result.WHOIS = info
		}
	}

	result.ConfidenceScore = clampScore(score)
	result.Valid = !hardFail && result.ConfidenceScore >= v.cfg.Policy.ValidThreshold
	result.Deliverability = v.label(result, hardFail)
	if len(reasons) == 0 {
		reasons = append(reasons, "all checks passed")
	}
	result.Reason = strings.Join(reasons, "; ")

	// The learner weighs how certain the observation is, not how deliverable
	// the address scored: a definitive SMTP rejection is a high-confidence
	// invalid observation even though its score is zero.
	observation := float64(result.ConfidenceScore) / 100.0
	switch {
	case result.SMTP != nil:
		observation = result.SMTP.Confidence
	case dnsFailed:
		observation = 0.95
	}
	v.patterns.Learn(addr, result.Valid, observation)
	return result
}

func (v *Verifier) runProbe(ctx context.Context, addr EmailAddress, timeout time.Duration) *SMTPProbeResult {
	if err := v.probe.Acquire(ctx); err != nil {
		return &SMTPProbeResult{Outcome: ProbeUnknown, Confidence: 0.2, Message: "probe cancelled"}
	}
	defer v.probe.Release()
	return v.probe.Probe(ctx, addr, timeout)
}

func (v *Verifier) label(result ValidationResult, hardFail bool) string {
	switch {
	case hardFail:
		return "undeliverable"
	case result.IsCatchAll:
		return "risky"
	case result.Checks.SMTPVerified != nil && *result.Checks.SMTPVerified:
		return "deliverable"
	case result.ConfidenceScore >= 70 && result.Checks.MXRecords != nil && *result.Checks.MXRecords:
		return "deliverable"
	case result.ConfidenceScore >= v.cfg.Policy.ValidThreshold:
		return "risky"
	default:
		return "unknown"
	}
}

// BatchSummary accumulates live counts while a batch streams.
type BatchSummary struct {
	Total        int `json:"total"`
	Valid        int `json:"valid"`
	Invalid      int `json:"invalid"`
	Disposable   int `json:"disposable"`
	CatchAll     int `json:"catch_all"`
	Unknown      int `json:"unknown"`
	Errors       int `json:"errors"`
	QueriesSaved int `json:"dns_queries_saved"`
}

// Count folds one streamed result into the summary.
func (s *BatchSummary) Count(r ValidationResult) {
	s.Total++
	switch {
	case r.Error != "":
		s.Errors++
	case r.IsCatchAll:
		s.CatchAll++
	case r.Checks.IsDisposable != nil && *r.Checks.IsDisposable:
		s.Disposable++
	case r.Valid:
		s.Valid++
	case !r.Checks.Syntax || r.Deliverability == "undeliverable":
		s.Invalid++
	default:
		s.Unknown++
	}
}

// ValidateBatch validates addresses through a bounded worker pool and
// streams results as they complete, so callers can observe live progress.
// A panic in one worker becomes a per-item error result; the batch never
// aborts.
func (v *Verifier) ValidateBatch(ctx context.Context, emails []string, opts Options, batchOpts BatchOptions) <-chan ValidationResult {
	if batchOpts.RemoveDuplicates {
		emails = dedupe(emails)
	}
	if batchOpts.Advanced {
		// The pre-pass warms the DNS cache once per unique domain and moves
		// cheap rejections to the front of the queue.
		analysis := NewBatchAnalyzer(v.classifier, v.cache, v.logger).Analyze(ctx, emails)
		emails = analysis.Ordered
		v.logger.WithFields(logrus.Fields{
			"component":         "batch",
			"emails":            len(emails),
			"unique_domains":    len(analysis.Domains),
			"dns_queries_saved": analysis.DNSQueriesSaved,
		}).Info("batch pre-analysis complete")
	}

	jobs := make(chan string)
	out := make(chan ValidationResult, len(emails))

	var wg sync.WaitGroup
	for i := 0; i < v.cfg.BatchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for email := range jobs {
				out <- v.validateRecovering(ctx, email, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, email := range emails {
			select {
			case jobs <- email:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (v *Verifier) validateRecovering(ctx context.Context, email string, opts Options) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.WithFields(logrus.Fields{
				"component": "batch",
				"email":     email,
			}).Errorf("validation panic: %v", r)
			result = ValidationResult{
				Email:          email,
				Deliverability: "unknown",
				Reason:         "internal validation failure",
				Error:          fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return v.Validate(ctx, email, opts)
}

// AssessRisk scores an externally-supplied history record. Pure; nothing is
// cached.
func (v *Verifier) AssessRisk(rec EmailRiskRecord) RiskAssessment {
	return v.risk.AssessRisk(rec)
}

// PredictPattern exposes the learner's blended prediction for an address.
func (v *Verifier) PredictPattern(email string) (PatternPrediction, error) {
	addr, err := v.classifier.ParseAddress(email)
	if err != nil {
		return PatternPrediction{}, err
	}
	return v.patterns.Predict(addr), nil
}

func dedupe(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := emails[:0:0]
	for _, email := range emails {
		key := normalizeEmail(email)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, email)
	}
	return out
}
