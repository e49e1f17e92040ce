package verifier

import (
	"strings"
	"time"
)

// EmailAddress is a parsed, normalized address. Immutable once parsed.
type EmailAddress struct {
	Raw    string `json:"raw"`
	Local  string `json:"local"`
	Domain string `json:"domain"`
}

func (a EmailAddress) String() string {
	if a.Local == "" || a.Domain == "" {
		return a.Raw
	}
	return a.Local + "@" + a.Domain
}

// Tier selects how many expensive checks run for an address, based on a
// cheap preliminary score computed before any network I/O.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// CheckSet records the outcome of every individual check. Pointer fields are
// nil when the check did not run (unknown).
type CheckSet struct {
	Syntax       bool  `json:"syntax"`
	DNSValid     *bool `json:"dns_valid"`
	MXRecords    *bool `json:"mx_records"`
	IsDisposable *bool `json:"is_disposable"`
	IsRoleBased  *bool `json:"is_role_based"`
	IsCatchAll   *bool `json:"is_catch_all"`
	SMTPVerified *bool `json:"smtp_verified"`
}

// ProbeOutcome is the classification of a single SMTP probe.
type ProbeOutcome string

const (
	ProbeDeliverable   ProbeOutcome = "deliverable"
	ProbeUndeliverable ProbeOutcome = "undeliverable"
	ProbeRisky         ProbeOutcome = "risky"
	ProbeCatchAll      ProbeOutcome = "catch_all"
	ProbeGreylisted    ProbeOutcome = "greylisted"
	ProbeBlocked       ProbeOutcome = "blocked"
	ProbeUnknown       ProbeOutcome = "unknown"
)

// Definitive reports whether the outcome ends the MX fan-out: both a clean
// accept and a permanent rejection make further servers pointless.
func (o ProbeOutcome) Definitive() bool {
	return o == ProbeDeliverable || o == ProbeUndeliverable
}

// SMTPProbeResult is the transient outcome of one probe attempt.
type SMTPProbeResult struct {
	Outcome        ProbeOutcome `json:"result"`
	Confidence     float64      `json:"confidence"`
	Code           int          `json:"smtp_code"`
	Message        string       `json:"message"`
	MXServer       string       `json:"mx_server"`
	ResponseTimeMs int64        `json:"response_time_ms"`
	IsCatchAll     bool         `json:"is_catch_all"`
}

// ValidationResult is the aggregate produced once per validation call.
type ValidationResult struct {
	Email           string           `json:"email"`
	Address         EmailAddress     `json:"address"`
	Valid           bool             `json:"valid"`
	ConfidenceScore int              `json:"confidence_score"`
	Tier            Tier             `json:"tier"`
	Checks          CheckSet         `json:"checks"`
	SMTP            *SMTPProbeResult `json:"smtp_details,omitempty"`
	IsCatchAll      bool             `json:"is_catch_all"`
	Deliverability  string           `json:"deliverability"` // deliverable, risky, undeliverable, unknown
	Reason          string           `json:"reason"`
	SuggestedDomain string           `json:"suggested_domain,omitempty"`
	WHOIS           string           `json:"whois,omitempty"`
	Error           string           `json:"error,omitempty"` // batch items only
}

// Options enumerates the per-call check switches.
type Options struct {
	EnableSMTP      bool          `json:"enable_smtp"`
	CheckDNS        bool          `json:"check_dns"`
	CheckMX         bool          `json:"check_mx"`
	CheckDisposable bool          `json:"check_disposable"`
	CheckTypos      bool          `json:"check_typos"`
	CheckRoleBased  bool          `json:"check_role_based"`
	CheckDomainInfo bool          `json:"check_domain_info"` // WHOIS enrichment
	SMTPTimeout     time.Duration `json:"smtp_timeout"`
}

// DefaultOptions enables every non-SMTP check. SMTP probing is opt-in because
// many providers block it.
func DefaultOptions() Options {
	return Options{
		CheckDNS:        true,
		CheckMX:         true,
		CheckDisposable: true,
		CheckTypos:      true,
		CheckRoleBased:  true,
		SMTPTimeout:     10 * time.Second,
	}
}

// BatchOptions controls ValidateBatch behaviour.
type BatchOptions struct {
	Advanced         bool `json:"advanced"`          // run the domain pre-analysis pass
	RemoveDuplicates bool `json:"remove_duplicates"` // dedupe while preserving order
}

// ScorePolicy carries the numeric weights of the confidence formula. The
// exact constants are policy, not protocol, so they are configurable.
type ScorePolicy struct {
	DisposablePenalty  int `json:"disposable_penalty"`
	RoleBasedPenalty   int `json:"role_based_penalty"`
	CatchAllPenalty    int `json:"catch_all_penalty"`
	MissingMXPenalty   int `json:"missing_mx_penalty"`
	UnreachablePenalty int `json:"unreachable_penalty"`
	ValidThreshold     int `json:"valid_threshold"`
	HighTierThreshold  int `json:"high_tier_threshold"`
	LowTierThreshold   int `json:"low_tier_threshold"`
}

func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		DisposablePenalty:  50,
		RoleBasedPenalty:   10,
		CatchAllPenalty:    15,
		MissingMXPenalty:   40,
		UnreachablePenalty: 20,
		ValidThreshold:     50,
		HighTierThreshold:  90,
		LowTierThreshold:   60,
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func boolPtr(b bool) *bool { return &b }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimSuffix(domain, ".")))
}
