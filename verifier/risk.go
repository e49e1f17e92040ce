package verifier

import (
	"strings"
	"time"
)

// EmailRiskRecord is the externally-supplied history a risk assessment is
// computed from. The persistence collaborator builds it; the scorer never
// touches storage.
type EmailRiskRecord struct {
	Email           string     `json:"email"`
	Domain          string     `json:"domain"`
	BounceCount     int        `json:"bounce_count"`
	HardBounceCount int        `json:"hard_bounce_count"`
	LastBounceDate  *time.Time `json:"last_bounce_date"`
	IsCatchAll      bool       `json:"is_catch_all"`
	IsDisposable    bool       `json:"is_disposable"`
	IsRoleBased     bool       `json:"is_role_based"`
	ConfidenceScore int        `json:"confidence_score"`
	SyntaxValid     bool       `json:"syntax_valid"`
	DNSValid        bool       `json:"dns_valid"`
	HasMX           bool       `json:"has_mx"`
}

// RiskAssessment is computed on demand and never cached.
type RiskAssessment struct {
	RiskScore       int      `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"` // LOW, MEDIUM, HIGH
	RiskFactors     []string `json:"risk_factors"`
	IsSpamTrap      bool     `json:"is_spam_trap"`
	IsBlacklisted   bool     `json:"is_blacklisted"`
	Recommendations []string `json:"recommendations"`
	SafeToSend      bool     `json:"safe_to_send"`
	Status          string   `json:"status"`
	SubStatus       string   `json:"sub_status"`
}

// RiskScorer is a pure function over a record plus static lookups.
type RiskScorer struct {
	spamTrapDomains map[string]bool
	toxicTLDs       map[string]bool
	abuseLocalParts map[string]bool
}

func NewRiskScorer() *RiskScorer {
	return &RiskScorer{
		spamTrapDomains: map[string]bool{
			"spamtrap.com":      true,
			"spam-trap.net":     true,
			"honeypot.org":      true,
			"trap.example.org":  true,
			"blackhole.mx":      true,
			"spamcop.net":       true,
			"abuse.net":         true,
			"uceprotect.net":    true,
		},
		toxicTLDs: map[string]bool{
			"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
			"top": true, "click": true, "download": true, "loan": true,
			"work": true, "review": true,
		},
		abuseLocalParts: map[string]bool{
			"abuse": true, "spam": true, "phishing": true, "fraud": true,
			"complaints": true, "blacklist": true, "devnull": true,
			"null": true, "void": true,
		},
	}
}

// AssessRisk produces the additive weighted risk score, its level, and the
// single display classification from the priority chain.
func (s *RiskScorer) AssessRisk(rec EmailRiskRecord) RiskAssessment {
	a := RiskAssessment{RiskLevel: "LOW"}

	local, domain := splitRecord(rec)
	a.IsSpamTrap = s.spamTrapDomains[domain]
	a.IsBlacklisted = s.isBlacklistedPattern(local, domain)

	score := 0
	addFactor := func(points int, factor string) {
		score += points
		a.RiskFactors = append(a.RiskFactors, factor)
	}

	switch {
	case rec.BounceCount > 5:
		addFactor(40, "more than 5 bounces on record")
	case rec.BounceCount >= 3:
		addFactor(25, "3-5 bounces on record")
	case rec.BounceCount >= 1:
		addFactor(10, "previous bounces on record")
	}

	if rec.LastBounceDate != nil {
		age := time.Since(*rec.LastBounceDate)
		switch {
		case age < 7*24*time.Hour:
			addFactor(15, "bounced within the last 7 days")
		case age < 30*24*time.Hour:
			addFactor(10, "bounced within the last 30 days")
		}
	}

	if rec.IsCatchAll {
		addFactor(20, "catch-all domain")
	}
	if rec.IsDisposable {
		addFactor(15, "disposable email domain")
	}
	if rec.IsRoleBased {
		addFactor(10, "role-based address")
	}

	switch {
	case rec.ConfidenceScore < 50:
		addFactor(20, "low deliverability confidence")
	case rec.ConfidenceScore < 70:
		addFactor(10, "moderate deliverability confidence")
	}

	if a.IsSpamTrap {
		addFactor(30, "known spam-trap domain")
	}
	if a.IsBlacklisted {
		addFactor(25, "matches blacklist pattern")
	}

	// A hard bounce is proof of non-delivery regardless of everything else.
	if rec.HardBounceCount > 0 && score < 70 {
		score = 70
		a.RiskFactors = append(a.RiskFactors, "hard bounce on record")
	}

	if score > 100 {
		score = 100
	}
	a.RiskScore = score

	switch {
	case score >= 70:
		a.RiskLevel = "HIGH"
	case score >= 40:
		a.RiskLevel = "MEDIUM"
	}
	a.SafeToSend = a.RiskLevel == "LOW"

	a.Status, a.SubStatus = s.classify(rec, local, domain, a)
	a.Recommendations = s.recommend(rec, a)
	return a
}

// classify walks the priority chain; the first critical match short-circuits
// every lower-priority check.
func (s *RiskScorer) classify(rec EmailRiskRecord, local, domain string, a RiskAssessment) (string, string) {
	switch {
	case s.abuseLocalParts[local]:
		return "do_not_mail", "abuse_address"
	case a.IsSpamTrap:
		return "do_not_mail", "spam_trap"
	case rec.HardBounceCount > 0:
		return "invalid", "hard_bounce"
	case rec.IsDisposable:
		return "do_not_mail", "disposable"
	case rec.IsCatchAll:
		return "catch_all", "accept_all_domain"
	case !rec.SyntaxValid:
		return "invalid", "bad_syntax"
	case !rec.DNSValid:
		return "invalid", "no_dns_entries"
	case !rec.HasMX:
		return "invalid", "no_mx_records"
	case rec.ConfidenceScore >= 70:
		return "valid", "deliverable"
	case rec.ConfidenceScore >= 50:
		return "risky", "low_confidence"
	default:
		return "unknown", "unverified"
	}
}

func (s *RiskScorer) recommend(rec EmailRiskRecord, a RiskAssessment) []string {
	var recs []string
	if a.IsSpamTrap || a.IsBlacklisted {
		recs = append(recs, "remove this address from all lists immediately")
	}
	if rec.HardBounceCount > 0 {
		recs = append(recs, "suppress: address has hard-bounced")
	}
	if rec.IsDisposable {
		recs = append(recs, "require a permanent address at signup")
	}
	if rec.IsCatchAll {
		recs = append(recs, "mailbox existence cannot be confirmed; send with caution")
	}
	switch a.RiskLevel {
	case "HIGH":
		recs = append(recs, "do not send to this address")
	case "MEDIUM":
		recs = append(recs, "send only in a low-volume, monitored segment")
	default:
		recs = append(recs, "safe to send")
	}
	return recs
}

func (s *RiskScorer) isBlacklistedPattern(local, domain string) bool {
	if dot := strings.LastIndex(domain, "."); dot >= 0 && s.toxicTLDs[domain[dot+1:]] {
		return true
	}
	// Keyboard-mash locals: long runs without vowels are list-scraper noise.
	if len(local) >= 12 && !strings.ContainsAny(local, "aeiou") {
		return true
	}
	return false
}

func splitRecord(rec EmailRiskRecord) (local, domain string) {
	domain = normalizeDomain(rec.Domain)
	email := normalizeEmail(rec.Email)
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
		if domain == "" {
			domain = email[at+1:]
		}
	}
	return local, domain
}
