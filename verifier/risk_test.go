package verifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanRecord(email string) EmailRiskRecord {
	return EmailRiskRecord{
		Email:           email,
		SyntaxValid:     true,
		DNSValid:        true,
		HasMX:           true,
		ConfidenceScore: 95,
	}
}

func TestAssessRiskCleanAddress(t *testing.T) {
	s := NewRiskScorer()
	a := s.AssessRisk(cleanRecord("john.doe@company.com"))

	assert.Equal(t, 0, a.RiskScore)
	assert.Equal(t, "LOW", a.RiskLevel)
	assert.True(t, a.SafeToSend)
	assert.Equal(t, "valid", a.Status)
	assert.Equal(t, "deliverable", a.SubStatus)
	assert.Contains(t, a.Recommendations, "safe to send")
}

func TestAssessRiskHardBounceForcesHigh(t *testing.T) {
	s := NewRiskScorer()
	rec := cleanRecord("john.doe@company.com")
	rec.HardBounceCount = 1

	a := s.AssessRisk(rec)
	assert.GreaterOrEqual(t, a.RiskScore, 70)
	assert.Equal(t, "HIGH", a.RiskLevel)
	assert.False(t, a.SafeToSend)
	assert.Equal(t, "invalid", a.Status)
	assert.Equal(t, "hard_bounce", a.SubStatus)
	assert.Contains(t, a.RiskFactors, "hard bounce on record")
}

func TestAssessRiskBounceHistory(t *testing.T) {
	s := NewRiskScorer()

	rec := cleanRecord("a@company.com")
	rec.BounceCount = 6
	recent := time.Now().Add(-2 * 24 * time.Hour)
	rec.LastBounceDate = &recent

	a := s.AssessRisk(rec)
	// 40 for the count plus 15 for recency.
	assert.Equal(t, 55, a.RiskScore)
	assert.Equal(t, "MEDIUM", a.RiskLevel)
	assert.False(t, a.SafeToSend)
}

func TestAssessRiskSpamTrap(t *testing.T) {
	s := NewRiskScorer()
	rec := cleanRecord("user@spamcop.net")
	rec.Domain = "spamcop.net"

	a := s.AssessRisk(rec)
	assert.True(t, a.IsSpamTrap)
	assert.Equal(t, "do_not_mail", a.Status)
	assert.Equal(t, "spam_trap", a.SubStatus)
	assert.Contains(t, a.Recommendations, "remove this address from all lists immediately")
}

func TestAssessRiskAbuseAddressOutranksEverything(t *testing.T) {
	s := NewRiskScorer()
	rec := cleanRecord("abuse@spamcop.net")
	rec.Domain = "spamcop.net"
	rec.HardBounceCount = 3

	a := s.AssessRisk(rec)
	assert.Equal(t, "do_not_mail", a.Status)
	assert.Equal(t, "abuse_address", a.SubStatus)
}

func TestAssessRiskBlacklistPatterns(t *testing.T) {
	s := NewRiskScorer()

	rec := cleanRecord("user@freestuff.tk")
	rec.Domain = "freestuff.tk"
	a := s.AssessRisk(rec)
	assert.True(t, a.IsBlacklisted)

	// Long vowelless locals look machine-generated.
	rec = cleanRecord("xqzwrtplmnkj@company.com")
	a = s.AssessRisk(rec)
	assert.True(t, a.IsBlacklisted)

	rec = cleanRecord("john.doe@company.com")
	a = s.AssessRisk(rec)
	assert.False(t, a.IsBlacklisted)
}

func TestAssessRiskClassificationChain(t *testing.T) {
	s := NewRiskScorer()

	cases := []struct {
		name      string
		mutate    func(*EmailRiskRecord)
		status    string
		subStatus string
	}{
		{"disposable", func(r *EmailRiskRecord) { r.IsDisposable = true }, "do_not_mail", "disposable"},
		{"catch-all", func(r *EmailRiskRecord) { r.IsCatchAll = true }, "catch_all", "accept_all_domain"},
		{"bad syntax", func(r *EmailRiskRecord) { r.SyntaxValid = false }, "invalid", "bad_syntax"},
		{"no dns", func(r *EmailRiskRecord) { r.DNSValid = false }, "invalid", "no_dns_entries"},
		{"no mx", func(r *EmailRiskRecord) { r.HasMX = false }, "invalid", "no_mx_records"},
		{"low confidence", func(r *EmailRiskRecord) { r.ConfidenceScore = 55 }, "risky", "low_confidence"},
		{"unverified", func(r *EmailRiskRecord) { r.ConfidenceScore = 10 }, "unknown", "unverified"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := cleanRecord("john.doe@company.com")
			tc.mutate(&rec)
			a := s.AssessRisk(rec)
			assert.Equal(t, tc.status, a.Status)
			assert.Equal(t, tc.subStatus, a.SubStatus)
		})
	}
}

func TestAssessRiskScoreIsCapped(t *testing.T) {
	s := NewRiskScorer()
	rec := EmailRiskRecord{
		Email:       "abuse@trap.example.org",
		Domain:      "trap.example.org",
		BounceCount: 10,
		IsCatchAll:  true, IsDisposable: true, IsRoleBased: true,
	}
	recent := time.Now().Add(-24 * time.Hour)
	rec.LastBounceDate = &recent

	a := s.AssessRisk(rec)
	require.LessOrEqual(t, a.RiskScore, 100)
	assert.Equal(t, "HIGH", a.RiskLevel)
}
