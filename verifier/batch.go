package verifier

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
)

// invalidFormatGroup is the sentinel bucket for addresses that fail parsing.
const invalidFormatGroup = "invalid-format"

// DomainAnalysis is the per-domain verdict for one batch.
type DomainAnalysis struct {
	Domain     string `json:"domain"`
	DNSValid   bool   `json:"dns_valid"`
	MXValid    bool   `json:"mx_valid"`
	EmailCount int    `json:"email_count"`
	Status     string `json:"status"` // invalid_format, cached, analyzed, error
}

// BatchAnalysis is the output of the pre-validation domain pass.
type BatchAnalysis struct {
	Domains         map[string]*DomainAnalysis `json:"domains"`
	Ordered         []string                   `json:"ordered"`
	DNSQueriesSaved int                        `json:"dns_queries_saved"`
}

// BatchAnalyzer analyzes each unique domain in a batch exactly once through
// the shared DNS cache, then reorders the address list so cheap rejections
// are processed before anything expensive. It keeps no state across runs.
type BatchAnalyzer struct {
	classifier *Classifier
	cache      *DNSCache
	logger     *logrus.Logger
}

func NewBatchAnalyzer(classifier *Classifier, cache *DNSCache, logger *logrus.Logger) *BatchAnalyzer {
	return &BatchAnalyzer{classifier: classifier, cache: cache, logger: logger}
}

// Analyze groups addresses by domain, resolves each unique domain once, and
// returns the addresses reordered by rejection priority:
// invalid format and dead DNS first, missing MX next, fully valid last.
func (b *BatchAnalyzer) Analyze(ctx context.Context, emails []string) *BatchAnalysis {
	analysis := &BatchAnalysis{Domains: make(map[string]*DomainAnalysis)}

	type item struct {
		email  string
		domain string
		index  int
	}
	items := make([]item, 0, len(emails))

	for i, email := range emails {
		addr, err := b.classifier.ParseAddress(email)
		domain := invalidFormatGroup
		if err == nil {
			domain = addr.Domain
		}
		items = append(items, item{email: email, domain: domain, index: i})

		da, ok := analysis.Domains[domain]
		if !ok {
			da = &DomainAnalysis{Domain: domain}
			if domain == invalidFormatGroup {
				da.Status = "invalid_format"
			}
			analysis.Domains[domain] = da
		}
		da.EmailCount++
	}

	for domain, da := range analysis.Domains {
		if domain == invalidFormatGroup {
			continue
		}
		// Duplicate addresses at one domain cost exactly one resolution.
		analysis.DNSQueriesSaved += da.EmailCount - 1

		// Peek keeps the hit/miss counters honest: a cold domain should
		// register exactly one miss, inside the Lookup below.
		if dnsValid, mxValid, ok := b.cache.Peek(domain); ok {
			da.DNSValid, da.MXValid, da.Status = dnsValid, mxValid, "cached"
			analysis.DNSQueriesSaved++
			continue
		}
		dnsValid, mxValid, err := b.cache.Lookup(ctx, domain)
		if err != nil {
			da.Status = "error"
			if b.logger != nil {
				b.logger.WithFields(logrus.Fields{
					"component": "batch",
					"domain":    domain,
				}).Warnf("domain analysis failed: %v", err)
			}
			continue
		}
		da.DNSValid, da.MXValid, da.Status = dnsValid, mxValid, "analyzed"
	}

	// Stable sort keeps the caller's relative order inside each priority
	// band.
	sort.SliceStable(items, func(i, j int) bool {
		return b.priority(analysis.Domains[items[i].domain]) < b.priority(analysis.Domains[items[j].domain])
	})
	analysis.Ordered = make([]string, len(items))
	for i, it := range items {
		analysis.Ordered[i] = it.email
	}
	return analysis
}

// priority buckets: 0 invalid format, 1 invalid DNS, 2 valid DNS without MX,
// 3 fully valid.
func (b *BatchAnalyzer) priority(da *DomainAnalysis) int {
	switch {
	case da.Status == "invalid_format":
		return 0
	case !da.DNSValid:
		return 1
	case !da.MXValid:
		return 2
	default:
		return 3
	}
}
