package verifier

import (
	"fmt"
	"strings"

	"github.com/badoux/checkmail"
)

const (
	maxLocalLength  = 64
	maxDomainLength = 255
)

// Classifier performs the pure, network-free checks: syntax validation,
// disposable-domain and role-based lookups, and typo suggestions. It holds
// only static tables and is safe for concurrent use.
type Classifier struct {
	disposable map[string]bool
	roles      map[string]bool
	typos      map[string]string
	providers  []string
}

func NewClassifier() *Classifier {
	return &Classifier{
		disposable: disposableDomains,
		roles:      roleLocalParts,
		typos:      commonTypos,
		providers:  knownProviderDomains,
	}
}

// ParseAddress validates syntax and returns the normalized address. A non-nil
// error is terminal for the whole validation: no further checks run.
func (c *Classifier) ParseAddress(raw string) (EmailAddress, error) {
	email := normalizeEmail(raw)
	addr := EmailAddress{Raw: raw}

	if email == "" {
		return addr, fmt.Errorf("%w: empty address", ErrSyntaxInvalid)
	}
	if strings.Count(email, "@") != 1 {
		return addr, fmt.Errorf("%w: address must contain exactly one @", ErrSyntaxInvalid)
	}

	at := strings.Index(email, "@")
	local, domain := email[:at], email[at+1:]

	if local == "" || len(local) > maxLocalLength {
		return addr, fmt.Errorf("%w: local part must be 1-%d characters", ErrSyntaxInvalid, maxLocalLength)
	}
	if domain == "" || len(domain) > maxDomainLength {
		return addr, fmt.Errorf("%w: domain must be 1-%d characters", ErrSyntaxInvalid, maxDomainLength)
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return addr, fmt.Errorf("%w: local part cannot start or end with a dot", ErrSyntaxInvalid)
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return addr, fmt.Errorf("%w: domain cannot start or end with a dot", ErrSyntaxInvalid)
	}
	if strings.Contains(email, "..") {
		return addr, fmt.Errorf("%w: consecutive dots are not allowed", ErrSyntaxInvalid)
	}
	if !strings.Contains(domain, ".") {
		return addr, fmt.Errorf("%w: domain must contain a dot", ErrSyntaxInvalid)
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return addr, fmt.Errorf("%w: %v", ErrSyntaxInvalid, err)
	}

	addr.Local = local
	addr.Domain = domain
	return addr, nil
}

func (c *Classifier) IsDisposable(domain string) bool {
	return c.disposable[normalizeDomain(domain)]
}

// IsRoleBased matches the whole local part against the role vocabulary, plus
// a leading-segment match so "support.emea" and "sales+q3" still count.
func (c *Classifier) IsRoleBased(local string) bool {
	local = strings.ToLower(local)
	if c.roles[local] {
		return true
	}
	for _, sep := range []string{".", "-", "_", "+"} {
		if head, _, found := strings.Cut(local, sep); found && c.roles[head] {
			return true
		}
	}
	return false
}

// SuggestDomain returns a likely intended domain for a mistyped one. Exact
// matches against the curated typo map win; otherwise an edit-distance-1
// match against the known provider list is offered.
func (c *Classifier) SuggestDomain(domain string) (string, bool) {
	domain = normalizeDomain(domain)
	if suggestion, ok := c.typos[domain]; ok {
		return suggestion, true
	}
	for _, provider := range c.providers {
		if domain == provider {
			return "", false
		}
	}
	for _, provider := range c.providers {
		if editDistance(domain, provider) == 1 {
			return provider, true
		}
	}
	return "", false
}

// editDistance is plain Levenshtein over two rows. Domains are short, so the
// quadratic cost is irrelevant.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
