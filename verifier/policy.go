package verifier

import "time"

// ProviderPolicy tunes probing per mail provider. The large freemail
// providers are known to block RCPT verification, so they are skipped by
// default with a short timeout; business domains get longer timeouts.
type ProviderPolicy struct {
	Name       string        `json:"name"`
	Timeout    time.Duration `json:"timeout"`
	Retries    int           `json:"retries"`
	RetryDelay time.Duration `json:"retry_delay"`
	SkipSMTP   bool          `json:"skip_smtp"`
}

// DefaultProviderPolicy applies to any domain without a static entry.
func DefaultProviderPolicy() ProviderPolicy {
	return ProviderPolicy{
		Name:       "default",
		Timeout:    10 * time.Second,
		Retries:    2,
		RetryDelay: 2 * time.Second,
	}
}

var providerPolicies = buildProviderPolicies()

func buildProviderPolicies() map[string]ProviderPolicy {
	policies := make(map[string]ProviderPolicy)

	blocking := ProviderPolicy{
		Name:       "freemail-blocking",
		Timeout:    3 * time.Second,
		Retries:    1,
		RetryDelay: 1 * time.Second,
		SkipSMTP:   true,
	}
	for _, domain := range []string{
		"gmail.com", "googlemail.com",
		"yahoo.com", "yahoo.co.uk", "ymail.com", "aol.com",
		"outlook.com", "hotmail.com", "live.com", "msn.com",
		"icloud.com", "me.com", "mac.com",
	} {
		policies[domain] = blocking
	}

	tolerant := ProviderPolicy{
		Name:       "freemail-tolerant",
		Timeout:    5 * time.Second,
		Retries:    1,
		RetryDelay: 1 * time.Second,
	}
	for _, domain := range []string{
		"protonmail.com", "fastmail.com", "gmx.com", "mail.com",
		"zoho.com", "yandex.com",
	} {
		policies[domain] = tolerant
	}

	return policies
}

// LookupProviderPolicy returns the static policy for a domain, falling back
// to the default.
func LookupProviderPolicy(domain string) ProviderPolicy {
	if policy, ok := providerPolicies[normalizeDomain(domain)]; ok {
		return policy
	}
	return DefaultProviderPolicy()
}
