package verifier

// PreliminaryScore computes the no-network confidence used for tier
// selection: 100 for valid syntax, minus the disposable and role penalties,
// floored at zero.
func PreliminaryScore(disposable, roleBased bool, policy ScorePolicy) int {
	score := 100
	if disposable {
		score -= policy.DisposablePenalty
	}
	if roleBased {
		score -= policy.RoleBasedPenalty
	}
	return clampScore(score)
}

// SelectTier maps a preliminary score to a validation tier.
func SelectTier(score int, policy ScorePolicy) Tier {
	switch {
	case score >= policy.HighTierThreshold:
		return TierHigh
	case score >= policy.LowTierThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// gateOptions intersects the caller's options with what the tier allows.
// HIGH runs everything; MEDIUM keeps DNS, MX and the disposable check; LOW
// makes no network calls at all. The disposable flag is a static table hit
// and stays reported on every tier. The point is to spend no DNS or SMTP
// round-trips on addresses that are already almost certainly invalid.
func gateOptions(tier Tier, opts Options) Options {
	switch tier {
	case TierHigh:
		return opts
	case TierMedium:
		opts.CheckTypos = false
		opts.CheckRoleBased = false
		opts.EnableSMTP = false
		opts.CheckDomainInfo = false
		return opts
	default:
		return Options{
			CheckDisposable: opts.CheckDisposable,
			SMTPTimeout:     opts.SMTPTimeout,
		}
	}
}
