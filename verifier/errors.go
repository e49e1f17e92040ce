package verifier

import "errors"

// Error taxonomy. Syntax and DNS failures are definitive; SMTP transport
// failures are recoverable and degrade to an unknown contribution instead of
// an invalid verdict, because many providers legitimately block probing.
var (
	ErrSyntaxInvalid       = errors.New("email syntax invalid")
	ErrDNSResolutionFailed = errors.New("domain does not resolve")
	ErrNoMXRecords         = errors.New("domain has no MX records")
	ErrSMTPConnection      = errors.New("smtp connection failed")
	ErrSMTPTimeout         = errors.New("smtp probe timed out")
	ErrSMTPPermanentReject = errors.New("smtp permanent rejection")
)
