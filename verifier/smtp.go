package verifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dialer abstracts the TCP dial so tests can point probes at a local server.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ProbeConfig parameterizes the single consolidated probe engine. Timeout,
// retry and delay defaults are overridden per provider and per reputation.
type ProbeConfig struct {
	Port          string
	MaxMXServers  int
	MaxConcurrent int
	SenderPool    []string
	HELOHosts     []string
}

func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Port:          "25",
		MaxMXServers:  3,
		MaxConcurrent: 10,
		SenderPool: []string{
			"verify@mailprobe.io",
			"check@mailprobe.io",
			"probe@mailprobe.io",
			"postmaster@mailprobe.io",
		},
		HELOHosts: []string{
			"verify.mailprobe.io",
			"mx-check.mailprobe.io",
			"probe.mailprobe.io",
		},
	}
}

// ProbeEngine determines, via a non-delivering SMTP transaction, whether a
// mailbox plausibly exists and whether its domain is a catch-all. One engine
// serves all probes; concurrency is bounded by a semaphore.
type ProbeEngine struct {
	cfg        ProbeConfig
	resolver   Resolver
	dialer     Dialer
	reputation *ReputationStore
	sem        chan struct{}
	logger     *logrus.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewProbeEngine(cfg ProbeConfig, resolver Resolver, dialer Dialer, reputation *ReputationStore, logger *logrus.Logger) *ProbeEngine {
	if cfg.MaxMXServers <= 0 {
		cfg.MaxMXServers = 3
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &ProbeEngine{
		cfg:        cfg,
		resolver:   resolver,
		dialer:     dialer,
		reputation: reputation,
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		logger:     logger,
	}
}

// Probe runs the full fan-out for one address: MX resolution, concurrent
// probes across up to MaxMXServers hosts, first definitive result wins and
// cancels the losers. A nil reputation store disables skip logic.
func (e *ProbeEngine) Probe(ctx context.Context, addr EmailAddress, timeoutOverride time.Duration) *SMTPProbeResult {
	domain := normalizeDomain(addr.Domain)
	log := e.log().WithFields(logrus.Fields{"component": "smtp", "domain": domain})

	policy := LookupProviderPolicy(domain)
	if policy.SkipSMTP {
		log.Debug("probe skipped by provider policy")
		return &SMTPProbeResult{
			Outcome:    ProbeUnknown,
			Confidence: 0.2,
			Message:    "provider blocks mailbox verification; probe skipped",
		}
	}
	if e.reputation != nil && e.reputation.ShouldSkipSMTP(domain) {
		log.Debug("probe skipped by domain reputation")
		return &SMTPProbeResult{
			Outcome:    ProbeUnknown,
			Confidence: 0.2,
			Message:    "domain reputation indicates probing is futile; probe skipped",
		}
	}

	timeout := policy.Timeout
	retries := policy.Retries
	delay := policy.RetryDelay
	if e.reputation != nil {
		strategy := e.reputation.OptimalStrategy(domain)
		timeout = strategy.Timeout
		retries = strategy.Retries
		delay = strategy.Delay
	}
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}

	mxRecords, err := e.resolver.LookupMX(ctx, domain)
	if err != nil || len(mxRecords) == 0 {
		return &SMTPProbeResult{
			Outcome:    ProbeUndeliverable,
			Confidence: 0.9,
			Message:    ErrNoMXRecords.Error(),
		}
	}
	sortMXByPreference(mxRecords)
	if len(mxRecords) > e.cfg.MaxMXServers {
		mxRecords = mxRecords[:e.cfg.MaxMXServers]
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *SMTPProbeResult, len(mxRecords))
	var wg sync.WaitGroup
	for _, mx := range mxRecords {
		host := strings.TrimSuffix(mx.Host, ".")
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			results <- e.probeServer(probeCtx, host, addr, timeout, retries, delay)
		}(host)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// First definitive result wins; the rest are cancelled. Among
	// non-definitive outcomes the most informative one is kept.
	var best *SMTPProbeResult
	for result := range results {
		if result == nil {
			continue
		}
		if result.Outcome.Definitive() {
			cancel()
			// Drain so the launcher goroutine can finish.
			go func() {
				for range results {
				}
			}()
			return result
		}
		if outcomeRank(result.Outcome) > outcomeRank(bestOutcome(best)) {
			best = result
		}
	}
	if best == nil {
		best = &SMTPProbeResult{
			Outcome:    ProbeUnknown,
			Confidence: 0.2,
			Message:    "all probe attempts exhausted",
		}
	}
	return best
}

// probeServer retries the full handshake against one MX host with a fixed
// inter-retry delay. Every attempt reports its outcome to the reputation
// store.
func (e *ProbeEngine) probeServer(ctx context.Context, host string, addr EmailAddress, timeout time.Duration, retries int, delay time.Duration) *SMTPProbeResult {
	if retries < 1 {
		retries = 1
	}
	var last *SMTPProbeResult
	for attempt := 0; attempt < retries; attempt++ {
		if ctx.Err() != nil {
			return last
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return last
			case <-time.After(delay):
			}
		}

		result := e.attempt(ctx, host, addr, timeout)
		if e.reputation != nil {
			e.reputation.Update(addr.Domain, result.Code, result.ResponseTimeMs,
				result.Outcome == ProbeDeliverable || result.Outcome == ProbeCatchAll,
				result.IsCatchAll)
		}
		if result.Outcome.Definitive() {
			return result
		}
		last = result
	}
	return last
}

// attempt performs one scoped SMTP transaction. The connection is closed on
// every exit path, including timeout and cancellation.
func (e *ProbeEngine) attempt(ctx context.Context, host string, addr EmailAddress, timeout time.Duration) *SMTPProbeResult {
	started := time.Now()
	result := &SMTPProbeResult{Outcome: ProbeUnknown, Confidence: 0.2, MXServer: host}
	finish := func() *SMTPProbeResult {
		result.ResponseTimeMs = time.Since(started).Milliseconds()
		return result
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := e.dialer.DialContext(attemptCtx, "tcp", net.JoinHostPort(host, e.cfg.Port))
	if err != nil {
		cause := ErrSMTPConnection
		if attemptCtx.Err() == context.DeadlineExceeded {
			cause = ErrSMTPTimeout
		}
		result.Message = fmt.Sprintf("%v: %v", cause, err)
		return finish()
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	// A cancelled sibling race must not leave this handshake hanging.
	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-attemptCtx.Done():
			conn.Close()
		case <-watchdogDone:
		}
	}()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		result.Code, result.Message = smtpError(err)
		return finish()
	}
	defer client.Close()

	if err := client.Hello(e.pickHELO()); err != nil {
		result.Code, result.Message = smtpError(err)
		result.Outcome = classifyCode(result.Code)
		return finish()
	}
	if err := client.Mail(e.pickSender()); err != nil {
		result.Code, result.Message = smtpError(err)
		result.Outcome = classifyCode(result.Code)
		return finish()
	}

	err = client.Rcpt(addr.String())
	if err == nil {
		result.Code = 250
		result.Outcome = ProbeDeliverable
		result.Confidence = 0.95
		result.Message = "recipient accepted"

		// Decoy RCPT on the same connection: a 250 for a random local-part
		// means the domain accepts everything, which caps confidence in the
		// real accept.
		if decoyErr := client.Rcpt(e.decoyAddress(addr.Domain)); decoyErr == nil {
			result.Outcome = ProbeCatchAll
			result.IsCatchAll = true
			result.Confidence = 0.6
			result.Message = "domain accepts any recipient (catch-all)"
		}
		return finish()
	}

	result.Code, result.Message = smtpError(err)
	result.Outcome = classifyCode(result.Code)
	switch {
	case result.Outcome == ProbeUndeliverable:
		result.Message = fmt.Sprintf("%v: %s", ErrSMTPPermanentReject, result.Message)
	case result.Code == 0 && attemptCtx.Err() == context.DeadlineExceeded:
		result.Message = fmt.Sprintf("%v: %s", ErrSMTPTimeout, result.Message)
	}
	result.Confidence = outcomeConfidence(result.Outcome)
	return finish()
}

// Response-code policy: 250 deliverable, 550/551/553 definitive rejection,
// 450/451/452 greylisting, 421/422 blocking, anything else risky.
func classifyCode(code int) ProbeOutcome {
	switch code {
	case 250:
		return ProbeDeliverable
	case 550, 551, 553:
		return ProbeUndeliverable
	case 450, 451, 452:
		return ProbeGreylisted
	case 421, 422:
		return ProbeBlocked
	case 0:
		return ProbeUnknown
	default:
		return ProbeRisky
	}
}

func outcomeConfidence(outcome ProbeOutcome) float64 {
	switch outcome {
	case ProbeDeliverable:
		return 0.95
	case ProbeUndeliverable:
		return 0.95
	case ProbeCatchAll:
		return 0.6
	case ProbeGreylisted:
		return 0.4
	case ProbeRisky:
		return 0.35
	case ProbeBlocked:
		return 0.3
	default:
		return 0.2
	}
}

// outcomeRank orders non-definitive outcomes by how informative they are.
func outcomeRank(outcome ProbeOutcome) int {
	switch outcome {
	case ProbeCatchAll:
		return 5
	case ProbeGreylisted:
		return 4
	case ProbeBlocked:
		return 3
	case ProbeRisky:
		return 2
	case ProbeUnknown:
		return 1
	default:
		return 0
	}
}

func bestOutcome(r *SMTPProbeResult) ProbeOutcome {
	if r == nil {
		return ""
	}
	return r.Outcome
}

func smtpError(err error) (int, string) {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code, protoErr.Msg
	}
	return 0, err.Error()
}

// Sender and HELO hostname rotate randomly to avoid trivial fingerprinting.
// The choice never influences scoring, so validation stays deterministic.
func (e *ProbeEngine) pickSender() string {
	if len(e.cfg.SenderPool) == 0 {
		return "verify@mailprobe.io"
	}
	return e.cfg.SenderPool[e.intn(len(e.cfg.SenderPool))]
}

func (e *ProbeEngine) pickHELO() string {
	if len(e.cfg.HELOHosts) == 0 {
		return "verify.mailprobe.io"
	}
	return e.cfg.HELOHosts[e.intn(len(e.cfg.HELOHosts))]
}

func (e *ProbeEngine) decoyAddress(domain string) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 14)
	for i := range b {
		b[i] = alphabet[e.intn(len(alphabet))]
	}
	return fmt.Sprintf("nx-%s@%s", b, normalizeDomain(domain))
}

func (e *ProbeEngine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e.rng.Intn(n)
}

func (e *ProbeEngine) log() *logrus.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logrus.StandardLogger()
}

// Acquire blocks until a probe slot is free or the context ends. Exposed so
// the orchestrator can bound SMTP work across a whole batch.
func (e *ProbeEngine) Acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *ProbeEngine) Release() {
	<-e.sem
}
