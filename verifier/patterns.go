package verifier

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
)

const (
	// Observations below this confidence are noise and are not learned.
	patternLearnThreshold = 0.7

	maxSignatureLength = 32

	patternLocalWeight  = 0.3
	patternDomainWeight = 0.7
)

type patternCounter struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

func (c *patternCounter) ratio() (float64, bool) {
	total := c.Valid + c.Invalid
	if total == 0 {
		return 0, false
	}
	return float64(c.Valid) / float64(total), true
}

// PatternPrediction blends what the learner has seen about a local-part
// shape and a domain into one score.
type PatternPrediction struct {
	Score            float64 `json:"score"`
	LocalConfidence  float64 `json:"local_confidence"`
	DomainConfidence float64 `json:"domain_confidence"`
	Known            bool    `json:"known"`
	Recommendation   string  `json:"recommendation"` // high_confidence, uncertain
}

// PatternLearner keeps valid/invalid counters keyed by a compressed
// local-part signature and, separately, by domain. One mutex guards both
// maps.
type PatternLearner struct {
	mu       sync.Mutex
	patterns map[string]*patternCounter
	domains  map[string]*patternCounter
}

func NewPatternLearner() *PatternLearner {
	return &PatternLearner{
		patterns: make(map[string]*patternCounter),
		domains:  make(map[string]*patternCounter),
	}
}

// Learn records one observation. Results below the confidence threshold are
// dropped so noisy signals do not reinforce themselves.
func (l *PatternLearner) Learn(addr EmailAddress, isValid bool, confidence float64) {
	if confidence < patternLearnThreshold {
		return
	}
	signature := PatternSignature(addr.Local)
	domain := normalizeDomain(addr.Domain)

	l.mu.Lock()
	defer l.mu.Unlock()
	bump(l.patterns, signature, isValid)
	bump(l.domains, domain, isValid)
}

func bump(m map[string]*patternCounter, key string, isValid bool) {
	counter, ok := m[key]
	if !ok {
		counter = &patternCounter{}
		m[key] = counter
	}
	if isValid {
		counter.Valid++
	} else {
		counter.Invalid++
	}
}

// Predict blends the local-pattern ratio (weight 0.3) and the domain ratio
// (weight 0.7). Blends beyond 0.8 or below 0.2 earn a high_confidence
// recommendation.
func (l *PatternLearner) Predict(addr EmailAddress) PatternPrediction {
	signature := PatternSignature(addr.Local)
	domain := normalizeDomain(addr.Domain)

	l.mu.Lock()
	var localRatio, domainRatio float64
	var localKnown, domainKnown bool
	if counter, ok := l.patterns[signature]; ok {
		localRatio, localKnown = counter.ratio()
	}
	if counter, ok := l.domains[domain]; ok {
		domainRatio, domainKnown = counter.ratio()
	}
	l.mu.Unlock()

	prediction := PatternPrediction{
		LocalConfidence:  localRatio,
		DomainConfidence: domainRatio,
		Recommendation:   "uncertain",
	}
	if !localKnown && !domainKnown {
		prediction.Score = 0.5
		return prediction
	}
	prediction.Known = true

	// Fall back to the known half when only one side has data.
	switch {
	case localKnown && domainKnown:
		prediction.Score = localRatio*patternLocalWeight + domainRatio*patternDomainWeight
	case domainKnown:
		prediction.Score = domainRatio
	default:
		prediction.Score = localRatio
	}

	if prediction.Score > 0.8 || prediction.Score < 0.2 {
		prediction.Recommendation = "high_confidence"
	}
	return prediction
}

// PatternSignature compresses a local-part into a run-length shape: letters
// become L, digits N, anything else S, with runs collapsed to a single
// letter plus count. "john.doe99" -> "L4S1L3N2". Output is capped so
// pathological locals cannot blow up the key space.
func PatternSignature(local string) string {
	var b strings.Builder
	var runClass byte
	runLen := 0

	flush := func() {
		if runLen == 0 {
			return
		}
		b.WriteByte(runClass)
		b.WriteString(strconv.Itoa(runLen))
	}

	for _, r := range strings.ToLower(local) {
		var class byte
		switch {
		case unicode.IsLetter(r):
			class = 'L'
		case unicode.IsDigit(r):
			class = 'N'
		default:
			class = 'S'
		}
		if class == runClass {
			runLen++
			continue
		}
		flush()
		runClass = class
		runLen = 1
		if b.Len() >= maxSignatureLength {
			break
		}
	}
	flush()

	signature := b.String()
	if len(signature) > maxSignatureLength {
		signature = signature[:maxSignatureLength]
	}
	return signature
}
