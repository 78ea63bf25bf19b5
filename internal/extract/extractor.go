package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kalambet/huntd/internal/mail"
)

// Extractor routes a message through the prioritized provider list with
// session-scoped failover, falling back to the heuristic extractor. The
// returned Record always passes the correction pass, whatever its source.
// Extractor is not safe for concurrent use; sync processing is sequential.
type Extractor struct {
	providers []Provider
	heuristic *Heuristic
	lex       *Lexicon

	// unavailable holds providers that hit quota/rate limits; they stay
	// dead for the remainder of the run.
	unavailable map[string]bool

	// failures counts consecutive messages on which every provider
	// failed. At maxFailures the breaker trips and providers are skipped
	// entirely. Any later provider success resets the counter
	// (reset-on-success policy).
	failures    int
	maxFailures int

	logger *slog.Logger
}

// NewExtractor creates an Extractor over the given providers in priority
// order. maxFailures <= 0 disables the circuit breaker.
func NewExtractor(providers []Provider, lex *Lexicon, maxFailures int) *Extractor {
	return &Extractor{
		providers:   providers,
		heuristic:   NewHeuristic(lex),
		lex:         lex,
		unavailable: make(map[string]bool),
		maxFailures: maxFailures,
		logger:      slog.Default(),
	}
}

// Heuristic returns the extractor's deterministic fallback.
func (e *Extractor) Heuristic() *Heuristic {
	return e.heuristic
}

// Extract derives a corrected Record for one message. It never fails: when
// all providers are exhausted, disabled, or tripped, the heuristic path
// produces the result.
func (e *Extractor) Extract(ctx context.Context, subject, sender, bodyText, bodyHTML string) Record {
	body := bodyText
	if strings.TrimSpace(body) == "" {
		body = mail.HTMLToText(bodyHTML)
	}

	if e.breakerOpen() {
		e.logger.Debug("extraction breaker open, skipping providers")
	} else {
		for _, p := range e.providers {
			if e.unavailable[p.Name()] {
				continue
			}

			fields, err := p.Extract(ctx, sender, subject, body)
			if err != nil {
				if IsQuotaError(err) {
					e.unavailable[p.Name()] = true
					e.logger.Warn("provider quota exhausted, disabling for this run", "provider", p.Name(), "error", err)
				} else {
					e.logger.Warn("provider extraction failed", "provider", p.Name(), "error", err)
				}
				continue
			}

			e.failures = 0
			rec := Sanitize(fields)
			e.logger.Debug("provider extraction succeeded", "provider", p.Name(), "company", rec.Company, "status", rec.Status)
			return e.Correct(rec, subject, sender, body)
		}
		e.failures++
		e.logger.Info("all providers failed, using heuristics", "consecutive_failures", e.failures)
	}

	rec := e.heuristic.Extract(subject, sender, body)
	return e.Correct(rec, subject, sender, body)
}

func (e *Extractor) breakerOpen() bool {
	if len(e.providers) == 0 {
		return true
	}
	return e.maxFailures > 0 && e.failures >= e.maxFailures
}

// Correct applies the post-hoc correction pass to a record from any
// source: platform de-aliasing of the employer name, then deterministic
// keyword overrides of the status. Model providers are trusted for entity
// extraction but not for conservative status labels; the narrow domain
// vocabulary is the ground truth for status.
func (e *Extractor) Correct(rec Record, subject, sender, body string) Record {
	if rec.Company == "" || e.lex.IsPlatformName(rec.Company) {
		rec.Company = e.heuristic.Company(sender, body, subject)
	}

	kw := e.lex.Keywords
	text := strings.ToLower(subject + " " + body)

	switch {
	case containsAny(text, kw.Rejected):
		rec.Status = StatusRejected
		rec.IsRejection = true
	case containsAny(text, kw.Assessment):
		rec.Status = StatusAssessment
	case containsAny(text, kw.Applied):
		if rec.Status.Weak() {
			rec.Status = StatusApplied
		}
	case rec.Status.Weak():
		if containsAny(text, kw.Offer) {
			rec.Status = StatusOffer
		} else if containsAny(text, kw.Interview) {
			rec.Status = StatusInterview
		}
	}

	return rec
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
