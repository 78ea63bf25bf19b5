package track

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/huntd/internal/extract"
	"github.com/kalambet/huntd/internal/mail"
	"github.com/kalambet/huntd/internal/storage"
)

// Processor folds one extracted record into the store: it resolves the
// record against existing processes, applies status progression rules,
// and performs the create or update mutation plus the audit event.
type Processor struct {
	resolver *Resolver
	lex      *extract.Lexicon
	logger   *slog.Logger
}

func NewProcessor(lex *extract.Lexicon, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		resolver: NewResolver(lex),
		lex:      lex,
		logger:   logger,
	}
}

// Outcome describes what Track did with one message.
type Outcome struct {
	ApplicationID string
	Company       string
	Status        extract.Status
	Created       bool
}

// Track resolves rec against s and mutates accordingly. All reads and
// writes go through s; callers pass a transaction so the whole sequence
// commits atomically per message.
func (p *Processor) Track(s Store, rec extract.Record, msg *mail.Message) (Outcome, error) {
	match, err := p.resolver.Resolve(s, rec, msg)
	if err != nil {
		return Outcome{}, err
	}

	if match == nil {
		return p.create(s, rec, msg)
	}

	// A rejected pipeline does not reactivate: a strong forward signal
	// against it means a fresh attempt, so a new process is created.
	if !match.WasActive && strongForward(rec.Status) {
		p.logger.Debug("rejected process gets fresh attempt",
			"application", match.App.ID, "company", match.App.CompanyName, "status", rec.Status)
		return p.create(s, rec, msg)
	}

	p.logger.Debug("resolved application",
		"application", match.App.ID, "company", match.App.CompanyName,
		"tier", match.Tier.String(), "active", match.WasActive)
	return p.update(s, match, rec, msg)
}

func (p *Processor) create(s Store, rec extract.Record, msg *mail.Message) (Outcome, error) {
	name, email := mail.ParseSender(msg.Sender)
	ts := msg.Date
	if ts.IsZero() {
		ts = time.Now()
	}

	companyName := rec.Company
	if companyName == "" {
		companyName = extract.UnknownCompany
	}

	companyID, err := p.ensureCompany(s, companyName, email, ts)
	if err != nil {
		return Outcome{}, err
	}
	if err := p.learnAlias(s, companyID, email, ts); err != nil {
		return Outcome{}, err
	}

	status := rec.Status
	if status == extract.StatusUnknown {
		status = extract.StatusApplied
	}

	app := storage.Application{
		ID:                uuid.NewString(),
		CompanyID:         companyID,
		CompanyName:       companyName,
		Position:          rec.Position,
		Status:            string(status),
		Active:            status != extract.StatusRejected,
		CreatedAt:         ts,
		LastActivity:      ts,
		MessageID:         msg.ID,
		ThreadID:          msg.ThreadID,
		SenderName:        name,
		SenderEmail:       email,
		Summary:           rec.Summary,
		Notes:             rec.NextStep,
		ReachedAssessment: status == extract.StatusAssessment,
		ReachedInterview:  status == extract.StatusInterview,
	}
	if err := s.InsertApplication(app); err != nil {
		return Outcome{}, fmt.Errorf("inserting application for %s: %w", companyName, err)
	}

	if err := s.InsertEvent(storage.Event{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		OldStatus:     "",
		NewStatus:     string(status),
		Summary:       rec.Summary,
		EmailSubject:  msg.Subject,
		CreatedAt:     ts,
	}); err != nil {
		return Outcome{}, fmt.Errorf("inserting creation event: %w", err)
	}

	p.logger.Info("created application",
		"application", app.ID, "company", companyName, "status", status)
	return Outcome{ApplicationID: app.ID, Company: companyName, Status: status, Created: true}, nil
}

func (p *Processor) update(s Store, match *Match, rec extract.Record, msg *mail.Message) (Outcome, error) {
	app := match.App
	name, email := mail.ParseSender(msg.Sender)
	ts := msg.Date
	if ts.IsZero() {
		ts = time.Now()
	}

	current := extract.Status(app.Status)
	next, signaled := nextStatus(current, rec.Status, match.WasActive)

	// Out-of-order delivery: an older message still contributes its
	// event, but must not roll mutable fields backwards.
	if !ts.Before(app.LastActivity) {
		app.LastActivity = ts
		app.MessageID = msg.ID
		if msg.ThreadID != "" {
			app.ThreadID = msg.ThreadID
		}
		if email != "" {
			app.SenderEmail = email
			app.SenderName = name
		}
		if rec.Summary != "" {
			app.Summary = rec.Summary
		}
	}
	if app.Position == "" && rec.Position != "" {
		app.Position = rec.Position
	}

	// A process created from an unidentifiable sender gets its real name
	// once any later message yields one.
	if app.CompanyName == extract.UnknownCompany &&
		rec.Company != "" && rec.Company != extract.UnknownCompany {
		id, err := p.ensureCompany(s, rec.Company, email, ts)
		if err != nil {
			return Outcome{}, err
		}
		app.CompanyName = rec.Company
		app.CompanyID = id
	}

	app.Status = string(next)
	switch next {
	case extract.StatusAssessment:
		app.ReachedAssessment = true
	case extract.StatusInterview:
		app.ReachedInterview = true
	case extract.StatusRejected:
		app.Active = false
	}

	if err := p.learnAlias(s, app.CompanyID, email, ts); err != nil {
		return Outcome{}, err
	}
	if err := s.UpdateApplication(app); err != nil {
		return Outcome{}, fmt.Errorf("updating application %s: %w", app.ID, err)
	}

	if err := s.InsertEvent(storage.Event{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		OldStatus:     string(current),
		NewStatus:     string(signaled),
		Summary:       rec.Summary,
		EmailSubject:  msg.Subject,
		CreatedAt:     ts,
	}); err != nil {
		return Outcome{}, fmt.Errorf("inserting event for %s: %w", app.ID, err)
	}

	p.logger.Info("updated application",
		"application", app.ID, "company", app.CompanyName,
		"status", next, "signaled", signaled, "tier", match.Tier.String())
	return Outcome{ApplicationID: app.ID, Company: app.CompanyName, Status: next}, nil
}

// ensureCompany looks a company up by name, then by sender domain on a
// name miss, creating one if neither hits.
func (p *Processor) ensureCompany(s Store, companyName, email string, ts time.Time) (string, error) {
	c, err := s.CompanyByName(companyName)
	if err == nil {
		return c.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("looking up company %q: %w", companyName, err)
	}

	domain := mail.Domain(email)
	if domain != "" && !p.lex.IsExcludedDomain(domain) {
		if c, err := s.CompanyByDomain(domain); err == nil {
			return c.ID, nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("looking up company by domain %q: %w", domain, err)
		}
	} else {
		domain = ""
	}

	c = storage.Company{
		ID:        uuid.NewString(),
		Name:      companyName,
		Domain:    domain,
		CreatedAt: ts,
	}
	if err := s.InsertCompany(c); err != nil {
		return "", fmt.Errorf("inserting company %q: %w", companyName, err)
	}
	return c.ID, nil
}

// learnAlias remembers the sender address as belonging to the company,
// unless the address is a shared/platform one that serves many employers.
func (p *Processor) learnAlias(s Store, companyID, email string, ts time.Time) error {
	if companyID == "" || email == "" || p.lex.IsSharedEmail(email) {
		return nil
	}
	err := s.InsertCompanyEmail(storage.CompanyEmail{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Email:     email,
		CreatedAt: ts,
	})
	if err != nil {
		return fmt.Errorf("recording alias %s: %w", email, err)
	}
	return nil
}
