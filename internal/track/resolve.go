// Package track folds extracted application records into persistent
// application processes: tiered identity resolution, rank-based status
// progression, and transactional mutation with an append-only audit trail.
package track

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/huntd/internal/extract"
	"github.com/kalambet/huntd/internal/mail"
	"github.com/kalambet/huntd/internal/storage"
)

// Store is the persistence surface track consumes. Both *storage.Store
// and *storage.Tx satisfy it; per-message work runs against a Tx.
type Store interface {
	ActiveApplications() ([]storage.Application, error)
	InactiveApplications() ([]storage.Application, error)
	AliasCompanyID(email string) (string, error)
	CompanyByName(name string) (storage.Company, error)
	CompanyByDomain(domain string) (storage.Company, error)
	InsertCompany(c storage.Company) error
	InsertCompanyEmail(e storage.CompanyEmail) error
	InsertApplication(a storage.Application) error
	UpdateApplication(a storage.Application) error
	InsertEvent(e storage.Event) error
}

// Resolver matches an extracted record plus message metadata against
// existing application processes.
type Resolver struct {
	lex *extract.Lexicon
}

func NewResolver(lex *extract.Lexicon) *Resolver {
	return &Resolver{lex: lex}
}

// matchTier identifies which identity rule produced a match, for logging.
type matchTier int

const (
	tierNone matchTier = iota
	tierThread
	tierSender
	tierAlias
	tierDomain
	tierName
	tierPlatformContext
)

func (t matchTier) String() string {
	switch t {
	case tierThread:
		return "thread"
	case tierSender:
		return "sender"
	case tierAlias:
		return "alias"
	case tierDomain:
		return "domain"
	case tierName:
		return "name"
	case tierPlatformContext:
		return "platform-context"
	}
	return "none"
}

// Match is a successful resolution: the matched process, whether it was
// active when matched, and the tier that produced the match.
type Match struct {
	App       storage.Application
	WasActive bool
	Tier      matchTier
}

// Resolve finds the application process a record belongs to, or nil when
// none matches. Tiers are evaluated in fixed order, each tier scanned
// across every active process before any inactive one is considered;
// inactive processes are ordered by most recent activity.
func (r *Resolver) Resolve(s Store, rec extract.Record, msg *mail.Message) (*Match, error) {
	name, email := mail.ParseSender(msg.Sender)
	domain := mail.Domain(email)

	// The alias lookup is shared by every tier-3 evaluation; do it once.
	aliasCompanyID := ""
	if email != "" && !r.lex.IsSharedEmail(email) {
		id, err := s.AliasCompanyID(email)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("looking up alias %s: %w", email, err)
		}
		aliasCompanyID = id
	}

	ident := identity{
		record:         rec,
		threadID:       msg.ThreadID,
		senderName:     name,
		senderEmail:    strings.ToLower(email),
		senderDomain:   domain,
		aliasCompanyID: aliasCompanyID,
	}

	active, err := s.ActiveApplications()
	if err != nil {
		return nil, fmt.Errorf("loading active applications: %w", err)
	}
	if app, tier := r.matchAny(active, ident); tier != tierNone {
		return &Match{App: *app, WasActive: true, Tier: tier}, nil
	}

	inactive, err := s.InactiveApplications()
	if err != nil {
		return nil, fmt.Errorf("loading inactive applications: %w", err)
	}
	if app, tier := r.matchAny(inactive, ident); tier != tierNone {
		return &Match{App: *app, WasActive: false, Tier: tier}, nil
	}

	return nil, nil
}

type identity struct {
	record         extract.Record
	threadID       string
	senderName     string
	senderEmail    string
	senderDomain   string
	aliasCompanyID string
}

var tiers = []matchTier{tierThread, tierSender, tierAlias, tierDomain, tierName, tierPlatformContext}

func (r *Resolver) matchAny(apps []storage.Application, id identity) (*storage.Application, matchTier) {
	for _, tier := range tiers {
		for i := range apps {
			if r.matches(tier, &apps[i], id) {
				return &apps[i], tier
			}
		}
	}
	return nil, tierNone
}

func (r *Resolver) matches(tier matchTier, app *storage.Application, id identity) bool {
	switch tier {
	case tierThread:
		return id.threadID != "" && id.threadID == app.ThreadID

	case tierSender:
		return id.senderEmail != "" &&
			id.senderEmail == strings.ToLower(app.SenderEmail) &&
			!r.lex.IsSharedEmail(id.senderEmail)

	case tierAlias:
		return id.aliasCompanyID != "" && id.aliasCompanyID == app.CompanyID

	case tierDomain:
		if id.senderDomain == "" || r.lex.IsExcludedDomain(id.senderDomain) {
			return false
		}
		return id.senderDomain == mail.Domain(app.SenderEmail)

	case tierName:
		if id.record.Company == "" || id.record.Company == extract.UnknownCompany {
			return false
		}
		return r.lex.CompanyNamesMatch(id.record.Company, app.CompanyName)

	case tierPlatformContext:
		// Shared ATS address carries no employer identity; role + display
		// name are the only disambiguators left.
		if !r.lex.IsSharedPlatformDomain(id.senderDomain) {
			return false
		}
		if id.senderDomain != mail.Domain(app.SenderEmail) {
			return false
		}
		return id.record.Position != "" && id.record.Position == app.Position &&
			id.senderName != "" && id.senderName == app.SenderName
	}
	return false
}
