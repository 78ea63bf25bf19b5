package track

import (
	"testing"
	"time"

	"github.com/kalambet/huntd/internal/extract"
	"github.com/kalambet/huntd/internal/mail"
	"github.com/kalambet/huntd/internal/storage"
)

// fakeStore is an in-memory Store for resolution tests; mutations are
// recorded but otherwise inert.
type fakeStore struct {
	active   []storage.Application
	inactive []storage.Application
	aliases  map[string]string

	insertedApps    []storage.Application
	updatedApps     []storage.Application
	insertedEvents  []storage.Event
	insertedAliases []storage.CompanyEmail
	companies       []storage.Company
}

func (f *fakeStore) ActiveApplications() ([]storage.Application, error)   { return f.active, nil }
func (f *fakeStore) InactiveApplications() ([]storage.Application, error) { return f.inactive, nil }

func (f *fakeStore) AliasCompanyID(email string) (string, error) {
	if id, ok := f.aliases[email]; ok {
		return id, nil
	}
	return "", storage.ErrNotFound
}

func (f *fakeStore) CompanyByName(name string) (storage.Company, error) {
	for _, c := range f.companies {
		if c.Name == name {
			return c, nil
		}
	}
	return storage.Company{}, storage.ErrNotFound
}

func (f *fakeStore) CompanyByDomain(domain string) (storage.Company, error) {
	for _, c := range f.companies {
		if c.Domain == domain {
			return c, nil
		}
	}
	return storage.Company{}, storage.ErrNotFound
}

func (f *fakeStore) InsertCompany(c storage.Company) error {
	f.companies = append(f.companies, c)
	return nil
}

func (f *fakeStore) InsertCompanyEmail(e storage.CompanyEmail) error {
	f.insertedAliases = append(f.insertedAliases, e)
	return nil
}

func (f *fakeStore) InsertApplication(a storage.Application) error {
	f.insertedApps = append(f.insertedApps, a)
	return nil
}

func (f *fakeStore) UpdateApplication(a storage.Application) error {
	f.updatedApps = append(f.updatedApps, a)
	return nil
}

func (f *fakeStore) InsertEvent(e storage.Event) error {
	f.insertedEvents = append(f.insertedEvents, e)
	return nil
}

func app(id, company string, mut func(*storage.Application)) storage.Application {
	a := storage.Application{
		ID:           id,
		CompanyID:    "c-" + id,
		CompanyName:  company,
		Status:       "APPLIED",
		Active:       true,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}
	if mut != nil {
		mut(&a)
	}
	return a
}

func TestResolve_ThreadBeatsOtherTiers(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "jane@initech.com" }),
		app("a2", "Globex", func(a *storage.Application) { a.ThreadID = "t-42" }),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{Company: "Initech"}, &mail.Message{
		ThreadID: "t-42",
		Sender:   "Jane <jane@initech.com>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.App.ID != "a2" {
		t.Fatalf("match = %+v, want thread match on a2", m)
	}
	if m.Tier != tierThread {
		t.Errorf("tier = %s, want thread", m.Tier)
	}
}

func TestResolve_SenderAddress(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "Jane@Initech.com" }),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{}, &mail.Message{Sender: "jane@initech.com"})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Tier != tierSender {
		t.Fatalf("match = %+v, want sender match", m)
	}
}

func TestResolve_SharedSenderNeverMatchesByAddress(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "no-reply@greenhouse.io" }),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{}, &mail.Message{Sender: "no-reply@greenhouse.io"})
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("match = %+v, want nil (shared address carries no identity)", m)
	}
}

func TestResolve_LearnedAlias(t *testing.T) {
	s := &fakeStore{
		active: []storage.Application{
			app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "hr@initech.com" }),
		},
		aliases: map[string]string{"jane@initech-talent.com": "c-a1"},
	}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{}, &mail.Message{Sender: "Jane <jane@initech-talent.com>"})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Tier != tierAlias {
		t.Fatalf("match = %+v, want alias match", m)
	}
}

func TestResolve_CorporateDomain(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "hr@initech.com" }),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{}, &mail.Message{Sender: "jane@initech.com"})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Tier != tierDomain {
		t.Fatalf("match = %+v, want domain match", m)
	}
}

func TestResolve_ExcludedDomainNeverMatchesByDomain(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "careers@gmail.com" }),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{}, &mail.Message{Sender: "someone-else@gmail.com"})
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("match = %+v, want nil (webmail domain excluded)", m)
	}
}

func TestResolve_CompanyName(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "hr@initech.com" }),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{Company: "Initech GmbH"}, &mail.Message{
		Sender: "recruiter@gmail.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Tier != tierName {
		t.Fatalf("match = %+v, want name match", m)
	}
}

func TestResolve_PlatformContext(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Acme", func(a *storage.Application) {
			a.SenderEmail = "no-reply@greenhouse.io"
			a.SenderName = "Acme Recruiting"
			a.Position = "Backend Engineer"
		}),
		app("a2", "Globex", func(a *storage.Application) {
			a.SenderEmail = "no-reply@greenhouse.io"
			a.SenderName = "Globex Recruiting"
			a.Position = "Backend Engineer"
		}),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{Position: "Backend Engineer"}, &mail.Message{
		Sender: "Acme Recruiting <no-reply@greenhouse.io>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.App.ID != "a1" || m.Tier != tierPlatformContext {
		t.Fatalf("match = %+v, want platform-context match on a1", m)
	}
}

func TestResolve_PlatformContextRequiresPosition(t *testing.T) {
	s := &fakeStore{active: []storage.Application{
		app("a1", "Acme", func(a *storage.Application) {
			a.SenderEmail = "no-reply@greenhouse.io"
			a.SenderName = "Acme Recruiting"
			a.Position = "Backend Engineer"
		}),
	}}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{}, &mail.Message{
		Sender: "Acme Recruiting <no-reply@greenhouse.io>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("match = %+v, want nil without a position to disambiguate", m)
	}
}

func TestResolve_ActiveBeatsInactive(t *testing.T) {
	s := &fakeStore{
		active: []storage.Application{
			app("a1", "Initech", func(a *storage.Application) { a.SenderEmail = "hr@initech.com" }),
		},
		inactive: []storage.Application{
			app("a2", "Initech", func(a *storage.Application) {
				a.ThreadID = "t-1"
				a.SenderEmail = "hr@initech.com"
				a.Active = false
				a.Status = "REJECTED"
			}),
		},
	}
	r := NewResolver(extract.DefaultLexicon())

	// The thread id points at the rejected process, but any tier hit on
	// an active process wins first.
	m, err := r.Resolve(s, extract.Record{Company: "Initech"}, &mail.Message{
		ThreadID: "t-1",
		Sender:   "jane@initech.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.App.ID != "a1" {
		t.Fatalf("match = %+v, want active process a1", m)
	}
	if !m.WasActive {
		t.Error("WasActive = false, want true")
	}
}

func TestResolve_InactiveFallback(t *testing.T) {
	s := &fakeStore{
		inactive: []storage.Application{
			app("a1", "Initech", func(a *storage.Application) {
				a.SenderEmail = "hr@initech.com"
				a.Active = false
				a.Status = "REJECTED"
			}),
		},
	}
	r := NewResolver(extract.DefaultLexicon())

	m, err := r.Resolve(s, extract.Record{}, &mail.Message{Sender: "jane@initech.com"})
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.App.ID != "a1" {
		t.Fatalf("match = %+v, want inactive process a1", m)
	}
	if m.WasActive {
		t.Error("WasActive = true, want false")
	}
}
