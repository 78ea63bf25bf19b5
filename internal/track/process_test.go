package track

import (
	"testing"
	"time"

	"github.com/kalambet/huntd/internal/extract"
	"github.com/kalambet/huntd/internal/mail"
	"github.com/kalambet/huntd/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func msgAt(id, thread, subject, sender string, offset time.Duration) *mail.Message {
	return &mail.Message{
		ID:       id,
		ThreadID: thread,
		Subject:  subject,
		Sender:   sender,
		Date:     baseTime.Add(offset),
	}
}

func TestTrack_CreatesProcessAndCompany(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	out, err := p.Track(s, extract.Record{
		Company: "Initech",
		Status:  extract.StatusApplied,
		Summary: "Application received",
	}, msgAt("m1", "t1", "Your application", "Jane <jane@initech.com>", 0))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Created {
		t.Fatal("expected a new process")
	}

	app, err := s.GetApplication(out.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if app.CompanyName != "Initech" || app.Status != "APPLIED" || !app.Active {
		t.Errorf("app = %+v, want active Initech/APPLIED", app)
	}

	c, err := s.CompanyByName("Initech")
	if err != nil {
		t.Fatalf("company not created: %v", err)
	}
	if c.Domain != "initech.com" {
		t.Errorf("company domain = %q, want initech.com", c.Domain)
	}

	// The sender address is learned as an alias.
	if id, err := s.AliasCompanyID("jane@initech.com"); err != nil || id != c.ID {
		t.Errorf("alias lookup = (%q, %v), want company id", id, err)
	}

	events, err := s.EventsByApplication(out.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].OldStatus != "" || events[0].NewStatus != "APPLIED" {
		t.Errorf("events = %+v, want one creation event", events)
	}
}

func TestTrack_UnknownStatusDefaultsToApplied(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	out, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusUnknown},
		msgAt("m1", "", "Hello", "jane@initech.com", 0))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != extract.StatusApplied {
		t.Errorf("status = %s, want APPLIED", out.Status)
	}
}

func TestTrack_DomainMatchAdvancesStatus(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	first, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusApplied},
		msgAt("m1", "t1", "Application received", "careers@initech.com", 0))
	if err != nil {
		t.Fatal(err)
	}

	// Different sender, same corporate domain, new thread.
	second, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusInterview},
		msgAt("m2", "t2", "Interview invitation", "Jane <jane@initech.com>", time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if second.Created {
		t.Fatal("expected update of the existing process, got a new one")
	}
	if second.ApplicationID != first.ApplicationID {
		t.Fatal("matched a different process")
	}

	app, err := s.GetApplication(first.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if app.Status != "INTERVIEW" || !app.ReachedInterview {
		t.Errorf("app = %+v, want INTERVIEW with milestone flag", app)
	}
	if app.ThreadID != "t2" || app.SenderEmail != "jane@initech.com" {
		t.Errorf("app = %+v, want thread/sender rolled forward", app)
	}
}

func TestTrack_RepeatAppliedKeepsStatusRecordsCommunication(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	out, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusInterview},
		msgAt("m1", "t1", "Interview invitation", "jane@initech.com", 0))
	if err != nil {
		t.Fatal(err)
	}

	// A later applied-confirmation in the same thread must not regress
	// the process; the event trail still records the touch.
	_, err = p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusApplied},
		msgAt("m2", "t1", "We received your application", "jane@initech.com", time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	app, err := s.GetApplication(out.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if app.Status != "INTERVIEW" {
		t.Errorf("status = %s, want INTERVIEW preserved", app.Status)
	}

	events, err := s.EventsByApplication(out.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	last := events[1]
	if last.OldStatus != "INTERVIEW" || last.NewStatus != "COMMUNICATION" {
		t.Errorf("event = %+v, want INTERVIEW -> COMMUNICATION", last)
	}
}

func TestTrack_RejectionDeactivates(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	out, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusApplied},
		msgAt("m1", "t1", "Application received", "jane@initech.com", 0))
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusRejected, IsRejection: true},
		msgAt("m2", "t1", "Update on your application", "jane@initech.com", time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	app, err := s.GetApplication(out.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if app.Active || app.Status != "REJECTED" {
		t.Errorf("app = %+v, want inactive REJECTED", app)
	}

	active, err := s.ActiveApplications()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active list = %+v, want empty", active)
	}
}

func TestTrack_FreshAttemptAfterRejection(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	first, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusRejected, IsRejection: true},
		msgAt("m1", "t1", "Update on your application", "jane@initech.com", 0))
	if err != nil {
		t.Fatal(err)
	}

	// A new applied-confirmation against the rejected process means a
	// second attempt, not a resurrection.
	second, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusApplied},
		msgAt("m2", "t2", "Application received", "jane@initech.com", 30*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !second.Created {
		t.Fatal("expected a fresh process")
	}
	if second.ApplicationID == first.ApplicationID {
		t.Fatal("reused the rejected process")
	}

	old, err := s.GetApplication(first.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if old.Active || old.Status != "REJECTED" {
		t.Errorf("old process = %+v, want still inactive REJECTED", old)
	}
}

func TestTrack_WeakSignalTouchesRejectedProcess(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	first, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusRejected, IsRejection: true},
		msgAt("m1", "t1", "Update on your application", "jane@initech.com", 0))
	if err != nil {
		t.Fatal(err)
	}

	out, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusCommunication},
		msgAt("m2", "t1", "Thanks for your note", "jane@initech.com", time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if out.Created || out.ApplicationID != first.ApplicationID {
		t.Fatalf("outcome = %+v, want update of the rejected process", out)
	}
	if out.Status != extract.StatusRejected {
		t.Errorf("status = %s, want REJECTED preserved", out.Status)
	}
}

func TestTrack_UnknownCompanyUpgradedLater(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	first, err := p.Track(s, extract.Record{Company: extract.UnknownCompany, Status: extract.StatusApplied},
		msgAt("m1", "t1", "Application received", "no-reply@greenhouse.io", 0))
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusInterview},
		msgAt("m2", "t1", "Interview invitation", "no-reply@greenhouse.io", time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	app, err := s.GetApplication(first.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if app.CompanyName != "Initech" {
		t.Errorf("company = %q, want upgraded to Initech", app.CompanyName)
	}
	if _, err := s.CompanyByName("Initech"); err != nil {
		t.Errorf("expected company record for Initech: %v", err)
	}
}

func TestTrack_SharedSenderNotLearnedAsAlias(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	_, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusApplied},
		msgAt("m1", "t1", "Application received", "no-reply@greenhouse.io", 0))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.AliasCompanyID("no-reply@greenhouse.io"); err == nil {
		t.Error("shared platform address must not become a company alias")
	}
}

func TestTrack_OutOfOrderMessageDoesNotRollBack(t *testing.T) {
	s := newTestStore(t)
	p := NewProcessor(extract.DefaultLexicon(), nil)

	out, err := p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusInterview, Summary: "Interview scheduled"},
		msgAt("m2", "t1", "Interview invitation", "jane@initech.com", 2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	// An older message delivered late contributes its event but leaves
	// last-activity and the head message untouched.
	_, err = p.Track(s, extract.Record{Company: "Initech", Status: extract.StatusApplied, Summary: "Application received"},
		msgAt("m1", "t1", "Application received", "jane@initech.com", 0))
	if err != nil {
		t.Fatal(err)
	}

	app, err := s.GetApplication(out.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if app.MessageID != "m2" {
		t.Errorf("message id = %q, want m2 preserved", app.MessageID)
	}
	if !app.LastActivity.Equal(baseTime.Add(2 * time.Hour)) {
		t.Errorf("last activity = %v, want unchanged", app.LastActivity)
	}
	if app.Summary != "Interview scheduled" {
		t.Errorf("summary = %q, want unchanged", app.Summary)
	}

	events, err := s.EventsByApplication(out.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want the late message recorded", len(events))
	}
}
