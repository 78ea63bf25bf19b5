package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Application is one candidate-employer pipeline instance. A company may
// accumulate several applications over time (re-applications); at most the
// subset with Active=true is eligible for status progression.
type Application struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id,omitempty"`
	CompanyName string    `json:"company_name"`
	Position    string    `json:"position,omitempty"`
	Status      string    `json:"status"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	// LastActivity is the timestamp of the newest message folded into
	// this application, not the wall-clock write time.
	LastActivity      time.Time `json:"last_activity"`
	MessageID         string    `json:"message_id,omitempty"`
	ThreadID          string    `json:"thread_id,omitempty"`
	SenderName        string    `json:"sender_name,omitempty"`
	SenderEmail       string    `json:"sender_email,omitempty"`
	Summary           string    `json:"summary,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	ReachedAssessment bool      `json:"reached_assessment"`
	ReachedInterview  bool      `json:"reached_interview"`
}

// Company is a canonical employer record owning zero or more alias emails.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyEmail maps a sender address to a company once confidently
// attributed. Shared/platform addresses are never recorded here.
type CompanyEmail struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is one immutable audit row. Exactly one row is appended per
// processed message, even when the aggregate status did not change.
// OldStatus is empty on the creation event.
type Event struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	OldStatus     string    `json:"old_status,omitempty"`
	NewStatus     string    `json:"new_status"`
	Summary       string    `json:"summary,omitempty"`
	EmailSubject  string    `json:"email_subject,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SyncLog summarizes one sync run.
type SyncLog struct {
	ID           string    `json:"id"`
	RunAt        time.Time `json:"run_at"`
	MessagesSeen int       `json:"messages_seen"`
	MessagesNew  int       `json:"messages_new"`
	Errors       int       `json:"errors"`
}
