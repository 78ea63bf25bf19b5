package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding applications, companies, aliases,
// events, and processed-message markers.
type Store struct {
	db *sql.DB
	queries
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "huntd.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db, queries: queries{q: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a transaction scoping one message's resolve-decide-mutate
// sequence. The caller must Commit or Rollback.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Tx{tx: tx, queries: queries{q: tx}}, nil
}

// Tx exposes the same query surface as Store within one transaction.
type Tx struct {
	tx *sql.Tx
	queries
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// queries implements the query surface shared by Store and Tx.
type queries struct {
	q dbtx
}

const applicationColumns = `id, company_id, company_name, position, status, active,
	created_at, last_activity, message_id, thread_id, sender_name, sender_email,
	summary, notes, reached_assessment, reached_interview`

func scanApplication(row interface{ Scan(...any) error }) (Application, error) {
	var a Application
	var createdAt, lastActivity string
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.CompanyName, &a.Position, &a.Status, &a.Active,
		&createdAt, &lastActivity, &a.MessageID, &a.ThreadID, &a.SenderName,
		&a.SenderEmail, &a.Summary, &a.Notes, &a.ReachedAssessment, &a.ReachedInterview,
	)
	if err != nil {
		return Application{}, err
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Application{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.LastActivity, err = time.Parse(time.RFC3339, lastActivity); err != nil {
		return Application{}, fmt.Errorf("parsing last_activity: %w", err)
	}
	return a, nil
}

func (q queries) applicationsWhere(clause string, args ...any) ([]Application, error) {
	rows, err := q.q.Query(`SELECT `+applicationColumns+` FROM applications `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// ActiveApplications returns all active applications, most recent activity first.
func (q queries) ActiveApplications() ([]Application, error) {
	return q.applicationsWhere(`WHERE active = 1 ORDER BY last_activity DESC`)
}

// InactiveApplications returns all inactive applications, most recent activity first.
func (q queries) InactiveApplications() ([]Application, error) {
	return q.applicationsWhere(`WHERE active = 0 ORDER BY last_activity DESC`)
}

// ListApplications returns applications ordered by recency, paginated.
func (q queries) ListApplications(limit, offset int) ([]Application, error) {
	return q.applicationsWhere(`ORDER BY last_activity DESC LIMIT ? OFFSET ?`, limit, offset)
}

// GetApplication returns one application by id.
func (q queries) GetApplication(id string) (Application, error) {
	a, err := scanApplication(q.q.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Application{}, ErrNotFound
	}
	return a, err
}

// InsertApplication stores a new application.
func (q queries) InsertApplication(a Application) error {
	_, err := q.q.Exec(`
		INSERT INTO applications (`+applicationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CompanyID, a.CompanyName, a.Position, a.Status, a.Active,
		a.CreatedAt.UTC().Format(time.RFC3339), a.LastActivity.UTC().Format(time.RFC3339),
		a.MessageID, a.ThreadID, a.SenderName, a.SenderEmail,
		a.Summary, a.Notes, a.ReachedAssessment, a.ReachedInterview,
	)
	return err
}

// UpdateApplication rewrites all mutable fields of an application.
func (q queries) UpdateApplication(a Application) error {
	res, err := q.q.Exec(`
		UPDATE applications SET
			company_id = ?, company_name = ?, position = ?, status = ?, active = ?,
			last_activity = ?, message_id = ?, thread_id = ?, sender_name = ?,
			sender_email = ?, summary = ?, notes = ?, reached_assessment = ?,
			reached_interview = ?
		WHERE id = ?`,
		a.CompanyID, a.CompanyName, a.Position, a.Status, a.Active,
		a.LastActivity.UTC().Format(time.RFC3339), a.MessageID, a.ThreadID,
		a.SenderName, a.SenderEmail, a.Summary, a.Notes,
		a.ReachedAssessment, a.ReachedInterview, a.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Companies & aliases ---

func scanCompany(row interface{ Scan(...any) error }) (Company, error) {
	var c Company
	var createdAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Domain, &createdAt); err != nil {
		return Company{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Company{}, fmt.Errorf("parsing created_at: %w", err)
	}
	c.CreatedAt = t
	return c, nil
}

// CompanyByName returns the company with the given exact name.
func (q queries) CompanyByName(name string) (Company, error) {
	c, err := scanCompany(q.q.QueryRow(`SELECT id, name, domain, created_at FROM companies WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return Company{}, ErrNotFound
	}
	return c, err
}

// CompanyByDomain returns the company owning the given primary domain.
func (q queries) CompanyByDomain(domain string) (Company, error) {
	c, err := scanCompany(q.q.QueryRow(`SELECT id, name, domain, created_at FROM companies WHERE domain = ? AND domain != ''`, domain))
	if err == sql.ErrNoRows {
		return Company{}, ErrNotFound
	}
	return c, err
}

// GetCompany returns one company by id.
func (q queries) GetCompany(id string) (Company, error) {
	c, err := scanCompany(q.q.QueryRow(`SELECT id, name, domain, created_at FROM companies WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Company{}, ErrNotFound
	}
	return c, err
}

// ListCompanies returns all companies ordered by name.
func (q queries) ListCompanies() ([]Company, error) {
	rows, err := q.q.Query(`SELECT id, name, domain, created_at FROM companies ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// InsertCompany stores a new company.
func (q queries) InsertCompany(c Company) error {
	_, err := q.q.Exec(`INSERT INTO companies (id, name, domain, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Domain, c.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// AliasCompanyID returns the company id an email address is attributed to.
func (q queries) AliasCompanyID(email string) (string, error) {
	var id string
	err := q.q.QueryRow(`SELECT company_id FROM company_emails WHERE email = ?`, strings.ToLower(email)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return id, err
}

// InsertCompanyEmail records an alias; already-known addresses are kept as-is.
func (q queries) InsertCompanyEmail(e CompanyEmail) error {
	_, err := q.q.Exec(`
		INSERT INTO company_emails (id, company_id, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING`,
		e.ID, e.CompanyID, strings.ToLower(e.Email), e.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// --- Events ---

// InsertEvent appends one audit row. Events are never updated or deleted.
func (q queries) InsertEvent(e Event) error {
	var old any
	if e.OldStatus != "" {
		old = e.OldStatus
	}
	_, err := q.q.Exec(`
		INSERT INTO application_events (id, application_id, old_status, new_status, summary, email_subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ApplicationID, old, e.NewStatus, e.Summary, e.EmailSubject,
		e.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// EventsByApplication returns an application's audit trail, oldest first.
func (q queries) EventsByApplication(applicationID string) ([]Event, error) {
	rows, err := q.q.Query(`
		SELECT id, application_id, old_status, new_status, summary, email_subject, created_at
		FROM application_events WHERE application_id = ?
		ORDER BY created_at ASC, id ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var old sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ApplicationID, &old, &e.NewStatus, &e.Summary, &e.EmailSubject, &createdAt); err != nil {
			return nil, err
		}
		e.OldStatus = old.String
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Processed markers & sync logs ---

// IsProcessed reports whether a message id has already been handled.
func (q queries) IsProcessed(messageID string) (bool, error) {
	var n int
	if err := q.q.QueryRow(`SELECT COUNT(*) FROM processed_messages WHERE message_id = ?`, messageID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records a message id so it is skipped on later runs.
func (q queries) MarkProcessed(messageID, companyName string) error {
	_, err := q.q.Exec(`
		INSERT INTO processed_messages (message_id, company_name, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING`,
		messageID, companyName, time.Now().UTC().Format(time.RFC3339))
	return err
}

// InsertSyncLog records one run summary.
func (q queries) InsertSyncLog(l SyncLog) error {
	_, err := q.q.Exec(`
		INSERT INTO sync_logs (id, run_at, messages_seen, messages_new, errors)
		VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.RunAt.UTC().Format(time.RFC3339), l.MessagesSeen, l.MessagesNew, l.Errors)
	return err
}
