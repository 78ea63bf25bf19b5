package track

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/huntd/internal/extract"
	"github.com/kalambet/huntd/internal/mail"
	"github.com/kalambet/huntd/internal/storage"
)

// Extraction is the orchestrator surface Syncer consumes.
type Extraction interface {
	Extract(ctx context.Context, subject, sender, bodyText, bodyHTML string) extract.Record
}

// Syncer drives one ingestion run: list refs, fetch bodies, extract, and
// fold each message into the store. Each message is one transaction; a
// processed-message marker makes the run resumable at message granularity.
type Syncer struct {
	store       *storage.Store
	source      mail.Source
	extractor   Extraction
	processor   *Processor
	concurrency int

	// skipSenders and skipSubjects drop obvious non-recruiting mail
	// (newsletters, job-board digests) before extraction.
	skipSenders  map[string]bool
	skipSubjects []string

	logger *slog.Logger
}

// SyncOptions configures one Syncer.
type SyncOptions struct {
	Concurrency  int
	SkipSenders  []string
	SkipSubjects []string
}

func NewSyncer(store *storage.Store, source mail.Source, extractor Extraction, processor *Processor, opts SyncOptions, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	skip := make(map[string]bool, len(opts.SkipSenders))
	for _, s := range opts.SkipSenders {
		skip[strings.ToLower(s)] = true
	}
	return &Syncer{
		store:        store,
		source:       source,
		extractor:    extractor,
		processor:    processor,
		concurrency:  opts.Concurrency,
		skipSenders:  skip,
		skipSubjects: opts.SkipSubjects,
		logger:       logger,
	}
}

// Summary reports what one run did.
type Summary struct {
	Seen    int `json:"seen"`
	New     int `json:"new"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Run lists messages matching query, fetches the unprocessed ones, and
// processes them in chronological order. A single bad message is logged
// and counted; it never aborts the run.
func (s *Syncer) Run(ctx context.Context, query string) (Summary, error) {
	refs, err := s.source.List(ctx, query)
	if err != nil {
		return Summary{}, fmt.Errorf("listing messages: %w", err)
	}

	sum := Summary{Seen: len(refs)}

	fresh := make([]mail.Ref, 0, len(refs))
	for _, ref := range refs {
		done, err := s.store.IsProcessed(ref.ID)
		if err != nil {
			return sum, fmt.Errorf("checking processed marker: %w", err)
		}
		if !done {
			fresh = append(fresh, ref)
		}
	}
	sum.New = len(fresh)
	if len(fresh) == 0 {
		s.logger.Info("sync found nothing new", "seen", sum.Seen)
		return sum, s.logRun(sum)
	}

	msgs, err := mail.FetchBatch(ctx, s.source, fresh, s.concurrency)
	if err != nil {
		return sum, fmt.Errorf("fetching messages: %w", err)
	}

	// Chronological order keeps resolution causally consistent: a later
	// message must see the process its predecessor created.
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Date.Before(msgs[j].Date) })

	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		created, skipped, err := s.processMessage(ctx, &msgs[i])
		switch {
		case err != nil:
			sum.Errors++
			s.logger.Error("processing message failed",
				"message", msgs[i].ID, "subject", msgs[i].Subject, "error", err)
		case skipped:
			sum.Skipped++
		case created:
			sum.Created++
		default:
			sum.Updated++
		}
	}

	s.logger.Info("sync finished",
		"seen", sum.Seen, "new", sum.New, "created", sum.Created,
		"updated", sum.Updated, "skipped", sum.Skipped, "errors", sum.Errors)
	return sum, s.logRun(sum)
}

// processMessage runs extract → resolve → mutate for one message inside a
// single transaction. The processed marker is written in the same
// transaction, so an interrupted run resumes without duplicate effects.
func (s *Syncer) processMessage(ctx context.Context, msg *mail.Message) (created, skipped bool, err error) {
	if s.shouldSkip(msg) {
		tx, err := s.store.Begin()
		if err != nil {
			return false, false, err
		}
		defer tx.Rollback()
		if err := tx.MarkProcessed(msg.ID, ""); err != nil {
			return false, false, err
		}
		return false, true, tx.Commit()
	}

	rec := s.extractor.Extract(ctx, msg.Subject, msg.Sender, msg.Text, msg.HTML)

	tx, err := s.store.Begin()
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback()

	outcome, err := s.processor.Track(tx, rec, msg)
	if err != nil {
		return false, false, err
	}

	// Marked even for unknown-company results, so a message is never
	// reprocessed on the next run.
	if err := tx.MarkProcessed(msg.ID, outcome.Company); err != nil {
		return false, false, err
	}
	return outcome.Created, false, tx.Commit()
}

func (s *Syncer) shouldSkip(msg *mail.Message) bool {
	_, addr := mail.ParseSender(msg.Sender)
	if s.skipSenders[strings.ToLower(addr)] {
		return true
	}
	subject := strings.ToLower(msg.Subject)
	for _, frag := range s.skipSubjects {
		if frag != "" && strings.Contains(subject, strings.ToLower(frag)) {
			return true
		}
	}
	return false
}

func (s *Syncer) logRun(sum Summary) error {
	err := s.store.InsertSyncLog(storage.SyncLog{
		ID:           uuid.NewString(),
		RunAt:        time.Now(),
		MessagesSeen: sum.Seen,
		MessagesNew:  sum.New,
		Errors:       sum.Errors,
	})
	if err != nil {
		return fmt.Errorf("recording sync log: %w", err)
	}
	return nil
}
