package migration

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sprinq/cecs378project-sub000/internal/envelope"
	"github.com/Sprinq/cecs378project-sub000/internal/observability/metrics"
	"github.com/Sprinq/cecs378project-sub000/internal/store"
)

// RowSource lists legacy plaintext rows for conversion.
type RowSource interface {
	ListPlaintext(ctx context.Context, limit int) ([]store.Message, error)
}

// RowUpdater swaps a row's content columns if it is still unchanged and
// unencrypted, returning store.ErrConflict when a concurrent writer won.
type RowUpdater interface {
	EncryptInPlace(ctx context.Context, id uuid.UUID, seenUpdatedAt time.Time, env store.Envelope, at time.Time) error
}

var (
	_ RowSource  = (*store.MessageStore)(nil)
	_ RowUpdater = (*store.MessageStore)(nil)
)

// Report summarizes one batch. Conflicts are rows a concurrent edit won;
// failures are rows whose conversation key could not be resolved or whose
// write failed outright. Neither aborts the batch.
type Report struct {
	Scanned   int `json:"scanned"`
	Migrated  int `json:"migrated"`
	Conflicts int `json:"conflicts"`
	Failures  int `json:"failures"`
}

func (r *Report) add(other Report) {
	r.Scanned += other.Scanned
	r.Migrated += other.Migrated
	r.Conflicts += other.Conflicts
	r.Failures += other.Failures
}

// Status is the admin-surface view of the worker.
type Status struct {
	LastRun    time.Time `json:"last_run"`
	LastReport Report    `json:"last_report"`
	Totals     Report    `json:"totals"`
}

// Worker batch-rewrites legacy plaintext rows under the current scheme. It
// never blocks normal send/receive: each row is converted with an optimistic
// compare-and-swap, and the worker yields between rows on cancellation.
type Worker struct {
	rows    RowSource
	updates RowUpdater
	policy  *envelope.Policy
	now     func() time.Time

	mu         sync.Mutex
	lastRun    time.Time
	lastReport Report
	totals     Report
}

func NewWorker(rows RowSource, updates RowUpdater, policy *envelope.Policy) *Worker {
	return &Worker{
		rows:    rows,
		updates: updates,
		policy:  policy,
		now:     time.Now,
	}
}

// MigrateBatch converts up to limit plaintext rows. Re-running over the same
// data is safe: converted rows no longer classify as plaintext, so a second
// pass finds nothing to do. The context is checked before every row, not
// once per batch.
func (w *Worker) MigrateBatch(ctx context.Context, limit int) (Report, error) {
	rows, err := w.rows.ListPlaintext(ctx, limit)
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for _, row := range rows {
		select {
		case <-ctx.Done():
			w.record(rep)
			return rep, ctx.Err()
		default:
		}

		rep.Scanned++
		fields, err := w.policy.Seal(row.ConversationID, row.EncryptedContent)
		if err != nil {
			rep.Failures++
			metrics.MigrationRowsTotal.WithLabelValues("failure").Inc()
			slog.Warn("row not migratable", "message_id", row.ID, "error", err)
			continue
		}

		env := store.Envelope{
			EncryptedContent:  fields.EncryptedContent,
			IV:                fields.IV,
			IsEncrypted:       fields.IsEncrypted,
			EncryptionVersion: fields.EncryptionVersion,
		}
		err = w.updates.EncryptInPlace(ctx, row.ID, row.UpdatedAt, env, w.now().UTC())
		switch {
		case err == nil:
			rep.Migrated++
			metrics.MigrationRowsTotal.WithLabelValues("migrated").Inc()
		case errors.Is(err, store.ErrConflict):
			rep.Conflicts++
			metrics.MigrationRowsTotal.WithLabelValues("conflict").Inc()
		default:
			rep.Failures++
			metrics.MigrationRowsTotal.WithLabelValues("failure").Inc()
			slog.Warn("row migration failed", "message_id", row.ID, "error", err)
		}
	}

	w.record(rep)
	return rep, nil
}

func (w *Worker) record(rep Report) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastRun = w.now().UTC()
	w.lastReport = rep
	w.totals.add(rep)
}

func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{LastRun: w.lastRun, LastReport: w.lastReport, Totals: w.totals}
}

// RunOnce executes one batch with logging and run accounting. trigger names
// what started it: interval, notify, or manual.
func (w *Worker) RunOnce(ctx context.Context, limit int, trigger string) (Report, error) {
	metrics.MigrationRunsTotal.WithLabelValues(trigger).Inc()
	rep, err := w.MigrateBatch(ctx, limit)
	if err != nil {
		slog.Error("migration batch aborted", "trigger", trigger, "error", err,
			"scanned", rep.Scanned, "migrated", rep.Migrated)
		return rep, err
	}
	slog.Info("migration batch complete", "trigger", trigger,
		"scanned", rep.Scanned, "migrated", rep.Migrated,
		"conflicts", rep.Conflicts, "failures", rep.Failures)
	return rep, nil
}

// Run executes batches until the context ends: on every interval tick and on
// every pulse. A zero interval disables the timer; a nil pulse channel
// disables notifications.
func (w *Worker) Run(ctx context.Context, interval time.Duration, limit int, pulses <-chan struct{}) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			_, _ = w.RunOnce(ctx, limit, "interval")
		case _, ok := <-pulses:
			if !ok {
				pulses = nil
				continue
			}
			_, _ = w.RunOnce(ctx, limit, "notify")
		}
	}
}
