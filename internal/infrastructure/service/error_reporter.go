// Package service contains infrastructure services of the journal: the
// injected error reporter, the teacher profile service, and the report
// export collaborator contract.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR REPORTER
// ══════════════════════════════════════════════════════════════════════════════

// Notifier surfaces an error to the user. The presentation layer provides
// the real implementation; NopNotifier is used headless.
type Notifier interface {
	Notify(message string)
}

// NopNotifier drops notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string) {}

// ErrorReporter is the explicitly constructed logging+notification service
// every component receives instead of a module-global handler. It is built
// once at startup and lives for the whole process.
//
// Every reported error is written to the capped persistent error log before
// it is surfaced.
type ErrorReporter struct {
	repo     *persistence.ErrorLogRepository
	notifier Notifier
	logger   *slog.Logger
}

// NewErrorReporter creates an ErrorReporter.
// notifier may be nil; notifications are then dropped.
func NewErrorReporter(repo *persistence.ErrorLogRepository, notifier Notifier, logger *slog.Logger) *ErrorReporter {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorReporter{repo: repo, notifier: notifier, logger: logger}
}

// Report logs the error, appends it to the persistent log, and notifies the
// user. Persistence of the log entry itself is best effort: a full or
// unavailable store must not mask the original error.
func (r *ErrorReporter) Report(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}

	r.logger.Error("operation failed", "operation", operation, "error", err)

	entry := persistence.ErrorLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Message:   err.Error(),
		Context:   operation,
	}
	if appendErr := r.repo.Append(ctx, entry); appendErr != nil {
		r.logger.Warn("could not persist error log entry", "error", appendErr)
	}

	r.notifier.Notify(err.Error())
}

// ReportSilent logs and persists the error without notifying the user.
// Used by background work such as autosave.
func (r *ErrorReporter) ReportSilent(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}

	r.logger.Warn("background operation failed", "operation", operation, "error", err)

	entry := persistence.ErrorLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Message:   err.Error(),
		Context:   operation,
	}
	if appendErr := r.repo.Append(ctx, entry); appendErr != nil {
		r.logger.Warn("could not persist error log entry", "error", appendErr)
	}
}

// Recent returns the persisted error log, oldest first.
func (r *ErrorReporter) Recent(ctx context.Context) ([]persistence.ErrorLogEntry, error) {
	return r.repo.All(ctx)
}
