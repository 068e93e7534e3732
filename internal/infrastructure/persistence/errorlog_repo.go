package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
)

// ErrorLogKey is the unqualified key of the persisted error log.
const ErrorLogKey = "errorLogs"

// MaxErrorLogEntries caps the persisted error log; the oldest entries are
// dropped first.
const MaxErrorLogEntries = 100

// ErrorLogEntry is one persisted error record.
type ErrorLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Context   string    `json:"context"`
	Detail    string    `json:"detail,omitempty"`
}

// ErrorLogRepository persists the capped error log.
type ErrorLogRepository struct {
	store *kvstore.Store
}

// NewErrorLogRepository creates an ErrorLogRepository.
func NewErrorLogRepository(store *kvstore.Store) *ErrorLogRepository {
	return &ErrorLogRepository{store: store}
}

// Append adds an entry, trimming the log to MaxErrorLogEntries.
// Errors are returned but callers treat logging failures as best effort.
func (r *ErrorLogRepository) Append(ctx context.Context, entry ErrorLogEntry) error {
	entries, err := r.All(ctx)
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > MaxErrorLogEntries {
		entries = entries[len(entries)-MaxErrorLogEntries:]
	}
	return r.store.Set(ctx, ErrorLogKey, entries)
}

// All returns the persisted entries, oldest first.
func (r *ErrorLogRepository) All(ctx context.Context) ([]ErrorLogEntry, error) {
	var entries []ErrorLogEntry
	if err := r.store.Get(ctx, ErrorLogKey, &entries); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// Clear removes the persisted log.
func (r *ErrorLogRepository) Clear(ctx context.Context) error {
	return r.store.Remove(ctx, ErrorLogKey)
}
