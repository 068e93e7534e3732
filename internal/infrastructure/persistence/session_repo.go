// Package persistence implements the journal repositories on top of the
// namespaced key-value store. Repositories own the key layout:
//
//	session_{group}_{date} → session JSON
//	groups                 → {group: [student, ...]}
//	teacher_name           → string
//	teacher_pin            → bcrypt hash
//	errorLogs              → capped list of error entries
package persistence

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/session"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
)

// SessionKeyPrefix is the unqualified key prefix of persisted sessions.
const SessionKeyPrefix = "session_"

// SessionRepository persists sessions in the key-value store.
type SessionRepository struct {
	store  *kvstore.Store
	logger *slog.Logger
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(store *kvstore.Store, logger *slog.Logger) *SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRepository{store: store, logger: logger}
}

// Save implements session.Repository.
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	if err := r.store.Set(ctx, s.StorageKey(), s); err != nil {
		if errors.Is(err, kvstore.ErrQuotaExceeded) {
			return shared.WrapError("session", "Save", shared.ErrStoreFull, "session does not fit in storage", err)
		}
		return shared.WrapError("session", "Save", shared.ErrStorageUnavailable, "writing session", err)
	}
	return nil
}

// Load implements session.Repository. The stored record is structurally
// validated before it is accepted; a corrupt record never replaces in-memory
// state.
func (r *SessionRepository) Load(ctx context.Context, group, date string) (*session.Session, error) {
	var s session.Session
	if err := r.store.Get(ctx, session.Key(group, date), &s); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, shared.ErrSessionNotFound
		}
		if errors.Is(err, kvstore.ErrSerialization) {
			return nil, shared.WrapError("session", "Load", shared.ErrStructural, "undecodable session record", err)
		}
		return nil, shared.WrapError("session", "Load", shared.ErrStorageUnavailable, "reading session", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete implements session.Repository.
func (r *SessionRepository) Delete(ctx context.Context, group, date string) error {
	key := session.Key(group, date)

	found, err := r.store.Has(ctx, key)
	if err != nil {
		return shared.WrapError("session", "Delete", shared.ErrStorageUnavailable, "checking session", err)
	}
	if !found {
		return shared.ErrSessionNotFound
	}

	if err := r.store.Remove(ctx, key); err != nil {
		return shared.WrapError("session", "Delete", shared.ErrStorageUnavailable, "removing session", err)
	}
	return nil
}

// Exists implements session.Repository.
func (r *SessionRepository) Exists(ctx context.Context, group, date string) (bool, error) {
	return r.store.Has(ctx, session.Key(group, date))
}

// SavedSessions implements session.Source. Undecodable records are skipped
// and logged rather than failing the whole scan; the statistics engine
// applies its own qualification rules on top.
func (r *SessionRepository) SavedSessions(ctx context.Context) ([]*session.Session, int, error) {
	keys, err := r.store.ListKeys(ctx, SessionKeyPrefix)
	if err != nil {
		return nil, 0, shared.WrapError("session", "SavedSessions", shared.ErrStorageUnavailable, "listing sessions", err)
	}

	sessions := make([]*session.Session, 0, len(keys))
	skipped := 0

	for _, key := range keys {
		if !strings.HasPrefix(key, SessionKeyPrefix) {
			continue
		}

		var s session.Session
		if err := r.store.Get(ctx, key, &s); err != nil {
			skipped++
			r.logger.Warn("skipping undecodable session record", "key", key, "error", err)
			continue
		}
		sessions = append(sessions, &s)
	}
	return sessions, skipped, nil
}
