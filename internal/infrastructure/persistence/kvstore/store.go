// Package kvstore implements the namespaced key-value store the journal
// persists through. It mirrors the browser-local storage model: string keys,
// JSON string values, a fixed namespace prefix transparent to callers, and a
// hard size quota checked before every write.
//
// Key components:
//   - Store: namespacing, JSON serialization, quota accounting, backup/restore
//   - Backend: raw storage (memory, file, redis, postgres)
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("kvstore: key cannot be empty")

	// ErrKeyNotFound is returned when the requested key does not exist.
	ErrKeyNotFound = errors.New("kvstore: key not found")

	// ErrQuotaExceeded is returned when a write would push the namespaced
	// total past the configured quota. Nothing is written in that case.
	ErrQuotaExceeded = errors.New("kvstore: storage quota exceeded")

	// ErrSerialization is returned when a value cannot be marshaled to JSON.
	// Passing a non-serializable value is a caller error.
	ErrSerialization = errors.New("kvstore: serialization failed")

	// ErrBackupInvalid is returned when a backup document cannot be restored.
	ErrBackupInvalid = errors.New("kvstore: invalid backup")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultNamespace is the fixed key prefix of the journal.
const DefaultNamespace = "bitacora:"

// DefaultQuotaBytes mirrors the 5 MiB browser local-storage quota.
const DefaultQuotaBytes = 5 * 1024 * 1024

// BackupVersion is the current backup document version.
const BackupVersion = 1

// Config holds Store configuration.
type Config struct {
	// Namespace is the fixed prefix applied to every key. Callers never see it.
	Namespace string

	// QuotaBytes caps the total namespaced size: the sum of
	// len(namespaced key) + len(serialized value) over all entries.
	QuotaBytes int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:  DefaultNamespace,
		QuotaBytes: DefaultQuotaBytes,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the namespaced, quota-checked key-value store.
// It has no knowledge of schema beyond key/value strings.
type Store struct {
	backend Backend
	ns      string
	quota   int
	logger  *slog.Logger
}

// New creates a Store over the given backend.
func New(backend Backend, cfg Config) *Store {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.QuotaBytes <= 0 {
		cfg.QuotaBytes = DefaultQuotaBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		backend: backend,
		ns:      cfg.Namespace,
		quota:   cfg.QuotaBytes,
		logger:  cfg.Logger,
	}
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// qualify prefixes a caller key with the namespace.
func (s *Store) qualify(key string) string {
	return s.ns + key
}

// unqualify strips the namespace from a backend key.
func (s *Store) unqualify(key string) string {
	return strings.TrimPrefix(key, s.ns)
}

// ─────────────────────────────────────────────────────────────────────────────
// Basic operations
// ─────────────────────────────────────────────────────────────────────────────

// Set serializes the value to JSON and writes it under the namespaced key.
// The quota is checked before the write; an over-quota Set writes nothing
// and returns ErrQuotaExceeded.
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return ErrKeyEmpty
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	if err := s.checkQuota(ctx, key, len(data)); err != nil {
		return err
	}

	return s.backend.SetRaw(ctx, s.qualify(key), string(data))
}

// Get reads the value under the key and deserializes it into dest.
// Returns ErrKeyNotFound on a miss.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrKeyEmpty
	}

	raw, found, err := s.backend.GetRaw(ctx, s.qualify(key))
	if err != nil {
		return err
	}
	if !found {
		return ErrKeyNotFound
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// GetOr reads a value like Get but decodes def into dest when the key is
// missing, mirroring a get-with-default lookup. Any other failure, including
// a corrupt value, is still an error.
func (s *Store) GetOr(ctx context.Context, key string, dest, def interface{}) error {
	err := s.Get(ctx, key, dest)
	if !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}

// GetRaw reads the serialized value under the key without deserializing.
func (s *Store) GetRaw(ctx context.Context, key string) (json.RawMessage, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	raw, found, err := s.backend.GetRaw(ctx, s.qualify(key))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	return json.RawMessage(raw), nil
}

// Remove deletes the key. Removing a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return s.backend.DeleteRaw(ctx, s.qualify(key))
}

// Has reports whether the key exists.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	_, found, err := s.backend.GetRaw(ctx, s.qualify(key))
	return found, err
}

// ListKeys returns the unqualified keys containing the given substring,
// sorted. An empty substring lists every namespaced key.
func (s *Store) ListKeys(ctx context.Context, substring string) ([]string, error) {
	all, err := s.backend.Keys(ctx, s.ns)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(all))
	for _, k := range all {
		unq := s.unqualify(k)
		if substring == "" || strings.Contains(unq, substring) {
			keys = append(keys, unq)
		}
	}
	return keys, nil
}

// Clear removes every namespaced key. Keys outside the namespace are never
// touched.
func (s *Store) Clear(ctx context.Context) error {
	all, err := s.backend.Keys(ctx, s.ns)
	if err != nil {
		return err
	}
	for _, k := range all {
		if err := s.backend.DeleteRaw(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Quota accounting
// ─────────────────────────────────────────────────────────────────────────────

// UsedBytes returns the current namespaced total:
// sum of len(namespaced key) + len(value) over all entries.
func (s *Store) UsedBytes(ctx context.Context) (int, error) {
	total, err := s.usedBytesExcluding(ctx, "")
	return total, err
}

// usedBytesExcluding sums the namespaced size, skipping one caller key
// (the entry a prospective write would replace).
func (s *Store) usedBytesExcluding(ctx context.Context, excludeKey string) (int, error) {
	all, err := s.backend.Keys(ctx, s.ns)
	if err != nil {
		return 0, err
	}

	exclude := ""
	if excludeKey != "" {
		exclude = s.qualify(excludeKey)
	}

	total := 0
	for _, k := range all {
		if k == exclude {
			continue
		}
		raw, found, err := s.backend.GetRaw(ctx, k)
		if err != nil {
			return 0, err
		}
		if found {
			total += len(k) + len(raw)
		}
	}
	return total, nil
}

// checkQuota rejects a write whose prospective total would exceed the quota.
func (s *Store) checkQuota(ctx context.Context, key string, valueLen int) error {
	used, err := s.usedBytesExcluding(ctx, key)
	if err != nil {
		return err
	}

	prospective := used + len(s.qualify(key)) + valueLen
	if prospective > s.quota {
		s.logger.Warn("write rejected by storage quota",
			"key", key,
			"prospective_bytes", prospective,
			"quota_bytes", s.quota,
		)
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, prospective, s.quota)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Backup & restore
// ─────────────────────────────────────────────────────────────────────────────

// Backup is a point-in-time copy of every namespaced entry, keyed by
// unqualified key.
type Backup struct {
	Version   int                        `json:"version"`
	Timestamp time.Time                  `json:"timestamp"`
	Data      map[string]json.RawMessage `json:"data"`
}

// CreateBackup copies every namespaced entry into a Backup document.
func (s *Store) CreateBackup(ctx context.Context) (*Backup, error) {
	all, err := s.backend.Keys(ctx, s.ns)
	if err != nil {
		return nil, err
	}

	backup := &Backup{
		Version:   BackupVersion,
		Timestamp: time.Now().UTC(),
		Data:      make(map[string]json.RawMessage, len(all)),
	}

	for _, k := range all {
		raw, found, err := s.backend.GetRaw(ctx, k)
		if err != nil {
			return nil, err
		}
		if found {
			backup.Data[s.unqualify(k)] = json.RawMessage(raw)
		}
	}

	s.logger.Info("backup created", "entries", len(backup.Data))
	return backup, nil
}

// RestoreFromBackup clears the namespaced state and replays every backup
// entry through the normal Set path (quota included).
//
// Restore is destructive and not atomic: if replaying one entry fails, the
// entries already written stay written. The journal's data volume is small
// enough that the simple semantics win over a transaction log.
func (s *Store) RestoreFromBackup(ctx context.Context, backup *Backup) error {
	if backup == nil || backup.Data == nil {
		return ErrBackupInvalid
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBackupInvalid, backup.Version)
	}

	if err := s.Clear(ctx); err != nil {
		return err
	}

	restored := 0
	for key, raw := range backup.Data {
		if key == "" || !json.Valid(raw) {
			return fmt.Errorf("%w: entry %q", ErrBackupInvalid, key)
		}
		if err := s.checkQuota(ctx, key, len(raw)); err != nil {
			return err
		}
		if err := s.backend.SetRaw(ctx, s.qualify(key), string(raw)); err != nil {
			return fmt.Errorf("restoring key %q: %w", key, err)
		}
		restored++
	}

	s.logger.Info("backup restored", "entries", restored)
	return nil
}
