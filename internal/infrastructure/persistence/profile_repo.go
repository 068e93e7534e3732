package persistence

import (
	"context"
	"errors"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
)

// Profile keys.
const (
	TeacherNameKey = "teacher_name"
	TeacherPINKey  = "teacher_pin"
)

// ProfileRepository persists the teacher profile: the display name used on
// report headers and the optional journal access PIN hash.
type ProfileRepository struct {
	store *kvstore.Store
}

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(store *kvstore.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

// TeacherName returns the stored teacher name, or "" when unset.
func (r *ProfileRepository) TeacherName(ctx context.Context) (string, error) {
	var name string
	if err := r.store.GetOr(ctx, TeacherNameKey, &name, ""); err != nil {
		return "", shared.WrapError("profile", "TeacherName", shared.ErrStorageUnavailable, "reading teacher name", err)
	}
	return name, nil
}

// SetTeacherName stores the teacher name.
func (r *ProfileRepository) SetTeacherName(ctx context.Context, name string) error {
	if err := r.store.Set(ctx, TeacherNameKey, name); err != nil {
		return shared.WrapError("profile", "SetTeacherName", shared.ErrStorageUnavailable, "writing teacher name", err)
	}
	return nil
}

// PINHash returns the stored bcrypt PIN hash.
// Returns shared.ErrProfileNotFound when no PIN is configured.
func (r *ProfileRepository) PINHash(ctx context.Context) ([]byte, error) {
	var hash string
	if err := r.store.Get(ctx, TeacherPINKey, &hash); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, shared.WrapError("profile", "PINHash", shared.ErrStorageUnavailable, "reading pin hash", err)
	}
	return []byte(hash), nil
}

// SetPINHash stores the bcrypt PIN hash.
func (r *ProfileRepository) SetPINHash(ctx context.Context, hash []byte) error {
	if err := r.store.Set(ctx, TeacherPINKey, string(hash)); err != nil {
		return shared.WrapError("profile", "SetPINHash", shared.ErrStorageUnavailable, "writing pin hash", err)
	}
	return nil
}

// RemovePIN deletes the configured PIN.
func (r *ProfileRepository) RemovePIN(ctx context.Context) error {
	if err := r.store.Remove(ctx, TeacherPINKey); err != nil {
		return shared.WrapError("profile", "RemovePIN", shared.ErrStorageUnavailable, "removing pin hash", err)
	}
	return nil
}
