package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// PIN length limits in digits.
const (
	MinPINLen = 4
	MaxPINLen = 8
)

// ProfileService manages the teacher profile: the display name printed on
// report headers and the optional journal access PIN.
type ProfileService struct {
	repo *persistence.ProfileRepository
}

// NewProfileService creates a ProfileService.
func NewProfileService(repo *persistence.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// TeacherName returns the stored teacher name, or "" when unset.
func (s *ProfileService) TeacherName(ctx context.Context) (string, error) {
	return s.repo.TeacherName(ctx)
}

// SetTeacherName validates and stores the teacher name.
// The same rules as student names apply: 2-100 letters and spaces.
func (s *ProfileService) SetTeacherName(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	runes := []rune(trimmed)
	if len(runes) < 2 || len(runes) > 100 {
		return shared.WrapError("profile", "SetTeacherName", shared.ErrInvalidInput,
			"teacher name must be 2-100 characters", nil)
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && r != ' ' {
			return shared.WrapError("profile", "SetTeacherName", shared.ErrInvalidInput,
				"teacher name may only contain letters and spaces", nil)
		}
	}
	return s.repo.SetTeacherName(ctx, trimmed)
}

// SetPIN hashes and stores a numeric access PIN.
func (s *ProfileService) SetPIN(ctx context.Context, pin string) error {
	if len(pin) < MinPINLen || len(pin) > MaxPINLen {
		return shared.WrapError("profile", "SetPIN", shared.ErrInvalidInput,
			"pin must be 4-8 digits", nil)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return shared.WrapError("profile", "SetPIN", shared.ErrInvalidInput,
				"pin must be digits only", nil)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return shared.WrapError("profile", "SetPIN", shared.ErrInvalidInput, "hashing pin", err)
	}
	return s.repo.SetPINHash(ctx, hash)
}

// VerifyPIN checks a PIN against the stored hash.
// Returns shared.ErrWrongPIN on mismatch and shared.ErrProfileNotFound when
// no PIN is configured.
func (s *ProfileService) VerifyPIN(ctx context.Context, pin string) error {
	hash, err := s.repo.PINHash(ctx)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return shared.ErrWrongPIN
		}
		return shared.WrapError("profile", "VerifyPIN", shared.ErrInvalidInput, "comparing pin", err)
	}
	return nil
}

// HasPIN reports whether an access PIN is configured.
func (s *ProfileService) HasPIN(ctx context.Context) (bool, error) {
	_, err := s.repo.PINHash(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrProfileNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemovePIN deletes the configured PIN.
func (s *ProfileService) RemovePIN(ctx context.Context) error {
	return s.repo.RemovePIN(ctx)
}
