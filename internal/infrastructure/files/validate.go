// Package files reads and writes the journal's exchange documents: roster
// import/export files and full storage backups. Every inbound document goes
// through struct validation before any of it reaches the domain, so a
// malformed file is rejected as a whole instead of half-applied.
package files

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/roster"
)

// ErrDocumentInvalid marks a structurally invalid exchange document.
var ErrDocumentInvalid = errors.New("document is invalid")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// groupname accepts identifiers like "1A" or "12B".
	_ = v.RegisterValidation("groupname", func(fl validator.FieldLevel) bool {
		return roster.ValidateGroupName(fl.Field().String()).Valid
	})

	return v
}

func validateDocument(doc interface{}) error {
	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", ErrDocumentInvalid, first.Namespace(), first.Tag())
		}
		return fmt.Errorf("%w: %v", ErrDocumentInvalid, err)
	}
	return nil
}
