package files

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
)

// backupDocument mirrors kvstore.Backup with validation tags for the on-disk
// form. Values stay raw JSON; the store re-validates each entry on restore.
type backupDocument struct {
	Version   int                        `json:"version" validate:"required"`
	Timestamp time.Time                  `json:"timestamp" validate:"required"`
	Data      map[string]json.RawMessage `json:"data" validate:"required,dive,keys,min=1,endkeys"`
}

// ReadBackup parses and validates a backup document from disk.
func ReadBackup(path string) (*kvstore.Backup, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backup file: %w", err)
	}

	var doc backupDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentInvalid, err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	return &kvstore.Backup{
		Version:   doc.Version,
		Timestamp: doc.Timestamp,
		Data:      doc.Data,
	}, nil
}

// WriteBackup writes a backup document atomically.
func WriteBackup(path string, backup *kvstore.Backup) error {
	if backup == nil {
		return fmt.Errorf("%w: nil backup", ErrDocumentInvalid)
	}

	raw, err := json.MarshalIndent(backupDocument{
		Version:   backup.Version,
		Timestamp: backup.Timestamp,
		Data:      backup.Data,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding backup file: %w", err)
	}
	return writeAtomic(path, raw)
}
