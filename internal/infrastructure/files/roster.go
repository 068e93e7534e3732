package files

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// rosterDocument carries the validation tags for the roster exchange file.
// The file itself is the bare group→students mapping:
//
//	{"1A": ["Ana Lopez", "Juan Perez"]}
type rosterDocument struct {
	Groups map[string][]string `validate:"required,min=1,dive,keys,groupname,endkeys,min=1"`
}

// ReadRoster parses and validates a roster document from disk. Group names
// are checked structurally here; individual students are validated later by
// the registry import, which skips bad names instead of rejecting the file.
func ReadRoster(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}

	var groups map[string][]string
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentInvalid, err)
	}
	if err := validateDocument(rosterDocument{Groups: groups}); err != nil {
		return nil, err
	}
	return groups, nil
}

// WriteRoster writes a roster document atomically (temp file plus rename).
// Group keys come out sorted (encoding/json orders map keys); student order
// within a group is preserved as given, since it is the roster order a later
// import must restore.
func WriteRoster(path string, groups map[string][]string) error {
	raw, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding roster file: %w", err)
	}
	return writeAtomic(path, raw)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".journal-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
