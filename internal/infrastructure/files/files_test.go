package files

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRoster(t *testing.T) {
	path := writeFile(t, "roster.json",
		`{"9A": ["Ana Lopez", "Juan Perez"], "10B": ["Mia Cruz"]}`)

	groups, err := ReadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"9A":  {"Ana Lopez", "Juan Perez"},
		"10B": {"Mia Cruz"},
	}, groups)
}

func TestReadRoster_RejectsBadGroupName(t *testing.T) {
	path := writeFile(t, "roster.json", `{"A9": ["Ana Lopez"]}`)

	_, err := ReadRoster(path)
	assert.ErrorIs(t, err, ErrDocumentInvalid)
}

func TestReadRoster_RejectsMalformedJSON(t *testing.T) {
	path := writeFile(t, "roster.json", `["9A"]`)

	_, err := ReadRoster(path)
	assert.ErrorIs(t, err, ErrDocumentInvalid)
}

func TestReadRoster_RejectsEmptyDocument(t *testing.T) {
	_, err := ReadRoster(writeFile(t, "roster.json", `{}`))
	assert.ErrorIs(t, err, ErrDocumentInvalid)
}

func TestReadRoster_MissingFile(t *testing.T) {
	_, err := ReadRoster(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDocumentInvalid)
}

func TestWriteRosterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	groups := map[string][]string{"9A": {"Zoe Luna", "Ana Lopez", "Juan Perez"}}

	require.NoError(t, WriteRoster(path, groups))

	read, err := ReadRoster(path)
	require.NoError(t, err)
	// Student order is roster order; export→import must not reorder it.
	assert.Equal(t, groups, read)
}

func TestWriteRosterReplacesExisting(t *testing.T) {
	path := writeFile(t, "roster.json", `{"9A": ["Old Name"]}`)

	require.NoError(t, WriteRoster(path, map[string][]string{"10B": {"Mia Cruz"}}))

	read, err := ReadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"10B": {"Mia Cruz"}}, read)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".journal-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files must not survive a successful write")
}

func TestBackupRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	backup := &kvstore.Backup{
		Version:   kvstore.BackupVersion,
		Timestamp: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		Data: map[string]json.RawMessage{
			"bitacora:groups": json.RawMessage(`{"9A":["Ana Lopez"]}`),
		},
	}

	require.NoError(t, WriteBackup(path, backup))

	read, err := ReadBackup(path)
	require.NoError(t, err)
	assert.Equal(t, backup.Version, read.Version)
	assert.True(t, backup.Timestamp.Equal(read.Timestamp))
	assert.Equal(t, backup.Data, read.Data)
}

func TestWriteBackup_NilRejected(t *testing.T) {
	err := WriteBackup(filepath.Join(t.TempDir(), "backup.json"), nil)
	assert.ErrorIs(t, err, ErrDocumentInvalid)
}

func TestReadBackup_RejectsMissingFields(t *testing.T) {
	path := writeFile(t, "backup.json", `{"data": {"k": "v"}}`)

	_, err := ReadBackup(path)
	assert.ErrorIs(t, err, ErrDocumentInvalid)
}
