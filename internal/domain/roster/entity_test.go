package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

func TestValidateGroupName(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"9A", true},
		{"11B", true},
		{"1C", true},
		{"  9A  ", true}, // trimmed
		{"9a", false},    // lowercase section
		{"A9", false},    // section first
		{"9", false},     // no section
		{"A", false},     // no grade
		{"9AB", false},   // two letters
		{"", false},
	}

	for _, tt := range tests {
		res := ValidateGroupName(tt.raw)
		assert.Equal(t, tt.valid, res.Valid, "group %q", tt.raw)
	}
}

func TestValidateGroupName_TrimsValue(t *testing.T) {
	res := ValidateGroupName("  9A ")
	require.True(t, res.Valid)
	assert.Equal(t, "9A", res.Value)
}

func TestValidateStudentName(t *testing.T) {
	assert.True(t, ValidateStudentName("Ana Lopez").Valid)
	assert.True(t, ValidateStudentName("José Ñañez").Valid)
	assert.True(t, ValidateStudentName("Ma").Valid) // minimum length

	assert.False(t, ValidateStudentName("A").Valid)         // too short
	assert.False(t, ValidateStudentName("Ana3").Valid)      // digits
	assert.False(t, ValidateStudentName("Ana_Lopez").Valid) // underscore
	assert.False(t, ValidateStudentName("").Valid)
	assert.False(t, ValidateStudentName("   ").Valid)

	long := make([]rune, 101)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ValidateStudentName(string(long)).Valid)
}

func TestNewGroup(t *testing.T) {
	g, err := NewGroup("9A")
	require.NoError(t, err)
	assert.Equal(t, GroupName("9A"), g.Name)
	assert.Equal(t, 0, g.Size())

	_, err = NewGroup("9a")
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestGroup_AddStudent(t *testing.T) {
	g, err := NewGroup("9A")
	require.NoError(t, err)

	require.NoError(t, g.AddStudent("Ana Lopez"))
	require.NoError(t, g.AddStudent("Juan Perez"))
	assert.Equal(t, []string{"Ana Lopez", "Juan Perez"}, g.StudentNames())

	err = g.AddStudent("Ana Lopez")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	err = g.AddStudent("X")
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	// Failed adds leave the group unchanged.
	assert.Equal(t, 2, g.Size())
}

func TestGroup_Clone(t *testing.T) {
	g, err := NewGroup("9A")
	require.NoError(t, err)
	require.NoError(t, g.AddStudent("Ana Lopez"))

	clone := g.Clone()
	require.NoError(t, clone.AddStudent("Juan Perez"))

	assert.Equal(t, 1, g.Size())
	assert.Equal(t, 2, clone.Size())
}
