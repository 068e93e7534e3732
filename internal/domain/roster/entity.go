// Package roster contains the domain model for named student groups.
// A roster is the source students are snapshotted from when a class session
// is created; later roster edits never touch existing sessions.
package roster

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// groupNamePattern matches grade+section group names such as "9A" or "11B".
var groupNamePattern = regexp.MustCompile(`^[0-9]+[A-Z]$`)

// studentNamePattern matches names consisting of letters (including the
// Spanish accented set) and spaces. Length limits are checked separately.
var studentNamePattern = regexp.MustCompile(`^[A-Za-zÁÉÍÓÚÜÑáéíóúüñ ]+$`)

// Student name length limits in characters.
const (
	MinStudentNameLen = 2
	MaxStudentNameLen = 100
)

// GroupName represents a class group identifier (grade + section, e.g. "9A").
type GroupName string

// IsValid reports whether the group name matches the grade+section pattern.
func (g GroupName) IsValid() bool {
	return groupNamePattern.MatchString(string(g))
}

// String returns the string representation of the group name.
func (g GroupName) String() string {
	return string(g)
}

// StudentName represents a student's full name.
type StudentName string

// IsValid reports whether the name is 2-100 characters of letters,
// accented letters, and spaces.
func (n StudentName) IsValid() bool {
	s := strings.TrimSpace(string(n))
	runes := len([]rune(s))
	if runes < MinStudentNameLen || runes > MaxStudentNameLen {
		return false
	}
	return studentNamePattern.MatchString(s)
}

// Normalized returns the name with surrounding whitespace removed.
func (n StudentName) Normalized() StudentName {
	return StudentName(strings.TrimSpace(string(n)))
}

// String returns the string representation of the student name.
func (n StudentName) String() string {
	return string(n)
}

// ══════════════════════════════════════════════════════════════════════════════
// FORM-LEVEL VALIDATION
// Pure predicates used synchronously before every state mutation.
// ══════════════════════════════════════════════════════════════════════════════

// ValidateGroupName checks a raw group name from user input.
func ValidateGroupName(raw string) shared.Result {
	name := strings.TrimSpace(raw)
	if name == "" {
		return shared.Fail("group name is required")
	}
	if !GroupName(name).IsValid() {
		return shared.Fail(fmt.Sprintf("group %q must be grade+section, e.g. \"9A\"", name))
	}
	return shared.OK(name)
}

// ValidateStudentName checks a raw student name from user input.
func ValidateStudentName(raw string) shared.Result {
	name := strings.TrimSpace(raw)
	if name == "" {
		return shared.Fail("student name is required")
	}
	if !StudentName(name).IsValid() {
		return shared.Fail(fmt.Sprintf("student name %q must be 2-100 letters and spaces", name))
	}
	return shared.OK(name)
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUP
// ══════════════════════════════════════════════════════════════════════════════

// Group is an ordered collection of unique student names.
// Student order is insertion order as imported.
type Group struct {
	// Name is the group identifier.
	Name GroupName

	// Students holds the student names in insertion order.
	Students []StudentName
}

// NewGroup creates a group with a validated name and no students.
func NewGroup(name string) (*Group, error) {
	res := ValidateGroupName(name)
	if !res.Valid {
		return nil, shared.WrapError("roster", "NewGroup", shared.ErrInvalidFormat, res.Message, nil)
	}
	return &Group{Name: GroupName(res.Value)}, nil
}

// AddStudent appends a validated student name, rejecting duplicates.
func (g *Group) AddStudent(name string) error {
	res := ValidateStudentName(name)
	if !res.Valid {
		return shared.WrapError("roster", "AddStudent", shared.ErrInvalidFormat, res.Message, nil)
	}

	student := StudentName(res.Value)
	if g.Contains(student) {
		return shared.WrapError("roster", "AddStudent", shared.ErrAlreadyExists,
			fmt.Sprintf("student %q already in group %s", student, g.Name), nil)
	}

	g.Students = append(g.Students, student)
	return nil
}

// Contains reports whether the student is already in the group.
func (g *Group) Contains(name StudentName) bool {
	for _, s := range g.Students {
		if s == name {
			return true
		}
	}
	return false
}

// Size returns the number of students in the group.
func (g *Group) Size() int {
	return len(g.Students)
}

// StudentNames returns the student names as plain strings, insertion order.
func (g *Group) StudentNames() []string {
	names := make([]string, len(g.Students))
	for i, s := range g.Students {
		names[i] = s.String()
	}
	return names
}

// Clone creates a deep copy of the group.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	clone := &Group{Name: g.Name}
	clone.Students = append(clone.Students, g.Students...)
	return clone
}

// String returns a string representation for logging.
func (g *Group) String() string {
	return fmt.Sprintf("Group{Name: %s, Students: %d}", g.Name, len(g.Students))
}
