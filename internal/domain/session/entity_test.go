package session

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/pkg/timeutil"
)

func today() string {
	return timeutil.FormatDate(time.Now())
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New("9A", today(), "08:30", []string{"Ana Lopez", "Juan Perez", "Maria Garcia"})
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := newTestSession(t)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "9A", s.Group)
	assert.Equal(t, today(), s.Date)
	assert.Equal(t, "08:30", s.StartTime)
	assert.Equal(t, 3, s.Students.Len())
	assert.Nil(t, s.LastSaved)

	// Every student starts present.
	s.Students.Each(func(name string, rec *StudentRecord) {
		assert.Equal(t, StatePresent, rec.State)
		assert.False(t, rec.HasIncident())
	})
}

func TestNew_RejectsInvalidInputs(t *testing.T) {
	_, err := New("9a", today(), "08:30", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	_, err = New("9A", "not-a-date", "08:30", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	_, err = New("9A", today(), "25:00", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestValidateDate(t *testing.T) {
	assert.True(t, ValidateDate(today()).Valid)

	tomorrow := timeutil.FormatDate(time.Now().Add(24 * time.Hour))
	assert.False(t, ValidateDate(tomorrow).Valid)

	tooOld := timeutil.FormatDate(time.Now().Add(-400 * 24 * time.Hour))
	assert.False(t, ValidateDate(tooOld).Valid)

	lastWeek := timeutil.FormatDate(time.Now().Add(-7 * 24 * time.Hour))
	assert.True(t, ValidateDate(lastWeek).Valid)

	assert.False(t, ValidateDate("2026/01/02").Valid)
	assert.False(t, ValidateDate("").Valid)
}

func TestValidateCommentText(t *testing.T) {
	assert.False(t, ValidateCommentText("ok").Valid) // too short
	assert.True(t, ValidateCommentText("Buen trabajo").Valid)
	assert.True(t, ValidateCommentText("  abc  ").Valid) // trimmed before checking
	assert.False(t, ValidateCommentText("...").Valid)    // no alphanumeric
	assert.True(t, ValidateCommentText("Añoñá").Valid)   // accented letters count
	assert.False(t, ValidateCommentText(strings.Repeat("a", 501)).Valid)
	assert.True(t, ValidateCommentText(strings.Repeat("a", 500)).Valid)
}

func TestClampNarrativeText(t *testing.T) {
	assert.Equal(t, "hola", ClampNarrativeText("  hola  "))
	assert.Equal(t, "", ClampNarrativeText("   "))

	long := strings.Repeat("x", 1500)
	clamped := ClampNarrativeText(long)
	assert.Len(t, []rune(clamped), MaxNarrativeLen)
}

func TestStudentSet_OrderAndDuplicates(t *testing.T) {
	set := NewStudentSet([]string{"B Uno", "A Dos", "B Uno", "C Tres"})
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"B Uno", "A Dos", "C Tres"}, set.Names())
}

func TestStudentSet_JSONRoundTripPreservesOrder(t *testing.T) {
	set := NewStudentSet([]string{"Zoe Luna", "Ana Lopez", "Juan Perez"})
	rec, ok := set.Get("Ana Lopez")
	require.True(t, ok)
	rec.State = StateAbsent

	raw, err := json.Marshal(set)
	require.NoError(t, err)

	// Keys appear in insertion order, not alphabetical.
	assert.Less(t, strings.Index(string(raw), "Zoe Luna"), strings.Index(string(raw), "Ana Lopez"))
	assert.Less(t, strings.Index(string(raw), "Ana Lopez"), strings.Index(string(raw), "Juan Perez"))

	var decoded StudentSet
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"Zoe Luna", "Ana Lopez", "Juan Perez"}, decoded.Names())

	got, ok := decoded.Get("Ana Lopez")
	require.True(t, ok)
	assert.Equal(t, StateAbsent, got.State)
}

func TestStudentSet_UnmarshalRejectsNonObject(t *testing.T) {
	var set StudentSet
	assert.Error(t, json.Unmarshal([]byte(`["Ana Lopez"]`), &set))
}

func TestSession_SetAttendance(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.SetAttendance("Ana Lopez", StateAbsent))
	rec, _ := s.Students.Get("Ana Lopez")
	assert.Equal(t, StateAbsent, rec.State)

	err := s.SetAttendance("Ana Lopez", "vacationing")
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	err = s.SetAttendance("Nadie Aqui", StateLate)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSession_SetIncidentFlag(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.SetIncidentFlag("Ana Lopez", FlagRestroom, true))
	rec, _ := s.Students.Get("Ana Lopez")
	assert.True(t, rec.Flags.Restroom)
	assert.True(t, rec.HasIncident())

	require.NoError(t, s.SetIncidentFlag("Ana Lopez", FlagRestroom, false))
	assert.False(t, rec.Flags.Restroom)
	assert.False(t, rec.HasIncident())

	assert.ErrorIs(t, s.SetIncidentFlag("Ana Lopez", "nap", true), shared.ErrValueOutOfRange)
	assert.ErrorIs(t, s.SetIncidentFlag("Nadie Aqui", FlagOther, true), shared.ErrNotFound)
}

func TestSession_AddComment(t *testing.T) {
	s := newTestSession(t)

	comment, err := s.AddComment("Ana Lopez", "Buen trabajo en equipo", "positive")
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "Buen trabajo en equipo", comment.Text)
	assert.False(t, comment.Timestamp.IsZero())

	_, err = s.AddComment("Ana Lopez", "ok", "positive")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = s.AddComment("Nadie Aqui", "Buen trabajo", "positive")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	rec, _ := s.Students.Get("Ana Lopez")
	assert.Len(t, rec.Comments, 1)
}

func TestSession_AttendanceTally(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetAttendance("Ana Lopez", StateAbsent))
	require.NoError(t, s.SetAttendance("Juan Perez", StateLate))

	tally := s.AttendanceTally()
	assert.Equal(t, Tally{Present: 1, Absent: 1, Late: 1, Total: 3}, tally)
}

func TestSession_StudentsWithIncidents(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetAttendance("Ana Lopez", StateLate))
	require.NoError(t, s.SetIncidentFlag("Juan Perez", FlagInfirmary, true))

	out := s.StudentsWithIncidents()
	require.Len(t, out, 2)
	assert.Equal(t, "Ana Lopez", out[0].Name)
	assert.Equal(t, StateLate, out[0].State)
	assert.Equal(t, "Juan Perez", out[1].Name)
	assert.True(t, out[1].Flags.Infirmary)
}

func TestSession_MergeStored(t *testing.T) {
	stored := newTestSession(t)
	require.NoError(t, stored.SetAttendance("Ana Lopez", StateAbsent))
	stored.Narrative.Topic = "Fracciones"
	stored.ActivityTime = AdequacyTight
	stored.Evaluation.Discipline = RatingGood
	saved := time.Now().UTC()
	stored.LastSaved = &saved

	// The fresh roster dropped Maria Garcia and added Pedro Gomez.
	fresh, err := New("9A", stored.Date, "09:00", []string{"Ana Lopez", "Juan Perez", "Pedro Gomez"})
	require.NoError(t, err)
	fresh.MergeStored(stored)

	// Identity and bookkeeping come from the stored record.
	assert.Equal(t, stored.ID, fresh.ID)
	assert.Equal(t, stored.CreatedAt, fresh.CreatedAt)
	assert.Equal(t, &saved, fresh.LastSaved)
	assert.Equal(t, "08:30", fresh.StartTime)

	// Saved narrative and evaluations survive.
	assert.Equal(t, "Fracciones", fresh.Narrative.Topic)
	assert.Equal(t, AdequacyTight, fresh.ActivityTime)
	assert.Equal(t, RatingGood, fresh.Evaluation.Discipline)

	// The fresh roster shape wins; stored per-student state survives
	// for students present in both.
	assert.Equal(t, []string{"Ana Lopez", "Juan Perez", "Pedro Gomez"}, fresh.Students.Names())
	rec, _ := fresh.Students.Get("Ana Lopez")
	assert.Equal(t, StateAbsent, rec.State)
	rec, _ = fresh.Students.Get("Pedro Gomez")
	assert.Equal(t, StatePresent, rec.State)
}

func TestSession_Validate(t *testing.T) {
	s := newTestSession(t)
	assert.NoError(t, s.Validate())

	bad := s.Clone()
	bad.Group = "nope"
	assert.ErrorIs(t, bad.Validate(), shared.ErrStructural)

	bad = s.Clone()
	bad.Date = "garbage"
	assert.ErrorIs(t, bad.Validate(), shared.ErrStructural)

	bad = s.Clone()
	bad.Students = NewStudentSet(nil)
	assert.ErrorIs(t, bad.Validate(), shared.ErrStructural)

	bad = s.Clone()
	rec, _ := bad.Students.Get("Ana Lopez")
	rec.State = "vacationing"
	assert.ErrorIs(t, bad.Validate(), shared.ErrStructural)

	bad = s.Clone()
	bad.ActivityTime = "plenty"
	assert.ErrorIs(t, bad.Validate(), shared.ErrStructural)

	bad = s.Clone()
	bad.Evaluation.Climate = "superb"
	assert.ErrorIs(t, bad.Validate(), shared.ErrStructural)
}

func TestSession_JSONRoundTrip(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetAttendance("Juan Perez", StateLate))
	s.Narrative.Topic = "Fracciones"

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded Session
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NoError(t, decoded.Validate())

	assert.Equal(t, s.ID, decoded.ID)
	assert.Equal(t, s.Students.Names(), decoded.Students.Names())
	assert.Equal(t, "Fracciones", decoded.Narrative.Topic)

	rec, ok := decoded.Students.Get("Juan Perez")
	require.True(t, ok)
	assert.Equal(t, StateLate, rec.State)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "session_9A_2026-03-15", Key("9A", "2026-03-15"))

	s := newTestSession(t)
	assert.Equal(t, "session_9A_"+s.Date, s.StorageKey())
}

func TestSession_Clone(t *testing.T) {
	s := newTestSession(t)
	saved := time.Now().UTC()
	s.LastSaved = &saved

	clone := s.Clone()
	require.NoError(t, clone.SetAttendance("Ana Lopez", StateAbsent))
	*clone.LastSaved = clone.LastSaved.Add(time.Hour)

	rec, _ := s.Students.Get("Ana Lopez")
	assert.Equal(t, StatePresent, rec.State)
	assert.Equal(t, saved, *s.LastSaved)
}
