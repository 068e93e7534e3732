package editor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/roster"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/session"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/statistics"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
	"github.com/aula-hub/aula-classroom-hub/pkg/timeutil"
)

type recordingReporter struct {
	loud   []string
	silent []string
}

func (r *recordingReporter) Report(_ context.Context, operation string, err error) {
	if err != nil {
		r.loud = append(r.loud, operation)
	}
}

func (r *recordingReporter) ReportSilent(_ context.Context, operation string, err error) {
	if err != nil {
		r.silent = append(r.silent, operation)
	}
}

type recordingAutosave struct {
	restarts int
	cancels  int
}

func (a *recordingAutosave) Restart() { a.restarts++ }
func (a *recordingAutosave) Cancel()  { a.cancels++ }

type recordingPublisher struct {
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []shared.EventType {
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	editor    *Editor
	sessions  session.Repository
	reporter  *recordingReporter
	autosave  *recordingAutosave
	publisher *recordingPublisher
}

func newFixture(t *testing.T, quota int) *fixture {
	t.Helper()

	cfg := kvstore.DefaultConfig()
	if quota > 0 {
		cfg.QuotaBytes = quota
	}
	store := kvstore.New(kvstore.NewMemoryBackend(), cfg)

	registry := roster.NewRegistry(persistence.NewRosterRepository(store, nil), nil, nil)
	require.NoError(t, registry.AddGroup(context.Background(), "9A",
		[]string{"Ana Lopez", "Juan Perez", "Mia Cruz"}))

	f := &fixture{
		sessions:  persistence.NewSessionRepository(store, nil),
		reporter:  &recordingReporter{},
		autosave:  &recordingAutosave{},
		publisher: &recordingPublisher{},
	}
	f.editor = New(Config{
		Sessions:  f.sessions,
		Roster:    registry,
		Reporter:  f.reporter,
		Publisher: f.publisher,
		Autosave:  f.autosave,
	})
	return f
}

func today() string {
	return timeutil.FormatDate(time.Now())
}

func TestEditor_CreateOpensSession(t *testing.T) {
	f := newFixture(t, 0)

	require.NoError(t, f.editor.Create(context.Background(), "9A", today(), "08:30"))

	current := f.editor.Current()
	require.NotNil(t, current)
	assert.Equal(t, "9A", current.Group)
	assert.Equal(t, 3, current.Students.Len())
	assert.False(t, f.editor.Dirty())

	assert.Equal(t, 1, f.autosave.restarts)
	assert.Equal(t, []shared.EventType{shared.EventSessionCreated}, f.publisher.types())
}

func TestEditor_CreateUnknownGroup(t *testing.T) {
	f := newFixture(t, 0)

	err := f.editor.Create(context.Background(), "7C", today(), "08:30")
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Nil(t, f.editor.Current())
}

func TestEditor_CreateMergesPreviouslySaved(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	date := today()

	require.NoError(t, f.editor.Create(ctx, "9A", date, "08:30"))
	require.NoError(t, f.editor.SetAttendance("Ana Lopez", session.StateAbsent))
	upd, err := session.NewNarrativeUpdate(session.FieldTopic, "Fracciones")
	require.NoError(t, err)
	require.NoError(t, f.editor.UpdateField(upd))
	require.NoError(t, f.editor.Save(ctx))

	// Reopening the same (group, date) restores what was persisted.
	require.NoError(t, f.editor.Create(ctx, "9A", date, "09:00"))

	current := f.editor.Current()
	assert.Equal(t, "Fracciones", current.Narrative.Topic)
	assert.Equal(t, "08:30", current.StartTime)
	rec, ok := current.Students.Get("Ana Lopez")
	require.True(t, ok)
	assert.Equal(t, session.StateAbsent, rec.State)
	assert.False(t, f.editor.Dirty())
}

func TestEditor_SaveMarksCleanAndPublishes(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))
	require.NoError(t, f.editor.SetAttendance("Ana Lopez", session.StateLate))
	assert.True(t, f.editor.Dirty())

	require.NoError(t, f.editor.Save(ctx))

	assert.False(t, f.editor.Dirty())
	current := f.editor.Current()
	require.NotNil(t, current.LastSaved)

	types := f.publisher.types()
	require.Len(t, types, 2)
	assert.Equal(t, shared.EventSessionSaved, types[1])

	stored, err := f.sessions.Load(ctx, "9A", today())
	require.NoError(t, err)
	rec, _ := stored.Students.Get("Ana Lopez")
	assert.Equal(t, session.StateLate, rec.State)
}

func TestEditor_SaveFailureKeepsDirtyAndLastSaved(t *testing.T) {
	// A quota this small admits the roster write but never a session record.
	f := newFixture(t, 200)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))
	require.NoError(t, f.editor.SetAttendance("Ana Lopez", session.StateAbsent))

	err := f.editor.Save(ctx)
	require.ErrorIs(t, err, shared.ErrStoreFull)

	assert.True(t, f.editor.Dirty())
	assert.Nil(t, f.editor.Current().LastSaved)
	assert.Equal(t, []string{"editor.Save"}, f.reporter.loud)
}

func TestEditor_AutosaveOnlyWhenDirty(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	saved, err := f.editor.Autosave(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "no open session")

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))
	saved, err = f.editor.Autosave(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "clean session")

	require.NoError(t, f.editor.SetAttendance("Ana Lopez", session.StateLate))
	saved, err = f.editor.Autosave(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.False(t, f.editor.Dirty())
}

func TestEditor_AutosaveFailureIsSilent(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))
	require.NoError(t, f.editor.SetAttendance("Ana Lopez", session.StateLate))

	saved, err := f.editor.Autosave(ctx)
	require.ErrorIs(t, err, shared.ErrStoreFull)
	assert.False(t, saved)
	assert.Empty(t, f.reporter.loud)
	assert.Equal(t, []string{"editor.Save"}, f.reporter.silent)
}

func TestEditor_LoadFailureKeepsCurrent(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))

	err := f.editor.Load(ctx, "9A", "2020-01-01")
	require.ErrorIs(t, err, shared.ErrNotFound)

	current := f.editor.Current()
	require.NotNil(t, current)
	assert.Equal(t, today(), current.Date)
	assert.Equal(t, []string{"editor.Load"}, f.reporter.loud)
}

func TestEditor_LoadRestartsAutosave(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))
	require.NoError(t, f.editor.Save(ctx))
	require.NoError(t, f.editor.Load(ctx, "9A", today()))

	assert.Equal(t, 2, f.autosave.restarts)
	assert.False(t, f.editor.Dirty())
}

func TestEditor_MutationsRequireOpenSession(t *testing.T) {
	f := newFixture(t, 0)

	assert.ErrorIs(t, f.editor.SetAttendance("Ana Lopez", session.StateLate), shared.ErrNoOpenSession)
	assert.ErrorIs(t, f.editor.SetIncidentFlag("Ana Lopez", session.FlagRestroom, true), shared.ErrNoOpenSession)
	_, err := f.editor.AddComment("Ana Lopez", "Participa mucho", "positive")
	assert.ErrorIs(t, err, shared.ErrNoOpenSession)
	upd, uerr := session.NewNarrativeUpdate(session.FieldTopic, "Tema")
	require.NoError(t, uerr)
	assert.ErrorIs(t, f.editor.UpdateField(upd), shared.ErrNoOpenSession)
	_, err = f.editor.AttendanceStats()
	assert.ErrorIs(t, err, shared.ErrNoOpenSession)
	_, err = f.editor.StudentsWithIncidents()
	assert.ErrorIs(t, err, shared.ErrNoOpenSession)
	assert.ErrorIs(t, f.editor.Save(context.Background()), shared.ErrNoOpenSession)
}

func TestEditor_ViewsReflectEdits(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))
	require.NoError(t, f.editor.SetAttendance("Ana Lopez", session.StateAbsent))
	require.NoError(t, f.editor.SetIncidentFlag("Juan Perez", session.FlagRestroom, true))
	comment, err := f.editor.AddComment("Mia Cruz", "Buen trabajo", "positive")
	require.NoError(t, err)
	assert.Equal(t, "Buen trabajo", comment.Text)

	tally, err := f.editor.AttendanceStats()
	require.NoError(t, err)
	assert.Equal(t, session.Tally{Present: 2, Absent: 1, Total: 3}, tally)

	incidents, err := f.editor.StudentsWithIncidents()
	require.NoError(t, err)
	assert.Len(t, incidents, 3)
}

func TestEditor_RepeatedSavesCountOnceInStatistics(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))
	require.NoError(t, f.editor.SetAttendance("Ana Lopez", session.StateAbsent))
	require.NoError(t, f.editor.Save(ctx))

	// Editing and saving again rewrites the same storage key.
	require.NoError(t, f.editor.SetAttendance("Juan Perez", session.StateLate))
	require.NoError(t, f.editor.Save(ctx))

	source, ok := f.sessions.(session.Source)
	require.True(t, ok)
	snap, err := statistics.NewEngine(source, nil, nil).Rebuild(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.SessionsCounted)
	group := snap.Groups["9A"]
	require.NotNil(t, group)
	assert.Equal(t, 1, group.Summary.SessionCount)
	for name, st := range group.Students {
		assert.Equal(t, 1, st.TotalSessions, name)
	}
	assert.Equal(t, 1, group.Students["Ana Lopez"].Absent)
	assert.Equal(t, 1, group.Students["Juan Perez"].Late)
}

func TestEditor_CurrentIsACopy(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	require.NoError(t, f.editor.Create(ctx, "9A", today(), "08:30"))

	copy1 := f.editor.Current()
	require.NoError(t, copy1.SetAttendance("Ana Lopez", session.StateAbsent))

	rec, _ := f.editor.Current().Students.Get("Ana Lopez")
	assert.Equal(t, session.StatePresent, rec.State)
}

func TestEditor_DeleteLeavesOpenSession(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	date := today()

	require.NoError(t, f.editor.Create(ctx, "9A", date, "08:30"))
	require.NoError(t, f.editor.Save(ctx))

	require.NoError(t, f.editor.Delete(ctx, "9A", date))

	_, err := f.sessions.Load(ctx, "9A", date)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NotNil(t, f.editor.Current())

	types := f.publisher.types()
	assert.Equal(t, shared.EventSessionDeleted, types[len(types)-1])
}

func TestEditor_DeleteMissing(t *testing.T) {
	f := newFixture(t, 0)

	err := f.editor.Delete(context.Background(), "9A", "2020-01-01")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, []string{"editor.Delete"}, f.reporter.loud)
}

func TestEditor_Close(t *testing.T) {
	f := newFixture(t, 0)

	require.NoError(t, f.editor.Create(context.Background(), "9A", today(), "08:30"))
	f.editor.Close()

	assert.Nil(t, f.editor.Current())
	assert.False(t, f.editor.Dirty())
	assert.Equal(t, 1, f.autosave.cancels)
}
