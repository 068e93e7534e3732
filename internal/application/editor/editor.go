// Package editor implements the active editing context of the journal:
// at most one open session at a time, mutated through validated commands,
// persisted explicitly or by the periodic autosave.
//
// The lifecycle is NoSession → Open → Saved, with any edit marking the open
// session dirty again. Every mutation validates before committing, so a
// rejected command never leaves the session half-updated.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/roster"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/session"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

// Reporter is the fragment of the error reporter the editor needs.
type Reporter interface {
	// Report surfaces an error to the user and the persistent log.
	Report(ctx context.Context, operation string, err error)

	// ReportSilent records an error without user notification.
	ReportSilent(ctx context.Context, operation string, err error)
}

// AutosaveControl manages the autosave countdown. The countdown restarts
// whenever a new or loaded session replaces the current one and stops on
// teardown, so stale timers never accumulate.
type AutosaveControl interface {
	Restart()
	Cancel()
}

// nopAutosave is used when no autosave scheduler is wired (tests, one-shots).
type nopAutosave struct{}

func (nopAutosave) Restart() {}
func (nopAutosave) Cancel()  {}

// Editor owns the currently open session.
type Editor struct {
	mu sync.Mutex

	sessions  session.Repository
	roster    *roster.Registry
	reporter  Reporter
	publisher shared.EventPublisher
	autosave  AutosaveControl
	logger    *slog.Logger

	current *session.Session
	dirty   bool
}

// Config bundles the editor dependencies.
type Config struct {
	Sessions  session.Repository
	Roster    *roster.Registry
	Reporter  Reporter
	Publisher shared.EventPublisher
	Autosave  AutosaveControl
	Logger    *slog.Logger
}

// New creates an Editor. Publisher and Autosave may be nil.
func New(cfg Config) *Editor {
	if cfg.Autosave == nil {
		cfg.Autosave = nopAutosave{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Editor{
		sessions:  cfg.Sessions,
		roster:    cfg.Roster,
		reporter:  cfg.Reporter,
		publisher: cfg.Publisher,
		autosave:  cfg.Autosave,
		logger:    cfg.Logger,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Create opens a session for (group, date, startTime), snapshotting the
// group's current roster. If a session with this identity was persisted
// before, its saved narrative, evaluation, and student records are merged on
// top of the fresh roster snapshot: the newest roster shape wins for the
// student set, history wins for everything stored.
func (e *Editor) Create(ctx context.Context, group, date, startTime string) error {
	students, err := e.roster.StudentsOf(group)
	if err != nil {
		return shared.WrapError("editor", "Create", shared.ErrValidation,
			"group is not in the roster", err)
	}

	fresh, err := session.New(group, date, startTime, students)
	if err != nil {
		return err
	}

	stored, err := e.sessions.Load(ctx, fresh.Group, fresh.Date)
	switch {
	case err == nil:
		fresh.MergeStored(stored)
	case errors.Is(err, shared.ErrNotFound):
		// First session for this identity.
	case errors.Is(err, shared.ErrStructural):
		// A corrupt stored record must not block a new session; it is
		// reported and the fresh state will overwrite it on save.
		e.reporter.ReportSilent(ctx, "editor.Create", err)
	default:
		return err
	}

	e.mu.Lock()
	e.current = fresh
	e.dirty = false
	e.mu.Unlock()

	e.autosave.Restart()
	e.publish(shared.NewBaseEvent(shared.EventSessionCreated, fresh.ID))

	e.logger.Info("session opened", "group", fresh.Group, "date", fresh.Date, "students", fresh.Students.Len())
	return nil
}

// Load replaces the current session with a previously saved one.
// The stored record is structurally validated before it is accepted; on a
// corrupt record the current in-memory session stays untouched.
func (e *Editor) Load(ctx context.Context, group, date string) error {
	loaded, err := e.sessions.Load(ctx, group, date)
	if err != nil {
		e.reporter.Report(ctx, "editor.Load", err)
		return err
	}

	e.mu.Lock()
	e.current = loaded
	e.dirty = false
	e.mu.Unlock()

	e.autosave.Restart()
	e.logger.Info("session loaded", "group", group, "date", date)
	return nil
}

// Save persists the open session, refreshing its LastSaved timestamp.
// On a storage failure the aggregate keeps its previous state (including the
// old LastSaved) and stays dirty.
func (e *Editor) Save(ctx context.Context) error {
	return e.save(ctx, false)
}

// Autosave persists the open session only when it has unsaved edits.
// Errors are recorded silently; autosave never interrupts the user.
func (e *Editor) Autosave(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if e.current == nil || !e.dirty {
		e.mu.Unlock()
		return false, nil
	}
	e.mu.Unlock()

	if err := e.save(ctx, true); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Editor) save(ctx context.Context, silent bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return shared.ErrNoOpenSession
	}

	prevSaved := e.current.LastSaved
	now := time.Now().UTC()
	e.current.LastSaved = &now

	if err := e.sessions.Save(ctx, e.current); err != nil {
		e.current.LastSaved = prevSaved
		if silent {
			e.reporter.ReportSilent(ctx, "editor.Save", err)
		} else {
			e.reporter.Report(ctx, "editor.Save", err)
		}
		return err
	}

	e.dirty = false
	e.publish(shared.NewSessionSavedEvent(e.current.ID, e.current.Group, e.current.Date))
	return nil
}

// Delete removes a persisted session. Statistics change on the next rebuild,
// not immediately. The open in-memory session, if any, is not touched.
func (e *Editor) Delete(ctx context.Context, group, date string) error {
	if err := e.sessions.Delete(ctx, group, date); err != nil {
		e.reporter.Report(ctx, "editor.Delete", err)
		return err
	}

	e.publish(shared.NewSessionDeletedEvent(group, date))
	e.logger.Info("session deleted", "group", group, "date", date)
	return nil
}

// Close tears the editor down, cancelling autosave entirely.
func (e *Editor) Close() {
	e.autosave.Cancel()

	e.mu.Lock()
	e.current = nil
	e.dirty = false
	e.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────────────────

// UpdateField applies a validated field update command and marks the session
// dirty. The command constructors reject invalid fields and values, so a
// FieldUpdate that exists is applicable.
func (e *Editor) UpdateField(upd session.FieldUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return shared.ErrNoOpenSession
	}
	if err := upd.Apply(e.current); err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// SetAttendance sets a student's attendance state and marks the session dirty.
func (e *Editor) SetAttendance(name string, state session.AttendanceState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return shared.ErrNoOpenSession
	}
	if err := e.current.SetAttendance(name, state); err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// SetIncidentFlag sets a student's incident flag and marks the session dirty.
func (e *Editor) SetIncidentFlag(name string, flag session.IncidentFlag, value bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return shared.ErrNoOpenSession
	}
	if err := e.current.SetIncidentFlag(name, flag, value); err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// AddComment appends a validated comment to a student's record and marks the
// session dirty.
func (e *Editor) AddComment(name, text, commentType string) (session.Comment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return session.Comment{}, shared.ErrNoOpenSession
	}
	comment, err := e.current.AddComment(name, text, commentType)
	if err != nil {
		return session.Comment{}, err
	}
	e.dirty = true
	return comment, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

// Current returns a deep copy of the open session, or nil.
func (e *Editor) Current() *session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// Dirty reports whether the open session has unsaved edits.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// AttendanceStats tallies the current in-memory student states only, not
// historical statistics.
func (e *Editor) AttendanceStats() (session.Tally, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return session.Tally{}, shared.ErrNoOpenSession
	}
	return e.current.AttendanceTally(), nil
}

// StudentsWithIncidents returns the incident views of the open session,
// as consumed by the report exporter.
func (e *Editor) StudentsWithIncidents() ([]session.IncidentView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, shared.ErrNoOpenSession
	}
	return e.current.StudentsWithIncidents(), nil
}

func (e *Editor) publish(event shared.Event) {
	if e.publisher != nil {
		e.publisher.Publish(event)
	}
}
