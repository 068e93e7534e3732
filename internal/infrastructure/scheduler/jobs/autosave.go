// Package jobs contains the scheduled job implementations of the journal.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/scheduler"
)

// AutosaveJobName is the scheduler name of the autosave job.
const AutosaveJobName = "session.autosave"

// DefaultAutosaveInterval is how often the open session is autosaved.
const DefaultAutosaveInterval = 2 * time.Minute

// Saver is the fragment of the session editor the autosave job needs.
type Saver interface {
	// Autosave persists the open session if it is dirty.
	// Returns true when a save actually happened.
	Autosave(ctx context.Context) (bool, error)
}

// AutosaveJob silently saves the open session when it has unsaved edits.
// "Silently" means no user notification: only a debug log line.
type AutosaveJob struct {
	saver  Saver
	logger *slog.Logger
}

// NewAutosaveJob creates an AutosaveJob.
func NewAutosaveJob(saver Saver, logger *slog.Logger) *AutosaveJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutosaveJob{saver: saver, logger: logger}
}

// Name implements scheduler.Job.
func (j *AutosaveJob) Name() string {
	return AutosaveJobName
}

// Run implements scheduler.Job.
func (j *AutosaveJob) Run(ctx context.Context) error {
	saved, err := j.saver.Autosave(ctx)
	if err != nil {
		return err
	}
	if saved {
		j.logger.Debug("session autosaved")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTOSAVE CONTROL
// ══════════════════════════════════════════════════════════════════════════════

// AutosaveControl adapts the scheduler to the editor's autosave contract:
// the countdown restarts whenever a new or loaded session replaces the
// current one, and stops entirely on teardown.
type AutosaveControl struct {
	sched *scheduler.Scheduler
}

// NewAutosaveControl creates an AutosaveControl over the scheduler.
func NewAutosaveControl(sched *scheduler.Scheduler) *AutosaveControl {
	return &AutosaveControl{sched: sched}
}

// Restart resets the autosave countdown from now.
func (c *AutosaveControl) Restart() {
	// A missing job means autosave was never registered (tests, CLI one-shots).
	_ = c.sched.Reschedule(AutosaveJobName)
}

// Cancel removes the autosave job entirely.
func (c *AutosaveControl) Cancel() {
	_ = c.sched.Unregister(AutosaveJobName)
}
