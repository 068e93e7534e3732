package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT REPORT
// ══════════════════════════════════════════════════════════════════════════════

// SkippedStudent records one student dropped during import and why.
type SkippedStudent struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportReport summarizes the outcome of an ImportGroups call.
// An import that skips some students is still a success; callers surface
// Skipped to the user instead of failing the whole operation.
type ImportReport struct {
	GroupCount   int              `json:"group_count"`
	StudentCount int              `json:"student_count"`
	Skipped      []SkippedStudent `json:"skipped,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// Registry owns the named groups of students and their persistence.
// Reads return groups sorted lexicographically by name; student order within
// a group is insertion order as imported.
type Registry struct {
	mu sync.RWMutex

	repo      Repository
	publisher shared.EventPublisher
	logger    *slog.Logger

	groups map[GroupName]*Group
}

// NewRegistry creates a Registry backed by the given repository.
// The publisher may be nil; events are then dropped.
func NewRegistry(repo Repository, publisher shared.EventPublisher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		groups:    make(map[GroupName]*Group),
	}
}

// Load hydrates the registry from the repository.
func (r *Registry) Load(ctx context.Context) error {
	groups, err := r.repo.Load(ctx)
	if err != nil {
		return shared.WrapError("roster", "Load", shared.ErrStorageUnavailable, "loading roster", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups = make(map[GroupName]*Group, len(groups))
	for _, g := range groups {
		r.groups[g.Name] = g
	}

	r.logger.Debug("roster loaded", "groups", len(r.groups))
	return nil
}

// Groups returns all groups sorted lexicographically by name.
func (r *Registry) Groups() []*Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

// Group returns the group with the given name, or false if absent.
func (r *Registry) Group(name string) (*Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[GroupName(name)]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// StudentsOf returns the student names of a group in insertion order.
// Returns shared.ErrGroupNotFound if the group does not exist.
func (r *Registry) StudentsOf(name string) ([]string, error) {
	g, ok := r.Group(name)
	if !ok {
		return nil, shared.ErrGroupNotFound
	}
	return g.StudentNames(), nil
}

// AddGroup validates and adds a new group, then persists the roster.
func (r *Registry) AddGroup(ctx context.Context, name string, students []string) error {
	group, err := NewGroup(name)
	if err != nil {
		return err
	}

	for _, s := range students {
		if err := group.AddStudent(s); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.groups[group.Name]; exists {
		return shared.ErrGroupAlreadyExists
	}

	r.groups[group.Name] = group
	if err := r.persistLocked(ctx); err != nil {
		delete(r.groups, group.Name)
		return err
	}

	r.publish(shared.NewBaseEvent(shared.EventGroupAdded, group.Name.String()))
	return nil
}

// RemoveGroup removes a group and persists the roster.
func (r *Registry) RemoveGroup(ctx context.Context, name string) error {
	res := ValidateGroupName(name)
	if !res.Valid {
		return shared.ErrInvalidGroupName
	}

	key := GroupName(res.Value)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed, exists := r.groups[key]
	if !exists {
		return shared.ErrGroupNotFound
	}

	delete(r.groups, key)
	if err := r.persistLocked(ctx); err != nil {
		r.groups[key] = removed
		return err
	}

	r.publish(shared.NewBaseEvent(shared.EventGroupRemoved, key.String()))
	return nil
}

// ImportGroups validates a raw group→students mapping and replaces the whole
// roster with it. Structural failures (a bad group name, an empty document)
// reject the import; individual invalid student names are skipped and
// collected in the report instead.
//
// A snapshot of the current roster is taken before mutating; if persistence
// fails after commit, the snapshot is restored in memory (best effort - the
// snapshot is not transactional with the store).
func (r *Registry) ImportGroups(ctx context.Context, raw map[string][]string) (*ImportReport, error) {
	if len(raw) == 0 {
		return nil, shared.ErrEmptyRoster
	}

	// Validate the overall structure and build the candidate replacement map
	// before touching current state.
	candidate := make(map[GroupName]*Group, len(raw))
	report := &ImportReport{}

	for rawName, rawStudents := range raw {
		group, err := NewGroup(rawName)
		if err != nil {
			return nil, shared.WrapError("roster", "ImportGroups", shared.ErrInvalidFormat,
				fmt.Sprintf("group %q has an invalid name", rawName), err)
		}
		if _, dup := candidate[group.Name]; dup {
			return nil, shared.WrapError("roster", "ImportGroups", shared.ErrAlreadyExists,
				fmt.Sprintf("group %q appears more than once", rawName), nil)
		}

		for _, rawStudent := range rawStudents {
			if err := group.AddStudent(rawStudent); err != nil {
				report.Skipped = append(report.Skipped, SkippedStudent{
					Group:  group.Name.String(),
					Name:   rawStudent,
					Reason: err.Error(),
				})
				continue
			}
		}

		if group.Size() == 0 {
			return nil, shared.WrapError("roster", "ImportGroups", shared.ErrEmptyValue,
				fmt.Sprintf("group %q has no valid students", rawName), nil)
		}

		candidate[group.Name] = group
		report.GroupCount++
		report.StudentCount += group.Size()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshotLocked()
	r.groups = candidate

	if err := r.persistLocked(ctx); err != nil {
		r.groups = snapshot
		r.logger.Warn("roster import rolled back after persistence failure", "error", err)
		return nil, err
	}

	skippedNames := make([]string, 0, len(report.Skipped))
	for _, s := range report.Skipped {
		skippedNames = append(skippedNames, s.Name)
	}
	r.publish(shared.NewRosterImportedEvent(report.GroupCount, skippedNames))

	r.logger.Info("roster imported",
		"groups", report.GroupCount,
		"students", report.StudentCount,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// ExportGroups returns the roster as a plain group→students mapping,
// suitable for the roster file format. Student order is preserved.
func (r *Registry) ExportGroups() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.groups))
	for name, g := range r.groups {
		out[name.String()] = g.StudentNames()
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// internals
// ─────────────────────────────────────────────────────────────────────────────

func (r *Registry) sortedLocked() []*Group {
	out := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) snapshotLocked() map[GroupName]*Group {
	snap := make(map[GroupName]*Group, len(r.groups))
	for name, g := range r.groups {
		snap[name] = g.Clone()
	}
	return snap
}

func (r *Registry) persistLocked(ctx context.Context) error {
	if err := r.repo.Save(ctx, r.sortedLocked()); err != nil {
		return shared.WrapError("roster", "Save", shared.ErrStorageUnavailable, "persisting roster", err)
	}
	return nil
}

func (r *Registry) publish(event shared.Event) {
	if r.publisher != nil {
		r.publisher.Publish(event)
	}
}
