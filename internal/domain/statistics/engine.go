// Package statistics derives attendance metrics from saved sessions.
//
// Sessions are the single source of truth: every read rebuilds the counters
// by scanning all persisted sessions. Incremental accumulation is deliberately
// avoided - repeated saves of the same session key used to double-count when
// counters were bumped on every save, and rebuild-from-source is the fix.
package statistics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/session"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED TYPES
// Never persisted independently - always recomputed from saved sessions.
// ══════════════════════════════════════════════════════════════════════════════

// CommentEntry is a date-stamped comment collected into a student's history.
type CommentEntry struct {
	Date      string    `json:"date"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// StudentStats holds the cumulative counters for one student in one group.
// Each qualifying session increments exactly one attendance counter and
// TotalSessions, plus any incident flags recorded in that session.
type StudentStats struct {
	Present       int            `json:"present"`
	Absent        int            `json:"absent"`
	Late          int            `json:"late"`
	Restroom      int            `json:"restroom"`
	Infirmary     int            `json:"infirmary"`
	Other         int            `json:"other"`
	TotalSessions int            `json:"totalSessions"`
	Comments      []CommentEntry `json:"comments,omitempty"`
}

// RankedStudent is one entry of a top-N ranking.
type RankedStudent struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// GroupSummary is the per-group aggregate view.
type GroupSummary struct {
	Group          string  `json:"group"`
	StudentCount   int     `json:"studentCount"`
	SessionCount   int     `json:"sessionCount"`
	TotalPresent   int     `json:"totalPresent"`
	TotalAbsent    int     `json:"totalAbsent"`
	TotalLate      int     `json:"totalLate"`
	TotalRestroom  int     `json:"totalRestroom"`
	TotalInfirmary int     `json:"totalInfirmary"`
	TotalOther     int     `json:"totalOther"`

	// AverageAttendancePercent is totalPresent over the theoretical maximum
	// (studentCount * sessions seen by the most-covered student), as percent.
	// Zero when the group has no sessions, never NaN.
	AverageAttendancePercent float64 `json:"averageAttendancePercent"`

	// TopAbsent and TopLate rank the top students by absence and tardiness.
	// Ties keep a stable order; the secondary order is not part of the contract.
	TopAbsent []RankedStudent `json:"topAbsent"`
	TopLate   []RankedStudent `json:"topLate"`
}

// GroupStatistics bundles the per-student stats of one group with its summary.
type GroupStatistics struct {
	Group    string                   `json:"group"`
	Students map[string]*StudentStats `json:"students"`
	Summary  GroupSummary             `json:"summary"`
}

// Snapshot is the result of one full rebuild.
type Snapshot struct {
	Groups map[string]*GroupStatistics `json:"groups"`

	BuiltAt         time.Time `json:"builtAt"`
	SessionsScanned int       `json:"sessionsScanned"`
	SessionsCounted int       `json:"sessionsCounted"`
	SessionsSkipped int       `json:"sessionsSkipped"`
}

// TopN is the ranking depth of GroupSummary.TopAbsent / TopLate.
const TopN = 5

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine rebuilds attendance statistics from the session source of truth.
type Engine struct {
	source    session.Source
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewEngine creates an Engine reading from the given session source.
// The publisher may be nil; events are then dropped.
func NewEngine(source session.Source, publisher shared.EventPublisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: source, publisher: publisher, logger: logger}
}

// Rebuild performs a full recomputation from all saved sessions.
//
// A session qualifies only if it has a group, students, and a non-null
// LastSaved: in-progress sessions that were never saved do not count.
// Each qualifying session contributes exactly once per student, so calling
// Rebuild any number of times without intervening saves yields identical
// results, and saving the same session key twice never double-counts.
func (e *Engine) Rebuild(ctx context.Context) (*Snapshot, error) {
	sessions, skipped, err := e.source.SavedSessions(ctx)
	if err != nil {
		return nil, shared.WrapError("statistics", "Rebuild", shared.ErrStorageUnavailable,
			"reading saved sessions", err)
	}

	snap := &Snapshot{
		Groups:          make(map[string]*GroupStatistics),
		BuiltAt:         time.Now().UTC(),
		SessionsScanned: len(sessions) + skipped,
		SessionsSkipped: skipped,
	}

	for _, s := range sessions {
		if !qualifies(s) {
			snap.SessionsSkipped++
			continue
		}
		snap.SessionsCounted++
		e.tally(snap, s)
	}

	for _, g := range snap.Groups {
		g.Summary = summarize(g)
	}

	if e.publisher != nil {
		e.publisher.Publish(shared.NewStatisticsRebuiltEvent(snap.SessionsScanned, snap.SessionsCounted))
	}

	e.logger.Debug("statistics rebuilt",
		"scanned", snap.SessionsScanned,
		"counted", snap.SessionsCounted,
		"skipped", snap.SessionsSkipped,
		"groups", len(snap.Groups),
	)
	return snap, nil
}

// GroupSummaryFor rebuilds and returns the summary of one group.
// Returns shared.ErrGroupNotFound if no saved session mentions the group.
func (e *Engine) GroupSummaryFor(ctx context.Context, group string) (GroupSummary, error) {
	snap, err := e.Rebuild(ctx)
	if err != nil {
		return GroupSummary{}, err
	}

	g, ok := snap.Groups[group]
	if !ok {
		return GroupSummary{}, shared.ErrGroupNotFound
	}
	return g.Summary, nil
}

// qualifies reports whether a stored session counts toward statistics.
func qualifies(s *session.Session) bool {
	if s == nil || s.Group == "" {
		return false
	}
	if s.Students == nil || s.Students.Len() == 0 {
		return false
	}
	return s.LastSaved != nil
}

// tally folds one qualifying session into the snapshot.
func (e *Engine) tally(snap *Snapshot, s *session.Session) {
	g, ok := snap.Groups[s.Group]
	if !ok {
		g = &GroupStatistics{
			Group:    s.Group,
			Students: make(map[string]*StudentStats),
		}
		snap.Groups[s.Group] = g
	}

	s.Students.Each(func(name string, rec *session.StudentRecord) {
		st, ok := g.Students[name]
		if !ok {
			st = &StudentStats{}
			g.Students[name] = st
		}

		// Exactly one attendance counter per session.
		switch rec.State {
		case session.StateAbsent:
			st.Absent++
		case session.StateLate:
			st.Late++
		default:
			st.Present++
		}

		if rec.Flags.Restroom {
			st.Restroom++
		}
		if rec.Flags.Infirmary {
			st.Infirmary++
		}
		if rec.Flags.Other {
			st.Other++
		}

		st.TotalSessions++

		for _, c := range rec.Comments {
			st.Comments = append(st.Comments, CommentEntry{
				Date:      s.Date,
				Text:      c.Text,
				Type:      c.Type,
				Timestamp: c.Timestamp,
			})
		}
	})
}

// summarize computes the group summary from the per-student counters.
func summarize(g *GroupStatistics) GroupSummary {
	sum := GroupSummary{Group: g.Group, StudentCount: len(g.Students)}

	maxSessions := 0
	for _, st := range g.Students {
		sum.TotalPresent += st.Present
		sum.TotalAbsent += st.Absent
		sum.TotalLate += st.Late
		sum.TotalRestroom += st.Restroom
		sum.TotalInfirmary += st.Infirmary
		sum.TotalOther += st.Other
		if st.TotalSessions > maxSessions {
			maxSessions = st.TotalSessions
		}
	}
	// Every saved session for the group carries every student of its roster
	// snapshot, so the most-covered student has seen every session key.
	sum.SessionCount = maxSessions

	if sum.StudentCount > 0 && maxSessions > 0 {
		sum.AverageAttendancePercent = float64(sum.TotalPresent) /
			float64(sum.StudentCount*maxSessions) * 100
	}

	sum.TopAbsent = topBy(g.Students, func(st *StudentStats) int { return st.Absent })
	sum.TopLate = topBy(g.Students, func(st *StudentStats) int { return st.Late })
	return sum
}

// topBy ranks students by the given counter, descending, keeping at most TopN
// entries with a non-zero count. Names are iterated in sorted order before the
// stable sort, so equal counts come out in name order; that secondary order is
// an implementation detail, not a contract.
func topBy(students map[string]*StudentStats, counter func(*StudentStats) int) []RankedStudent {
	names := make([]string, 0, len(students))
	for name := range students {
		names = append(names, name)
	}
	sort.Strings(names)

	ranked := make([]RankedStudent, 0, len(names))
	for _, name := range names {
		if c := counter(students[name]); c > 0 {
			ranked = append(ranked, RankedStudent{Name: name, Count: c})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })

	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}
	return ranked
}
