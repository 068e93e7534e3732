// Package query exposes read-side views over persisted sessions.
package query

import (
	"context"
	"log/slog"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/statistics"
)

// StatisticsQuery answers statistics requests. Every read triggers a full
// recompute from the persisted sessions, so the answer never drifts from
// storage: deleted sessions vanish, re-saved sessions count exactly once.
type StatisticsQuery struct {
	engine *statistics.Engine
	logger *slog.Logger
}

// NewStatisticsQuery creates a StatisticsQuery.
func NewStatisticsQuery(engine *statistics.Engine, logger *slog.Logger) *StatisticsQuery {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatisticsQuery{engine: engine, logger: logger}
}

// All rebuilds and returns the complete statistics snapshot.
func (q *StatisticsQuery) All(ctx context.Context) (*statistics.Snapshot, error) {
	return q.engine.Rebuild(ctx)
}

// Group rebuilds and returns the summary of a single group.
func (q *StatisticsQuery) Group(ctx context.Context, group string) (statistics.GroupSummary, error) {
	return q.engine.GroupSummaryFor(ctx, group)
}

// RebuildOnSave returns an event handler that recomputes statistics after
// each session save, keeping warm state (caches, dashboards) current without
// the editor knowing about statistics at all.
func (q *StatisticsQuery) RebuildOnSave() shared.EventHandler {
	return shared.EventHandlerFunc{
		HandlerName: "statistics.rebuild_on_save",
		Fn: func(event shared.Event) error {
			if event.EventType() != shared.EventSessionSaved {
				return nil
			}
			if _, err := q.engine.Rebuild(context.Background()); err != nil {
				q.logger.Warn("statistics rebuild after save failed", "error", err)
				return err
			}
			return nil
		},
	}
}
