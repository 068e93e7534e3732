package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/roster"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
)

// GroupsKey is the unqualified key the roster document lives under.
const GroupsKey = "groups"

// RosterRepository persists the roster as a single group→students document.
// Group order is recovered by sorting lexicographically on load, which is the
// registry's read contract anyway; student order is kept by the JSON arrays.
type RosterRepository struct {
	store  *kvstore.Store
	logger *slog.Logger
}

// NewRosterRepository creates a RosterRepository.
func NewRosterRepository(store *kvstore.Store, logger *slog.Logger) *RosterRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterRepository{store: store, logger: logger}
}

// Load implements roster.Repository.
func (r *RosterRepository) Load(ctx context.Context) ([]*roster.Group, error) {
	raw := make(map[string][]string)
	if err := r.store.Get(ctx, GroupsKey, &raw); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]*roster.Group, 0, len(names))
	for _, name := range names {
		group := &roster.Group{Name: roster.GroupName(name)}
		for _, s := range raw[name] {
			group.Students = append(group.Students, roster.StudentName(s))
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// Save implements roster.Repository.
func (r *RosterRepository) Save(ctx context.Context, groups []*roster.Group) error {
	doc := make(map[string][]string, len(groups))
	for _, g := range groups {
		doc[g.Name.String()] = g.StudentNames()
	}
	return r.store.Set(ctx, GroupsKey, doc)
}
