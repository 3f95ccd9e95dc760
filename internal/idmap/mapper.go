// Package idmap records how external ids from an archive map to the ids of
// rows created by an import job.
//
// A Mapper is scoped to one job. Each (entity type, external id) pair is
// written at most once; a second write with a different id is an error.
package idmap

import (
	"fmt"
	"sort"
)

// Entity types used as the first level of the mapping table.
const (
	Journal       = "journal"
	Entry         = "entry"
	Moment        = "moment"
	Media         = "media"
	Mood          = "mood"
	MoodGroup     = "mood_group"
	ActivityGroup = "activity_group"
	Activity      = "activity"
	GoalCategory  = "goal_category"
	Goal          = "goal"
	GoalLog       = "goal_log"
)

// Mapper is not safe for concurrent use; a job is processed by one worker.
type Mapper struct {
	table map[string]map[string]string
}

func New() *Mapper {
	return &Mapper{table: make(map[string]map[string]string)}
}

// Set records externalID → newID for entityType. Empty external ids are
// ignored. Re-recording the same pair is a no-op.
func (m *Mapper) Set(entityType, externalID, newID string) error {
	if externalID == "" {
		return nil
	}
	byType, ok := m.table[entityType]
	if !ok {
		byType = make(map[string]string)
		m.table[entityType] = byType
	}
	if existing, ok := byType[externalID]; ok {
		if existing == newID {
			return nil
		}
		return fmt.Errorf("%s %q already mapped to %s", entityType, externalID, existing)
	}
	byType[externalID] = newID
	return nil
}

// Get returns the new id for an external id.
func (m *Mapper) Get(entityType, externalID string) (string, bool) {
	if externalID == "" {
		return "", false
	}
	id, ok := m.table[entityType][externalID]
	return id, ok
}

// Lookup is Get for optional references: a nil or unmapped reference yields
// nil.
func (m *Mapper) Lookup(entityType string, externalID *string) *string {
	if externalID == nil {
		return nil
	}
	id, ok := m.Get(entityType, *externalID)
	if !ok {
		return nil
	}
	return &id
}

// Len returns the number of mappings recorded for entityType.
func (m *Mapper) Len(entityType string) int {
	return len(m.table[entityType])
}

// Fork returns a copy that can be discarded when a unit rolls back.
func (m *Mapper) Fork() *Mapper {
	out := New()
	for t, byType := range m.table {
		cp := make(map[string]string, len(byType))
		for k, v := range byType {
			cp[k] = v
		}
		out.table[t] = cp
	}
	return out
}

// Merge copies the mappings of a committed fork back into m.
func (m *Mapper) Merge(fork *Mapper) {
	for t, byType := range fork.table {
		for k, v := range byType {
			if _, ok := m.table[t]; !ok {
				m.table[t] = make(map[string]string)
			}
			m.table[t][k] = v
		}
	}
}

// Snapshot returns a copy of the table suitable for a job summary.
func (m *Mapper) Snapshot() map[string]map[string]string {
	out := make(map[string]map[string]string, len(m.table))
	for t, byType := range m.table {
		cp := make(map[string]string, len(byType))
		for k, v := range byType {
			cp[k] = v
		}
		out[t] = cp
	}
	return out
}

// Types returns the entity types with at least one mapping, sorted.
func (m *Mapper) Types() []string {
	types := make([]string, 0, len(m.table))
	for t, byType := range m.table {
		if len(byType) > 0 {
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}
