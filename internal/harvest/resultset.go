// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import "github.com/pdiddy/scix-harvest/pkg/types"

// MergeResult describes what Merge did with a record.
type MergeResult int

const (
	// Added means the identifier was new.
	Added MergeResult = iota
	// Unchanged means the identifier was present with identical content.
	Unchanged
	// Conflict means the identifier was present with different content;
	// the first record was kept.
	Conflict
)

// Accumulator grows a ResultSet across pages. Records are never silently
// overwritten.
type Accumulator struct {
	set       types.ResultSet
	conflicts int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{set: types.ResultSet{}}
}

// Merge adds rec under id.
func (a *Accumulator) Merge(id string, rec types.ResultRecord) MergeResult {
	existing, ok := a.set[id]
	switch {
	case !ok:
		a.set[id] = rec
		return Added
	case existing.Equal(rec):
		return Unchanged
	default:
		a.conflicts++
		return Conflict
	}
}

// Len returns the number of unique identifiers.
func (a *Accumulator) Len() int { return len(a.set) }

// Conflicts returns how many conflicting repeats were rejected.
func (a *Accumulator) Conflicts() int { return a.conflicts }

// Set returns the accumulated ResultSet. The map is shared, not copied.
func (a *Accumulator) Set() types.ResultSet { return a.set }
