// Package scheduler holds the assignment rules shared by every schedule
// operation: duplicate detection and month/department query resolution.
package scheduler

import (
	"context"
	"errors"
	"fmt"
)

// ErrConflictCheckUnavailable is returned when existing assignments could not be read.
// Callers must refuse the write instead of assuming there is no duplicate.
var ErrConflictCheckUnavailable = errors.New("scheduler: conflict check unavailable")

// Assignment is the identity of a stored schedule row as seen by the conflict rule.
type Assignment struct {
	ID        int64
	MemberID  int64
	ServiceID int64
	Date      string
}

// Proposed is the (member, service, date) triple of a schedule about to be written.
type Proposed struct {
	MemberID  int64
	ServiceID int64
	Date      string
}

// AssignmentFinder returns stored assignments matching a triple exactly.
type AssignmentFinder interface {
	FindAssignments(ctx context.Context, memberID, serviceID int64, date string) ([]Assignment, error)
}

// DetectConflict reports whether any existing assignment duplicates proposed.
// A row whose ID equals excluding is the row being edited and never conflicts.
func DetectConflict(existing []Assignment, proposed Proposed, excluding *int64) bool {
	for _, row := range existing {
		if row.MemberID != proposed.MemberID || row.ServiceID != proposed.ServiceID || row.Date != proposed.Date {
			continue
		}
		if excluding != nil && row.ID == *excluding {
			continue
		}
		return true
	}
	return false
}

// Checker runs DetectConflict against the store.
type Checker struct {
	finder AssignmentFinder
}

// NewChecker wires a Checker to its finder.
func NewChecker(finder AssignmentFinder) *Checker {
	return &Checker{finder: finder}
}

// HasConflict reports whether writing proposed would duplicate an existing
// assignment. Creates pass a nil exclusion; updates pass the edited row's ID.
func (c *Checker) HasConflict(ctx context.Context, proposed Proposed, excluding *int64) (bool, error) {
	if c == nil || c.finder == nil {
		return false, fmt.Errorf("%w: assignment finder not configured", ErrConflictCheckUnavailable)
	}

	existing, err := c.finder.FindAssignments(ctx, proposed.MemberID, proposed.ServiceID, proposed.Date)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConflictCheckUnavailable, err)
	}

	return DetectConflict(existing, proposed, excluding), nil
}
