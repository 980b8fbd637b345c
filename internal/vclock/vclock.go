// Package vclock implements a per-room vector clock: a monotone counter map
// keyed by user id, used to establish causal order between operations
// appended to a room's log.
package vclock

import "sort"

// Clock is a mapping from userId to a monotone non-negative counter.
// The zero value is an empty clock. Not safe for concurrent use; callers
// that share a Clock across goroutines (the room's live clock) must
// serialize access themselves, the same way the teacher's OTEngine
// serializes RoomState behind room.mutex.
type Clock map[string]uint64

// Snapshot returns a copy of the clock, safe to stamp onto an Operation and
// keep around after the live clock mutates further.
func (c Clock) Snapshot() Clock {
	out := make(Clock, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Increment raises clock[userID] by 1 (defaulting from 0) and returns a
// frozen snapshot of the clock after the increment.
func (c Clock) Increment(userID string) Clock {
	c[userID] = c[userID] + 1
	return c.Snapshot()
}

// Merge sets clock[k] = max(clock[k], remote[k]) for every key in remote.
// Mutates c in place, mirroring the teacher's VectorClock.Update in
// agent/vector_clock.go.
func (c Clock) Merge(remote Clock) {
	for k, v := range remote {
		if cur, ok := c[k]; !ok || v > cur {
			c[k] = v
		}
	}
}

// Relation is the outcome of comparing two clocks.
type Relation int

const (
	// Before means A happens-before B: every component of A is <= B's and
	// at least one is strictly less.
	Before Relation = -1
	// Concurrent means neither clock dominates the other (or they are
	// componentwise equal).
	Concurrent Relation = 0
	// After is the mirror of Before.
	After Relation = 1
)

// Compare examines the union of keys present in a and b.
func Compare(a, b Clock) Relation {
	aLessOrEqual := true
	bLessOrEqual := true
	aStrictlyLess := false
	bStrictlyLess := false

	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}

	for k := range seen {
		av, bv := a[k], b[k]
		if av > bv {
			aLessOrEqual = false
			bStrictlyLess = true
		}
		if bv > av {
			bLessOrEqual = false
			aStrictlyLess = true
		}
	}

	switch {
	case aLessOrEqual && aStrictlyLess:
		return Before
	case bLessOrEqual && bStrictlyLess:
		return After
	default:
		return Concurrent
	}
}

// Dominates reports whether a >= b componentwise (b happens-before-or-equal
// a). The operation log does not call it; the room clock grows on append
// through Increment alone.
func Dominates(a, b Clock) bool {
	for k, bv := range b {
		if a[k] < bv {
			return false
		}
	}
	return true
}

// Timestamped is anything sortEvents can order: a vector clock plus a
// tiebreaker timestamp.
type Timestamped interface {
	Clock() Clock
	Timestamp() int64
}

// SortEvents performs a stable sort of list by causal order (Compare on
// each item's Clock), using Timestamp as the deterministic tiebreaker for
// concurrent events. Equivalent to repeatedly applying Compare as a partial
// order extended to a total order via the timestamp, matching §4.A.
func SortEvents[T Timestamped](list []T) {
	sort.SliceStable(list, func(i, j int) bool {
		rel := Compare(list[i].Clock(), list[j].Clock())
		switch rel {
		case Before:
			return true
		case After:
			return false
		default:
			ti, tj := list[i].Timestamp(), list[j].Timestamp()
			if ti != tj {
				return ti < tj
			}
			return false
		}
	})
}
