package models

import (
	"sort"
	"time"
)

// BookedInterval is one occupancy entry for a resource.
type BookedInterval struct {
	Start           time.Time
	End             time.Time
	RequestID       string
	OccurrenceIndex int
	Locked          bool
}

// IntervalSet keeps a resource's bookings sorted by start time so overlap
// probes run in O(log n + k) where k is the number of neighbours that can
// possibly overlap. The solver performs one probe per
// (occurrence, candidate slot, candidate resource) combination, which makes
// this the hottest data structure in the engine.
type IntervalSet struct {
	intervals []BookedInterval
	// maxDur is an upper bound on interval length, used to bound the
	// leftward neighbour scan. It never shrinks on removal; staying an
	// upper bound is sufficient for correctness.
	maxDur time.Duration
}

// Len returns the number of booked intervals.
func (s *IntervalSet) Len() int {
	return len(s.intervals)
}

// Insert adds a booking, keeping start-time order.
func (s *IntervalSet) Insert(iv BookedInterval) {
	if d := iv.End.Sub(iv.Start); d > s.maxDur {
		s.maxDur = d
	}
	idx := sort.Search(len(s.intervals), func(i int) bool {
		return s.intervals[i].Start.After(iv.Start)
	})
	s.intervals = append(s.intervals, BookedInterval{})
	copy(s.intervals[idx+1:], s.intervals[idx:])
	s.intervals[idx] = iv
}

// Remove deletes the booking for the given request occurrence. Locked
// intervals are never removed.
func (s *IntervalSet) Remove(requestID string, occurrenceIndex int) bool {
	for i, iv := range s.intervals {
		if iv.RequestID == requestID && iv.OccurrenceIndex == occurrenceIndex && !iv.Locked {
			s.intervals = append(s.intervals[:i], s.intervals[i+1:]...)
			return true
		}
	}
	return false
}

// Overlapping returns the bookings intersecting the half-open range
// [start, end). Back-to-back bookings do not intersect.
func (s *IntervalSet) Overlapping(start, end time.Time) []BookedInterval {
	if len(s.intervals) == 0 {
		return nil
	}
	// First candidate that could still overlap: anything starting at or
	// after start-maxDur. Everything before that is guaranteed to have
	// ended already.
	low := sort.Search(len(s.intervals), func(i int) bool {
		return !s.intervals[i].Start.Before(start.Add(-s.maxDur))
	})
	var out []BookedInterval
	for i := low; i < len(s.intervals); i++ {
		iv := s.intervals[i]
		if !iv.Start.Before(end) {
			break
		}
		if iv.End.After(start) {
			out = append(out, iv)
		}
	}
	return out
}

// ConcurrentWith returns the peak number of simultaneous bookings inside
// [start, end) if a new booking for that range were added. Used by the
// capacity-aware overlap constraint.
func (s *IntervalSet) ConcurrentWith(start, end time.Time) int {
	overlapping := s.Overlapping(start, end)
	if len(overlapping) == 0 {
		return 1
	}

	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, 2*len(overlapping)+2)
	clamp := func(t, lo, hi time.Time) time.Time {
		if t.Before(lo) {
			return lo
		}
		if t.After(hi) {
			return hi
		}
		return t
	}
	for _, iv := range overlapping {
		edges = append(edges,
			edge{at: clamp(iv.Start, start, end), delta: 1},
			edge{at: clamp(iv.End, start, end), delta: -1})
	}
	edges = append(edges, edge{at: start, delta: 1}, edge{at: end, delta: -1})

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			// Ends sort before starts so touching intervals never
			// count as concurrent.
			return edges[i].delta < edges[j].delta
		}
		return edges[i].at.Before(edges[j].at)
	})

	peak, current := 0, 0
	for _, e := range edges {
		current += e.delta
		if current > peak {
			peak = current
		}
	}
	return peak
}

// Snapshot returns a copy of the set, used by the solver to build mutable
// per-solve occupancy state without touching the canonical indices.
func (s *IntervalSet) Snapshot() *IntervalSet {
	clone := &IntervalSet{
		intervals: make([]BookedInterval, len(s.intervals)),
		maxDur:    s.maxDur,
	}
	copy(clone.intervals, s.intervals)
	return clone
}
