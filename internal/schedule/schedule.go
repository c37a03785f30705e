// Package schedule checks and repairs the chronological and overlap integrity
// of a tour's stop list. Every function here is pure: inputs are never
// mutated and no I/O happens.
package schedule

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
)

// Hypothetical replaces one stop's timing for the duration of a check, so a
// caller can ask whether an edit would still hold before committing it.
type Hypothetical struct {
	StopID    uuid.UUID
	StartTime *time.Time
	Duration  float64
}

// Result is the outcome of CheckStopTimes. Conflicts are data, not errors:
// the caller decides whether to proceed, reorder, or abort.
type Result struct {
	IsChronological bool `json:"is_chronological"`
	HasOverlap      bool `json:"has_overlap"`
	// OutOfOrder lists stops whose start is at or after the departure of the
	// stop that follows them in order.
	OutOfOrder []uuid.UUID `json:"out_of_order,omitempty"`
	// Overlapping lists every pair of stops whose intervals intersect.
	Overlapping [][2]uuid.UUID `json:"overlapping,omitempty"`
}

// OK reports whether the stop list has neither kind of conflict.
func (r Result) OK() bool {
	return r.IsChronological && !r.HasOverlap
}

// CheckStopTimes validates a stop list, optionally with one stop's timing
// replaced by h.
//
// Walking the stops by order, the list is chronological unless some stop
// starts at or after the departure (start + duration) of the stop right after
// it. Pairs where either stop has no start time are skipped.
//
// Overlap is checked across all pairs, independent of order: two scheduled
// stops overlap when either start falls strictly inside the other's interval
// or one interval contains the other.
func CheckStopTimes(stops []domain.TourStop, h *Hypothetical) Result {
	sorted := SortByOrder(applyHypothetical(stops, h))

	res := Result{IsChronological: true}
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.StartTime == nil || next.StartTime == nil {
			continue
		}
		if !cur.StartTime.Before(*next.EndTime()) {
			res.IsChronological = false
			res.OutOfOrder = append(res.OutOfOrder, cur.ID)
		}
	}

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if Overlaps(sorted[i], sorted[j]) {
				res.HasOverlap = true
				res.Overlapping = append(res.Overlapping, [2]uuid.UUID{sorted[i].ID, sorted[j].ID})
			}
		}
	}
	return res
}

// Overlaps reports whether two scheduled stops' [start, start+duration)
// intervals intersect. Stops that are not scheduled never overlap anything.
// Back-to-back stops (one ends exactly when the next starts) do not overlap.
func Overlaps(a, b domain.TourStop) bool {
	if !a.Scheduled() || !b.Scheduled() {
		return false
	}
	as, ae := *a.StartTime, *a.EndTime()
	bs, be := *b.StartTime, *b.EndTime()

	startsInside := func(s, from, to time.Time) bool {
		return s.After(from) && s.Before(to)
	}
	contains := func(outerS, outerE, innerS, innerE time.Time) bool {
		return !innerS.Before(outerS) && !innerE.After(outerE)
	}

	return startsInside(bs, as, ae) ||
		startsInside(as, bs, be) ||
		contains(as, ae, bs, be) ||
		contains(bs, be, as, ae)
}

// SortByOrder returns a copy of stops sorted by Order. Ties keep their input
// order.
func SortByOrder(stops []domain.TourStop) []domain.TourStop {
	out := slices.Clone(stops)
	slices.SortStableFunc(out, func(a, b domain.TourStop) int {
		return a.Order - b.Order
	})
	return out
}

// ReorderChronologically returns a copy of stops sorted by start time and
// renumbered 1..n. Stops without a start time go last, keeping their current
// relative order. Start times and durations are untouched. Applying it twice
// yields the same order as applying it once.
func ReorderChronologically(stops []domain.TourStop) []domain.TourStop {
	out := SortByOrder(stops)
	slices.SortStableFunc(out, func(a, b domain.TourStop) int {
		switch {
		case a.StartTime == nil && b.StartTime == nil:
			return 0
		case a.StartTime == nil:
			return 1
		case b.StartTime == nil:
			return -1
		}
		return a.StartTime.Compare(*b.StartTime)
	})
	return renumber(out)
}

// AssignOrder returns a copy of stops renumbered to follow ids. Stops whose
// ID is not in ids keep their relative order after the listed ones.
func AssignOrder(stops []domain.TourStop, ids []uuid.UUID) []domain.TourStop {
	rank := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	out := SortByOrder(stops)
	slices.SortStableFunc(out, func(a, b domain.TourStop) int {
		ra, aok := rank[a.ID]
		rb, bok := rank[b.ID]
		switch {
		case aok && bok:
			return ra - rb
		case aok:
			return -1
		case bok:
			return 1
		}
		return 0
	})
	return renumber(out)
}

// Compact renumbers stops 1..n keeping their current order. Used after a
// stop is removed.
func Compact(stops []domain.TourStop) []domain.TourStop {
	return renumber(SortByOrder(stops))
}

// ChangedOrders returns the stops in after whose Order differs from the stop
// with the same ID in before. Only those need to be written back.
func ChangedOrders(before, after []domain.TourStop) []domain.TourStop {
	prev := make(map[uuid.UUID]int, len(before))
	for _, s := range before {
		prev[s.ID] = s.Order
	}
	var changed []domain.TourStop
	for _, s := range after {
		if o, ok := prev[s.ID]; !ok || o != s.Order {
			changed = append(changed, s)
		}
	}
	return changed
}

// Span returns the earliest start and the latest end across scheduled stops,
// or nils when no stop has a start time.
func Span(stops []domain.TourStop) (start, end *time.Time) {
	for _, s := range stops {
		if s.StartTime == nil {
			continue
		}
		st, en := *s.StartTime, *s.EndTime()
		if start == nil || st.Before(*start) {
			start = &st
		}
		if end == nil || en.After(*end) {
			end = &en
		}
	}
	return start, end
}

// ShouldOptimizeRoute reports whether a tour is eligible for automatic route
// optimization: at least three stops, none approved yet, and neither a route
// already set nor a manual order chosen by the agent.
func ShouldOptimizeRoute(tour domain.Tour, stops []domain.TourStop) bool {
	if len(stops) < 3 || tour.RouteSet || tour.ManuallyOrderedShowings {
		return false
	}
	for _, s := range stops {
		if s.Status == domain.StatusApproved {
			return false
		}
	}
	return true
}

func applyHypothetical(stops []domain.TourStop, h *Hypothetical) []domain.TourStop {
	if h == nil {
		return stops
	}
	out := slices.Clone(stops)
	for i := range out {
		if out[i].ID == h.StopID {
			out[i].StartTime = h.StartTime
			out[i].Duration = h.Duration
		}
	}
	return out
}

func renumber(stops []domain.TourStop) []domain.TourStop {
	for i := range stops {
		stops[i].Order = i + 1
	}
	return stops
}
