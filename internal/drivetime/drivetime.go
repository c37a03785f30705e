// Package drivetime attaches estimated travel durations between consecutive
// stops of a tour.
package drivetime

import (
	"context"
	"log/slog"
	"math"
	"slices"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/timeutil"
)

// Router returns the travel estimate between two addresses.
// *routing.Client satisfies this interface.
type Router interface {
	TravelDuration(ctx context.Context, from, to string) (domain.TravelEstimate, error)
}

// Annotator walks an ordered stop list and fills in EstDriveSeconds and
// EstDriveStr. Legs are routed one at a time: each leg starts where the
// previous stop is, so the calls are never issued concurrently.
type Annotator struct {
	router Router
	log    *slog.Logger
}

// NewAnnotator creates an Annotator. A nil logger means slog.Default().
func NewAnnotator(router Router, log *slog.Logger) *Annotator {
	if log == nil {
		log = slog.Default()
	}
	return &Annotator{router: router, log: log}
}

// Annotate returns a copy of stops, sorted by order, with drive estimates
// set. The first stop is 0 / "Start Here" unless origin is non-empty, in
// which case its leg is routed from origin.
//
// A failed leg is logged and the stop keeps whatever estimate it had; the
// walk continues with the next stop.
func (a *Annotator) Annotate(ctx context.Context, stops []domain.TourStop, origin string) []domain.TourStop {
	out := schedule.SortByOrder(stops)
	for i := range out {
		if i == 0 {
			if origin == "" {
				setStartHere(&out[i])
				continue
			}
			a.leg(ctx, origin, &out[i])
			continue
		}
		a.leg(ctx, out[i-1].Property.Address, &out[i])
	}
	return out
}

// AnnotateWithOverlapAwareness behaves like Annotate, except for runs of
// consecutive stops that share an identical start time. For such a run every
// member is first routed from the stop before the run (or origin), the run is
// sorted by that drive time shortest first, and the run's order values are
// reassigned in the new sequence. Members after the first are then routed
// from the member before them.
func (a *Annotator) AnnotateWithOverlapAwareness(ctx context.Context, stops []domain.TourStop, origin string) []domain.TourStop {
	out := schedule.SortByOrder(stops)

	for i := 0; i < len(out); {
		j := i + 1
		for j < len(out) && sameStart(out[i], out[j]) {
			j++
		}

		anchor := origin
		if i > 0 {
			anchor = out[i-1].Property.Address
		}

		if j-i == 1 {
			if anchor == "" {
				setStartHere(&out[i])
			} else {
				a.leg(ctx, anchor, &out[i])
			}
			i = j
			continue
		}

		a.settleTie(ctx, out[i:j], anchor)
		i = j
	}
	return out
}

// settleTie sorts a run of tied stops in place by drive time from anchor and
// annotates them.
func (a *Annotator) settleTie(ctx context.Context, group []domain.TourStop, anchor string) {
	orders := make([]int, len(group))
	for k := range group {
		orders[k] = group[k].Order
	}

	fromAnchor := make([]int, len(group))
	for k := range group {
		if anchor == "" {
			setStartHere(&group[k])
			fromAnchor[k] = 0
			continue
		}
		if a.leg(ctx, anchor, &group[k]) {
			fromAnchor[k] = *group[k].EstDriveSeconds
		} else {
			fromAnchor[k] = math.MaxInt
		}
	}

	idx := make([]int, len(group))
	for k := range idx {
		idx[k] = k
	}
	slices.SortStableFunc(idx, func(x, y int) int {
		switch {
		case fromAnchor[x] < fromAnchor[y]:
			return -1
		case fromAnchor[x] > fromAnchor[y]:
			return 1
		}
		return 0
	})

	sorted := make([]domain.TourStop, len(group))
	for k, from := range idx {
		sorted[k] = group[from]
		sorted[k].Order = orders[k]
	}
	copy(group, sorted)

	for k := 1; k < len(group); k++ {
		a.leg(ctx, group[k-1].Property.Address, &group[k])
	}

	a.log.DebugContext(ctx, "tied stops reordered by drive time",
		slog.Int("count", len(group)),
		slog.String("tour_id", group[0].TourID.String()),
	)
}

// leg routes from -> s and stores the result on s. It reports whether the
// estimate was updated.
func (a *Annotator) leg(ctx context.Context, from string, s *domain.TourStop) bool {
	est, err := a.router.TravelDuration(ctx, from, s.Property.Address)
	if err != nil {
		a.log.WarnContext(ctx, "drive time lookup failed; keeping previous estimate",
			slog.String("tour_id", s.TourID.String()),
			slog.String("stop_id", s.ID.String()),
			slog.String("error", err.Error()),
		)
		return false
	}
	secs := est.Seconds
	s.EstDriveSeconds = &secs
	s.EstDriveStr = est.Text
	if s.EstDriveStr == "" {
		s.EstDriveStr = timeutil.FormatDriveTime(secs)
	}
	return true
}

func setStartHere(s *domain.TourStop) {
	zero := 0
	s.EstDriveSeconds = &zero
	s.EstDriveStr = domain.StartHere
}

func sameStart(a, b domain.TourStop) bool {
	return a.StartTime != nil && b.StartTime != nil && a.StartTime.Equal(*b.StartTime)
}
