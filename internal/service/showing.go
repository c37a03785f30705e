package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/approval"
	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/inflight"
	"github.com/pkordes/showing-tours/internal/repo"
	"github.com/pkordes/showing-tours/internal/schedule"
	"github.com/pkordes/showing-tours/internal/tracing"
)

// ErrNoListingAgent is recorded on an outcome when a stop's listing has no
// agent to address the request to.
var ErrNoListingAgent = errors.New("listing has no listing agent")

// ShowingDeps are the collaborators of a ShowingService.
type ShowingDeps struct {
	Tours    repo.TourRepo
	Stops    repo.StopRepo
	Messages repo.MessageRepo
	Notifier Notifier
	Approver SelfApprover
	Guard    inflight.Guard
	// Location renders times in messages. Nil means UTC.
	Location *time.Location
	Log      *slog.Logger
}

// ShowingService drives each stop through the showing-request lifecycle:
// sending requests, self-approval, and the listing agent's replies.
//
// State changes are persisted first. The message log and the notification
// that follow are best effort: a failure there is logged and reported on the
// outcome, never rolled back.
type ShowingService struct {
	tours    repo.TourRepo
	stops    repo.StopRepo
	messages repo.MessageRepo
	notifier Notifier
	approver SelfApprover
	guard    inflight.Guard
	text     notices
	log      *slog.Logger
}

// NewShowingService constructs a ShowingService. A nil Guard means a
// process-local one.
func NewShowingService(d ShowingDeps) *ShowingService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	guard := d.Guard
	if guard == nil {
		guard = inflight.NewLocal()
	}
	return &ShowingService{
		tours:    d.Tours,
		stops:    d.Stops,
		messages: d.Messages,
		notifier: d.Notifier,
		approver: d.Approver,
		guard:    guard,
		text:     notices{loc: loc, now: time.Now},
		log:      orDefault(d.Log),
	}
}

// Response is a listing agent's reply to a showing request.
type Response struct {
	TourID     uuid.UUID
	StopID     uuid.UUID
	FromUserID uuid.UUID
	Kind       domain.ResponseKind
	// Message overrides the default log entry text.
	Message string
	// SuggestedTime is required for ResponseSuggest.
	SuggestedTime *time.Time
}

// AcceptResult reports what AcceptSuggestedTime found and did.
type AcceptResult struct {
	Stop      domain.TourStop `json:"stop"`
	Check     schedule.Result `json:"check"`
	Committed bool            `json:"committed"`
}

// SendShowingRequest sends the request for one stop on behalf of userID.
// A stop whose request is current, or whose listing is custom, succeeds
// without any remote call. A stop without a start time is rejected with
// domain.ErrValidation before anything is written.
func (s *ShowingService) SendShowingRequest(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.ShowingRequestOutcome, error) {
	tour, err := editableTour(ctx, s.tours, tourID)
	if err != nil {
		return domain.ShowingRequestOutcome{}, fmt.Errorf("service.ShowingService.SendShowingRequest: %w", err)
	}
	stop, err := s.stops.GetByID(ctx, tourID, stopID)
	if err != nil {
		return domain.ShowingRequestOutcome{}, fmt.Errorf("service.ShowingService.SendShowingRequest: %w", err)
	}
	if needsSend(stop) {
		if err := requireScheduled(stop); err != nil {
			return domain.ShowingRequestOutcome{}, fmt.Errorf("service.ShowingService.SendShowingRequest: %w", err)
		}
	}
	return s.send(ctx, tour, stop, userID), nil
}

// SendAllShowingRequests sends requests for every live stop of the tour, one
// stop at a time in order, and always returns one outcome per stop. A failed
// stop never stops the batch; a cancelled ctx marks the remaining stops
// unsuccessful.
//
// Before sending, the tour's span is recomputed from its stops. Only one batch
// per tour may run at a time; a second is refused with domain.ErrConflict.
func (s *ShowingService) SendAllShowingRequests(ctx context.Context, tourID, userID uuid.UUID) (result domain.BatchResult, err error) {
	ctx, span := tracing.Start(ctx, "SendAllShowingRequests")
	defer func() { span.End(err) }()
	span.Annotate("tour_id", tourID.String())

	release, err := s.guard.Acquire(ctx, "send-all:"+tourID.String())
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("service.ShowingService.SendAllShowingRequests: %w", err)
	}
	defer release()

	tour, err := editableTour(ctx, s.tours, tourID)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("service.ShowingService.SendAllShowingRequests: %w", err)
	}
	stops, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("service.ShowingService.SendAllShowingRequests: %w", err)
	}
	if len(stops) == 0 {
		return domain.BatchResult{}, fmt.Errorf("service.ShowingService.SendAllShowingRequests: %w: tour has no stops", domain.ErrValidation)
	}
	for _, st := range stops {
		if !needsSend(st) {
			continue
		}
		if err := requireScheduled(st); err != nil {
			return domain.BatchResult{}, fmt.Errorf("service.ShowingService.SendAllShowingRequests: %w", err)
		}
	}

	if tour, err = syncSpan(ctx, s.tours, stops, tourID); err != nil {
		return domain.BatchResult{}, fmt.Errorf("service.ShowingService.SendAllShowingRequests: span: %w", err)
	}

	ordered := schedule.SortByOrder(stops)
	outcomes := make([]domain.ShowingRequestOutcome, 0, len(ordered))
	for _, st := range ordered {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, domain.ShowingRequestOutcome{StopID: st.ID, Err: err})
			continue
		}
		outcomes = append(outcomes, s.send(ctx, tour, st, userID))
	}

	summary := ClassifyBatch(ordered, outcomes)
	span.Annotate("stops", len(outcomes))
	span.Annotate("failed", len(summary.Failed))
	s.log.InfoContext(ctx, "showing requests sent",
		"tour_id", tourID, "stops", len(outcomes), "failed", len(summary.Failed), "summary", summary.Kind)
	return domain.BatchResult{Outcomes: outcomes, Summary: summary}, nil
}

// ClassifyBatch picks the caller-facing summary of a batch from the stops as
// they were before sending and the outcomes. It is derived, never stored.
func ClassifyBatch(before []domain.TourStop, outcomes []domain.ShowingRequestOutcome) domain.BatchSummary {
	summary := domain.BatchSummary{Failed: []uuid.UUID{}}
	for _, o := range outcomes {
		if !o.WasSuccessful {
			summary.Failed = append(summary.Failed, o.StopID)
		}
	}

	needed, allSettled := false, true
	for _, st := range before {
		if st.Property.IsCustom {
			continue
		}
		if st.State() == domain.StateNeedsRequest {
			needed = true
		}
		if !st.Settled() {
			allSettled = false
		}
	}
	switch {
	case needed:
		summary.Kind = domain.SummaryRequestsSent
	case allSettled:
		summary.Kind = domain.SummaryNoRequestsNeeded
	default:
		summary.Kind = domain.SummaryAllAlreadySent
	}
	return summary
}

// send performs one stop's request. A stop that needs sending must be
// scheduled.
func (s *ShowingService) send(ctx context.Context, tour domain.Tour, stop domain.TourStop, userID uuid.UUID) domain.ShowingRequestOutcome {
	out := domain.ShowingRequestOutcome{StopID: stop.ID}
	if !needsSend(stop) {
		out.WasSuccessful = true
		return out
	}

	sent, notRequired := true, false
	patch := domain.StopPatch{
		ID:                      stop.ID,
		RequestSent:             &sent,
		ShowingRequestRequired:  &notRequired,
		LastRequestSentByUserID: &userID,
	}
	if stop.ShowingRequestRequired {
		pending := domain.StatusPending
		patch.Status = &pending
		patch.ClearSuggestedStartTime = true
	}
	updated, err := s.stops.Update(ctx, patch)
	if err != nil {
		s.log.ErrorContext(ctx, "persist showing request failed", "tour_id", tour.ID, "stop_id", stop.ID, "error", err)
		out.Err = err
		return out
	}

	body := s.text.requestBody(updated)
	var to uuid.UUID
	if updated.Property.ListingAgentID != nil {
		to = *updated.Property.ListingAgentID
	}
	logErr := s.appendMessage(ctx, tour, updated, userID, to, body)
	notifyErr := s.publish(ctx, tour, updated, to, func(to uuid.UUID) domain.Notification {
		return s.text.request(to, tour, updated)
	})

	out.Err = errors.Join(logErr, notifyErr)
	out.WasSuccessful = out.Err == nil
	return out
}

// CanSelfApprove reports whether userID may approve the stop's showing
// without the listing agent.
func (s *ShowingService) CanSelfApprove(ctx context.Context, tourID, stopID uuid.UUID) (approval.Decision, error) {
	stop, err := s.stops.GetByID(ctx, tourID, stopID)
	if err != nil {
		return approval.Decision{}, fmt.Errorf("service.ShowingService.CanSelfApprove: %w", err)
	}
	d, err := s.approver.CanSelfApprove(ctx, stop)
	if err != nil {
		return approval.Decision{}, fmt.Errorf("service.ShowingService.CanSelfApprove: %w", err)
	}
	return d, nil
}

// SelfApprove approves the stop's showing on the listing agent's behalf when
// the listing permits it, and tells the listing agent. Returns
// domain.ErrNotAllowed when it does not.
func (s *ShowingService) SelfApprove(ctx context.Context, tourID, stopID, userID uuid.UUID) (domain.TourStop, error) {
	tour, err := editableTour(ctx, s.tours, tourID)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.SelfApprove: %w", err)
	}
	stop, err := s.stops.GetByID(ctx, tourID, stopID)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.SelfApprove: %w", err)
	}
	if err := requireScheduled(stop); err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.SelfApprove: %w", err)
	}

	d, err := s.approver.CanSelfApprove(ctx, stop)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.SelfApprove: %w", err)
	}
	if !d.Allowed {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.SelfApprove: %w: %s", domain.ErrNotAllowed, d.Reason)
	}

	patch := approvedPatch(stop, userID)
	updated, err := s.stops.Update(ctx, patch)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.SelfApprove: %w", err)
	}

	if !updated.Property.IsCustom && updated.Property.ListingAgentID != nil {
		to := *updated.Property.ListingAgentID
		_ = s.appendMessage(ctx, tour, updated, userID, to, s.text.selfApprovedBody(updated))
		_ = s.publish(ctx, tour, updated, to, func(to uuid.UUID) domain.Notification {
			return s.text.selfApproved(to, tour, updated)
		})
	}
	return updated, nil
}

// RespondToRequest records the listing agent's reply. Approve, reject and
// suggest need a request to have been sent. A comment marks the stop as
// having a new message only while the request is still pending; it never
// replaces a disposition. The touring agent is notified of every reply.
func (s *ShowingService) RespondToRequest(ctx context.Context, r Response) (domain.TourStop, error) {
	switch r.Kind {
	case domain.ResponseApprove, domain.ResponseReject, domain.ResponseComment:
	case domain.ResponseSuggest:
		if r.SuggestedTime == nil {
			return domain.TourStop{}, fmt.Errorf("%w: suggested_time is required", domain.ErrValidation)
		}
	default:
		return domain.TourStop{}, fmt.Errorf("%w: unknown response %q", domain.ErrValidation, r.Kind)
	}
	if r.Kind == domain.ResponseComment && r.Message == "" {
		return domain.TourStop{}, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	tour, err := s.tours.GetByID(ctx, r.TourID)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.RespondToRequest: %w", err)
	}
	stop, err := s.stops.GetByID(ctx, r.TourID, r.StopID)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.RespondToRequest: %w", err)
	}
	if agent := stop.Property.ListingAgentID; agent != nil && *agent != r.FromUserID {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.RespondToRequest: %w: only the listing agent may respond", domain.ErrNotAllowed)
	}
	if r.Kind != domain.ResponseComment && !stop.RequestSent {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.RespondToRequest: %w: no showing request has been sent", domain.ErrValidation)
	}

	patch := domain.StopPatch{ID: stop.ID}
	switch r.Kind {
	case domain.ResponseApprove:
		status, dur := domain.StatusApproved, stop.Duration
		patch.Status, patch.ApprovedDuration, patch.ClearSuggestedStartTime = &status, &dur, true
	case domain.ResponseReject:
		status := domain.StatusRejected
		patch.Status, patch.ClearSuggestedStartTime = &status, true
	case domain.ResponseSuggest:
		status := domain.StatusTimeSuggested
		patch.Status, patch.SuggestedStartTime = &status, r.SuggestedTime
	case domain.ResponseComment:
		if stop.Status == domain.StatusPending {
			status := domain.StatusNewMessage
			patch.Status = &status
		}
	}
	updated, err := s.stops.Update(ctx, patch)
	if err != nil {
		return domain.TourStop{}, fmt.Errorf("service.ShowingService.RespondToRequest: %w", err)
	}

	body := r.Message
	if body == "" {
		body = s.text.responseBody(r.Kind, updated, r.SuggestedTime)
	}
	_ = s.appendMessage(ctx, tour, updated, r.FromUserID, tour.AgentID, body)
	_ = s.publish(ctx, tour, updated, tour.AgentID, func(to uuid.UUID) domain.Notification {
		return s.text.response(to, r.Kind, body, tour, updated)
	})
	return updated, nil
}

// AcceptSuggestedTime moves the stop to the time the listing agent suggested
// and approves it. The move is checked against the rest of the tour first; a
// conflict that re-sequencing cannot repair is returned uncommitted unless
// confirm is set.
func (s *ShowingService) AcceptSuggestedTime(ctx context.Context, tourID, stopID, userID uuid.UUID, confirm bool) (AcceptResult, error) {
	tour, err := editableTour(ctx, s.tours, tourID)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: %w", err)
	}
	current, err := s.stops.ListByTourID(ctx, tourID, false)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: %w", err)
	}
	stop, err := findStop(current, stopID)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: %w", err)
	}
	if stop.Status != domain.StatusTimeSuggested || stop.SuggestedStartTime == nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: %w: no suggested time to accept", domain.ErrValidation)
	}

	suggested := *stop.SuggestedStartTime
	check := schedule.CheckStopTimes(current, &schedule.Hypothetical{StopID: stop.ID, StartTime: &suggested, Duration: stop.Duration})
	if needsConfirmation(tour, check) && !confirm {
		return AcceptResult{Stop: stop, Check: check}, nil
	}

	patch := approvedPatch(stop, userID)
	patch.StartTime = &suggested
	if _, err := s.stops.Update(ctx, patch); err != nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: %w", err)
	}

	ordered, err := reorderIfAuto(ctx, s.stops, tour)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: reorder: %w", err)
	}
	if _, err := syncSpan(ctx, s.tours, ordered, tourID); err != nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: span: %w", err)
	}
	updated, err := findStop(ordered, stopID)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("service.ShowingService.AcceptSuggestedTime: %w", err)
	}

	if updated.Property.ListingAgentID != nil {
		to := *updated.Property.ListingAgentID
		_ = s.appendMessage(ctx, tour, updated, userID, to, s.text.acceptedBody(updated))
		_ = s.publish(ctx, tour, updated, to, func(to uuid.UUID) domain.Notification {
			return s.text.accepted(to, tour, updated)
		})
	}
	return AcceptResult{Stop: updated, Check: check, Committed: true}, nil
}

// Messages returns the stop's message log, oldest first.
func (s *ShowingService) Messages(ctx context.Context, tourID, stopID uuid.UUID) ([]domain.Message, error) {
	if _, err := s.stops.GetByID(ctx, tourID, stopID); err != nil {
		return nil, fmt.Errorf("service.ShowingService.Messages: %w", err)
	}
	msgs, err := s.messages.ListByStop(ctx, stopID)
	if err != nil {
		return nil, fmt.Errorf("service.ShowingService.Messages: %w", err)
	}
	return msgs, nil
}

func (s *ShowingService) appendMessage(ctx context.Context, tour domain.Tour, stop domain.TourStop, from, to uuid.UUID, body string) error {
	if to == uuid.Nil {
		s.log.WarnContext(ctx, "message not logged", "tour_id", tour.ID, "stop_id", stop.ID, "error", ErrNoListingAgent)
		return ErrNoListingAgent
	}
	_, err := s.messages.Append(ctx, domain.Message{StopID: stop.ID, FromUserID: from, ToUserID: to, Body: body})
	if err != nil {
		s.log.WarnContext(ctx, "append message failed", "tour_id", tour.ID, "stop_id", stop.ID, "error", err)
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *ShowingService) publish(ctx context.Context, tour domain.Tour, stop domain.TourStop, to uuid.UUID, build func(uuid.UUID) domain.Notification) error {
	if to == uuid.Nil {
		s.log.WarnContext(ctx, "notification not sent", "tour_id", tour.ID, "stop_id", stop.ID, "error", ErrNoListingAgent)
		return ErrNoListingAgent
	}
	if err := s.notifier.Notify(ctx, build(to)); err != nil {
		s.log.WarnContext(ctx, "publish notification failed", "tour_id", tour.ID, "stop_id", stop.ID, "user_id", to, "error", err)
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// needsSend reports whether a stop's request has to go out. Custom listings
// never need one.
func needsSend(stop domain.TourStop) bool {
	if stop.Property.IsCustom {
		return false
	}
	return !stop.RequestSent || stop.ShowingRequestRequired
}

func requireScheduled(stop domain.TourStop) error {
	if stop.StartTime == nil {
		return fmt.Errorf("%w: stop %s has no start time", domain.ErrValidation, stop.ID)
	}
	return nil
}

func approvedPatch(stop domain.TourStop, userID uuid.UUID) domain.StopPatch {
	status := domain.StatusApproved
	sent, notRequired := true, false
	dur := stop.Duration
	return domain.StopPatch{
		ID:                      stop.ID,
		Status:                  &status,
		RequestSent:             &sent,
		ShowingRequestRequired:  &notRequired,
		LastRequestSentByUserID: &userID,
		ApprovedDuration:        &dur,
		ClearSuggestedStartTime: true,
	}
}
